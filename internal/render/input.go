package render

import (
	"context"
	"sync"
	"time"

	"github.com/annel0/happy-builder/internal/physics"
	"github.com/gdamore/tcell/v2"
)

// Action - разовое действие игрока
type Action int

const (
	ActionPlace      Action = iota + 1 // Поставить выбранный блок
	ActionBreak                        // Сломать блок под ногами или перед игроком
	ActionCycleBlock                   // Выбрать следующий тип блока
)

// Controls - управление за один кадр
type Controls struct {
	Move    physics.Input
	Actions []Action
	Quit    bool
}

// InputSource отдаёт управление на текущий кадр
type InputSource interface {
	Poll(now time.Time) Controls
}

// NopInput - источник без управления (безголовый режим)
type NopInput struct{}

// Poll возвращает пустое управление
func (NopInput) Poll(time.Time) Controls { return Controls{} }

// Терминал не сообщает об отпускании клавиш: нажатие держит движение holdDuration
const holdDuration = 150 * time.Millisecond

const (
	dirNorth = iota
	dirSouth
	dirWest
	dirEast
	dirCount
)

// TerminalInput собирает события клавиатуры tcell в управление игроком.
// WASD и стрелки двигают, заглавные буквы включают бег, пробел - прыжок,
// p - поставить блок, x - сломать, b - сменить блок, q или Esc - выход.
type TerminalInput struct {
	screen tcell.Screen
	hold   time.Duration

	mu          sync.Mutex
	pressed     [dirCount]time.Time
	sprintUntil time.Time
	jump        bool
	actions     []Action
	quit        bool
}

// NewTerminalInput создаёт источник управления для экрана
func NewTerminalInput(screen tcell.Screen) *TerminalInput {
	return &TerminalInput{screen: screen, hold: holdDuration}
}

// Run читает события экрана, пока не закончится контекст или экран не закроется
func (ti *TerminalInput) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		ev := ti.screen.PollEvent()
		if ev == nil {
			return
		}
		if key, ok := ev.(*tcell.EventKey); ok {
			ti.HandleKey(key.Key(), key.Rune(), time.Now())
		}
	}
}

// HandleKey применяет нажатие клавиши
func (ti *TerminalInput) HandleKey(key tcell.Key, ch rune, now time.Time) {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		ti.quit = true
		return
	case tcell.KeyUp:
		ti.pressed[dirNorth] = now
		return
	case tcell.KeyDown:
		ti.pressed[dirSouth] = now
		return
	case tcell.KeyLeft:
		ti.pressed[dirWest] = now
		return
	case tcell.KeyRight:
		ti.pressed[dirEast] = now
		return
	case tcell.KeyRune:
	default:
		return
	}

	switch ch {
	case 'w', 'W':
		ti.move(dirNorth, ch == 'W', now)
	case 's', 'S':
		ti.move(dirSouth, ch == 'S', now)
	case 'a', 'A':
		ti.move(dirWest, ch == 'A', now)
	case 'd', 'D':
		ti.move(dirEast, ch == 'D', now)
	case ' ':
		ti.jump = true
	case 'p':
		ti.actions = append(ti.actions, ActionPlace)
	case 'x':
		ti.actions = append(ti.actions, ActionBreak)
	case 'b':
		ti.actions = append(ti.actions, ActionCycleBlock)
	case 'q':
		ti.quit = true
	}
}

func (ti *TerminalInput) move(dir int, sprint bool, now time.Time) {
	ti.pressed[dir] = now
	if sprint {
		ti.sprintUntil = now.Add(ti.hold)
	}
}

// Poll возвращает управление на момент now и сбрасывает разовые действия
func (ti *TerminalInput) Poll(now time.Time) Controls {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	active := func(dir int) bool {
		t := ti.pressed[dir]
		return !t.IsZero() && now.Sub(t) < ti.hold
	}

	var in physics.Input
	if active(dirNorth) {
		in.MoveZ--
	}
	if active(dirSouth) {
		in.MoveZ++
	}
	if active(dirWest) {
		in.MoveX--
	}
	if active(dirEast) {
		in.MoveX++
	}
	in.Sprint = now.Before(ti.sprintUntil)
	in.Jump = ti.jump

	c := Controls{Move: in, Actions: ti.actions, Quit: ti.quit}
	ti.jump = false
	ti.actions = nil
	return c
}
