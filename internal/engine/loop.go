package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/annel0/happy-builder/internal/logging"
	"github.com/annel0/happy-builder/internal/metrics"
	"github.com/annel0/happy-builder/internal/physics"
	"github.com/annel0/happy-builder/internal/render"
	"github.com/annel0/happy-builder/internal/storage"
	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world"
	"github.com/annel0/happy-builder/internal/world/block"
)

// Options настраивает игровой цикл
type Options struct {
	FPS            int
	RenderDistance int
	PlayerID       string
	Params         physics.Params
	AutosaveEvery  time.Duration
	RespawnY       float64 // Ниже этой высоты игрок возвращается на точку появления
}

// DefaultOptions возвращает настройки по умолчанию
func DefaultOptions() Options {
	return Options{
		FPS:            60,
		RenderDistance: 4,
		PlayerID:       "local",
		Params:         physics.DefaultParams(),
		AutosaveEvery:  30 * time.Second,
		RespawnY:       -32,
	}
}

// Snapshot - состояние игрока для внешних читателей (API)
type Snapshot struct {
	Position  vec.Vec3Float `json:"position"`
	Stamina   float64       `json:"stamina"`
	Grounded  bool          `json:"grounded"`
	Sprinting bool          `json:"sprinting"`
	Chunk     vec.Vec2      `json:"chunk"`
	Selected  uint16        `json:"selected_block"`
	Placed    int           `json:"blocks_placed"`
	Broken    int           `json:"blocks_broken"`
}

// Engine - игровой цикл: ответы генератора, физика игрока, стриминг чанков, отрисовка.
// Состояние мира меняется только в горутине Run.
type Engine struct {
	world    *world.World
	streamer *world.Streamer
	player   *physics.Player
	progress *Progress
	renderer render.Renderer
	input    render.InputSource
	storage  storage.ChunkStorage
	metrics  *metrics.Pipeline
	logger   *logging.Logger
	opts     Options

	spawn    vec.Vec3Float
	facing   vec.Vec3
	fps      float64
	message  string
	msgUntil time.Time
	lastSave time.Time

	mu       sync.RWMutex
	snapshot Snapshot
}

// New создаёт движок; renderer, input, store и m могут быть nil
func New(w *world.World, renderer render.Renderer, input render.InputSource, store storage.ChunkStorage, m *metrics.Pipeline, opts Options) *Engine {
	def := DefaultOptions()
	if opts.FPS <= 0 {
		opts.FPS = def.FPS
	}
	if opts.RenderDistance < 0 {
		opts.RenderDistance = def.RenderDistance
	}
	if opts.PlayerID == "" {
		opts.PlayerID = def.PlayerID
	}
	if opts.Params == (physics.Params{}) {
		opts.Params = def.Params
	}
	if opts.RespawnY == 0 {
		opts.RespawnY = def.RespawnY
	}
	if renderer == nil {
		renderer = render.NopRenderer{}
	}
	if input == nil {
		input = render.NopInput{}
	}

	e := &Engine{
		world:    w,
		streamer: world.NewStreamer(w, opts.RenderDistance),
		renderer: renderer,
		input:    input,
		storage:  store,
		metrics:  m,
		logger:   logging.GetEngineLogger(),
		opts:     opts,
		facing:   vec.Vec3{Z: -1},
	}

	e.spawn = vec.Vec3Float{X: 0.5, Y: float64(w.SurfaceY(0, 0)), Z: 0.5}
	e.player = physics.NewPlayer(e.spawn, opts.Params)
	e.progress = NewProgress(opts.PlayerID, nil)
	e.updateSnapshot()
	return e
}

// SetRenderer заменяет отрисовщик. Вызывать до Run.
func (e *Engine) SetRenderer(r render.Renderer) {
	if r == nil {
		r = render.NopRenderer{}
	}
	e.renderer = r
}

// Player возвращает игрока; использовать только из горутины цикла и тестов
func (e *Engine) Player() *physics.Player {
	return e.player
}

// Progress возвращает прогресс строителя
func (e *Engine) Progress() *Progress {
	return e.progress
}

// Snapshot возвращает последнее состояние игрока; безопасно из любой горутины
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// LoadProfile восстанавливает прогресс строителя из хранилища
func (e *Engine) LoadProfile(ctx context.Context) error {
	if e.storage == nil {
		return nil
	}
	saved, err := e.storage.LoadProfile(ctx, e.opts.PlayerID)
	if errors.Is(err, storage.ErrNotFound) {
		e.logger.Info("Новый строитель %s", e.opts.PlayerID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load profile %s: %w", e.opts.PlayerID, err)
	}
	e.progress = NewProgress(e.opts.PlayerID, saved)
	e.logger.Info("Профиль %s загружен: поставлено %d, сломано %d", e.opts.PlayerID, saved.BlocksPlaced, saved.BlocksBroken)
	return nil
}

// Save сохраняет правки мира и профиль
func (e *Engine) Save(ctx context.Context) error {
	var errs []error
	if err := e.world.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if e.storage != nil {
		if err := e.storage.SaveProfile(ctx, e.progress.Profile()); err != nil {
			errs = append(errs, fmt.Errorf("save profile: %w", err))
		}
	}
	e.lastSave = time.Now()
	return errors.Join(errs...)
}

// Run крутит цикл до отмены контекста или команды выхода, затем сохраняет состояние
func (e *Engine) Run(ctx context.Context) error {
	if err := e.LoadProfile(ctx); err != nil {
		e.logger.Warn("Профиль не загружен: %v", err)
	}

	interval := time.Second / time.Duration(e.opts.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("🎮 Игровой цикл запущен: %d FPS, радиус %d чанков", e.opts.FPS, e.opts.RenderDistance)
	e.lastSave = time.Now()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return e.shutdown()
		case <-e.world.Ready():
			e.world.ProcessResults()
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if quit := e.Tick(now, dt); quit {
				e.logger.Info("Выход по команде игрока")
				return e.shutdown()
			}
		}
	}
}

func (e *Engine) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Save(ctx); err != nil {
		e.logger.Error("Ошибка сохранения при выходе: %v", err)
		return err
	}
	e.logger.Info("💾 Мир и профиль сохранены")
	return nil
}

// Tick выполняет один кадр. Возвращает true, если игрок запросил выход.
func (e *Engine) Tick(now time.Time, dt float64) bool {
	start := time.Now()

	e.world.ProcessResults()

	controls := e.input.Poll(now)
	if controls.Quit {
		return true
	}

	// Пока чанк под игроком не готов, игрок стоит: иначе он провалится в ещё пустой мир
	key := e.player.ChunkKey()
	if e.world.State(key.X, key.Z) == world.ChunkReady {
		e.player.Step(clampDT(dt), controls.Move, e.world)
	}
	e.updateFacing(controls.Move)

	for _, action := range controls.Actions {
		e.apply(action, now)
	}

	if e.player.Position.Y < e.opts.RespawnY {
		e.respawn(now)
	}

	e.streamer.Update(e.player.ChunkKey())

	if dt > 0 {
		e.fps = 0.9*e.fps + 0.1/dt
	}
	e.updateSnapshot()
	e.renderer.Render(e.frame(now))

	if e.opts.AutosaveEvery > 0 && now.Sub(e.lastSave) >= e.opts.AutosaveEvery {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := e.Save(ctx); err != nil {
			e.logger.Warn("Автосохранение не удалось: %v", err)
		}
		cancel()
	}

	e.metrics.ObserveFrame(time.Since(start))
	return false
}

// clampDT ограничивает шаг после долгой паузы кадра
func clampDT(dt float64) float64 {
	if dt > 0.1 {
		return 0.1
	}
	return dt
}

func (e *Engine) updateFacing(in physics.Input) {
	if !in.Moving() {
		return
	}
	if math.Abs(in.MoveX) >= math.Abs(in.MoveZ) {
		e.facing = vec.Vec3{X: int(math.Copysign(1, in.MoveX))}
	} else {
		e.facing = vec.Vec3{Z: int(math.Copysign(1, in.MoveZ))}
	}
}

// target возвращает блок перед игроком на уровне ног
func (e *Engine) target() vec.Vec3 {
	return e.player.BlockPosition().Add(e.facing)
}

func (e *Engine) apply(action render.Action, now time.Time) {
	switch action {
	case render.ActionPlace:
		pos := e.target()
		if e.world.GetBlock(pos.X, pos.Y, pos.Z) != block.AirBlockID {
			e.say(now, "занято")
			return
		}
		if !e.world.SetBlock(pos.X, pos.Y, pos.Z, e.progress.Selected()) {
			return
		}
		if id, ok := e.progress.Placed(); ok {
			if b, found := block.Get(id); found {
				e.say(now, "открыт блок "+b.Name())
			}
		}

	case render.ActionBreak:
		pos := e.target()
		if e.world.GetBlock(pos.X, pos.Y, pos.Z) == block.AirBlockID {
			// Перед игроком пусто: копаем под ногами
			pos = e.player.BlockPosition().Add(vec.Vec3{Y: -1})
		}
		if e.world.GetBlock(pos.X, pos.Y, pos.Z) == block.AirBlockID {
			return
		}
		if e.world.SetBlock(pos.X, pos.Y, pos.Z, block.AirBlockID) {
			e.progress.Broken()
		}

	case render.ActionCycleBlock:
		if b, ok := block.Get(e.progress.Cycle()); ok {
			e.say(now, "блок "+b.Name())
		}
	}
}

func (e *Engine) respawn(now time.Time) {
	e.spawn.Y = float64(e.world.SurfaceY(int(math.Floor(e.spawn.X)), int(math.Floor(e.spawn.Z))))
	e.player.Teleport(e.spawn)
	e.logger.Debug("Игрок упал за пределы мира, возврат на (%.1f, %.1f, %.1f)", e.spawn.X, e.spawn.Y, e.spawn.Z)
	e.say(now, "возврат на точку появления")
}

func (e *Engine) say(now time.Time, msg string) {
	e.message = msg
	e.msgUntil = now.Add(2 * time.Second)
}

func (e *Engine) frame(now time.Time) render.Frame {
	stats := e.world.Stats()
	f := render.Frame{
		Player:       e.player.Position,
		Stamina:      e.player.Stamina,
		MaxStamina:   e.player.Params.MaxStamina,
		Sprinting:    e.player.Sprinting,
		Selected:     e.progress.Selected(),
		LoadedChunks: stats.Meshed,
		Pending:      stats.Pending,
		Triangles:    stats.Triangles,
		FPS:          e.fps,
	}
	if now.Before(e.msgUntil) {
		f.Message = e.message
	}
	return f
}

func (e *Engine) updateSnapshot() {
	profile := e.progress.Profile()
	s := Snapshot{
		Position:  e.player.Position,
		Stamina:   e.player.Stamina,
		Grounded:  e.player.Grounded,
		Sprinting: e.player.Sprinting,
		Chunk:     e.player.ChunkKey(),
		Selected:  profile.SelectedBlock,
		Placed:    profile.BlocksPlaced,
		Broken:    profile.BlocksBroken,
	}
	e.mu.Lock()
	e.snapshot = s
	e.mu.Unlock()
}
