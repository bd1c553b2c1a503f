package render

import (
	"strings"
	"testing"
	"time"

	"github.com/annel0/happy-builder/internal/mesh"
	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world/block"
	_ "github.com/annel0/happy-builder/internal/world/block/implementations"
	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatTerrain - трава на высоте 10 для x >= 0, незагруженные столбцы для x < 0
type flatTerrain struct{}

func (flatTerrain) TopBlock(x, z int) (block.BlockID, int, bool) {
	if x < 0 {
		return block.AirBlockID, -1, false
	}
	return block.GrassBlockID, 10, true
}

func (flatTerrain) Height() int { return 64 }

func newSimScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(w, h)
	t.Cleanup(screen.Fini)
	return screen
}

func rowText(screen tcell.Screen, y int) string {
	w, _ := screen.Size()
	var sb strings.Builder
	for x := 0; x < w; x++ {
		ch, _, _, _ := screen.GetContent(x, y)
		sb.WriteRune(ch)
	}
	return sb.String()
}

func TestTerminalRenderer_DrawsPlayerAndHUD(t *testing.T) {
	screen := newSimScreen(t, 40, 11)
	r := NewTerminalRenderer(screen, flatTerrain{})

	r.Render(Frame{
		Player:       vec.Vec3Float{X: 2.5, Y: 11, Z: 0.5},
		Stamina:      80,
		MaxStamina:   100,
		Selected:     block.BrickBlockID,
		LoadedChunks: 9,
		Triangles:    1234,
	})

	ch, _, _, _ := screen.GetContent(20, 5)
	assert.Equal(t, playerRune, ch, "игрок в центре карты")

	// Столбец x=0 в 2 клетках левее игрока, x=-1 - незагруженный
	loaded, _, _, _ := screen.GetContent(18, 2)
	assert.Equal(t, solidRune, loaded)
	unloaded, _, _, _ := screen.GetContent(17, 2)
	assert.Equal(t, unloadedRune, unloaded)

	hud := rowText(screen, 10)
	assert.Contains(t, hud, "chunks 9")
	assert.Contains(t, hud, "Brick")
}

func TestTerminalRenderer_TinyScreen(t *testing.T) {
	screen := newSimScreen(t, 1, 1)
	r := NewTerminalRenderer(screen, flatTerrain{})
	assert.NotPanics(t, func() { r.Render(Frame{}) })
}

func TestTerminalInput_MovementHoldsBriefly(t *testing.T) {
	ti := NewTerminalInput(nil)
	now := time.Now()

	ti.HandleKey(tcell.KeyRune, 'w', now)
	ti.HandleKey(tcell.KeyRight, 0, now)

	c := ti.Poll(now.Add(10 * time.Millisecond))
	assert.Equal(t, -1.0, c.Move.MoveZ)
	assert.Equal(t, 1.0, c.Move.MoveX)
	assert.False(t, c.Move.Sprint)

	c = ti.Poll(now.Add(time.Second))
	assert.False(t, c.Move.Moving(), "без повтора клавиши движение прекращается")
}

func TestTerminalInput_UppercaseSprints(t *testing.T) {
	ti := NewTerminalInput(nil)
	now := time.Now()

	ti.HandleKey(tcell.KeyRune, 'D', now)
	c := ti.Poll(now)
	assert.True(t, c.Move.Sprint)
	assert.Equal(t, 1.0, c.Move.MoveX)
}

func TestTerminalInput_ActionsAreOneShot(t *testing.T) {
	ti := NewTerminalInput(nil)
	now := time.Now()

	ti.HandleKey(tcell.KeyRune, ' ', now)
	ti.HandleKey(tcell.KeyRune, 'p', now)
	ti.HandleKey(tcell.KeyRune, 'x', now)

	c := ti.Poll(now)
	assert.True(t, c.Move.Jump)
	assert.Equal(t, []Action{ActionPlace, ActionBreak}, c.Actions)

	c = ti.Poll(now)
	assert.False(t, c.Move.Jump)
	assert.Empty(t, c.Actions)
}

func TestTerminalInput_Quit(t *testing.T) {
	ti := NewTerminalInput(nil)
	ti.HandleKey(tcell.KeyEscape, 0, time.Now())
	assert.True(t, ti.Poll(time.Now()).Quit)
}

func TestMemoryScene_AddRemove(t *testing.T) {
	s := NewMemoryScene()
	key := vec.Vec2{X: 1}
	a := &mesh.Mesh{Key: key, Positions: make([]float32, 18)}
	b := &mesh.Mesh{Key: key, Positions: make([]float32, 9)}

	s.Add(key, a)
	assert.Equal(t, 1, s.Live())
	assert.Equal(t, 2, s.Triangles())

	s.Add(key, b)
	s.Remove(key, a)
	got, ok := s.Get(key)
	require.True(t, ok, "удаление старого меша не снимает новый")
	assert.Same(t, b, got)

	b.Dispose()
	assert.Equal(t, []vec.Vec2{key}, s.Leaked())

	s.Remove(key, b)
	assert.Equal(t, 0, s.Live())
	assert.Empty(t, s.Leaked())
}
