package render

import (
	"fmt"

	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world/block"
	"github.com/gdamore/tcell/v2"
)

// Frame - всё, что нужно нарисовать за один кадр
type Frame struct {
	Player       vec.Vec3Float
	Stamina      float64
	MaxStamina   float64
	Sprinting    bool
	Selected     block.BlockID
	LoadedChunks int
	Pending      int
	Triangles    int
	FPS          float64
	Message      string
}

// Renderer рисует кадр
type Renderer interface {
	Render(f Frame)
}

// NopRenderer ничего не рисует (безголовый режим)
type NopRenderer struct{}

// Render ничего не делает
func (NopRenderer) Render(Frame) {}

// Terrain отдаёт верхний блок столбца для вида сверху
type Terrain interface {
	TopBlock(x, z int) (id block.BlockID, y int, ok bool)
	Height() int
}

// Символы карты
const (
	playerRune   = '@'
	unloadedRune = '·'
	solidRune    = '█'
	waterRune    = '≈'
)

// TerminalRenderer рисует вид сверху на мир вокруг игрока.
// Цвет клетки - цвет верхнего блока, яркость зависит от высоты.
type TerminalRenderer struct {
	screen  tcell.Screen
	terrain Terrain
}

// NewTerminalRenderer создаёт рендерер поверх инициализированного экрана
func NewTerminalRenderer(screen tcell.Screen, terrain Terrain) *TerminalRenderer {
	return &TerminalRenderer{screen: screen, terrain: terrain}
}

// Render рисует карту, маркер игрока и строку состояния
func (r *TerminalRenderer) Render(f Frame) {
	r.screen.Clear()
	w, h := r.screen.Size()
	if w <= 0 || h <= 1 {
		r.screen.Show()
		return
	}

	mapRows := h - 1
	center := f.Player.Floor()
	cx, cz := w/2, mapRows/2

	for row := 0; row < mapRows; row++ {
		for col := 0; col < w; col++ {
			wx := center.X + col - cx
			wz := center.Z + row - cz
			ch, style := r.cell(wx, wz)
			r.screen.SetContent(col, row, ch, nil, style)
		}
	}

	r.screen.SetContent(cx, cz, playerRune, nil,
		tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack).Bold(true))

	r.drawText(0, h-1, hudLine(f), tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy))
	r.screen.Show()
}

func (r *TerminalRenderer) cell(wx, wz int) (rune, tcell.Style) {
	id, y, ok := r.terrain.TopBlock(wx, wz)
	if !ok {
		return unloadedRune, tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	}
	if y < 0 {
		return ' ', tcell.StyleDefault
	}

	height := r.terrain.Height()
	if height <= 0 {
		height = 1
	}
	c := block.ColorOf(id).Shade(0.45 + 0.55*float64(y)/float64(height))
	color := tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))

	ch := solidRune
	if id == block.WaterBlockID {
		ch = waterRune
	}
	return ch, tcell.StyleDefault.Foreground(color)
}

func (r *TerminalRenderer) drawText(x, y int, text string, style tcell.Style) {
	w, _ := r.screen.Size()
	col := x
	for _, ch := range text {
		if col >= w {
			return
		}
		r.screen.SetContent(col, y, ch, nil, style)
		col++
	}
	for ; col < w; col++ {
		r.screen.SetContent(col, y, ' ', nil, style)
	}
}

func hudLine(f Frame) string {
	name := "?"
	if b, ok := block.Get(f.Selected); ok {
		name = b.Name()
	}
	sprint := ""
	if f.Sprinting {
		sprint = " »"
	}
	line := fmt.Sprintf(" XYZ %.1f %.1f %.1f | ST %3.0f/%.0f%s | chunks %d (+%d) | tris %d | %s | %.0f fps",
		f.Player.X, f.Player.Y, f.Player.Z,
		f.Stamina, f.MaxStamina, sprint,
		f.LoadedChunks, f.Pending, f.Triangles, name, f.FPS)
	if f.Message != "" {
		line += " | " + f.Message
	}
	return line
}
