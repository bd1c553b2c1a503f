package block

// Color - плоский цвет типа блока (RGB)
type Color struct {
	R, G, B uint8
}

// Floats возвращает компоненты цвета в диапазоне [0, 1] для вершинного буфера
func (c Color) Floats() [3]float32 {
	return [3]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}
}

// Shade затемняет цвет на коэффициент k (0..1)
func (c Color) Shade(k float64) Color {
	if k < 0 {
		k = 0
	}
	if k > 1 {
		k = 1
	}
	return Color{
		R: uint8(float64(c.R) * k),
		G: uint8(float64(c.G) * k),
		B: uint8(float64(c.B) * k),
	}
}

// BlockBehavior определяет свойства типа блока
type BlockBehavior interface {
	ID() BlockID
	Name() string
	// Color используется мешером для раскраски граней
	Color() Color
	// Solid - участвует ли блок в столкновениях игрока
	Solid() bool
	// Placeable - может ли игрок ставить этот блок
	Placeable() bool
}
