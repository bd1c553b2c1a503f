package implementations

import (
	"github.com/annel0/happy-builder/internal/world/block"
)

// WaterBehavior реализует поведение воды.
// Для мешера вода не воздух (грани рядом с ней не строятся), но игрок сквозь неё проходит.
type WaterBehavior struct{}

// ID возвращает идентификатор блока
func (b *WaterBehavior) ID() block.BlockID {
	return block.WaterBlockID
}

// Name возвращает имя блока
func (b *WaterBehavior) Name() string {
	return "Water"
}

// Color возвращает цвет воды
func (b *WaterBehavior) Color() block.Color {
	return block.Color{R: 64, G: 128, B: 255}
}

// Solid возвращает false, вода не держит игрока
func (b *WaterBehavior) Solid() bool {
	return false
}

// Placeable возвращает false: вода появляется только при генерации
func (b *WaterBehavior) Placeable() bool {
	return false
}
