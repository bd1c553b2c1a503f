package implementations

import (
	"github.com/annel0/happy-builder/internal/world/block"
)

// AirBehavior реализует поведение пустого блока (воздуха)
type AirBehavior struct{}

// ID возвращает идентификатор блока
func (b *AirBehavior) ID() block.BlockID {
	return block.AirBlockID
}

// Name возвращает имя блока
func (b *AirBehavior) Name() string {
	return "Air"
}

// Color не используется: воздух не порождает граней
func (b *AirBehavior) Color() block.Color {
	return block.Color{}
}

// Solid возвращает false, сквозь воздух можно пройти
func (b *AirBehavior) Solid() bool {
	return false
}

// Placeable возвращает true: установка воздуха означает удаление блока
func (b *AirBehavior) Placeable() bool {
	return true
}
