package implementations

import (
	"github.com/annel0/happy-builder/internal/world/block"
)

// StoneBehavior реализует поведение блока камня
type StoneBehavior struct{}

// ID возвращает идентификатор блока
func (b *StoneBehavior) ID() block.BlockID {
	return block.StoneBlockID
}

// Name возвращает имя блока
func (b *StoneBehavior) Name() string {
	return "Stone"
}

// Color возвращает цвет камня
func (b *StoneBehavior) Color() block.Color {
	return block.Color{R: 128, G: 128, B: 128}
}

// Solid возвращает true
func (b *StoneBehavior) Solid() bool {
	return true
}

// Placeable возвращает true
func (b *StoneBehavior) Placeable() bool {
	return true
}
