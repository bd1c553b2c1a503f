package implementations

import (
	"github.com/annel0/happy-builder/internal/world/block"
)

// DirtBehavior реализует поведение блока земли
type DirtBehavior struct{}

// ID возвращает идентификатор блока
func (b *DirtBehavior) ID() block.BlockID {
	return block.DirtBlockID
}

// Name возвращает имя блока
func (b *DirtBehavior) Name() string {
	return "Dirt"
}

// Color возвращает цвет земли
func (b *DirtBehavior) Color() block.Color {
	return block.Color{R: 134, G: 96, B: 67}
}

// Solid возвращает true
func (b *DirtBehavior) Solid() bool {
	return true
}

// Placeable возвращает true
func (b *DirtBehavior) Placeable() bool {
	return true
}
