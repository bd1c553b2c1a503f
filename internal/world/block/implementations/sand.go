package implementations

import (
	"github.com/annel0/happy-builder/internal/world/block"
)

// SandBehavior реализует поведение песка (пляжи у воды)
type SandBehavior struct{}

// ID возвращает идентификатор блока
func (b *SandBehavior) ID() block.BlockID {
	return block.SandBlockID
}

// Name возвращает имя блока
func (b *SandBehavior) Name() string {
	return "Sand"
}

// Color возвращает цвет песка
func (b *SandBehavior) Color() block.Color {
	return block.Color{R: 238, G: 214, B: 175}
}

// Solid возвращает true
func (b *SandBehavior) Solid() bool {
	return true
}

// Placeable возвращает true
func (b *SandBehavior) Placeable() bool {
	return true
}
