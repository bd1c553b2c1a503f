package implementations

import (
	"github.com/annel0/happy-builder/internal/world/block"
)

// GrassBehavior реализует поведение блока травы (верхний слой ландшафта)
type GrassBehavior struct{}

// ID возвращает идентификатор блока
func (b *GrassBehavior) ID() block.BlockID {
	return block.GrassBlockID
}

// Name возвращает имя блока
func (b *GrassBehavior) Name() string {
	return "Grass"
}

// Color возвращает цвет травы
func (b *GrassBehavior) Color() block.Color {
	return block.Color{R: 86, G: 176, B: 0}
}

// Solid возвращает true
func (b *GrassBehavior) Solid() bool {
	return true
}

// Placeable возвращает true
func (b *GrassBehavior) Placeable() bool {
	return true
}
