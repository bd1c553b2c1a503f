package implementations

import "github.com/annel0/happy-builder/internal/world/block"

// Регистрируем все типы блоков при импорте пакета
func init() {
	// Природные блоки
	block.Register(block.AirBlockID, &AirBehavior{})
	block.Register(block.GrassBlockID, &GrassBehavior{})
	block.Register(block.DirtBlockID, &DirtBehavior{})
	block.Register(block.StoneBlockID, &StoneBehavior{})
	block.Register(block.SandBlockID, &SandBehavior{})
	block.Register(block.WaterBlockID, &WaterBehavior{})

	// Строительные блоки
	block.Register(block.WoodBlockID, &simpleBehavior{id: block.WoodBlockID, name: "Wood", color: block.Color{R: 133, G: 94, B: 66}, solid: true})
	block.Register(block.LeavesBlockID, &simpleBehavior{id: block.LeavesBlockID, name: "Leaves", color: block.Color{R: 58, G: 125, B: 68}, solid: true})
	block.Register(block.BrickBlockID, &simpleBehavior{id: block.BrickBlockID, name: "Brick", color: block.Color{R: 178, G: 34, B: 34}, solid: true})
}

// simpleBehavior описывает статичный блок без особых правил
type simpleBehavior struct {
	id    block.BlockID
	name  string
	color block.Color
	solid bool
}

func (b *simpleBehavior) ID() block.BlockID  { return b.id }
func (b *simpleBehavior) Name() string       { return b.name }
func (b *simpleBehavior) Color() block.Color { return b.color }
func (b *simpleBehavior) Solid() bool        { return b.solid }
func (b *simpleBehavior) Placeable() bool    { return true }
