package world

import (
	"github.com/annel0/happy-builder/internal/util"
	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world/block"
)

// WorldGenerator генерирует ландшафт по карте высот из шума Перлина.
// После создания только читается и безопасен для параллельных воркеров.
type WorldGenerator struct {
	Seed       int64   // Сид для генерации шума
	NoiseScale float64 // Масштаб шума (чем меньше, тем плавнее холмы)
	BaseHeight int     // Минимальная высота поверхности
	Amplitude  int     // Разброс высот над BaseHeight
	DirtDepth  int     // Толщина слоя земли под травой
	SeaLevel   int     // Уровень воды; 0 - без воды
	Height     int     // Высота мира

	noise *util.Noise2D
}

// NewWorldGenerator создаёт новый генератор мира
func NewWorldGenerator(seed int64) *WorldGenerator {
	return &WorldGenerator{
		Seed:       seed,
		NoiseScale: 0.03,
		BaseHeight: 8,
		Amplitude:  24,
		DirtDepth:  3,
		Height:     DefaultHeight,
		noise:      util.NewNoise2D(seed),
	}
}

// HeightAt возвращает Y верхнего блока столбца в мировых координатах
func (wg *WorldGenerator) HeightAt(wx, wz int) int {
	n := wg.noise.At(float64(wx)*wg.NoiseScale, float64(wz)*wg.NoiseScale)
	h := wg.BaseHeight + int(n*float64(wg.Amplitude))

	if h < 0 {
		h = 0
	}
	if h > wg.Height-1 {
		h = wg.Height - 1
	}
	return h
}

// ColumnBlock возвращает блок на высоте y для столбца с поверхностью h
func (wg *WorldGenerator) ColumnBlock(y, h int) block.BlockID {
	underwater := wg.SeaLevel > 0 && h < wg.SeaLevel

	switch {
	case y > h:
		if underwater && y <= wg.SeaLevel {
			return block.WaterBlockID
		}
		return block.AirBlockID
	case y == h:
		if underwater {
			return block.SandBlockID
		}
		return block.GrassBlockID
	case y >= h-wg.DirtDepth:
		return block.DirtBlockID
	default:
		return block.StoneBlockID
	}
}

// Generate заполняет объём чанка: трава сверху, DirtDepth слоёв земли, ниже камень
func (wg *WorldGenerator) Generate(coords vec.Vec2) ChunkData {
	origin := coords.ChunkOrigin()
	data := make(ChunkData, vec.ChunkSize)

	for x := 0; x < vec.ChunkSize; x++ {
		data[x] = make([][]block.BlockID, wg.Height)
		for y := range data[x] {
			data[x][y] = make([]block.BlockID, vec.ChunkSize)
		}
		for z := 0; z < vec.ChunkSize; z++ {
			h := wg.HeightAt(origin.X+x, origin.Z+z)
			for y := 0; y < wg.Height; y++ {
				data[x][y][z] = wg.ColumnBlock(y, h)
			}
		}
	}

	return data
}
