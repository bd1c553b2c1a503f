package world

import (
	"encoding/json"
	"testing"

	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldGenerator_Deterministic(t *testing.T) {
	a := NewWorldGenerator(1234).Generate(vec.Vec2{X: -2, Z: 5})
	b := NewWorldGenerator(1234).Generate(vec.Vec2{X: -2, Z: 5})
	assert.Equal(t, a, b, "одинаковый сид и координаты дают одинаковый объём")
}

func TestWorldGenerator_Layers(t *testing.T) {
	gen := NewWorldGenerator(7)
	data := gen.Generate(vec.Vec2{X: 1, Z: 1})

	require.Len(t, data, vec.ChunkSize)
	require.Len(t, data[0], gen.Height)
	require.Len(t, data[0][0], vec.ChunkSize)

	for x := 0; x < vec.ChunkSize; x++ {
		for z := 0; z < vec.ChunkSize; z++ {
			h := gen.HeightAt(16+x, 16+z)
			assert.Equal(t, block.GrassBlockID, data[x][h][z], "трава на поверхности (%d,%d)", x, z)
			for y := h - gen.DirtDepth; y < h; y++ {
				if y >= 0 {
					assert.Equal(t, block.DirtBlockID, data[x][y][z])
				}
			}
			for y := 0; y < h-gen.DirtDepth; y++ {
				assert.Equal(t, block.StoneBlockID, data[x][y][z])
			}
			for y := h + 1; y < gen.Height; y++ {
				assert.Equal(t, block.AirBlockID, data[x][y][z])
			}
		}
	}
}

func TestWorldGenerator_HeightClamped(t *testing.T) {
	gen := NewWorldGenerator(3)
	gen.Height = 10
	gen.BaseHeight = 50

	assert.Equal(t, 9, gen.HeightAt(0, 0))
	data := gen.Generate(vec.Vec2{})
	assert.Equal(t, block.GrassBlockID, data[0][9][0])
}

func TestWorldGenerator_SeaLevel(t *testing.T) {
	gen := NewWorldGenerator(3)
	gen.SeaLevel = 20

	assert.Equal(t, block.SandBlockID, gen.ColumnBlock(10, 10))
	assert.Equal(t, block.WaterBlockID, gen.ColumnBlock(15, 10))
	assert.Equal(t, block.WaterBlockID, gen.ColumnBlock(20, 10))
	assert.Equal(t, block.AirBlockID, gen.ColumnBlock(21, 10))
	assert.Equal(t, block.GrassBlockID, gen.ColumnBlock(25, 25), "выше уровня моря - трава")
}

func TestChunkData_JSONIsNestedIntegers(t *testing.T) {
	data := NewChunk(vec.Vec2{}, 2).ToData()
	data[0][1][2] = block.StoneBlockID

	raw, err := json.Marshal(data)
	require.NoError(t, err)

	var decoded [][][]int
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, int(block.StoneBlockID), decoded[0][1][2])
}
