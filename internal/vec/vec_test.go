package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3_ChunkCoordsNegative(t *testing.T) {
	cases := []struct {
		pos   Vec3
		chunk Vec2
		local Vec3
	}{
		{Vec3{X: 0, Y: 5, Z: 0}, Vec2{X: 0, Z: 0}, Vec3{X: 0, Y: 5, Z: 0}},
		{Vec3{X: 15, Y: 1, Z: 16}, Vec2{X: 0, Z: 1}, Vec3{X: 15, Y: 1, Z: 0}},
		{Vec3{X: -1, Y: 2, Z: -16}, Vec2{X: -1, Z: -1}, Vec3{X: 15, Y: 2, Z: 0}},
		{Vec3{X: -17, Y: 0, Z: 33}, Vec2{X: -2, Z: 2}, Vec3{X: 15, Y: 0, Z: 1}},
	}

	for _, c := range cases {
		assert.Equal(t, c.chunk, c.pos.ToChunkCoords(), "Неверный чанк для %v", c.pos)
		assert.Equal(t, c.local, c.pos.LocalInChunk(), "Неверные локальные координаты для %v", c.pos)
	}
}

func TestVec2_Chebyshev(t *testing.T) {
	a := Vec2{X: 2, Z: -3}
	assert.Equal(t, 0, a.ChebyshevTo(a))
	assert.Equal(t, 5, a.ChebyshevTo(Vec2{X: 0, Z: 2}))
	assert.Equal(t, 4, a.ChebyshevTo(Vec2{X: -2, Z: -1}))
}

func TestVec3Float_Floor(t *testing.T) {
	p := Vec3Float{X: -0.5, Y: 3.99, Z: 16.0}
	assert.Equal(t, Vec3{X: -1, Y: 3, Z: 16}, p.Floor())
}
