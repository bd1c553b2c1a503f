package mesh

import (
	"sync"
	"testing"

	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world/block"
	_ "github.com/annel0/happy-builder/internal/world/block/implementations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridVolume - простой объём для тестов мешеров
type gridVolume struct {
	sx, sy, sz int
	blocks     []block.BlockID
}

func newGridVolume(sx, sy, sz int) *gridVolume {
	return &gridVolume{sx: sx, sy: sy, sz: sz, blocks: make([]block.BlockID, sx*sy*sz)}
}

func (g *gridVolume) Dimensions() (int, int, int) { return g.sx, g.sy, g.sz }

func (g *gridVolume) BlockAt(x, y, z int) block.BlockID {
	return g.blocks[(x*g.sy+y)*g.sz+z]
}

func (g *gridVolume) set(x, y, z int, id block.BlockID) {
	g.blocks[(x*g.sy+y)*g.sz+z] = id
}

func meshers() []Mesher {
	return []Mesher{NewNaiveMesher(), NewGreedyMesher()}
}

func TestMesher_EmptyVolumeHasNoMesh(t *testing.T) {
	v := newGridVolume(16, 16, 16)
	for _, m := range meshers() {
		assert.Nil(t, m.Build(vec.Vec2{}, v), "%s: пустой объём не должен давать меш", m.Name())
	}
	assert.Equal(t, 0, CountExposedFaces(v))
}

func TestMesher_SingleBlock(t *testing.T) {
	v := newGridVolume(16, 16, 16)
	v.set(5, 5, 5, block.StoneBlockID)

	assert.Equal(t, 6, CountExposedFaces(v))
	for _, m := range meshers() {
		mesh := m.Build(vec.Vec2{}, v)
		require.NotNil(t, mesh)
		assert.Equal(t, 12, mesh.TriangleCount(), "%s: одиночный блок - 6 граней, 12 треугольников", m.Name())
		assert.Equal(t, 36, mesh.VertexCount())
	}
}

func TestMesher_TouchingBlocks(t *testing.T) {
	v := newGridVolume(16, 16, 16)
	v.set(5, 5, 5, block.StoneBlockID)
	v.set(6, 5, 5, block.StoneBlockID)

	assert.Equal(t, 10, CountExposedFaces(v))
	assert.Equal(t, 20, NewNaiveMesher().Build(vec.Vec2{}, v).TriangleCount())
	// Жадный мешер сливает грани в параллелепипед 2x1x1
	assert.Equal(t, 12, NewGreedyMesher().Build(vec.Vec2{}, v).TriangleCount())

	// Разные типы блоков не сливаются
	v.set(6, 5, 5, block.DirtBlockID)
	assert.Equal(t, 20, NewGreedyMesher().Build(vec.Vec2{}, v).TriangleCount())
}

func TestMesher_BoundaryConvention(t *testing.T) {
	// Горизонтальная граница объёма считается сплошной: грань -X скрыта
	v := newGridVolume(16, 16, 16)
	v.set(0, 5, 5, block.StoneBlockID)
	assert.Equal(t, 5, CountExposedFaces(v))
	assert.Equal(t, 10, NewNaiveMesher().Build(vec.Vec2{}, v).TriangleCount())

	// Вертикальная граница - воздух: нижняя грань видна
	v = newGridVolume(16, 16, 16)
	v.set(5, 0, 5, block.StoneBlockID)
	assert.Equal(t, 6, CountExposedFaces(v))
	assert.Equal(t, 12, NewNaiveMesher().Build(vec.Vec2{}, v).TriangleCount())
}

func TestMesher_FlatLayer(t *testing.T) {
	v := newGridVolume(16, 4, 16)
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			v.set(x, 0, z, block.GrassBlockID)
		}
	}

	// Верх и низ по 256 граней, боковые скрыты границей
	assert.Equal(t, 512, CountExposedFaces(v))
	assert.Equal(t, 1024, NewNaiveMesher().Build(vec.Vec2{}, v).TriangleCount())
	assert.Equal(t, 4, NewGreedyMesher().Build(vec.Vec2{}, v).TriangleCount())
}

func TestMesher_Deterministic(t *testing.T) {
	v := newGridVolume(16, 16, 16)
	v.set(1, 1, 1, block.GrassBlockID)
	v.set(1, 2, 1, block.DirtBlockID)
	v.set(9, 3, 4, block.StoneBlockID)
	v.set(10, 3, 4, block.StoneBlockID)

	for _, m := range meshers() {
		first := m.Build(vec.Vec2{X: 2, Z: 3}, v)
		second := m.Build(vec.Vec2{X: 2, Z: 3}, v)
		require.NotNil(t, first)
		assert.Equal(t, first.TriangleCount(), second.TriangleCount(), "%s: повторная сборка должна совпадать", m.Name())
		assert.Equal(t, first.Positions, second.Positions)
	}
}

func TestMesher_WindingFollowsNormal(t *testing.T) {
	v := newGridVolume(16, 16, 16)
	v.set(3, 3, 3, block.StoneBlockID)
	v.set(3, 4, 3, block.StoneBlockID)
	v.set(8, 8, 8, block.SandBlockID)

	for _, m := range meshers() {
		mesh := m.Build(vec.Vec2{}, v)
		require.NotNil(t, mesh)
		for tri := 0; tri < mesh.TriangleCount(); tri++ {
			p := mesh.Positions[tri*9 : tri*9+9]
			e1 := [3]float32{p[3] - p[0], p[4] - p[1], p[5] - p[2]}
			e2 := [3]float32{p[6] - p[0], p[7] - p[1], p[8] - p[2]}
			n := [3]float32{mesh.Normals[tri*9], mesh.Normals[tri*9+1], mesh.Normals[tri*9+2]}
			assert.Greater(t, dot(cross(e1, e2), n), float32(0), "%s: треугольник %d развёрнут против нормали", m.Name(), tri)
		}
	}
}

func TestMesher_WorldOffsetAndColor(t *testing.T) {
	v := newGridVolume(16, 16, 16)
	v.set(0, 0, 0, block.GrassBlockID)

	mesh := NewNaiveMesher().Build(vec.Vec2{X: 1, Z: -1}, v)
	require.NotNil(t, mesh)

	for i := 0; i < mesh.VertexCount(); i++ {
		x, z := mesh.Positions[i*3], mesh.Positions[i*3+2]
		assert.GreaterOrEqual(t, x, float32(16))
		assert.LessOrEqual(t, x, float32(17))
		assert.GreaterOrEqual(t, z, float32(-16))
		assert.LessOrEqual(t, z, float32(-15))
	}

	want := block.ColorOf(block.GrassBlockID).Floats()
	assert.Equal(t, want[0], mesh.Colors[0])
	assert.Equal(t, want[1], mesh.Colors[1])
	assert.Equal(t, want[2], mesh.Colors[2])
}

func TestMesh_DisposeIdempotent(t *testing.T) {
	v := newGridVolume(16, 16, 16)
	v.set(5, 5, 5, block.StoneBlockID)
	mesh := NewNaiveMesher().Build(vec.Vec2{}, v)
	require.NotNil(t, mesh)

	assert.False(t, mesh.Disposed())
	mesh.Dispose()
	mesh.Dispose()
	assert.True(t, mesh.Disposed())
	assert.Equal(t, 0, mesh.TriangleCount(), "буферы освобождены")

	var nilMesh *Mesh
	assert.NotPanics(t, nilMesh.Dispose)
	assert.True(t, nilMesh.Disposed())
}

func TestGreedyMesher_NeverMoreThanNaive(t *testing.T) {
	v := newGridVolume(16, 8, 16)
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			h := 1 + (x*3+z*5)%6
			for y := 0; y < h; y++ {
				id := block.StoneBlockID
				if y == h-1 {
					id = block.GrassBlockID
				}
				v.set(x, y, z, id)
			}
		}
	}

	naive := NewNaiveMesher().Build(vec.Vec2{}, v)
	greedy := NewGreedyMesher().Build(vec.Vec2{}, v)
	require.NotNil(t, naive)
	require.NotNil(t, greedy)
	assert.Equal(t, 2*CountExposedFaces(v), naive.TriangleCount())
	assert.LessOrEqual(t, greedy.TriangleCount(), naive.TriangleCount())
}

func TestMesh_CountsWhileDisposing(t *testing.T) {
	v := newGridVolume(16, 16, 16)
	v.set(5, 5, 5, block.StoneBlockID)
	m := NewNaiveMesher().Build(vec.Vec2{}, v)
	require.NotNil(t, m)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			n := m.TriangleCount()
			if n != 12 && n != 0 {
				t.Errorf("неожиданное число треугольников: %d", n)
				return
			}
			_ = m.VertexCount()
		}
	}()
	m.Dispose()
	wg.Wait()

	assert.Equal(t, 0, m.TriangleCount())
	assert.Equal(t, 0, m.VertexCount())
}
