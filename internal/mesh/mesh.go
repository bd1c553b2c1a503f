package mesh

import (
	"sync"

	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world/block"
)

// Volume - объём блоков одного чанка в локальных координатах
type Volume interface {
	// Dimensions возвращает размеры объёма по X, Y, Z
	Dimensions() (sx, sy, sz int)
	// BlockAt возвращает блок; координаты всегда внутри Dimensions
	BlockAt(x, y, z int) block.BlockID
}

// Mesher строит треугольный меш из объёма чанка
type Mesher interface {
	Name() string
	// Build возвращает nil, если в объёме нет ни одной видимой грани
	Build(key vec.Vec2, v Volume) *Mesh
}

// Mesh - список треугольников чанка в мировых координатах.
// Позиции, нормали и цвета хранятся тройками float32 на вершину.
type Mesh struct {
	Key       vec.Vec2
	Positions []float32
	Normals   []float32
	Colors    []float32

	mu       sync.Mutex
	disposed bool
}

// TriangleCount возвращает количество треугольников
func (m *Mesh) TriangleCount() int {
	return m.VertexCount() / 3
}

// VertexCount возвращает количество вершин
func (m *Mesh) VertexCount() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Positions) / 3
}

// Dispose освобождает буферы меша. Повторный вызов ничего не делает.
func (m *Mesh) Dispose() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return
	}
	m.disposed = true
	m.Positions = nil
	m.Normals = nil
	m.Colors = nil
}

// Disposed сообщает, освобождён ли меш
func (m *Mesh) Disposed() bool {
	if m == nil {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

// isAirAt проверяет соседнюю клетку с соглашением о границах объёма:
// за верхней и нижней границей - воздух, за боковыми - сплошной блок.
func isAirAt(v Volume, x, y, z int) bool {
	sx, sy, sz := v.Dimensions()
	if y < 0 || y >= sy {
		return true
	}
	if x < 0 || x >= sx || z < 0 || z >= sz {
		return false
	}
	return v.BlockAt(x, y, z) == block.AirBlockID
}

// CountExposedFaces пересчитывает по объёму число граней, граничащих с воздухом
func CountExposedFaces(v Volume) int {
	sx, sy, sz := v.Dimensions()
	faces := 0
	for x := 0; x < sx; x++ {
		for y := 0; y < sy; y++ {
			for z := 0; z < sz; z++ {
				if v.BlockAt(x, y, z) == block.AirBlockID {
					continue
				}
				for _, d := range vec.Directions {
					if isAirAt(v, x+d.X, y+d.Y, z+d.Z) {
						faces++
					}
				}
			}
		}
	}
	return faces
}

// builder накапливает вершинные буферы
type builder struct {
	key       vec.Vec2
	origin    [3]float32
	positions []float32
	normals   []float32
	colors    []float32
}

func newBuilder(key vec.Vec2) *builder {
	o := key.ChunkOrigin()
	return &builder{
		key:       key,
		origin:    [3]float32{float32(o.X), 0, float32(o.Z)},
		positions: make([]float32, 0, 1024),
		normals:   make([]float32, 0, 1024),
		colors:    make([]float32, 0, 1024),
	}
}

// quad добавляет прямоугольник из двух треугольников.
// p - угол в локальных координатах, du/dv - стороны, n - внешняя нормаль.
// Обход вершин выбирается так, чтобы треугольники смотрели вдоль нормали.
func (b *builder) quad(p, du, dv [3]float32, n [3]float32, id block.BlockID) {
	if dot(cross(du, dv), n) < 0 {
		du, dv = dv, du
	}

	var corners [4][3]float32
	for i := 0; i < 3; i++ {
		o := p[i] + b.origin[i]
		corners[0][i] = o
		corners[1][i] = o + du[i]
		corners[2][i] = o + du[i] + dv[i]
		corners[3][i] = o + dv[i]
	}

	color := block.ColorOf(id).Floats()
	for _, idx := range [6]int{0, 1, 2, 0, 2, 3} {
		b.positions = append(b.positions, corners[idx][0], corners[idx][1], corners[idx][2])
		b.normals = append(b.normals, n[0], n[1], n[2])
		b.colors = append(b.colors, color[0], color[1], color[2])
	}
}

func (b *builder) build() *Mesh {
	if len(b.positions) == 0 {
		return nil
	}
	return &Mesh{
		Key:       b.key,
		Positions: b.positions,
		Normals:   b.normals,
		Colors:    b.colors,
	}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
