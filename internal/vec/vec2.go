package vec

import "math"

// Размер чанка по горизонтали: 16 блоков (сдвиг 4, маска 0xF)
const (
	ChunkShift = 4
	ChunkSize  = 1 << ChunkShift
	ChunkMask  = ChunkSize - 1
)

// Vec2 представляет координаты на горизонтальной плоскости (X, Z).
// Используется как ключ чанка.
type Vec2 struct {
	X, Z int
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Z: v.Z + other.Z}
}

// ChebyshevTo возвращает расстояние Чебышёва (max(|dx|, |dz|))
func (v Vec2) ChebyshevTo(other Vec2) int {
	dx := v.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dz := v.Z - other.Z
	if dz < 0 {
		dz = -dz
	}
	if dx > dz {
		return dx
	}
	return dz
}

// DistanceTo вычисляет евклидово расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dz := float64(v.Z - other.Z)
	return math.Sqrt(dx*dx + dz*dz)
}

// ChunkOrigin возвращает мировые координаты угла чанка
func (v Vec2) ChunkOrigin() Vec2 {
	return Vec2{X: v.X << ChunkShift, Z: v.Z << ChunkShift}
}
