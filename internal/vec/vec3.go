package vec

// Vec3 представляет трехмерный вектор с целочисленными координатами (позиция блока)
type Vec3 struct {
	X int
	Y int
	Z int
}

// ToChunkCoords возвращает ключ чанка, которому принадлежит блок.
// Арифметический сдвиг даёт деление с округлением вниз и для отрицательных координат.
func (v Vec3) ToChunkCoords() Vec2 {
	return Vec2{X: v.X >> ChunkShift, Z: v.Z >> ChunkShift}
}

// LocalInChunk возвращает локальные координаты внутри чанка (Y не меняется)
func (v Vec3) LocalInChunk() Vec3 {
	return Vec3{X: v.X & ChunkMask, Y: v.Y, Z: v.Z & ChunkMask}
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Directions - шесть направлений граней блока: +X, -X, +Y, -Y, +Z, -Z
var Directions = [6]Vec3{
	{X: 1}, {X: -1},
	{Y: 1}, {Y: -1},
	{Z: 1}, {Z: -1},
}
