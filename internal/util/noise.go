package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина
const (
	perlinAlpha   = 2.0 // Сглаживание шума
	perlinBeta    = 2.0 // Частота шума
	perlinOctaves = 3   // Количество октав
)

// Noise2D - детерминированный генератор шума Перлина для заданного сида.
// Экземпляр только читается после создания, поэтому безопасен для параллельных воркеров.
type Noise2D struct {
	seed  int64
	noise *perlin.Perlin
}

// NewNoise2D создаёт генератор шума Перлина с указанным сидом
func NewNoise2D(seed int64) *Noise2D {
	return &Noise2D{
		seed:  seed,
		noise: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
	}
}

// Seed возвращает сид генератора
func (n *Noise2D) Seed() int64 {
	return n.seed
}

// At возвращает значение шума для указанных координат в диапазоне [0, 1]
func (n *Noise2D) At(x, y float64) float64 {
	// Шум в диапазоне примерно [-1, 1]
	v := (n.noise.Noise2D(x, y) + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
