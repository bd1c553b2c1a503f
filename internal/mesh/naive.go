package mesh

import (
	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world/block"
)

// NaiveMesher строит по квадрату на каждую грань, граничащую с воздухом.
// Используется для пересборки чанка после правки блока.
type NaiveMesher struct{}

// NewNaiveMesher создаёт мешер с отсечением невидимых граней
func NewNaiveMesher() *NaiveMesher {
	return &NaiveMesher{}
}

// Name возвращает имя мешера для логов и метрик
func (m *NaiveMesher) Name() string {
	return "naive"
}

// Build строит меш; для объёма без видимых граней возвращает nil
func (m *NaiveMesher) Build(key vec.Vec2, v Volume) *Mesh {
	sx, sy, sz := v.Dimensions()
	b := newBuilder(key)

	for x := 0; x < sx; x++ {
		for y := 0; y < sy; y++ {
			for z := 0; z < sz; z++ {
				id := v.BlockAt(x, y, z)
				if id == block.AirBlockID {
					continue
				}
				for axis := 0; axis < 3; axis++ {
					for _, sign := range [2]int{1, -1} {
						var d [3]int
						d[axis] = sign
						if !isAirAt(v, x+d[0], y+d[1], z+d[2]) {
							continue
						}
						p, du, dv, n := faceQuad([3]int{x, y, z}, axis, sign, 1, 1)
						b.quad(p, du, dv, n, id)
					}
				}
			}
		}
	}

	return b.build()
}

// faceQuad возвращает угол, стороны и нормаль грани блока pos
// вдоль оси axis со знаком sign; w и h - размеры по осям u и v плоскости грани.
func faceQuad(pos [3]int, axis, sign, w, h int) (p, du, dv, n [3]float32) {
	u := (axis + 1) % 3
	v := (axis + 2) % 3

	for i := 0; i < 3; i++ {
		p[i] = float32(pos[i])
	}
	if sign > 0 {
		p[axis]++
	}
	du[u] = float32(w)
	dv[v] = float32(h)
	n[axis] = float32(sign)
	return p, du, dv, n
}
