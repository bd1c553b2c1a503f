package mesh

import (
	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world/block"
)

// GreedyMesher объединяет соседние видимые грани одного типа блока
// в прямоугольники. Даёт меньше треугольников, чем NaiveMesher,
// поэтому используется при первой сборке чанка.
type GreedyMesher struct{}

// NewGreedyMesher создаёт жадный мешер
func NewGreedyMesher() *GreedyMesher {
	return &GreedyMesher{}
}

// Name возвращает имя мешера для логов и метрик
func (m *GreedyMesher) Name() string {
	return "greedy"
}

// Build строит меш; для объёма без видимых граней возвращает nil
func (m *GreedyMesher) Build(key vec.Vec2, v Volume) *Mesh {
	sx, sy, sz := v.Dimensions()
	dims := [3]int{sx, sy, sz}
	b := newBuilder(key)

	for axis := 0; axis < 3; axis++ {
		u := (axis + 1) % 3
		w := (axis + 2) % 3
		nu, nw := dims[u], dims[w]

		// Маска слоя: ID блока, чья грань видна, или воздух
		mask := make([]block.BlockID, nu*nw)

		for _, sign := range [2]int{1, -1} {
			for layer := 0; layer < dims[axis]; layer++ {
				for j := 0; j < nw; j++ {
					for i := 0; i < nu; i++ {
						var pos [3]int
						pos[axis], pos[u], pos[w] = layer, i, j

						mask[i+j*nu] = block.AirBlockID
						id := v.BlockAt(pos[0], pos[1], pos[2])
						if id == block.AirBlockID {
							continue
						}
						pos[axis] += sign
						if isAirAt(v, pos[0], pos[1], pos[2]) {
							mask[i+j*nu] = id
						}
					}
				}

				mergeMask(b, mask, nu, nw, axis, sign, layer)
			}
		}
	}

	return b.build()
}

// mergeMask выделяет из маски максимальные прямоугольники одного типа
// и выпускает по квадрату на каждый. Маска обнуляется по ходу.
func mergeMask(b *builder, mask []block.BlockID, nu, nw, axis, sign, layer int) {
	u := (axis + 1) % 3
	w := (axis + 2) % 3

	for j := 0; j < nw; j++ {
		for i := 0; i < nu; {
			id := mask[i+j*nu]
			if id == block.AirBlockID {
				i++
				continue
			}

			// Ширина вдоль u
			width := 1
			for i+width < nu && mask[i+width+j*nu] == id {
				width++
			}

			// Высота вдоль w: вся строка должна совпадать
			height := 1
		grow:
			for j+height < nw {
				for k := 0; k < width; k++ {
					if mask[i+k+(j+height)*nu] != id {
						break grow
					}
				}
				height++
			}

			var pos [3]int
			pos[axis], pos[u], pos[w] = layer, i, j
			p, du, dv, n := faceQuad(pos, axis, sign, width, height)
			b.quad(p, du, dv, n, id)

			for hh := 0; hh < height; hh++ {
				for k := 0; k < width; k++ {
					mask[i+k+(j+hh)*nu] = block.AirBlockID
				}
			}
			i += width
		}
	}
}
