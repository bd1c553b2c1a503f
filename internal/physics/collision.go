package physics

import (
	"math"
)

// SolidChecker сообщает, твёрдый ли блок в мировых координатах
type SolidChecker interface {
	IsSolid(x, y, z int) bool
}

// SolidFunc позволяет использовать обычную функцию как SolidChecker
type SolidFunc func(x, y, z int) bool

// IsSolid вызывает f(x, y, z)
func (f SolidFunc) IsSolid(x, y, z int) bool {
	return f(x, y, z)
}

// landingEpsilon - допуск, при котором стоящие на блоке ноги считаются на его верхней грани
const landingEpsilon = 1e-6

// FindLanding проверяет столбец блоков под ногами при падении с высоты fromY до toY.
// Возвращает верхнюю грань самого высокого твёрдого блока, пересечённого за шаг.
// Проверяются все блоки между fromY и toY, поэтому быстрое падение не проскакивает опору.
func FindLanding(x, z float64, fromY, toY float64, checker SolidChecker) (float64, bool) {
	if toY > fromY {
		return 0, false
	}

	bx := int(math.Floor(x))
	bz := int(math.Floor(z))
	top := int(math.Floor(fromY + landingEpsilon))
	bottom := int(math.Floor(toY))

	for by := top; by >= bottom; by-- {
		surface := float64(by + 1)
		if surface > fromY+landingEpsilon {
			// Блок, в котором стоят ноги: горизонтальные столкновения не моделируются
			continue
		}
		if surface < toY {
			break
		}
		if checker.IsSolid(bx, by, bz) {
			return surface, true
		}
	}
	return 0, false
}
