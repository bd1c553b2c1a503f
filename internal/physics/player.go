package physics

import (
	"math"

	"github.com/annel0/happy-builder/internal/vec"
)

// Params - физические константы игрока (единицы: блоки и секунды)
type Params struct {
	Gravity      float64
	WalkSpeed    float64
	SprintSpeed  float64
	JumpSpeed    float64 // Начальная вертикальная скорость прыжка
	MaxFallSpeed float64
	MaxStamina   float64
	StaminaDrain float64 // Расход в секунду при беге
	StaminaRegen float64 // Восстановление в секунду без бега
}

// DefaultParams возвращает параметры по умолчанию
func DefaultParams() Params {
	return Params{
		Gravity:      25,
		WalkSpeed:    4.5,
		SprintSpeed:  8,
		JumpSpeed:    8,
		MaxFallSpeed: 50,
		MaxStamina:   100,
		StaminaDrain: 25,
		StaminaRegen: 15,
	}
}

// Input - управление игроком за один шаг
type Input struct {
	MoveX  float64 // -1..1 по оси X
	MoveZ  float64 // -1..1 по оси Z
	Sprint bool
	Jump   bool
}

// Moving сообщает, есть ли горизонтальное движение
func (in Input) Moving() bool {
	return in.MoveX != 0 || in.MoveZ != 0
}

// Player - состояние игрока. Position - точка ног.
type Player struct {
	Position  vec.Vec3Float
	Velocity  vec.Vec3Float
	Stamina   float64
	Grounded  bool
	Sprinting bool
	Params    Params
}

// NewPlayer создаёт игрока в позиции pos с полной выносливостью
func NewPlayer(pos vec.Vec3Float, params Params) *Player {
	return &Player{
		Position: pos,
		Stamina:  params.MaxStamina,
		Params:   params,
	}
}

// Step продвигает игрока на dt секунд
func (p *Player) Step(dt float64, in Input, world SolidChecker) {
	if dt <= 0 {
		return
	}

	p.updateStamina(dt, in)

	speed := p.Params.WalkSpeed
	if p.Sprinting {
		speed = p.Params.SprintSpeed
	}
	mx, mz := in.MoveX, in.MoveZ
	if l := math.Hypot(mx, mz); l > 1 {
		mx, mz = mx/l, mz/l
	}
	p.Velocity.X = mx * speed
	p.Velocity.Z = mz * speed

	if in.Jump && p.Grounded {
		p.Velocity.Y = p.Params.JumpSpeed
		p.Grounded = false
	}

	p.Velocity.Y -= p.Params.Gravity * dt
	if p.Velocity.Y < -p.Params.MaxFallSpeed {
		p.Velocity.Y = -p.Params.MaxFallSpeed
	}

	from := p.Position
	p.Position = p.Position.Add(p.Velocity.Mul(dt))

	if p.Velocity.Y > 0 {
		p.Grounded = false
		return
	}

	if surface, ok := FindLanding(p.Position.X, p.Position.Z, from.Y, p.Position.Y, world); ok {
		p.Position.Y = surface
		p.Velocity.Y = 0
		p.Grounded = true
		return
	}
	p.Grounded = false
}

func (p *Player) updateStamina(dt float64, in Input) {
	p.Sprinting = in.Sprint && in.Moving() && p.Stamina > 0

	if p.Sprinting {
		p.Stamina -= p.Params.StaminaDrain * dt
	} else {
		p.Stamina += p.Params.StaminaRegen * dt
	}

	if p.Stamina < 0 {
		p.Stamina = 0
	}
	if p.Stamina > p.Params.MaxStamina {
		p.Stamina = p.Params.MaxStamina
	}
}

// Teleport переносит игрока и сбрасывает скорость
func (p *Player) Teleport(pos vec.Vec3Float) {
	p.Position = pos
	p.Velocity = vec.Vec3Float{}
	p.Grounded = false
}

// BlockPosition возвращает блок, в котором стоят ноги
func (p *Player) BlockPosition() vec.Vec3 {
	return p.Position.Floor()
}

// ChunkKey возвращает ключ чанка, в котором находится игрок
func (p *Player) ChunkKey() vec.Vec2 {
	return p.BlockPosition().ToChunkCoords()
}
