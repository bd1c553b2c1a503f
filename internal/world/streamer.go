package world

import (
	"sort"

	"github.com/annel0/happy-builder/internal/vec"
)

// Streamer держит загруженным квадрат чанков вокруг игрока.
// Внутри радиуса R чанки запрашиваются, за R+1 выгружаются;
// кольцо между ними не трогается, чтобы чанки не мигали на границе.
type Streamer struct {
	world  *World
	radius int
	last   *vec.Vec2
}

// NewStreamer создаёт стример с радиусом в чанках
func NewStreamer(w *World, radius int) *Streamer {
	if radius < 0 {
		radius = 0
	}
	return &Streamer{world: w, radius: radius}
}

// Radius возвращает радиус загрузки
func (s *Streamer) Radius() int {
	return s.radius
}

// Update пересчитывает окно вокруг чанка center.
// Возвращает число запрошенных и выгруженных чанков.
func (s *Streamer) Update(center vec.Vec2) (requested, unloaded int) {
	for _, key := range s.window(center) {
		if s.world.State(key.X, key.Z) == ChunkUnloaded {
			requested++
		}
		s.world.EnsureChunk(key.X, key.Z)
	}

	for _, key := range s.world.KnownKeys() {
		if key.ChebyshevTo(center) > s.radius+1 && !s.world.Pinned(key) {
			s.world.Unload(key.X, key.Z)
			unloaded++
		}
	}

	if s.last == nil || *s.last != center {
		c := center
		s.last = &c
		s.world.logger.Debug("Окно стриминга: центр (%d,%d), запрошено %d, выгружено %d",
			center.X, center.Z, requested, unloaded)
	}
	return requested, unloaded
}

// window возвращает ключи квадрата радиуса R, ближайшие первыми
func (s *Streamer) window(center vec.Vec2) []vec.Vec2 {
	side := 2*s.radius + 1
	keys := make([]vec.Vec2, 0, side*side)
	for dx := -s.radius; dx <= s.radius; dx++ {
		for dz := -s.radius; dz <= s.radius; dz++ {
			keys = append(keys, vec.Vec2{X: center.X + dx, Z: center.Z + dz})
		}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		di, dj := keys[i].DistanceTo(center), keys[j].DistanceTo(center)
		if di != dj {
			return di < dj
		}
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Z < keys[j].Z
	})
	return keys
}
