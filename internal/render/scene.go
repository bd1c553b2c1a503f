package render

import (
	"sort"
	"sync"

	"github.com/annel0/happy-builder/internal/mesh"
	"github.com/annel0/happy-builder/internal/vec"
)

// MemoryScene хранит присоединённые меши чанков.
// Мир владеет мешами и освобождает их сам; сцена только держит ссылки на видимые.
type MemoryScene struct {
	mu     sync.RWMutex
	meshes map[vec.Vec2]*mesh.Mesh
}

// NewMemoryScene создаёт пустую сцену
func NewMemoryScene() *MemoryScene {
	return &MemoryScene{meshes: make(map[vec.Vec2]*mesh.Mesh)}
}

// Add присоединяет меш чанка, заменяя прежний
func (s *MemoryScene) Add(key vec.Vec2, m *mesh.Mesh) {
	if m == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshes[key] = m
}

// Remove отсоединяет меш; чужой меш для того же ключа не трогается
func (s *MemoryScene) Remove(key vec.Vec2, m *mesh.Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.meshes[key]; ok && cur == m {
		delete(s.meshes, key)
	}
}

// Get возвращает меш чанка
func (s *MemoryScene) Get(key vec.Vec2) (*mesh.Mesh, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meshes[key]
	return m, ok
}

// Live возвращает число присоединённых мешей
func (s *MemoryScene) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.meshes)
}

// Triangles возвращает суммарное число треугольников сцены
func (s *MemoryScene) Triangles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, m := range s.meshes {
		total += m.TriangleCount()
	}
	return total
}

// Leaked возвращает ключи мешей, которые освобождены, но всё ещё на сцене
func (s *MemoryScene) Leaked() []vec.Vec2 {
	s.mu.RLock()
	var keys []vec.Vec2
	for k, m := range s.meshes {
		if m.Disposed() {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Z < keys[j].Z
	})
	return keys
}
