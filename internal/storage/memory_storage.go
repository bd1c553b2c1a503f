package storage

import (
	"context"
	"sync"

	"github.com/annel0/happy-builder/internal/vec"
)

// MemoryStorage реализует ChunkStorage в памяти.
// Используется, когда постоянное хранилище не настроено, и в тестах.
// ВНИМАНИЕ: Данные теряются при перезапуске!
type MemoryStorage struct {
	mu       sync.RWMutex
	chunks   map[vec.Vec2][]byte
	profiles map[string][]byte
}

// NewMemoryStorage создает новое хранилище в памяти
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		chunks:   make(map[vec.Vec2][]byte),
		profiles: make(map[string][]byte),
	}
}

// SaveChunk сохраняет дельту чанка; данные проходят тот же кодек, что и на диске
func (m *MemoryStorage) SaveChunk(ctx context.Context, key vec.Vec2, edits []BlockEdit) error {
	if len(edits) == 0 {
		m.mu.Lock()
		delete(m.chunks, key)
		m.mu.Unlock()
		return nil
	}

	data, err := EncodeChunk(key, edits)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.chunks[key] = data
	m.mu.Unlock()
	return nil
}

// LoadChunk загружает дельту чанка
func (m *MemoryStorage) LoadChunk(ctx context.Context, key vec.Vec2) ([]BlockEdit, error) {
	m.mu.RLock()
	data, ok := m.chunks[key]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	rec, err := DecodeChunk(data)
	if err != nil {
		return nil, err
	}
	return rec.Edits, nil
}

// SaveProfile сохраняет профиль игрока
func (m *MemoryStorage) SaveProfile(ctx context.Context, profile *Profile) error {
	data, err := encodeProfile(profile)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.profiles[profile.PlayerID] = data
	m.mu.Unlock()
	return nil
}

// LoadProfile загружает профиль игрока
func (m *MemoryStorage) LoadProfile(ctx context.Context, playerID string) (*Profile, error) {
	m.mu.RLock()
	data, ok := m.profiles[playerID]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return decodeProfile(data)
}

// ChunkCount возвращает количество сохранённых чанков
func (m *MemoryStorage) ChunkCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// Close ничего не делает
func (m *MemoryStorage) Close() error {
	return nil
}
