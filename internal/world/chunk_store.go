package world

import (
	"sort"
	"sync"

	"github.com/annel0/happy-builder/internal/logging"
	"github.com/annel0/happy-builder/internal/metrics"
	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world/block"
)

// ChunkCallback получает готовый чанк
type ChunkCallback func(*Chunk)

// ChunkStore - разреженный кеш чанков с объединением запросов.
// Для каждого ключа в кеше не больше одного объёма и в полёте не больше одного запроса.
type ChunkStore struct {
	mu         sync.RWMutex
	chunks     map[vec.Vec2]*Chunk
	pending    map[vec.Vec2][]ChunkCallback
	dispatcher Dispatcher
	metrics    *metrics.Pipeline
}

// NewChunkStore создаёт хранилище, отправляющее промахи в dispatcher
func NewChunkStore(dispatcher Dispatcher, m *metrics.Pipeline) *ChunkStore {
	return &ChunkStore{
		chunks:     make(map[vec.Vec2]*Chunk),
		pending:    make(map[vec.Vec2][]ChunkCallback),
		dispatcher: dispatcher,
		metrics:    m,
	}
}

// GetChunk вызывает callback с чанком: сразу, если он в кеше,
// иначе после ответа генератора. Генератор получает запрос только при первом промахе.
// callback может быть nil (только запросить чанк).
func (cs *ChunkStore) GetChunk(cx, cz int, callback ChunkCallback) {
	key := vec.Vec2{X: cx, Z: cz}

	cs.mu.Lock()
	if chunk, ok := cs.chunks[key]; ok {
		cs.mu.Unlock()
		cs.metrics.ChunkRequest(metrics.ResultHit)
		if callback != nil {
			callback(chunk)
		}
		return
	}

	waiting, inFlight := cs.pending[key]
	cs.pending[key] = append(waiting, callback)
	cached, pendingCount := len(cs.chunks), len(cs.pending)
	cs.mu.Unlock()

	cs.metrics.SetChunkCounts(cached, pendingCount)
	logging.LogChunkRequest(cx, cz, inFlight)

	if inFlight {
		cs.metrics.ChunkRequest(metrics.ResultCoalesced)
		return
	}
	cs.metrics.ChunkRequest(metrics.ResultMiss)
	cs.dispatcher.Dispatch(NewGenerateRequest(key))
}

// HandleResponse кеширует ответ генератора и вызывает все ожидающие callback
// по одному разу в порядке регистрации. Сохранённые правки накладываются до вызовов.
// Повторный ответ для уже готового ключа игнорируется.
func (cs *ChunkStore) HandleResponse(resp GeneratedResponse) *Chunk {
	key := resp.Key()

	cs.mu.Lock()
	if existing, ok := cs.chunks[key]; ok {
		cs.mu.Unlock()
		return existing
	}

	chunk := NewChunkFromData(key, resp.Payload.ChunkData)
	if len(resp.Payload.Edits) > 0 {
		chunk.ApplyEdits(resp.Payload.Edits)
	}
	if resp.Payload.EditsMissing {
		chunk.MarkEditsMissing()
	}

	cs.chunks[key] = chunk
	callbacks := cs.pending[key]
	delete(cs.pending, key)
	cached, pendingCount := len(cs.chunks), len(cs.pending)
	cs.mu.Unlock()

	cs.metrics.SetChunkCounts(cached, pendingCount)

	for _, cb := range callbacks {
		if cb != nil {
			cb(chunk)
		}
	}
	return chunk
}

// Get возвращает чанк из кеша
func (cs *ChunkStore) Get(key vec.Vec2) (*Chunk, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	chunk, ok := cs.chunks[key]
	return chunk, ok
}

// Has проверяет наличие чанка в кеше
func (cs *ChunkStore) Has(key vec.Vec2) bool {
	_, ok := cs.Get(key)
	return ok
}

// IsPending проверяет, ожидается ли ответ генератора для ключа
func (cs *ChunkStore) IsPending(key vec.Vec2) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	_, ok := cs.pending[key]
	return ok
}

// GetBlock возвращает блок по мировым координатам; воздух, если чанк не в кеше
func (cs *ChunkStore) GetBlock(x, y, z int) block.BlockID {
	pos := vec.Vec3{X: x, Y: y, Z: z}
	chunk, ok := cs.Get(pos.ToChunkCoords())
	if !ok {
		return block.AirBlockID
	}
	return chunk.GetBlock(pos.LocalInChunk())
}

// SetBlock меняет блок по мировым координатам.
// Работает только для чанка в кеше; вне объёма - тихий no-op. Возвращает прежний блок и успех.
func (cs *ChunkStore) SetBlock(x, y, z int, id block.BlockID) (block.BlockID, bool) {
	pos := vec.Vec3{X: x, Y: y, Z: z}
	chunk, ok := cs.Get(pos.ToChunkCoords())
	if !ok {
		return block.AirBlockID, false
	}

	local := pos.LocalInChunk()
	old := chunk.GetBlock(local)
	if !chunk.SetBlock(local, id) {
		return block.AirBlockID, false
	}
	return old, true
}

// Evict удаляет чанк из кеша и возвращает его
func (cs *ChunkStore) Evict(key vec.Vec2) (*Chunk, bool) {
	cs.mu.Lock()
	chunk, ok := cs.chunks[key]
	delete(cs.chunks, key)
	cached, pendingCount := len(cs.chunks), len(cs.pending)
	cs.mu.Unlock()

	cs.metrics.SetChunkCounts(cached, pendingCount)
	return chunk, ok
}

// Keys возвращает ключи кешированных чанков в детерминированном порядке
func (cs *ChunkStore) Keys() []vec.Vec2 {
	cs.mu.RLock()
	keys := make([]vec.Vec2, 0, len(cs.chunks))
	for k := range cs.chunks {
		keys = append(keys, k)
	}
	cs.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Z < keys[j].Z
	})
	return keys
}

// Len возвращает число кешированных и ожидающих чанков
func (cs *ChunkStore) Len() (cached, pending int) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.chunks), len(cs.pending)
}
