package world

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/annel0/happy-builder/internal/eventbus"
	"github.com/annel0/happy-builder/internal/storage"
	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hookStorage вызывает onSave перед каждой записью чанка
type hookStorage struct {
	*storage.MemoryStorage
	onSave func()
}

func (s *hookStorage) SaveChunk(ctx context.Context, key vec.Vec2, edits []storage.BlockEdit) error {
	if s.onSave != nil {
		hook := s.onSave
		s.onSave = nil
		hook()
	}
	return s.MemoryStorage.SaveChunk(ctx, key, edits)
}

// flakyStorage отказывает в загрузке чанков, пока failLoads > 0
type flakyStorage struct {
	*storage.MemoryStorage
	mu        sync.Mutex
	failLoads int
}

func (s *flakyStorage) LoadChunk(ctx context.Context, key vec.Vec2) ([]storage.BlockEdit, error) {
	s.mu.Lock()
	fail := s.failLoads > 0
	if fail {
		s.failLoads--
	}
	s.mu.Unlock()
	if fail {
		return nil, errors.New("хранилище недоступно")
	}
	return s.MemoryStorage.LoadChunk(ctx, key)
}

func newReadyWorld(t *testing.T, store storage.ChunkStorage, bus eventbus.EventBus) *World {
	t.Helper()
	d := &recordingDispatcher{}
	w := NewWorld(Config{Seed: 42}, Deps{Dispatcher: d, Scene: newTestScene(), Storage: store, Bus: bus})
	w.EnsureChunk(0, 0)
	w.Deliver(generatedFor(w.Generator(), vec.Vec2{}))
	require.Equal(t, ChunkReady, w.State(0, 0))
	return w
}

func TestChunk_MarkSavedKeepsLaterChanges(t *testing.T) {
	c := NewChunk(vec.Vec2{}, 16)
	c.SetBlock(vec.Vec3{X: 1, Y: 1, Z: 1}, block.StoneBlockID)

	edits, changes := c.EditsSnapshot()
	require.Len(t, edits, 1)
	require.Equal(t, 1, changes)

	// Правка между снимком и окончанием записи
	c.SetBlock(vec.Vec3{X: 2, Y: 1, Z: 1}, block.StoneBlockID)
	c.MarkSaved(changes)

	assert.True(t, c.HasChanges())
	assert.Equal(t, 1, c.ChangeCounter)
}

func TestWorld_EditDuringFlushIsNotLost(t *testing.T) {
	store := &hookStorage{MemoryStorage: storage.NewMemoryStorage()}
	w := newReadyWorld(t, store, nil)
	require.True(t, w.SetBlock(1, 60, 1, block.WoodBlockID))

	store.onSave = func() {
		require.True(t, w.SetBlock(5, 60, 5, block.BrickBlockID))
	}
	require.NoError(t, w.Flush(context.Background()))

	chunk, ok := w.Store().Get(vec.Vec2{})
	require.True(t, ok)
	assert.True(t, chunk.HasChanges(), "правка во время записи остаётся несохранённой")

	w.Unload(0, 0)

	edits, err := store.LoadChunk(context.Background(), vec.Vec2{})
	require.NoError(t, err)
	assert.Equal(t, []storage.BlockEdit{
		{X: 1, Y: 60, Z: 1, ID: uint16(block.WoodBlockID)},
		{X: 5, Y: 60, Z: 5, ID: uint16(block.BrickBlockID)},
	}, edits)
}

func TestWorld_FailedEditLoadKeepsSavedEdits(t *testing.T) {
	ctx := context.Background()
	store := &flakyStorage{MemoryStorage: storage.NewMemoryStorage(), failLoads: 2}
	saved := storage.BlockEdit{X: 0, Y: 62, Z: 0, ID: uint16(block.BrickBlockID)}
	require.NoError(t, store.MemoryStorage.SaveChunk(ctx, vec.Vec2{}, []storage.BlockEdit{saved}))

	pool := NewWorkerPool(NewWorldGenerator(42), 1, 4, store, nil)
	resp, ok := pool.handle(ctx, NewGenerateRequest(vec.Vec2{}))
	require.True(t, ok)
	require.True(t, resp.Payload.EditsMissing)
	require.Empty(t, resp.Payload.Edits)

	w := NewWorld(Config{Seed: 42}, Deps{Dispatcher: &recordingDispatcher{}, Scene: newTestScene(), Storage: store})
	w.EnsureChunk(0, 0)
	w.Deliver(resp)
	chunk, _ := w.Store().Get(vec.Vec2{})
	require.True(t, chunk.EditsMissing())

	require.True(t, w.SetBlock(3, 60, 3, block.WoodBlockID))

	// Хранилище ещё отказывает: запись не затирает сохранённую дельту
	err := w.Flush(ctx)
	assert.ErrorIs(t, err, ErrEditsNotLoaded)
	edits, err := store.MemoryStorage.LoadChunk(ctx, vec.Vec2{})
	require.NoError(t, err)
	assert.Equal(t, []storage.BlockEdit{saved}, edits)

	// Хранилище ожило: старые и новые правки объединяются
	w.Unload(0, 0)
	edits, err = store.MemoryStorage.LoadChunk(ctx, vec.Vec2{})
	require.NoError(t, err)
	assert.Equal(t, []storage.BlockEdit{
		saved,
		{X: 3, Y: 60, Z: 3, ID: uint16(block.WoodBlockID)},
	}, edits)
}

func TestWorld_MergeSavedPrefersNewEdits(t *testing.T) {
	c := NewChunk(vec.Vec2{}, 16)
	c.MarkEditsMissing()
	c.SetBlock(vec.Vec3{X: 1, Y: 1, Z: 1}, block.WoodBlockID)

	added := c.MergeSaved([]storage.BlockEdit{
		{X: 1, Y: 1, Z: 1, ID: uint16(block.BrickBlockID)},
		{X: 2, Y: 2, Z: 2, ID: uint16(block.BrickBlockID)},
		{X: 99, Y: 0, Z: 0, ID: uint16(block.BrickBlockID)},
	})

	assert.Equal(t, 1, added)
	assert.False(t, c.EditsMissing())
	assert.Equal(t, []storage.BlockEdit{
		{X: 1, Y: 1, Z: 1, ID: uint16(block.WoodBlockID)},
		{X: 2, Y: 2, Z: 2, ID: uint16(block.BrickBlockID)},
	}, c.Edits())
}

func TestWorld_SlowSubscriberDoesNotHoldWorldLock(t *testing.T) {
	bus := eventbus.NewMemoryBus(1)
	w := newReadyWorld(t, storage.NewMemoryStorage(), bus)

	release := make(chan struct{})
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.TypeBlockChanged}},
		func(ctx context.Context, ev *eventbus.Envelope) { <-release })
	require.NoError(t, err)
	t.Cleanup(func() {
		close(release)
		_ = bus.Close()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 4; i++ {
			w.SetBlock(i, 60, 0, block.BrickBlockID)
		}
	}()

	// Мир отвечает, пока публикация ждёт места в очереди
	require.Eventually(t, func() bool {
		return w.Stats().Cached == 1 && w.ChunkInfo(0, 0).State == "ready"
	}, time.Second, 10*time.Millisecond)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("публикация событий не ограничена по времени")
	}
	assert.Equal(t, block.BrickBlockID, w.GetBlock(3, 60, 0))
}

func TestWorld_PinnedChunkSurvivesStreaming(t *testing.T) {
	f := newWorldFixture(t, "greedy")
	f.world.Pin(3, 3)
	f.answerAll()
	require.Equal(t, ChunkReady, f.world.State(3, 3))
	assert.True(t, f.world.ChunkInfo(3, 3).Pinned)

	s := NewStreamer(f.world, 0)
	s.Update(vec.Vec2{X: -10, Z: -10})
	assert.Equal(t, ChunkReady, f.world.State(3, 3))
	assert.NotNil(t, f.world.Mesh(3, 3))

	f.world.Unpin(3, 3)
	s.Update(vec.Vec2{X: -10, Z: -10})
	assert.Equal(t, ChunkUnloaded, f.world.State(3, 3))
	assert.False(t, f.world.ChunkInfo(3, 3).Pinned)
}
