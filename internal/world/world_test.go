package world

import (
	"context"
	"sync"
	"testing"

	"github.com/annel0/happy-builder/internal/mesh"
	"github.com/annel0/happy-builder/internal/storage"
	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testScene - сцена, которая просто запоминает присоединённые меши
type testScene struct {
	mu     sync.Mutex
	meshes map[vec.Vec2]*mesh.Mesh
	adds   int
}

func newTestScene() *testScene {
	return &testScene{meshes: make(map[vec.Vec2]*mesh.Mesh)}
}

func (s *testScene) Add(key vec.Vec2, m *mesh.Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshes[key] = m
	s.adds++
}

func (s *testScene) Remove(key vec.Vec2, m *mesh.Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meshes[key] == m {
		delete(s.meshes, key)
	}
}

func (s *testScene) get(key vec.Vec2) *mesh.Mesh {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meshes[key]
}

func (s *testScene) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.meshes)
}

type worldFixture struct {
	world      *World
	dispatcher *recordingDispatcher
	scene      *testScene
	storage    *storage.MemoryStorage
}

func newWorldFixture(t *testing.T, mesher string) *worldFixture {
	t.Helper()
	f := &worldFixture{
		dispatcher: &recordingDispatcher{},
		scene:      newTestScene(),
		storage:    storage.NewMemoryStorage(),
	}
	f.world = NewWorld(Config{Seed: 42, Mesher: mesher}, Deps{
		Dispatcher: f.dispatcher,
		Scene:      f.scene,
		Storage:    f.storage,
	})
	return f
}

// answerAll отвечает на все запросы так, как ответил бы воркер
func (f *worldFixture) answerAll() {
	for _, req := range f.dispatcher.Requests() {
		key := req.Key()
		if f.world.State(key.X, key.Z) != ChunkGenerating {
			continue
		}
		f.world.Deliver(generatedFor(f.world.Generator(), key))
	}
}

func TestWorld_EnsureChunkAttachesMesh(t *testing.T) {
	f := newWorldFixture(t, "greedy")

	f.world.EnsureChunk(0, 0)
	f.world.EnsureChunk(0, 0)
	assert.Equal(t, ChunkGenerating, f.world.State(0, 0))
	require.Len(t, f.dispatcher.Requests(), 1)

	f.answerAll()

	assert.Equal(t, ChunkReady, f.world.State(0, 0))
	m := f.world.Mesh(0, 0)
	require.NotNil(t, m)
	assert.Greater(t, m.TriangleCount(), 0)
	assert.Same(t, m, f.scene.get(vec.Vec2{}))
	assert.Equal(t, 1, f.scene.adds, "меш присоединяется один раз")
}

func TestWorld_SetBlockRebuildsMatchingMesh(t *testing.T) {
	f := newWorldFixture(t, "greedy")
	f.world.EnsureChunk(0, 0)
	f.answerAll()

	initial := f.world.Mesh(0, 0)
	require.NotNil(t, initial)

	h := f.world.Generator().HeightAt(5, 5)
	require.True(t, f.world.SetBlock(5, h, 5, block.AirBlockID))
	assert.Equal(t, block.AirBlockID, f.world.GetBlock(5, h, 5))

	rebuilt := f.world.Mesh(0, 0)
	require.NotNil(t, rebuilt)
	assert.NotSame(t, initial, rebuilt)
	assert.True(t, initial.Disposed(), "старый меш освобождается")
	assert.Same(t, rebuilt, f.scene.get(vec.Vec2{}))

	chunk, ok := f.world.Store().Get(vec.Vec2{})
	require.True(t, ok)
	assert.Equal(t, 2*mesh.CountExposedFaces(chunk), rebuilt.TriangleCount(),
		"после правки меш соответствует объёму")

	require.True(t, f.world.SetBlock(5, h+1, 5, block.BrickBlockID))
	rebuilt2 := f.world.Mesh(0, 0)
	assert.True(t, rebuilt.Disposed())
	assert.Equal(t, 2*mesh.CountExposedFaces(chunk), rebuilt2.TriangleCount())
}

func TestWorld_SetBlockOutsideWorldIsNoop(t *testing.T) {
	f := newWorldFixture(t, "naive")
	f.world.EnsureChunk(0, 0)
	f.answerAll()
	before := f.world.Mesh(0, 0)

	assert.False(t, f.world.SetBlock(3, -1, 3, block.StoneBlockID))
	assert.False(t, f.world.SetBlock(3, DefaultHeight, 3, block.StoneBlockID))
	assert.False(t, f.world.SetBlock(100, 5, 100, block.StoneBlockID), "чанк не загружен")
	assert.Same(t, before, f.world.Mesh(0, 0))
	assert.False(t, before.Disposed())
}

func TestWorld_UnloadDisposesAndSavesEdits(t *testing.T) {
	f := newWorldFixture(t, "greedy")
	f.world.EnsureChunk(0, 0)
	f.answerAll()

	require.True(t, f.world.SetBlock(1, 60, 1, block.BrickBlockID))
	m := f.world.Mesh(0, 0)

	f.world.Unload(0, 0)

	assert.True(t, m.Disposed())
	assert.Equal(t, 0, f.scene.len())
	assert.Equal(t, ChunkUnloaded, f.world.State(0, 0))

	edits, err := f.storage.LoadChunk(context.Background(), vec.Vec2{})
	require.NoError(t, err)
	assert.Equal(t, []storage.BlockEdit{{X: 1, Y: 60, Z: 1, ID: uint16(block.BrickBlockID)}}, edits)
}

func TestWorld_LateChunkIsCachedButNotAttached(t *testing.T) {
	f := newWorldFixture(t, "greedy")
	f.world.EnsureChunk(4, 4)
	f.world.Unload(4, 4)
	assert.Equal(t, ChunkGenerating, f.world.State(4, 4), "запрос в полёте не отменяется")

	f.answerAll()

	assert.Equal(t, ChunkReady, f.world.State(4, 4))
	assert.Nil(t, f.world.Mesh(4, 4))
	assert.Equal(t, 0, f.scene.len())

	// Следующий проход стримера далеко от чанка выбрасывает его
	NewStreamer(f.world, 0).Update(vec.Vec2{X: -10, Z: -10})
	assert.Equal(t, ChunkUnloaded, f.world.State(4, 4))
}

func TestWorld_FlushSavesChangedChunks(t *testing.T) {
	f := newWorldFixture(t, "greedy")
	f.world.EnsureChunk(0, 0)
	f.answerAll()
	require.True(t, f.world.SetBlock(2, 60, 2, block.WoodBlockID))

	require.NoError(t, f.world.Flush(context.Background()))

	chunk, ok := f.world.Store().Get(vec.Vec2{})
	require.True(t, ok)
	assert.False(t, chunk.HasChanges())
	assert.Equal(t, 1, f.storage.ChunkCount())
}

func TestWorld_PersistedEditsSurviveReload(t *testing.T) {
	f := newWorldFixture(t, "greedy")
	ctx := context.Background()
	require.NoError(t, f.storage.SaveChunk(ctx, vec.Vec2{}, []storage.BlockEdit{
		{X: 0, Y: 62, Z: 0, ID: uint16(block.BrickBlockID)},
	}))

	pool := NewWorkerPool(f.world.Generator(), 1, 4, f.storage, nil)
	resp, ok := pool.handle(ctx, NewGenerateRequest(vec.Vec2{}))
	require.True(t, ok)

	f.world.EnsureChunk(0, 0)
	f.world.Deliver(resp)

	assert.Equal(t, block.BrickBlockID, f.world.GetBlock(0, 62, 0))
	chunk, _ := f.world.Store().Get(vec.Vec2{})
	assert.Equal(t, 2*mesh.CountExposedFaces(chunk), mesh.NewNaiveMesher().Build(vec.Vec2{}, chunk).TriangleCount())
}

func TestWorld_SurfaceY(t *testing.T) {
	f := newWorldFixture(t, "greedy")
	gen := f.world.Generator()

	assert.Equal(t, gen.HeightAt(3, 3)+1, f.world.SurfaceY(3, 3), "без кеша высота берётся из генератора")

	f.world.EnsureChunk(0, 0)
	f.answerAll()
	require.True(t, f.world.SetBlock(3, 60, 3, block.BrickBlockID))
	assert.Equal(t, 61, f.world.SurfaceY(3, 3))
}

func TestWorld_StatsAndChunkInfo(t *testing.T) {
	f := newWorldFixture(t, "greedy")
	f.world.EnsureChunk(0, 0)
	f.world.EnsureChunk(1, 0)

	stats := f.world.Stats()
	assert.Equal(t, 0, stats.Cached)
	assert.Equal(t, 2, stats.Pending)

	f.answerAll()
	stats = f.world.Stats()
	assert.Equal(t, 2, stats.Cached)
	assert.Equal(t, 2, stats.Meshed)
	assert.Greater(t, stats.Triangles, 0)

	info := f.world.ChunkInfo(1, 0)
	assert.Equal(t, "ready", info.State)
	assert.True(t, info.Wanted)
	assert.Equal(t, f.world.Mesh(1, 0).TriangleCount(), info.Triangles)
	assert.Equal(t, "unloaded", f.world.ChunkInfo(9, 9).State)
}
