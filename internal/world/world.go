package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/happy-builder/internal/eventbus"
	"github.com/annel0/happy-builder/internal/logging"
	"github.com/annel0/happy-builder/internal/mesh"
	"github.com/annel0/happy-builder/internal/metrics"
	"github.com/annel0/happy-builder/internal/storage"
	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world/block"
)

// ErrEditsNotLoaded - сохранённые правки чанка недоступны, запись затёрла бы их
var ErrEditsNotLoaded = errors.New("сохранённые правки чанка не загружены")

// publishTimeout ограничивает ожидание места в очереди подписчика
const publishTimeout = 500 * time.Millisecond

// ChunkState - состояние чанка с точки зрения мира
type ChunkState int

const (
	ChunkUnloaded   ChunkState = iota // Чанка нет ни в кеше, ни в очереди
	ChunkGenerating                   // Запрос отправлен генератору
	ChunkReady                        // Объём в кеше
)

// String возвращает имя состояния
func (s ChunkState) String() string {
	switch s {
	case ChunkUnloaded:
		return "unloaded"
	case ChunkGenerating:
		return "generating"
	case ChunkReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Scene принимает меши чанков. Мир владеет мешами: сцена только показывает их.
type Scene interface {
	Add(key vec.Vec2, m *mesh.Mesh)
	Remove(key vec.Vec2, m *mesh.Mesh)
}

// Config содержит параметры мира
type Config struct {
	Seed      int64
	Height    int
	SeaLevel  int
	Workers   int
	QueueSize int
	Mesher    string // Мешер первой сборки: greedy или naive
	Source    string // Имя источника событий
}

// Deps - внешние зависимости мира. Любая может быть nil.
type Deps struct {
	Dispatcher Dispatcher // nil - собственный WorkerPool
	Scene      Scene
	Storage    storage.ChunkStorage
	Bus        eventbus.EventBus
	Metrics    *metrics.Pipeline
}

// Stats - сводка состояния мира
type Stats struct {
	Cached    int `json:"cached"`
	Pending   int `json:"pending"`
	Meshed    int `json:"meshed"`
	Triangles int `json:"triangles"`
}

// ChunkInfo - сведения о чанке для отладочного API
type ChunkInfo struct {
	CX        int    `json:"cx"`
	CZ        int    `json:"cz"`
	State     string `json:"state"`
	Wanted    bool   `json:"wanted"`
	Pinned    bool   `json:"pinned"`
	Triangles int    `json:"triangles"`
	Edits     int    `json:"edits"`
}

// World - фасад воксельного мира: кеш чанков, генератор, мешеры и сцена.
// Колбэки хранилища выполняются под w.mu: все входы, которые могут их вызвать,
// берут w.mu сами.
type World struct {
	mu sync.Mutex

	cfg           Config
	generator     *WorldGenerator
	pool          *WorkerPool
	store         *ChunkStore
	scene         Scene
	storage       storage.ChunkStorage
	bus           eventbus.EventBus
	metrics       *metrics.Pipeline
	logger        *logging.Logger
	initialMesher mesh.Mesher
	editMesher    mesh.Mesher

	// meshes: наличие ключа - чанк собран; значение nil - видимых граней нет
	meshes map[vec.Vec2]*mesh.Mesh
	// wanted: чанки внутри окна стриминга
	wanted map[vec.Vec2]struct{}
	// pinned: чанки, закреплённые через API; стример их не выгружает
	pinned map[vec.Vec2]struct{}
	// outbox: события, накопленные под w.mu; публикуются после разблокировки
	outbox []*eventbus.Envelope

	// saveMu упорядочивает записи чанков: снимок и запись идут парой
	saveMu sync.Mutex
}

// NewWorld создаёт мир
func NewWorld(cfg Config, deps Deps) *World {
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.Source == "" {
		cfg.Source = "world"
	}

	gen := NewWorldGenerator(cfg.Seed)
	gen.Height = cfg.Height
	gen.SeaLevel = cfg.SeaLevel

	w := &World{
		cfg:        cfg,
		generator:  gen,
		scene:      deps.Scene,
		storage:    deps.Storage,
		bus:        deps.Bus,
		metrics:    deps.Metrics,
		logger:     logging.GetWorldLogger(),
		editMesher: mesh.NewNaiveMesher(),
		meshes:     make(map[vec.Vec2]*mesh.Mesh),
		wanted:     make(map[vec.Vec2]struct{}),
		pinned:     make(map[vec.Vec2]struct{}),
	}

	switch cfg.Mesher {
	case "naive":
		w.initialMesher = mesh.NewNaiveMesher()
	default:
		w.initialMesher = mesh.NewGreedyMesher()
	}

	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		w.pool = NewWorkerPool(gen, cfg.Workers, cfg.QueueSize, deps.Storage, deps.Metrics)
		dispatcher = w.pool
	}
	w.store = NewChunkStore(dispatcher, deps.Metrics)

	return w
}

// Start запускает воркеры генерации
func (w *World) Start(ctx context.Context) {
	if w.pool != nil {
		w.pool.Start(ctx)
	}
}

// Stop останавливает воркеры; недоставленные ответы теряются
func (w *World) Stop() {
	if w.pool != nil {
		w.pool.Stop()
	}
}

// Generator возвращает генератор ландшафта
func (w *World) Generator() *WorldGenerator {
	return w.generator
}

// Store возвращает кеш чанков
func (w *World) Store() *ChunkStore {
	return w.store
}

// Ready сигнализирует о готовых ответах генератора; nil без собственного пула
func (w *World) Ready() <-chan struct{} {
	if w.pool == nil {
		return nil
	}
	return w.pool.Ready()
}

// ProcessResults забирает ответы воркеров и применяет их. Не блокируется.
func (w *World) ProcessResults() int {
	if w.pool == nil {
		return 0
	}
	results := w.pool.Drain()
	for _, resp := range results {
		w.Deliver(resp)
	}
	return len(results)
}

// Deliver применяет ответ генератора: кеширует объём и вызывает ожидающих
func (w *World) Deliver(resp GeneratedResponse) {
	w.mu.Lock()
	defer w.unlockAndPublish()
	w.store.HandleResponse(resp)
}

// EnsureChunk запрашивает чанк и, когда он готов, собирает и показывает его меш
func (w *World) EnsureChunk(cx, cz int) {
	key := vec.Vec2{X: cx, Z: cz}

	w.mu.Lock()
	defer w.unlockAndPublish()

	w.wanted[key] = struct{}{}
	if _, meshed := w.meshes[key]; meshed {
		return
	}
	if w.store.IsPending(key) {
		return
	}
	w.store.GetChunk(cx, cz, w.onChunkReady)
}

// onChunkReady вызывается под w.mu
func (w *World) onChunkReady(chunk *Chunk) {
	key := chunk.Coords
	if _, ok := w.wanted[key]; !ok {
		// Чанк ушёл из окна, пока генерировался: объём в кеше, меш не строим
		w.logger.Trace("Чанк (%d,%d) готов вне окна стриминга", key.X, key.Z)
		return
	}
	if _, meshed := w.meshes[key]; meshed {
		return
	}

	m := w.buildMesh(w.initialMesher, key, chunk)
	w.replaceMesh(key, m)

	logging.LogChunkReady(key.X, key.Z, m.TriangleCount(), w.initialMesher.Name())
	w.publish(eventbus.TypeChunkReady, 1, eventbus.ChunkChanged{CX: key.X, CZ: key.Z, Triangles: m.TriangleCount()})
}

func (w *World) buildMesh(m mesh.Mesher, key vec.Vec2, chunk *Chunk) *mesh.Mesh {
	start := time.Now()
	built := m.Build(key, chunk)
	w.metrics.ObserveMeshBuild(m.Name(), time.Since(start))
	return built
}

// replaceMesh освобождает прежний меш и ставит новый. Вызывается под w.mu.
func (w *World) replaceMesh(key vec.Vec2, m *mesh.Mesh) {
	if old := w.meshes[key]; old != nil {
		if w.scene != nil {
			w.scene.Remove(key, old)
		}
		old.Dispose()
		w.metrics.MeshDisposed()
	}

	w.meshes[key] = m
	if m != nil && w.scene != nil {
		w.scene.Add(key, m)
	}
	w.metrics.SetMeshesLive(w.liveMeshes())
}

func (w *World) liveMeshes() int {
	n := 0
	for _, m := range w.meshes {
		if m != nil {
			n++
		}
	}
	return n
}

// GetBlock возвращает блок по мировым координатам; воздух, если чанк не готов
func (w *World) GetBlock(x, y, z int) block.BlockID {
	return w.store.GetBlock(x, y, z)
}

// IsSolid сообщает, твёрдый ли блок в мировых координатах
func (w *World) IsSolid(x, y, z int) bool {
	return block.IsSolid(w.store.GetBlock(x, y, z))
}

// SetBlock меняет блок. Допустим только для готового чанка; вне мира - no-op.
// Собранный меш чанка пересобирается простым мешером.
func (w *World) SetBlock(x, y, z int, id block.BlockID) bool {
	w.mu.Lock()
	defer w.unlockAndPublish()

	old, ok := w.store.SetBlock(x, y, z, id)
	if !ok {
		return false
	}
	if old == id {
		return true
	}

	key := vec.Vec3{X: x, Y: y, Z: z}.ToChunkCoords()
	if _, meshed := w.meshes[key]; meshed {
		if chunk, ok := w.store.Get(key); ok {
			w.replaceMesh(key, w.buildMesh(w.editMesher, key, chunk))
		}
	}

	w.metrics.BlockEdited()
	w.publish(eventbus.TypeBlockChanged, 5, eventbus.BlockChanged{X: x, Y: y, Z: z, Old: uint16(old), New: uint16(id)})
	return true
}

// Unload освобождает меш, убирает его со сцены, сохраняет правки и выбрасывает объём.
// Если чанк ещё генерируется, его ответ будет закеширован без меша.
func (w *World) Unload(cx, cz int) {
	key := vec.Vec2{X: cx, Z: cz}

	w.mu.Lock()
	defer w.unlockAndPublish()

	delete(w.wanted, key)

	if m, meshed := w.meshes[key]; meshed {
		if m != nil {
			if w.scene != nil {
				w.scene.Remove(key, m)
			}
			m.Dispose()
			w.metrics.MeshDisposed()
		}
		delete(w.meshes, key)
		w.metrics.SetMeshesLive(w.liveMeshes())
	}

	chunk, ok := w.store.Evict(key)
	if !ok {
		return
	}
	if chunk.HasChanges() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := w.saveChunk(ctx, chunk); err != nil {
			w.logger.Error("Не удалось сохранить чанк (%d,%d): %v", cx, cz, err)
		}
		cancel()
	}
	w.publish(eventbus.TypeChunkUnloaded, 1, eventbus.ChunkChanged{CX: cx, CZ: cz})
}

// saveChunk записывает правки чанка. Правки, сделанные во время записи,
// остаются несохранёнными до следующего раза.
func (w *World) saveChunk(ctx context.Context, chunk *Chunk) error {
	if w.storage == nil {
		return nil
	}

	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	if chunk.EditsMissing() {
		saved, err := w.storage.LoadChunk(ctx, chunk.Coords)
		if err != nil {
			return fmt.Errorf("chunk %v: %w: %v", chunk.Coords, ErrEditsNotLoaded, err)
		}
		if n := chunk.MergeSaved(saved); n > 0 {
			w.logger.Info("Чанк (%d,%d): восстановлено %d сохранённых правок", chunk.Coords.X, chunk.Coords.Z, n)
		}
	}

	edits, changes := chunk.EditsSnapshot()
	if err := w.storage.SaveChunk(ctx, chunk.Coords, edits); err != nil {
		return fmt.Errorf("save chunk %v: %w", chunk.Coords, err)
	}
	chunk.MarkSaved(changes)
	return nil
}

// Flush сохраняет все чанки с несохранёнными правками
func (w *World) Flush(ctx context.Context) error {
	var firstErr error
	saved := 0
	for _, key := range w.store.Keys() {
		chunk, ok := w.store.Get(key)
		if !ok || !chunk.HasChanges() {
			continue
		}
		if err := w.saveChunk(ctx, chunk); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		saved++
	}
	if saved > 0 {
		w.logger.Debug("💾 Сохранено чанков: %d", saved)
	}
	return firstErr
}

// State возвращает состояние чанка
func (w *World) State(cx, cz int) ChunkState {
	key := vec.Vec2{X: cx, Z: cz}
	if w.store.Has(key) {
		return ChunkReady
	}
	if w.store.IsPending(key) {
		return ChunkGenerating
	}
	return ChunkUnloaded
}

// Mesh возвращает текущий меш чанка (nil, если не собран или пуст)
func (w *World) Mesh(cx, cz int) *mesh.Mesh {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.meshes[vec.Vec2{X: cx, Z: cz}]
}

// KnownKeys возвращает все ключи, которые мир держит: в кеше, собранные или желаемые
func (w *World) KnownKeys() []vec.Vec2 {
	seen := make(map[vec.Vec2]struct{})
	keys := w.store.Keys()
	for _, k := range keys {
		seen[k] = struct{}{}
	}

	w.mu.Lock()
	for k := range w.meshes {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for k := range w.wanted {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	w.mu.Unlock()

	return keys
}

// SurfaceY возвращает Y над верхним блоком столбца: по кешу, иначе по генератору
func (w *World) SurfaceY(x, z int) int {
	pos := vec.Vec3{X: x, Z: z}
	if chunk, ok := w.store.Get(pos.ToChunkCoords()); ok {
		local := pos.LocalInChunk()
		if top := chunk.TopSolidY(local.X, local.Z); top >= 0 {
			return top + 1
		}
		return 0
	}
	return w.generator.HeightAt(x, z) + 1
}

// TopBlock возвращает верхний непустой блок столбца и его высоту.
// Для незагруженного столбца ok == false.
func (w *World) TopBlock(x, z int) (id block.BlockID, y int, ok bool) {
	pos := vec.Vec3{X: x, Z: z}
	chunk, cached := w.store.Get(pos.ToChunkCoords())
	if !cached {
		return block.AirBlockID, -1, false
	}
	local := pos.LocalInChunk()
	y = chunk.TopSolidY(local.X, local.Z)
	if y < 0 {
		return block.AirBlockID, -1, true
	}
	return chunk.GetBlock(vec.Vec3{X: local.X, Y: y, Z: local.Z}), y, true
}

// Height возвращает высоту мира в блоках
func (w *World) Height() int {
	return w.cfg.Height
}

// Stats возвращает сводку состояния мира
func (w *World) Stats() Stats {
	cached, pending := w.store.Len()

	w.mu.Lock()
	defer w.mu.Unlock()

	s := Stats{Cached: cached, Pending: pending}
	for _, m := range w.meshes {
		s.Meshed++
		s.Triangles += m.TriangleCount()
	}
	return s
}

// ChunkInfo возвращает сведения о чанке
func (w *World) ChunkInfo(cx, cz int) ChunkInfo {
	key := vec.Vec2{X: cx, Z: cz}
	info := ChunkInfo{CX: cx, CZ: cz, State: w.State(cx, cz).String()}

	if chunk, ok := w.store.Get(key); ok {
		info.Edits = len(chunk.Edits())
	}

	w.mu.Lock()
	_, info.Wanted = w.wanted[key]
	_, info.Pinned = w.pinned[key]
	info.Triangles = w.meshes[key].TriangleCount()
	w.mu.Unlock()

	return info
}

// publish ставит событие в очередь. Вызывается под w.mu.
func (w *World) publish(eventType string, priority int, payload interface{}) {
	if w.bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope(w.cfg.Source, eventType, priority, payload)
	if err != nil {
		w.logger.Warn("Не удалось создать событие %s: %v", eventType, err)
		return
	}
	w.outbox = append(w.outbox, ev)
}

// unlockAndPublish отпускает w.mu и отправляет накопленные события.
// Медленный подписчик задерживает только вызвавшего и не дольше publishTimeout на событие.
func (w *World) unlockAndPublish() {
	events := w.outbox
	w.outbox = nil
	w.mu.Unlock()

	for _, ev := range events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := w.bus.Publish(ctx, ev); err != nil {
			w.logger.Warn("Не удалось опубликовать событие %s: %v", ev.EventType, err)
		}
		cancel()
	}
}

// Pin закрепляет чанк: он загружается и не выгружается стримером до Unpin
func (w *World) Pin(cx, cz int) {
	w.mu.Lock()
	w.pinned[vec.Vec2{X: cx, Z: cz}] = struct{}{}
	w.mu.Unlock()
	w.EnsureChunk(cx, cz)
}

// Unpin снимает закрепление; чанк вне окна выгрузится на следующем кадре
func (w *World) Unpin(cx, cz int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pinned, vec.Vec2{X: cx, Z: cz})
}

// Pinned сообщает, закреплён ли чанк
func (w *World) Pinned(key vec.Vec2) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.pinned[key]
	return ok
}
