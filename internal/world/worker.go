package world

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/annel0/happy-builder/internal/logging"
	"github.com/annel0/happy-builder/internal/metrics"
	"github.com/annel0/happy-builder/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Dispatcher отправляет запрос генерации; ответ приходит позже и асинхронно
type Dispatcher interface {
	Dispatch(req GenerateRequest)
}

// WorkerPool - фоновые генераторы чанков.
// Воркеры читают запросы из канала и складывают ответы в почтовый ящик,
// который забирает игровой цикл через Drain. Воркеры никогда не блокируются на выдаче.
type WorkerPool struct {
	generator *WorldGenerator
	storage   storage.ChunkStorage
	metrics   *metrics.Pipeline
	tracer    trace.Tracer
	logger    *logging.Logger
	workers   int

	requests chan GenerateRequest
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	results []GeneratedResponse
	notify  chan struct{}
}

// NewWorkerPool создаёт пул; storage может быть nil (правки не загружаются)
func NewWorkerPool(gen *WorldGenerator, workers, queueSize int, store storage.ChunkStorage, m *metrics.Pipeline) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &WorkerPool{
		generator: gen,
		storage:   store,
		metrics:   m,
		tracer:    otel.Tracer("happy-builder/world"),
		logger:    logging.GetWorldLogger(),
		workers:   workers,
		requests:  make(chan GenerateRequest, queueSize),
		done:      make(chan struct{}),
		notify:    make(chan struct{}, 1),
	}
}

// Start запускает воркеры
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info("🧱 Запущено %d воркеров генерации (seed=%d)", p.workers, p.generator.Seed)
}

// Stop останавливает воркеры; запросы в очереди отбрасываются
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

// Dispatch ставит запрос в очередь. После Stop запрос молча игнорируется.
func (p *WorkerPool) Dispatch(req GenerateRequest) {
	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.requests <- req:
	case <-p.done:
	}
}

// Ready сигнализирует, что в почтовом ящике появились ответы
func (p *WorkerPool) Ready() <-chan struct{} {
	return p.notify
}

// Drain забирает все накопленные ответы, не блокируясь
func (p *WorkerPool) Drain() []GeneratedResponse {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.results) == 0 {
		return nil
	}
	out := p.results
	p.results = nil
	return out
}

func (p *WorkerPool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case req := <-p.requests:
			if resp, ok := p.handle(ctx, req); ok {
				p.deliver(resp)
			}
		}
	}
}

func (p *WorkerPool) deliver(resp GeneratedResponse) {
	p.mu.Lock()
	p.results = append(p.results, resp)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// handle генерирует чанк. Паника воркера логируется, чанк так и не станет готовым.
func (p *WorkerPool) handle(ctx context.Context, req GenerateRequest) (resp GeneratedResponse, ok bool) {
	key := req.Key()
	ctx, span := p.tracer.Start(ctx, "world.generate",
		trace.WithAttributes(attribute.Int("chunk.x", key.X), attribute.Int("chunk.z", key.Z)))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "generation panic")
			p.metrics.GenerationFailed()
			p.logger.Error("Генерация чанка (%d,%d) упала: %v\n%s", key.X, key.Z, r, debug.Stack())
			ok = false
		}
	}()

	if req.Type != MessageGenerate {
		p.logger.Warn("Неизвестный тип сообщения генератора: %q", req.Type)
		return resp, false
	}

	data := p.generator.Generate(key)

	var edits []storage.BlockEdit
	editsMissing := false
	if p.storage != nil {
		loadCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		loaded, err := p.storage.LoadChunk(loadCtx, key)
		cancel()
		if err != nil {
			// Чанк показывается без правок; мир перечитает их перед первой записью
			span.RecordError(err)
			editsMissing = true
			p.logger.Warn("Не удалось загрузить правки чанка (%d,%d): %v", key.X, key.Z, err)
		}
		edits = loaded
	}

	p.metrics.ObserveGeneration(time.Since(start))
	span.SetAttributes(attribute.Int("chunk.edits", len(edits)))

	return GeneratedResponse{
		Type: MessageGenerated,
		Payload: GeneratedPayload{
			CX:           key.X,
			CZ:           key.Z,
			ChunkData:    data,
			Edits:        edits,
			EditsMissing: editsMissing,
		},
	}, true
}
