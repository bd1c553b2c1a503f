package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrBusClosed возвращается при работе с закрытой шиной
var ErrBusClosed = errors.New("шина событий закрыта")

// highPriority - события с приоритетом не ниже этого не отбрасываются при переполнении
const highPriority = 5

// MemoryBus - шина в памяти процесса. У каждого подписчика своя очередь
// и своя горутина, поэтому события одного подписчика приходят по порядку,
// а медленный подписчик не задерживает остальных.
type MemoryBus struct {
	mu       sync.RWMutex
	subs     map[uint64]*memSub
	nextID   uint64
	capacity int
	closed   bool
	workers  sync.WaitGroup

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

type memSub struct {
	bus    *MemoryBus
	id     uint64
	filter Filter
	queue  chan *Envelope
	quit   chan struct{}
	once   sync.Once
}

// NewMemoryBus создаёт шину; capacity - длина очереди каждого подписчика.
func NewMemoryBus(capacity int) *MemoryBus {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryBus{
		subs:     make(map[uint64]*memSub),
		capacity: capacity,
	}
}

// Publish раскладывает событие по очередям подходящих подписчиков.
// При полной очереди событие с низким приоритетом отбрасывается для этого подписчика,
// а высокоприоритетное ждёт места или отмены ctx.
func (mb *MemoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return ErrBusClosed
	}

	mb.published.Add(1)
	for _, sub := range mb.subs {
		if !sub.filter.Match(ev) {
			continue
		}
		select {
		case sub.queue <- ev:
			continue
		case <-sub.quit:
			continue
		default:
		}

		if ev.Priority < highPriority {
			mb.dropped.Add(1)
			continue
		}
		select {
		case sub.queue <- ev:
		case <-sub.quit:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe регистрирует обработчик. Отмена ctx снимает подписку.
func (mb *MemoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return nil, ErrBusClosed
	}

	sub := &memSub{
		bus:    mb,
		id:     mb.nextID,
		filter: f,
		queue:  make(chan *Envelope, mb.capacity),
		quit:   make(chan struct{}),
	}
	mb.nextID++
	mb.subs[sub.id] = sub

	mb.workers.Add(1)
	go mb.deliver(ctx, sub, h)

	if done := ctx.Done(); done != nil {
		go func() {
			select {
			case <-done:
				sub.Unsubscribe()
			case <-sub.quit:
			}
		}()
	}
	return sub, nil
}

// deliver вызывает обработчик для событий очереди по одному.
// После Close очередь дочитывается до конца, после Unsubscribe - нет.
func (mb *MemoryBus) deliver(ctx context.Context, sub *memSub, h Handler) {
	defer mb.workers.Done()
	for {
		select {
		case <-sub.quit:
			return
		case ev, ok := <-sub.queue:
			if !ok {
				return
			}
			h(ctx, ev)
			mb.consumed.Add(1)
		}
	}
}

// Metrics возвращает счётчики шины; InFlight - события в очередях подписчиков
func (mb *MemoryBus) Metrics() Stats {
	mb.mu.RLock()
	inflight := 0
	for _, sub := range mb.subs {
		inflight += len(sub.queue)
	}
	mb.mu.RUnlock()

	return Stats{
		Published: mb.published.Load(),
		Consumed:  mb.consumed.Load(),
		Dropped:   mb.dropped.Load(),
		InFlight:  inflight,
	}
}

// Close дожидается доставки уже разложенных событий и останавливает рассылку
func (mb *MemoryBus) Close() error {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return nil
	}
	mb.closed = true
	for _, sub := range mb.subs {
		close(sub.queue)
	}
	mb.mu.Unlock()

	mb.workers.Wait()

	mb.mu.RLock()
	for _, sub := range mb.subs {
		sub.stop()
	}
	mb.mu.RUnlock()
	return nil
}

// Unsubscribe снимает подписку; недоставленные события отбрасываются.
// quit закрывается до захвата mu, чтобы разбудить Publish, ждущий места в очереди.
func (s *memSub) Unsubscribe() {
	s.stop()
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
}

func (s *memSub) stop() {
	s.once.Do(func() { close(s.quit) })
}
