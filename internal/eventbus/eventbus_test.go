package eventbus

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	ev, err := NewEnvelope("world", TypeBlockChanged, 5, BlockChanged{X: 1, Y: 2, Z: -3, Old: 0, New: 8})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.ID, "ID должен быть заполнен")
	assert.Equal(t, TypeBlockChanged, ev.EventType)
	assert.Equal(t, 1, ev.Version)

	var p BlockChanged
	require.NoError(t, ev.Decode(&p))
	assert.Equal(t, BlockChanged{X: 1, Y: 2, Z: -3, Old: 0, New: 8}, p)

	other, err := NewEnvelope("world", TypeBlockChanged, 5, p)
	require.NoError(t, err)
	assert.NotEqual(t, ev.ID, other.ID, "ID событий должны быть уникальны")
}

func TestMemoryBus_FilterAndDelivery(t *testing.T) {
	bus := NewMemoryBus(16)
	ctx := context.Background()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{}, 4)

	_, err := bus.Subscribe(ctx, Filter{Types: []string{TypeChunkReady}}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev.EventType)
		mu.Unlock()
		done <- struct{}{}
	})
	require.NoError(t, err)

	ready, _ := NewEnvelope("world", TypeChunkReady, 1, ChunkChanged{CX: 1, CZ: 2})
	changed, _ := NewEnvelope("world", TypeBlockChanged, 1, BlockChanged{})
	require.NoError(t, bus.Publish(ctx, changed))
	require.NoError(t, bus.Publish(ctx, ready))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("событие не доставлено")
	}

	require.NoError(t, bus.Close())

	mu.Lock()
	assert.Equal(t, []string{TypeChunkReady}, got, "подписчик получает только отфильтрованный тип")
	mu.Unlock()

	stats := bus.Metrics()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(1), stats.Consumed)

	assert.Error(t, bus.Publish(ctx, ready), "публикация в закрытую шину должна давать ошибку")
	assert.NoError(t, bus.Close(), "повторное закрытие безопасно")
}

func TestMemoryBus_AccountsEveryPublish(t *testing.T) {
	bus := NewMemoryBus(1)
	ctx := context.Background()

	block := make(chan struct{})
	_, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		<-block
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		ev, _ := NewEnvelope("world", TypeBlockChanged, 0, BlockChanged{X: i})
		require.NoError(t, bus.Publish(ctx, ev))
	}
	close(block)

	stats := bus.Metrics()
	// Первое событие у обработчика, второе в очереди, остальные с низким приоритетом отброшены
	assert.Equal(t, uint64(10), stats.Published)
	assert.GreaterOrEqual(t, stats.Dropped, uint64(8))
	assert.LessOrEqual(t, stats.Dropped, uint64(9))
	require.NoError(t, bus.Close())
}

func TestMemoryBus_OrderedPerSubscriber(t *testing.T) {
	bus := NewMemoryBus(64)
	ctx := context.Background()

	got := make(chan int, 32)
	_, err := bus.Subscribe(ctx, Filter{Types: []string{TypeBlockChanged}}, func(ctx context.Context, ev *Envelope) {
		var p BlockChanged
		if ev.Decode(&p) == nil {
			got <- p.X
		}
	})
	require.NoError(t, err)

	for i := 0; i < 32; i++ {
		ev, _ := NewEnvelope("world", TypeBlockChanged, 5, BlockChanged{X: i})
		require.NoError(t, bus.Publish(ctx, ev))
	}
	require.NoError(t, bus.Close())
	close(got)

	want := 0
	for x := range got {
		assert.Equal(t, want, x, "события одного подписчика идут по порядку")
		want++
	}
	assert.Equal(t, 32, want)
}

func TestMemoryBus_HighPriorityWaitsAndUnsubscribeReleases(t *testing.T) {
	bus := NewMemoryBus(1)
	ctx := context.Background()

	stuck := make(chan struct{})
	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		<-stuck
	})
	require.NoError(t, err)

	publishDone := make(chan error, 1)
	go func() {
		for i := 0; i < 3; i++ {
			ev, _ := NewEnvelope("world", TypeBlockChanged, 9, BlockChanged{X: i})
			if err := bus.Publish(ctx, ev); err != nil {
				publishDone <- err
				return
			}
		}
		publishDone <- nil
	}()

	select {
	case <-publishDone:
		t.Fatal("высокий приоритет не должен отбрасываться при полной очереди")
	case <-time.After(100 * time.Millisecond):
	}

	sub.Unsubscribe()
	select {
	case err := <-publishDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Unsubscribe должен освободить ждущую публикацию")
	}
	assert.Zero(t, bus.Metrics().Dropped)

	close(stuck)
	require.NoError(t, bus.Close())
}

func TestMemoryBus_ContextCancelUnsubscribes(t *testing.T) {
	bus := NewMemoryBus(4)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := bus.Subscribe(ctx, Filter{}, func(context.Context, *Envelope) {})
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subs) == 0
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.Close())
}

func TestBusCollector(t *testing.T) {
	bus := NewMemoryBus(8)
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewBusCollector(bus, "memory"))

	ev, _ := NewEnvelope("world", TypeChunkUnloaded, 1, ChunkChanged{})
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Close())

	expected := `
# HELP eventbus_messages_published_total Опубликовано событий.
# TYPE eventbus_messages_published_total counter
eventbus_messages_published_total{backend="memory"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "eventbus_messages_published_total"))

	// Значения берутся в момент сбора, повторный scrape не удваивает счётчик
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "eventbus_messages_published_total"))
	assert.Equal(t, 4, testutil.CollectAndCount(NewBusCollector(bus, "memory")))
}
