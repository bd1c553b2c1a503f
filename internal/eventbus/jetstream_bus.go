package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/happy-builder/internal/logging"
	nats "github.com/nats-io/nats.go"
)

// Subject события: <prefix>.<event_type>, например world.block.changed
const defaultSubjectPrefix = "world"

// JetStreamOptions настраивает шину поверх NATS JetStream
type JetStreamOptions struct {
	URL       string        // nats://127.0.0.1:4222
	Stream    string        // Имя стрима, по умолчанию WORLD
	Retention time.Duration // Сколько хранить события
	Prefix    string        // Префикс subject, по умолчанию world
}

// JetStreamBus публикует события мира в стрим JetStream, поэтому их можно
// читать с другой машины и переигрывать после перезапуска.
type JetStreamBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	opts   JetStreamOptions
	mu     sync.Mutex
	subs   map[*jetSub]struct{}
	closed atomic.Bool

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewJetStreamBus подключается к NATS и создаёт стрим, если его ещё нет
func NewJetStreamBus(opts JetStreamOptions) (*JetStreamBus, error) {
	if opts.Stream == "" {
		opts.Stream = "WORLD"
	}
	if opts.Prefix == "" {
		opts.Prefix = defaultSubjectPrefix
	}

	nc, err := nats.Connect(opts.URL,
		nats.Name("happy-builder"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.Warn("NATS отключён: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info("NATS переподключён к %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStream(js, opts); err != nil {
		nc.Close()
		return nil, err
	}

	return &JetStreamBus{
		nc:   nc,
		js:   js,
		opts: opts,
		subs: make(map[*jetSub]struct{}),
	}, nil
}

func ensureStream(js nats.JetStreamContext, opts JetStreamOptions) error {
	_, err := js.StreamInfo(opts.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %s: %w", opts.Stream, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:       opts.Stream,
		Subjects:   []string{opts.Prefix + ".>"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     opts.Retention,
		Storage:    nats.FileStorage,
		Duplicates: time.Minute,
	})
	if err != nil {
		return fmt.Errorf("add stream %s: %w", opts.Stream, err)
	}
	logging.Info("📨 Создан стрим JetStream %s (%s.>)", opts.Stream, opts.Prefix)
	return nil
}

func (jb *JetStreamBus) subject(eventType string) string {
	return jb.opts.Prefix + "." + eventType
}

// Publish отправляет событие; ID события служит ключом дедупликации JetStream
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	if jb.closed.Load() {
		return ErrBusClosed
	}

	data, err := json.Marshal(ev)
	if err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("marshal %s: %w", ev.EventType, err)
	}

	if _, err := jb.js.Publish(jb.subject(ev.EventType), data, nats.Context(ctx), nats.MsgId(ev.ID)); err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("jetstream publish %s: %w", ev.EventType, err)
	}
	jb.published.Add(1)
	return nil
}

// Subscribe создаёт эфемерного потребителя на каждый тип из фильтра
// (или один на все типы). Доставка начинается с новых событий.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	if jb.closed.Load() {
		return nil, ErrBusClosed
	}

	subjects := []string{jb.opts.Prefix + ".>"}
	if len(f.Types) > 0 {
		subjects = subjects[:0]
		for _, t := range f.Types {
			subjects = append(subjects, jb.subject(t))
		}
	}

	sub := &jetSub{bus: jb}
	for _, subj := range subjects {
		ns, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
			var ev Envelope
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				jb.dropped.Add(1)
				_ = msg.Term()
				return
			}
			if f.Match(&ev) {
				h(ctx, &ev)
				jb.consumed.Add(1)
			}
			_ = msg.Ack()
		}, nats.ManualAck(), nats.DeliverNew(), nats.AckWait(30*time.Second))
		if err != nil {
			sub.Unsubscribe()
			return nil, fmt.Errorf("jetstream subscribe %s: %w", subj, err)
		}
		sub.nats = append(sub.nats, ns)
	}

	jb.mu.Lock()
	jb.subs[sub] = struct{}{}
	jb.mu.Unlock()

	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			sub.Unsubscribe()
		}()
	}
	return sub, nil
}

type jetSub struct {
	bus  *JetStreamBus
	nats []*nats.Subscription
	once sync.Once
}

func (j *jetSub) Unsubscribe() {
	j.once.Do(func() {
		for _, s := range j.nats {
			_ = s.Unsubscribe()
		}
		j.bus.mu.Lock()
		delete(j.bus.subs, j)
		j.bus.mu.Unlock()
	})
}

// Metrics возвращает счётчики клиента; очередь хранит сам JetStream
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}

// Close снимает подписки и закрывает соединение, дождавшись отправки буферов
func (jb *JetStreamBus) Close() error {
	if !jb.closed.CompareAndSwap(false, true) {
		return nil
	}

	jb.mu.Lock()
	subs := make([]*jetSub, 0, len(jb.subs))
	for s := range jb.subs {
		subs = append(subs, s)
	}
	jb.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	return jb.nc.Drain()
}
