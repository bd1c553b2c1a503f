package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Типы событий мира
const (
	TypeBlockChanged  = "block.changed"  // Изменение блока игроком или через API
	TypeChunkReady    = "chunk.ready"    // Чанк сгенерирован и присоединён к сцене
	TypeChunkUnloaded = "chunk.unloaded" // Чанк выгружен за окном стриминга
)

// Envelope - событие шины: служебные поля и полезная нагрузка в JSON
type Envelope struct {
	ID            string            `json:"id"`                       // Глобально уникальный идентификатор (UUID).
	Timestamp     time.Time         `json:"timestamp"`                // Время создания события (UTC).
	Source        string            `json:"source"`                   // Имя сервиса-источника.
	EventType     string            `json:"event_type"`               // Тип события (block.changed, chunk.ready…).
	Version       int               `json:"version"`                  // Схема полезной нагрузки.
	CorrelationID string            `json:"correlation_id,omitempty"` // Для связывания цепочек.
	Priority      int               `json:"priority"`                 // 0=Low … 9=Critical (для backpressure).
	Payload       []byte            `json:"payload"`                  // Полезная нагрузка в JSON.
	Metadata      map[string]string `json:"metadata,omitempty"`       // Произвольные метаданные.
}

// BlockChanged - полезная нагрузка события block.changed
type BlockChanged struct {
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Z   int    `json:"z"`
	Old uint16 `json:"old"`
	New uint16 `json:"new"`
}

// ChunkChanged - полезная нагрузка событий chunk.ready и chunk.unloaded
type ChunkChanged struct {
	CX        int `json:"cx"`
	CZ        int `json:"cz"`
	Triangles int `json:"triangles,omitempty"`
}

// NewEnvelope упаковывает payload в JSON и заполняет служебные поля
func NewEnvelope(source, eventType string, priority int, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  priority,
		Payload:   data,
	}, nil
}

// Decode распаковывает полезную нагрузку события
func (ev *Envelope) Decode(v interface{}) error {
	return json.Unmarshal(ev.Payload, v)
}

// Filter отбирает события по типу и источнику; пустой список пропускает всё
type Filter struct {
	Types   []string
	Sources []string
}

// Match сообщает, проходит ли событие фильтр
func (f Filter) Match(ev *Envelope) bool {
	return allowed(f.Types, ev.EventType) && allowed(f.Sources, ev.Source)
}

func allowed(list []string, v string) bool {
	return len(list) == 0 || slices.Contains(list, v)
}

// Subscription снимает подписку; повторный вызов ничего не делает
type Subscription interface {
	Unsubscribe()
}

// Handler обрабатывает одно событие. Для одного подписчика вызовы идут по очереди.
type Handler func(ctx context.Context, ev *Envelope)

// Stats - счётчики шины с момента создания
type Stats struct {
	Published uint64 `json:"published"`
	Consumed  uint64 `json:"consumed"`
	Dropped   uint64 `json:"dropped"`
	InFlight  int    `json:"in_flight"`
}

// EventBus - шина событий мира. Реализации: MemoryBus (один процесс)
// и JetStreamBus (NATS, несколько процессов).
type EventBus interface {
	// Publish отправляет событие всем подходящим подписчикам
	Publish(ctx context.Context, ev *Envelope) error
	// Subscribe регистрирует обработчик; отмена ctx снимает подписку
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}
