package eventbus

import (
	"context"

	"github.com/annel0/happy-builder/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог.
// Функция неблокирующая.
func StartLoggingListener(ctx context.Context, bus EventBus) (Subscription, error) {
	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		switch ev.EventType {
		case TypeBlockChanged:
			var p BlockChanged
			if err := ev.Decode(&p); err == nil {
				logging.Debug("[EventBus] %s block (%d,%d,%d) %d→%d src=%s", ev.ID, p.X, p.Y, p.Z, p.Old, p.New, ev.Source)
				return
			}
		case TypeChunkReady, TypeChunkUnloaded:
			var p ChunkChanged
			if err := ev.Decode(&p); err == nil {
				logging.Trace("[EventBus] %s %s chunk(%d,%d) tris=%d", ev.ID, ev.EventType, p.CX, p.CZ, p.Triangles)
				return
			}
		}
		logging.Debug("[EventBus] %s %s src=%s prio=%d size=%dB", ev.ID, ev.EventType, ev.Source, ev.Priority, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logging.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
