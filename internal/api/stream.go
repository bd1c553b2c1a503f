package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/annel0/happy-builder/internal/eventbus"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamBuffer    = 64
	streamWriteWait = 5 * time.Second
	streamPingEvery = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream транслирует события шины в websocket.
// ?types=block.changed,chunk.ready ограничивает типы.
// Медленный клиент теряет события, шина не блокируется.
func (rs *RestServer) handleStream(c *gin.Context) {
	if rs.cfg.Bus == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Success: false, Message: "Шина событий не настроена"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		rs.logger.Warn("WebSocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	var filter eventbus.Filter
	if types := c.Query("types"); types != "" {
		filter.Types = strings.Split(types, ",")
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	out := make(chan *eventbus.Envelope, streamBuffer)
	sub, err := rs.cfg.Bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case out <- ev:
		default:
		}
	})
	if err != nil {
		rs.logger.Warn("Подписка websocket: %v", err)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "bus closed"), time.Now().Add(time.Second))
		return
	}
	defer sub.Unsubscribe()

	rs.logger.Debug("WebSocket клиент %s подписан (%v)", c.ClientIP(), filter.Types)

	// Чтение нужно только для обработки close-фреймов
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingEvery)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
			return
		case ev := <-out:
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
