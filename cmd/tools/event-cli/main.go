package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/annel0/happy-builder/internal/auth"
	"github.com/annel0/happy-builder/internal/eventbus"
	"github.com/gorilla/websocket"
)

const (
	defaultServerAddr = "localhost:8088"
	timeFormat        = "15:04:05"
)

func main() {
	var (
		serverAddr = flag.String("server", defaultServerAddr, "REST API server address")
		command    = flag.String("cmd", "tail", "Command: tail, stats, token, secret")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		limit      = flag.Int("limit", 100, "Maximum number of events")
		follow     = flag.Bool("follow", false, "Follow new events (like tail -f)")
		builder    = flag.String("builder", "local", "Builder ID for token")
		readOnly   = flag.Bool("readonly", false, "Issue token without edit rights")
		ttl        = flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	)
	flag.Parse()

	// Выполняем команду
	switch *command {
	case "tail":
		if err := tailEvents(*serverAddr, parseStringList(*eventTypes), *limit, *follow); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "stats":
		if err := showStats(*serverAddr); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}

	case "token":
		if err := issueToken(os.Getenv("BUILDER_JWT_SECRET"), *builder, !*readOnly, *ttl); err != nil {
			log.Fatalf("❌ Token failed: %v", err)
		}

	case "secret":
		secret, err := auth.GenerateSecureSecret()
		if err != nil {
			log.Fatalf("❌ Secret failed: %v", err)
		}
		fmt.Println(secret)

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats, token, secret")
		os.Exit(1)
	}
}

// tailEvents выводит события мира из websocket /ws
func tailEvents(addr string, types []string, limit int, follow bool) error {
	fmt.Printf("🎬 Tailing events (limit: %d, follow: %v)\n", limit, follow)

	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	if len(types) > 0 {
		u.RawQuery = url.Values{"types": {strings.Join(types, ",")}}.Encode()
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %v", err)
	}
	defer conn.Close()

	eventCount := 0
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return fmt.Errorf("stream error: %v", err)
		}

		var ev eventbus.Envelope
		if err := json.Unmarshal(msg, &ev); err != nil {
			fmt.Printf("⚠️  bad event: %v\n", err)
			continue
		}
		printEvent(&ev)
		eventCount++

		// Если не follow режим и достигли лимита, выходим
		if !follow && eventCount >= limit {
			break
		}
	}

	fmt.Printf("\n📊 Total events: %d\n", eventCount)
	return nil
}

// showStats выводит сводку /api/stats
func showStats(addr string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/api/stats")
	if err != nil {
		return fmt.Errorf("failed to get stats: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("bad response: %v", err)
	}
	if !body.Success {
		return fmt.Errorf("server: %s", body.Message)
	}

	var pretty map[string]interface{}
	if err := json.Unmarshal(body.Data, &pretty); err != nil {
		return err
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println("📊 World statistics")
	fmt.Println(string(out))
	return nil
}

// issueToken печатает токен для правок мира через REST API
func issueToken(secret, builder string, canEdit bool, ttl time.Duration) error {
	if secret == "" {
		return fmt.Errorf("BUILDER_JWT_SECRET is not set")
	}
	signer, err := auth.NewTokenSigner(secret, ttl)
	if err != nil {
		return err
	}
	token, err := signer.Issue(builder, canEdit)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// printEvent выводит событие в читаемом формате
func printEvent(ev *eventbus.Envelope) {
	fmt.Printf("[%s] %s [%s] %s\n",
		ev.Timestamp.Local().Format(timeFormat),
		ev.Source,
		ev.EventType,
		ev.ID)

	// Добавляем детали в зависимости от типа события
	switch ev.EventType {
	case eventbus.TypeBlockChanged:
		var p eventbus.BlockChanged
		if ev.Decode(&p) == nil {
			fmt.Printf("  Block: (%d,%d,%d) %d -> %d\n", p.X, p.Y, p.Z, p.Old, p.New)
		}
	case eventbus.TypeChunkReady, eventbus.TypeChunkUnloaded:
		var p eventbus.ChunkChanged
		if ev.Decode(&p) == nil {
			fmt.Printf("  Chunk: (%d,%d) triangles: %d\n", p.CX, p.CZ, p.Triangles)
		}
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
