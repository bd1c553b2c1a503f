// Package app собирает компоненты строителя из конфигурации:
// хранилище, шину событий, метрики, мир и игровой цикл.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/annel0/happy-builder/internal/config"
	"github.com/annel0/happy-builder/internal/engine"
	"github.com/annel0/happy-builder/internal/eventbus"
	"github.com/annel0/happy-builder/internal/logging"
	"github.com/annel0/happy-builder/internal/metrics"
	"github.com/annel0/happy-builder/internal/physics"
	"github.com/annel0/happy-builder/internal/render"
	"github.com/annel0/happy-builder/internal/storage"
	"github.com/annel0/happy-builder/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App держит собранные компоненты и порядок их остановки
type App struct {
	Config   *config.Config
	Registry *prometheus.Registry
	Metrics  *metrics.Pipeline
	Storage  storage.ChunkStorage
	Bus      eventbus.EventBus
	Scene    *render.MemoryScene
	World    *world.World
	Engine   *engine.Engine

	metricsSrv *http.Server
	busLog     eventbus.Subscription
}

// New открывает хранилище и шину, создаёт мир и игровой цикл.
// renderer и input могут быть nil (безголовый режим).
func New(ctx context.Context, cfg *config.Config, renderer render.Renderer, input render.InputSource) (*App, error) {
	store, err := storage.Open(ctx, storage.Options{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		Redis: &storage.RedisConfig{
			Addr:      cfg.Storage.Redis.Addr,
			Password:  cfg.Storage.Redis.Password,
			DB:        cfg.Storage.Redis.DB,
			KeyPrefix: cfg.Storage.Redis.KeyPrefix,
			TTL:       time.Duration(cfg.Storage.Redis.TTLSeconds) * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("хранилище %s: %w", cfg.Storage.Backend, err)
	}
	logging.Info("💾 Хранилище: %s (%s)", cfg.Storage.Backend, cfg.Storage.Path)

	bus, backend, err := openBus(cfg.EventBus)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		eventbus.NewBusCollector(bus, backend),
	)

	a := &App{
		Config:   cfg,
		Registry: reg,
		Metrics:  metrics.NewPipeline(reg),
		Storage:  store,
		Bus:      bus,
		Scene:    render.NewMemoryScene(),
	}

	a.busLog, err = eventbus.StartLoggingListener(ctx, bus)
	if err != nil {
		logging.Warn("Не удалось подписать логгер на шину: %v", err)
	}

	a.World = world.NewWorld(world.Config{
		Seed:      cfg.World.Seed,
		Height:    cfg.World.Height,
		SeaLevel:  cfg.World.SeaLevel,
		Workers:   cfg.World.Workers,
		QueueSize: cfg.World.QueueSize,
		Mesher:    cfg.World.Mesher,
		Source:    "builder:" + cfg.Player.ID,
	}, world.Deps{
		Scene:   a.Scene,
		Storage: store,
		Bus:     bus,
		Metrics: a.Metrics,
	})

	// Профиль загружает Engine.Run
	a.Engine = engine.New(a.World, renderer, input, store, a.Metrics, EngineOptions(cfg))
	return a, nil
}

// EngineOptions переводит конфигурацию в настройки игрового цикла
func EngineOptions(cfg *config.Config) engine.Options {
	opts := engine.DefaultOptions()
	opts.FPS = cfg.World.FPS
	opts.RenderDistance = cfg.World.RenderDistance
	opts.PlayerID = cfg.Player.ID
	opts.AutosaveEvery = time.Duration(cfg.World.AutosaveSeconds) * time.Second

	params := physics.DefaultParams()
	if cfg.Player.WalkSpeed > 0 {
		params.WalkSpeed = cfg.Player.WalkSpeed
	}
	if cfg.Player.SprintSpeed > 0 {
		params.SprintSpeed = cfg.Player.SprintSpeed
	}
	if cfg.Player.MaxStamina > 0 {
		params.MaxStamina = cfg.Player.MaxStamina
	}
	opts.Params = params
	return opts
}

// openBus возвращает шину и имя бэкенда для метки метрик
func openBus(cfg config.EventBusConfig) (eventbus.EventBus, string, error) {
	if cfg.URL == "" {
		return eventbus.NewMemoryBus(cfg.Buffer), "memory", nil
	}
	bus, err := eventbus.NewJetStreamBus(eventbus.JetStreamOptions{
		URL:       cfg.URL,
		Stream:    cfg.Stream,
		Retention: time.Duration(cfg.Retention) * time.Hour,
	})
	if err != nil {
		return nil, "", fmt.Errorf("шина событий %s: %w", cfg.URL, err)
	}
	logging.Info("📨 Шина событий: NATS JetStream %s (stream=%s)", cfg.URL, cfg.Stream)
	return bus, "jetstream", nil
}

// Start запускает воркеры генерации.
// Непустой metricsAddr поднимает отдельный /metrics со всем регистром.
func (a *App) Start(ctx context.Context, metricsAddr string) {
	a.World.Start(ctx)
	if metricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	a.metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", metricsAddr)
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
}

// Close останавливает компоненты в обратном порядке.
// Сохранение мира делает Engine.Run при выходе.
func (a *App) Close() error {
	a.World.Stop()
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metricsSrv.Shutdown(ctx)
		cancel()
	}
	if a.busLog != nil {
		a.busLog.Unsubscribe()
	}

	var errs []error
	if err := a.Bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("шина событий: %w", err))
	}
	if err := a.Storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("хранилище: %w", err))
	}
	if leaked := a.Scene.Leaked(); len(leaked) > 0 {
		logging.Warn("На сцене %d освобождённых мешей: %v", len(leaked), leaked)
	}
	return errors.Join(errs...)
}
