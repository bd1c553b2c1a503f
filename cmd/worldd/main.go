package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/happy-builder/internal/api"
	"github.com/annel0/happy-builder/internal/app"
	"github.com/annel0/happy-builder/internal/auth"
	"github.com/annel0/happy-builder/internal/config"
	"github.com/annel0/happy-builder/internal/logging"
	"github.com/annel0/happy-builder/internal/observability"
	_ "github.com/annel0/happy-builder/internal/world/block/implementations"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (или BUILDER_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем систему логирования
	logOpts := logging.Options{
		Dir:          cfg.Logging.Dir,
		ConsoleLevel: logging.ParseLevel(cfg.Logging.ConsoleLevel),
		FileLevel:    logging.ParseLevel(cfg.Logging.FileLevel),
	}
	if err := logging.InitLogger(logOpts); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseLogger()
	if err := logging.GetLoggerManager().Configure(logOpts); err != nil {
		logging.Warn("Логи компонентов только в консоли: %v", err)
	}
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🏗️  Запуск мира Happy Builder (seed=%d, мешер=%s)...", cfg.World.Seed, cfg.World.Mesher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, observability.Options{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    true,
	})
	if err != nil {
		logging.Error("❌ Ошибка инициализации трассировки: %v", err)
		log.Fatalf("❌ Ошибка инициализации трассировки: %v", err)
	}

	// === ИНИЦИАЛИЗАЦИЯ КОМПОНЕНТОВ ===
	a, err := app.New(ctx, cfg, nil, nil)
	if err != nil {
		logging.Error("❌ Ошибка сборки мира: %v", err)
		log.Fatalf("❌ Ошибка сборки мира: %v", err)
	}

	metricsAddr := fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())
	a.Start(ctx, metricsAddr)

	var signer *auth.TokenSigner
	if secret := cfg.Server.GetJWTSecret(); secret != "" {
		signer, err = auth.NewTokenSigner(secret, 0)
		if err != nil {
			log.Fatalf("❌ Ошибка JWT секрета: %v", err)
		}
		logging.Info("🔐 Правки через REST API требуют JWT токен")
	} else {
		logging.Warn("⚠️  JWT секрет не задан: правки через REST API открыты")
	}

	restAddr := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	server := api.NewRestServer(api.Config{
		Addr:     restAddr,
		World:    a.World,
		Player:   a.Engine,
		Bus:      a.Bus,
		Signer:   signer,
		Registry: a.Registry,
	})
	go func() {
		if err := server.Start(); err != nil {
			logging.Error("❌ Ошибка REST API: %v", err)
			cancel()
		}
	}()

	// Игровой цикл без экрана: стриминг вокруг точки появления
	engineDone := make(chan error, 1)
	go func() { engineDone <- a.Engine.Run(ctx) }()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost%s", restAddr)
	logging.Info("   📈 Метрики: http://localhost%s/metrics", metricsAddr)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restAddr)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
	case <-ctx.Done():
	}

	// === GRACEFUL SHUTDOWN ===
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	logging.Debug("Остановка REST API...")
	if err := server.Stop(stopCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}

	cancel()
	if err := <-engineDone; err != nil {
		logging.Error("❌ Ошибка сохранения мира: %v", err)
	}
	if err := a.Close(); err != nil {
		logging.Error("❌ Ошибка остановки: %v", err)
	}
	if err := shutdownTelemetry(stopCtx); err != nil {
		logging.Error("❌ Ошибка остановки трассировки: %v", err)
	}

	logging.Info("👋 Мир успешно остановлен")
}
