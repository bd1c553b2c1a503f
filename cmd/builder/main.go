package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/annel0/happy-builder/internal/app"
	"github.com/annel0/happy-builder/internal/config"
	"github.com/annel0/happy-builder/internal/logging"
	"github.com/annel0/happy-builder/internal/render"
	_ "github.com/annel0/happy-builder/internal/world/block/implementations"
	"github.com/gdamore/tcell/v2"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (или BUILDER_CONFIG)")
	seed := flag.Int64("seed", 0, "Сид мира (0 - из конфигурации)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *seed != 0 {
		cfg.World.Seed = *seed
	}

	// Экран занят картой, поэтому логи пишутся только в файл
	logOpts := logging.Options{
		Dir:          cfg.Logging.Dir,
		Console:      io.Discard,
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

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("терминал: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("терминал: %w", err)
	}
	defer screen.Fini()
	screen.HideCursor()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	input := render.NewTerminalInput(screen)
	a, err := app.New(ctx, cfg, nil, input)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Error("❌ Ошибка остановки: %v", err)
		}
	}()

	a.Engine.SetRenderer(render.NewTerminalRenderer(screen, a.World))
	a.Start(ctx, "")
	go input.Run(ctx)

	logging.Info("🏗️  Happy Builder запущен (seed=%d)", cfg.World.Seed)
	return a.Engine.Run(ctx)
}
