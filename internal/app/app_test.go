package app

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/happy-builder/internal/config"
	"github.com/annel0/happy-builder/internal/render"
	"github.com/annel0/happy-builder/internal/world"
	_ "github.com/annel0/happy-builder/internal/world/block/implementations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quitAfter struct{ n int }

func (q *quitAfter) Poll(time.Time) render.Controls {
	q.n--
	return render.Controls{Quit: q.n <= 0}
}

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = "memory"
	cfg.Storage.Path = t.TempDir()
	cfg.World.RenderDistance = 1
	cfg.World.Workers = 1
	return cfg
}

func TestApp_RunsHeadless(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := memoryConfig(t)
	a, err := New(ctx, cfg, nil, nil)
	require.NoError(t, err)
	a.Start(ctx, "")

	// Безголовый цикл крутится, пока не загрузится чанк игрока
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- a.Engine.Run(runCtx) }()

	require.Eventually(t, func() bool {
		return a.Engine.Snapshot().Grounded
	}, 8*time.Second, 10*time.Millisecond)
	stop()
	require.NoError(t, <-done)

	assert.Equal(t, world.ChunkReady, a.World.State(0, 0))
	assert.Positive(t, a.Scene.Live())
	assert.Empty(t, a.Scene.Leaked())
	assert.Positive(t, a.Bus.Metrics().Published, "chunk.ready публикуется в шину")
	require.NoError(t, a.Close())
}

func TestApp_QuitSavesProfile(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)

	a, err := New(ctx, cfg, render.NopRenderer{}, &quitAfter{n: 3})
	require.NoError(t, err)
	a.Start(ctx, "")
	require.NoError(t, a.Engine.Run(ctx))

	prof, err := a.Storage.LoadProfile(ctx, cfg.Player.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.Player.ID, prof.PlayerID)
	require.NoError(t, a.Close())
}

func TestEngineOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Player.WalkSpeed = 6
	cfg.World.AutosaveSeconds = 5

	opts := EngineOptions(cfg)
	assert.Equal(t, 6.0, opts.Params.WalkSpeed)
	assert.Equal(t, 5*time.Second, opts.AutosaveEvery)
	assert.Equal(t, cfg.World.RenderDistance, opts.RenderDistance)
	assert.Equal(t, "local", opts.PlayerID)
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Storage.Backend = "floppy"
	_, err := New(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}
