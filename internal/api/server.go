package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/happy-builder/internal/auth"
	"github.com/annel0/happy-builder/internal/engine"
	"github.com/annel0/happy-builder/internal/eventbus"
	"github.com/annel0/happy-builder/internal/logging"
	"github.com/annel0/happy-builder/internal/middleware"
	"github.com/annel0/happy-builder/internal/world"
	"github.com/annel0/happy-builder/internal/world/block"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// WorldView - часть мира, доступная через REST API
type WorldView interface {
	GetBlock(x, y, z int) block.BlockID
	SetBlock(x, y, z int, id block.BlockID) bool
	Pin(cx, cz int)
	Unpin(cx, cz int)
	ChunkInfo(cx, cz int) world.ChunkInfo
	Stats() world.Stats
	Generator() *world.WorldGenerator
}

// PlayerSource отдаёт снимок состояния игрока
type PlayerSource interface {
	Snapshot() engine.Snapshot
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr     string                // адрес для запуска сервера
	World    WorldView             // мир строителя
	Player   PlayerSource          // может быть nil в безголовом режиме
	Bus      eventbus.EventBus     // источник событий для /ws, может быть nil
	Signer   *auth.TokenSigner     // nil отключает проверку токена на правках
	Registry prometheus.Registerer // nil означает глобальный регистр
}

// RestServer представляет REST API сервер
type RestServer struct {
	router  *gin.Engine
	httpSrv *http.Server
	cfg     Config
	sampler *processSampler
	logger  *logging.Logger
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(cfg Config) *RestServer {
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("builder_api"))
	router.Use(middleware.RequestLogger(logging.GetAPILogger()))

	httpMetrics := middleware.NewHTTPMetrics("builder_api", cfg.Registry)
	router.Use(httpMetrics.Handler())
	httpMetrics.RegisterMetricsEndpoint(router)

	rs := &RestServer{
		router:  router,
		cfg:     cfg,
		sampler: newProcessSampler(),
		logger:  logging.GetAPILogger(),
	}
	rs.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/server", rs.handleServerInfo)
		api.GET("/player", rs.handlePlayer)
		api.GET("/blocks", rs.handleGetBlock)
		api.GET("/chunks/:cx/:cz", rs.handleChunkInfo)
		api.POST("/protocol/generate", rs.handleGenerate)
	}

	// Правки мира требуют токен, если задан секрет
	edit := api.Group("/")
	edit.Use(middleware.RequireEditToken(rs.cfg.Signer))
	{
		edit.POST("/blocks", rs.handleSetBlock)
		edit.POST("/chunks/:cx/:cz/load", rs.handleLoadChunk)
		edit.DELETE("/chunks/:cx/:cz/load", rs.handleReleaseChunk)
	}

	rs.router.GET("/ws", rs.handleStream)
	rs.router.GET("/health", rs.handleHealth)
}

// Start запускает REST сервер и блокируется до Stop
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.cfg.Addr)
	if err := rs.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop плавно останавливает REST сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.httpSrv.Shutdown(ctx)
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}
