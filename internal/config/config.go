package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Player    PlayerConfig    `yaml:"player"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type WorldConfig struct {
	Seed            int64  `yaml:"seed"`
	Height          int    `yaml:"height"`
	SeaLevel        int    `yaml:"sea_level"`
	RenderDistance  int    `yaml:"render_distance"`
	Workers         int    `yaml:"workers"`
	QueueSize       int    `yaml:"queue_size"`
	Mesher          string `yaml:"mesher"` // greedy | naive
	FPS             int    `yaml:"fps"`
	AutosaveSeconds int    `yaml:"autosave_seconds"`
}

type PlayerConfig struct {
	ID          string  `yaml:"id"`
	WalkSpeed   float64 `yaml:"walk_speed"`
	SprintSpeed float64 `yaml:"sprint_speed"`
	MaxStamina  float64 `yaml:"max_stamina"`
}

type StorageConfig struct {
	Backend string      `yaml:"backend"` // memory | badger | bolt | sqlite | redis
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// EventBusConfig: пустой URL - шина в памяти, иначе NATS JetStream
type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type ServerConfig struct {
	RESTPort    int    `yaml:"rest_port"`
	MetricsPort int    `yaml:"metrics_port"`
	JWTSecret   string `yaml:"jwt_secret"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "BUILDER_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "BUILDER_METRICS_PORT", 2112)
}

// GetJWTSecret возвращает секрет подписи токенов: config -> env; пустой - без аутентификации
func (s *ServerConfig) GetJWTSecret() string {
	if s.JWTSecret != "" {
		return s.JWTSecret
	}
	return os.Getenv("BUILDER_JWT_SECRET")
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.World.Height <= 0 {
		c.World.Height = 64
	}
	if c.World.RenderDistance <= 0 {
		c.World.RenderDistance = 4
	}
	if c.World.Workers <= 0 {
		c.World.Workers = 2
	}
	if c.World.QueueSize <= 0 {
		c.World.QueueSize = 256
	}
	if c.World.Mesher == "" {
		c.World.Mesher = "greedy"
	}
	if c.World.FPS <= 0 {
		c.World.FPS = 60
	}
	if c.World.AutosaveSeconds <= 0 {
		c.World.AutosaveSeconds = 30
	}

	if c.Player.ID == "" {
		c.Player.ID = "local"
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "badger"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data"
	}
	if c.Storage.Redis.Addr == "" {
		c.Storage.Redis.Addr = "localhost:6379"
	}
	if c.Storage.Redis.KeyPrefix == "" {
		c.Storage.Redis.KeyPrefix = "builder:"
	}

	if c.EventBus.Stream == "" {
		c.EventBus.Stream = "WORLD"
	}
	if c.EventBus.Retention <= 0 {
		c.EventBus.Retention = 24
	}
	if c.EventBus.Buffer <= 0 {
		c.EventBus.Buffer = 1024
	}

	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
	if c.Logging.ConsoleLevel == "" {
		c.Logging.ConsoleLevel = "info"
	}
	if c.Logging.FileLevel == "" {
		c.Logging.FileLevel = "trace"
	}

	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4318"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "happy-builder"
	}
}

// Validate проверяет значения, которые нельзя исправить умолчаниями
func (c *Config) Validate() error {
	switch c.World.Mesher {
	case "greedy", "naive":
	default:
		return fmt.Errorf("world.mesher: неизвестный мешер %q", c.World.Mesher)
	}
	switch c.Storage.Backend {
	case "memory", "badger", "bolt", "sqlite", "redis":
	default:
		return fmt.Errorf("storage.backend: неизвестное хранилище %q", c.Storage.Backend)
	}
	if c.World.Height < 4 || c.World.Height > 1024 {
		return fmt.Errorf("world.height: %d вне диапазона [4, 1024]", c.World.Height)
	}
	if c.World.SeaLevel < 0 || c.World.SeaLevel >= c.World.Height {
		return fmt.Errorf("world.sea_level: %d вне мира высотой %d", c.World.SeaLevel, c.World.Height)
	}
	return nil
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV BUILDER_CONFIG или возвращает значения по умолчанию.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("BUILDER_CONFIG")
		if path == "" {
			return Default(), nil // конфиг не задан - использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
