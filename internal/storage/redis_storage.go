package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/happy-builder/internal/logging"
	"github.com/annel0/happy-builder/internal/vec"
	"github.com/go-redis/redis/v8"
)

// RedisStorage хранит правки мира в Redis (общий мир для нескольких процессов)
type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей (0 - без срока)
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "builder:",
	}
}

// NewRedisStorage подключается к Redis и проверяет соединение
func NewRedisStorage(ctx context.Context, config *RedisConfig) (*RedisStorage, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetStorageLogger().Info("🔴 Connected to Redis at %s", config.Addr)

	return &RedisStorage{
		client:    client,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}, nil
}

// SaveChunk сохраняет дельту чанка
func (rs *RedisStorage) SaveChunk(ctx context.Context, key vec.Vec2, edits []BlockEdit) error {
	redisKey := rs.keyPrefix + chunkKey(key)

	if len(edits) == 0 {
		if err := rs.client.Del(ctx, redisKey).Err(); err != nil {
			return fmt.Errorf("failed to delete chunk: %w", err)
		}
		return nil
	}

	data, err := EncodeChunk(key, edits)
	if err != nil {
		return err
	}

	if err := rs.client.Set(ctx, redisKey, data, rs.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save chunk: %w", err)
	}
	return nil
}

// LoadChunk загружает дельту чанка
func (rs *RedisStorage) LoadChunk(ctx context.Context, key vec.Vec2) ([]BlockEdit, error) {
	data, err := rs.client.Get(ctx, rs.keyPrefix+chunkKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}

	rec, err := DecodeChunk(data)
	if err != nil {
		return nil, fmt.Errorf("чанк %v: %w", key, err)
	}
	return rec.Edits, nil
}

// SaveProfile сохраняет профиль игрока (без TTL)
func (rs *RedisStorage) SaveProfile(ctx context.Context, profile *Profile) error {
	data, err := encodeProfile(profile)
	if err != nil {
		return err
	}
	if err := rs.client.Set(ctx, rs.keyPrefix+profileKey(profile.PlayerID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// LoadProfile загружает профиль игрока
func (rs *RedisStorage) LoadProfile(ctx context.Context, playerID string) (*Profile, error) {
	data, err := rs.client.Get(ctx, rs.keyPrefix+profileKey(playerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return decodeProfile(data)
}

// Close закрывает соединение с Redis
func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}
