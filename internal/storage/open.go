package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Backend - тип хранилища из конфигурации
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options выбирает и настраивает хранилище
type Options struct {
	Backend string
	Path    string // Каталог данных для встроенных хранилищ
	Redis   *RedisConfig
}

// Open создаёт хранилище по имени бэкенда
func Open(ctx context.Context, opts Options) (ChunkStorage, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStorage(), nil
	case BackendBadger:
		return NewBadgerStorage(opts.Path)
	case BackendBolt:
		if err := os.MkdirAll(opts.Path, 0755); err != nil {
			return nil, fmt.Errorf("ошибка создания директории %s: %w", opts.Path, err)
		}
		return NewBoltStorage(filepath.Join(opts.Path, "world.bolt"))
	case BackendSQLite:
		if err := os.MkdirAll(opts.Path, 0755); err != nil {
			return nil, fmt.Errorf("ошибка создания директории %s: %w", opts.Path, err)
		}
		return NewSQLiteStorage(filepath.Join(opts.Path, "world.sqlite"))
	case BackendRedis:
		return NewRedisStorage(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища: %q", opts.Backend)
	}
}
