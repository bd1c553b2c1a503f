package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/happy-builder/internal/vec"
	"github.com/dgraph-io/badger/v3"
)

// BadgerStorage хранит правки мира во встроенной BadgerDB
type BadgerStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerStorage открывает (или создаёт) базу в каталоге dataPath/world
func NewBadgerStorage(dataPath string) (*BadgerStorage, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BadgerStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Close закрывает хранилище данных
func (bs *BadgerStorage) Close() error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	if !bs.isReady {
		return nil
	}

	bs.isReady = false
	return bs.db.Close()
}

// SaveChunk сохраняет дельту чанка
func (bs *BadgerStorage) SaveChunk(ctx context.Context, key vec.Vec2, edits []BlockEdit) error {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dbKey := []byte(chunkKey(key))

	if len(edits) == 0 {
		err := bs.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(dbKey)
		})
		if err != nil {
			return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
		}
		return nil
	}

	data, err := EncodeChunk(key, edits)
	if err != nil {
		return err
	}

	err = bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dbKey, data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	return nil
}

// LoadChunk загружает дельту чанка
func (bs *BadgerStorage) LoadChunk(ctx context.Context, key vec.Vec2) ([]BlockEdit, error) {
	data, err := bs.get(ctx, chunkKey(key))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec, err := DecodeChunk(data)
	if err != nil {
		return nil, fmt.Errorf("чанк %v: %w", key, err)
	}
	return rec.Edits, nil
}

// SaveProfile сохраняет профиль игрока
func (bs *BadgerStorage) SaveProfile(ctx context.Context, profile *Profile) error {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeProfile(profile)
	if err != nil {
		return err
	}

	err = bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(profileKey(profile.PlayerID)), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения профиля в BadgerDB: %w", err)
	}
	return nil
}

// LoadProfile загружает профиль игрока
func (bs *BadgerStorage) LoadProfile(ctx context.Context, playerID string) (*Profile, error) {
	data, err := bs.get(ctx, profileKey(playerID))
	if err != nil {
		return nil, err
	}
	return decodeProfile(data)
}

func (bs *BadgerStorage) get(ctx context.Context, key string) ([]byte, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return data, nil
}
