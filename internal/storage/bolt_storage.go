package storage

import (
	"context"
	"fmt"

	"github.com/annel0/happy-builder/internal/vec"
	"github.com/boltdb/bolt"
)

var (
	chunkBucket   = []byte("chunk")
	profileBucket = []byte("player")
)

// BoltStorage хранит правки мира в одном файле BoltDB
type BoltStorage struct {
	db *bolt.DB
}

// NewBoltStorage открывает файл базы и создаёт бакеты
func NewBoltStorage(path string) (*BoltStorage, error) {
	db, err := bolt.Open(path, 0666, nil)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BoltDB: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(chunkBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(profileBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось создать бакеты BoltDB: %w", err)
	}
	return &BoltStorage{db: db}, nil
}

// SaveChunk сохраняет дельту чанка
func (s *BoltStorage) SaveChunk(ctx context.Context, key vec.Vec2, edits []BlockEdit) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var data []byte
	if len(edits) > 0 {
		var err error
		if data, err = EncodeChunk(key, edits); err != nil {
			return err
		}
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(chunkBucket)
		if data == nil {
			return bkt.Delete([]byte(chunkKey(key)))
		}
		return bkt.Put([]byte(chunkKey(key)), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BoltDB: %w", err)
	}
	return nil
}

// LoadChunk загружает дельту чанка
func (s *BoltStorage) LoadChunk(ctx context.Context, key vec.Vec2) ([]BlockEdit, error) {
	data, err := s.get(ctx, chunkBucket, chunkKey(key))
	if err != nil || data == nil {
		return nil, err
	}

	rec, err := DecodeChunk(data)
	if err != nil {
		return nil, fmt.Errorf("чанк %v: %w", key, err)
	}
	return rec.Edits, nil
}

// SaveProfile сохраняет профиль игрока
func (s *BoltStorage) SaveProfile(ctx context.Context, profile *Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeProfile(profile)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(profileBucket).Put([]byte(profileKey(profile.PlayerID)), data)
	})
}

// LoadProfile загружает профиль игрока
func (s *BoltStorage) LoadProfile(ctx context.Context, playerID string) (*Profile, error) {
	data, err := s.get(ctx, profileBucket, profileKey(playerID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}
	return decodeProfile(data)
}

// Close закрывает файл базы
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

// get возвращает копию значения или nil, если ключа нет
func (s *BoltStorage) get(ctx context.Context, bucket []byte, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			data = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BoltDB: %w", err)
	}
	return data, nil
}
