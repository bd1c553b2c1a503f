package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/annel0/happy-builder/internal/vec"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	cx   INTEGER NOT NULL,
	cz   INTEGER NOT NULL,
	data BLOB    NOT NULL,
	PRIMARY KEY (cx, cz)
);
CREATE TABLE IF NOT EXISTS profiles (
	player_id TEXT PRIMARY KEY,
	data      BLOB NOT NULL
);`

// SQLiteStorage хранит правки мира в файле SQLite (чистый Go драйвер)
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage открывает базу и применяет схему
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть SQLite: %w", err)
	}
	// Один писатель: SQLite не любит параллельные транзакции записи
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ошибка применения схемы SQLite: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveChunk сохраняет дельту чанка
func (s *SQLiteStorage) SaveChunk(ctx context.Context, key vec.Vec2, edits []BlockEdit) error {
	if len(edits) == 0 {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE cx = ? AND cz = ?`, key.X, key.Z); err != nil {
			return fmt.Errorf("ошибка удаления чанка: %w", err)
		}
		return nil
	}

	data, err := EncodeChunk(key, edits)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chunks (cx, cz, data) VALUES (?, ?, ?)
		 ON CONFLICT (cx, cz) DO UPDATE SET data = excluded.data`,
		key.X, key.Z, data)
	if err != nil {
		return fmt.Errorf("ошибка сохранения чанка: %w", err)
	}
	return nil
}

// LoadChunk загружает дельту чанка
func (s *SQLiteStorage) LoadChunk(ctx context.Context, key vec.Vec2) ([]BlockEdit, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM chunks WHERE cx = ? AND cz = ?`, key.X, key.Z).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения чанка: %w", err)
	}

	rec, err := DecodeChunk(data)
	if err != nil {
		return nil, fmt.Errorf("чанк %v: %w", key, err)
	}
	return rec.Edits, nil
}

// SaveProfile сохраняет профиль игрока
func (s *SQLiteStorage) SaveProfile(ctx context.Context, profile *Profile) error {
	data, err := encodeProfile(profile)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (player_id, data) VALUES (?, ?)
		 ON CONFLICT (player_id) DO UPDATE SET data = excluded.data`,
		profile.PlayerID, data)
	if err != nil {
		return fmt.Errorf("ошибка сохранения профиля: %w", err)
	}
	return nil
}

// LoadProfile загружает профиль игрока
func (s *SQLiteStorage) LoadProfile(ctx context.Context, playerID string) (*Profile, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE player_id = ?`, playerID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения профиля: %w", err)
	}
	return decodeProfile(data)
}

// Close закрывает базу
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
