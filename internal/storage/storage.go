package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/happy-builder/internal/vec"
)

var (
	// ErrNotFound возвращается, когда запись отсутствует в хранилище
	ErrNotFound = errors.New("запись не найдена")
	// ErrClosed возвращается при обращении к закрытому хранилищу
	ErrClosed = errors.New("хранилище не готово")
)

// BlockEdit - изменение одного блока в локальных координатах чанка
type BlockEdit struct {
	X  int    `json:"x"`
	Y  int    `json:"y"`
	Z  int    `json:"z"`
	ID uint16 `json:"id"`
}

// ChunkRecord - сохранённая дельта чанка относительно сгенерированного ландшафта
type ChunkRecord struct {
	Coords  vec.Vec2    `json:"coords"`
	Edits   []BlockEdit `json:"edits"`
	SavedAt time.Time   `json:"saved_at"`
}

// Profile - сохранённый прогресс строителя (аналог JSON-сохранения игры).
// Позиция и скорость игрока сюда не входят.
type Profile struct {
	PlayerID      string    `json:"player_id"`
	BlocksPlaced  int       `json:"blocks_placed"`
	BlocksBroken  int       `json:"blocks_broken"`
	SelectedBlock uint16    `json:"selected_block"`
	Unlocked      []uint16  `json:"unlocked,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ChunkStorage хранит правки чанков и профили игроков.
type ChunkStorage interface {
	// SaveChunk перезаписывает дельту чанка; пустой список удаляет запись
	SaveChunk(ctx context.Context, key vec.Vec2, edits []BlockEdit) error
	// LoadChunk возвращает дельту чанка; отсутствие записи - пустой список без ошибки
	LoadChunk(ctx context.Context, key vec.Vec2) ([]BlockEdit, error)
	// SaveProfile сохраняет профиль игрока
	SaveProfile(ctx context.Context, profile *Profile) error
	// LoadProfile загружает профиль; ErrNotFound, если профиля нет
	LoadProfile(ctx context.Context, playerID string) (*Profile, error)
	// Close освобождает ресурсы хранилища
	Close() error
}

func chunkKey(key vec.Vec2) string {
	return fmt.Sprintf("chunk:%d:%d", key.X, key.Z)
}

func profileKey(playerID string) string {
	return "player:" + playerID
}
