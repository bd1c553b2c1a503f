package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/annel0/happy-builder/internal/vec"
	"github.com/klauspost/compress/zstd"
)

// Кодек записей: JSON, сжатый zstd. Encoder/Decoder безопасны для
// параллельных EncodeAll/DecodeAll.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

func encode(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации: %w", err)
	}
	return encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

func decode(data []byte, v interface{}) error {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("ошибка распаковки zstd: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("ошибка десериализации: %w", err)
	}
	return nil
}

// EncodeChunk упаковывает дельту чанка для хранилища
func EncodeChunk(key vec.Vec2, edits []BlockEdit) ([]byte, error) {
	return encode(ChunkRecord{Coords: key, Edits: edits, SavedAt: time.Now().UTC()})
}

// DecodeChunk распаковывает дельту чанка
func DecodeChunk(data []byte) (*ChunkRecord, error) {
	var rec ChunkRecord
	if err := decode(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func encodeProfile(p *Profile) ([]byte, error) {
	cp := *p
	cp.UpdatedAt = time.Now().UTC()
	return encode(cp)
}

func decodeProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := decode(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
