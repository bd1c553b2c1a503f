package world

import (
	"encoding/json"
	"testing"

	"github.com/annel0/happy-builder/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGenerateRequest(t *testing.T) {
	req, err := ParseGenerateRequest([]byte(`{"type":"generate","payload":{"cx":-3,"cz":7}}`))
	require.NoError(t, err)
	assert.Equal(t, vec.Vec2{X: -3, Z: 7}, req.Key())
	assert.Equal(t, MessageGenerate, req.Type)
}

func TestParseGenerateRequest_Rejects(t *testing.T) {
	cases := map[string]string{
		"неверный тип":       `{"type":"generated","payload":{"cx":0,"cz":0}}`,
		"нет координаты":     `{"type":"generate","payload":{"cx":0}}`,
		"дробная координата": `{"type":"generate","payload":{"cx":0.5,"cz":0}}`,
		"лишнее поле":        `{"type":"generate","payload":{"cx":0,"cz":0,"cy":1}}`,
		"не json":            `generate 0 0`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGenerateRequest([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestValidateGeneratedResponse(t *testing.T) {
	gen := NewWorldGenerator(9)
	gen.Height = 4
	resp := generatedFor(gen, vec.Vec2{X: 1, Z: 2})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NoError(t, ValidateGeneratedResponse(raw))

	resp.Payload.ChunkData = resp.Payload.ChunkData[:15]
	raw, err = json.Marshal(resp)
	require.NoError(t, err)
	assert.Error(t, ValidateGeneratedResponse(raw), "объём должен быть 16 по X")
}

func TestGenerateRequest_RoundTrip(t *testing.T) {
	raw, err := json.Marshal(NewGenerateRequest(vec.Vec2{X: 5, Z: -5}))
	require.NoError(t, err)

	req, err := ParseGenerateRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, vec.Vec2{X: 5, Z: -5}, req.Key())
}
