package world

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/annel0/happy-builder/internal/storage"
	"github.com/annel0/happy-builder/internal/vec"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Типы сообщений протокола генератора
const (
	MessageGenerate  = "generate"
	MessageGenerated = "generated"
)

// GeneratePayload - координаты запрошенного чанка
type GeneratePayload struct {
	CX int `json:"cx"`
	CZ int `json:"cz"`
}

// GenerateRequest - запрос генерации: {type: "generate", payload: {cx, cz}}
type GenerateRequest struct {
	Type    string          `json:"type"`
	Payload GeneratePayload `json:"payload"`
}

// GeneratedPayload - готовый объём, помеченный исходными координатами
type GeneratedPayload struct {
	CX        int                 `json:"cx"`
	CZ        int                 `json:"cz"`
	ChunkData ChunkData           `json:"chunkData"`
	Edits     []storage.BlockEdit `json:"edits,omitempty"` // Сохранённые правки игрока
	// EditsMissing: правки не загрузились, перед записью их нужно перечитать
	EditsMissing bool `json:"editsMissing,omitempty"`
}

// GeneratedResponse - ответ генератора: {type: "generated", payload: {cx, cz, chunkData}}
type GeneratedResponse struct {
	Type    string           `json:"type"`
	Payload GeneratedPayload `json:"payload"`
}

// NewGenerateRequest создаёт запрос генерации чанка
func NewGenerateRequest(key vec.Vec2) GenerateRequest {
	return GenerateRequest{
		Type:    MessageGenerate,
		Payload: GeneratePayload{CX: key.X, CZ: key.Z},
	}
}

// Key возвращает ключ чанка запроса
func (r GenerateRequest) Key() vec.Vec2 {
	return vec.Vec2{X: r.Payload.CX, Z: r.Payload.CZ}
}

// Key возвращает ключ чанка ответа
func (r GeneratedResponse) Key() vec.Vec2 {
	return vec.Vec2{X: r.Payload.CX, Z: r.Payload.CZ}
}

const (
	generateSchemaURL  = "https://schemas.happy-builder.dev/generate.schema.json"
	generatedSchemaURL = "https://schemas.happy-builder.dev/generated.schema.json"
)

//go:embed schemas/generate.schema.json
var generateSchemaJSON string

//go:embed schemas/generated.schema.json
var generatedSchemaJSON string

var (
	schemaOnce      sync.Once
	generateSchema  *jsonschema.Schema
	generatedSchema *jsonschema.Schema
	schemaErr       error
)

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(generateSchemaURL, strings.NewReader(generateSchemaJSON)); err != nil {
		schemaErr = err
		return
	}
	if err := compiler.AddResource(generatedSchemaURL, strings.NewReader(generatedSchemaJSON)); err != nil {
		schemaErr = err
		return
	}
	if generateSchema, schemaErr = compiler.Compile(generateSchemaURL); schemaErr != nil {
		return
	}
	generatedSchema, schemaErr = compiler.Compile(generatedSchemaURL)
}

// ParseGenerateRequest разбирает и валидирует запрос генерации из JSON
func ParseGenerateRequest(data []byte) (GenerateRequest, error) {
	var req GenerateRequest
	if err := validateMessage(data, func() *jsonschema.Schema { return generateSchema }); err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decode generate request: %w", err)
	}
	return req, nil
}

// ValidateGeneratedResponse проверяет ответ генератора по схеме протокола
func ValidateGeneratedResponse(data []byte) error {
	return validateMessage(data, func() *jsonschema.Schema { return generatedSchema })
}

func validateMessage(data []byte, schema func() *jsonschema.Schema) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return fmt.Errorf("compile protocol schema: %w", schemaErr)
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := schema().Validate(doc); err != nil {
		return fmt.Errorf("protocol violation: %w", err)
	}
	return nil
}
