package world

import (
	"sort"
	"sync"

	"github.com/annel0/happy-builder/internal/storage"
	"github.com/annel0/happy-builder/internal/vec"
	"github.com/annel0/happy-builder/internal/world/block"
)

// DefaultHeight - высота мира в блоках по умолчанию
const DefaultHeight = 64

// ChunkData - объём блоков чанка во внешнем формате, индекс [localX][y][localZ]
type ChunkData [][][]block.BlockID

// Chunk представляет столб мира 16 x Height x 16 блоков.
// Блоки хранятся плоским срезом; edits запоминает правки поверх сгенерированного ландшафта.
type Chunk struct {
	Coords vec.Vec2 // Координаты чанка в мире

	height int
	blocks []block.BlockID
	edits  map[vec.Vec3]block.BlockID

	ChangeCounter int // Счетчик изменений с последнего сохранения
	// editsMissing: сохранённые правки не удалось загрузить, в edits только новые
	editsMissing bool
	mu           sync.RWMutex
}

// NewChunk создаёт пустой (воздух) чанк с указанными координатами
func NewChunk(coords vec.Vec2, height int) *Chunk {
	if height <= 0 {
		height = DefaultHeight
	}
	return &Chunk{
		Coords: coords,
		height: height,
		blocks: make([]block.BlockID, vec.ChunkSize*height*vec.ChunkSize),
		edits:  make(map[vec.Vec3]block.BlockID),
	}
}

// NewChunkFromData создаёт чанк из ответа генератора.
// Лишние и недостающие элементы данных игнорируются (остаются воздухом).
func NewChunkFromData(coords vec.Vec2, data ChunkData) *Chunk {
	height := DefaultHeight
	if len(data) > 0 && len(data[0]) > 0 {
		height = len(data[0])
	}

	c := NewChunk(coords, height)
	for x := 0; x < vec.ChunkSize && x < len(data); x++ {
		for y := 0; y < height && y < len(data[x]); y++ {
			column := data[x][y]
			for z := 0; z < vec.ChunkSize && z < len(column); z++ {
				c.blocks[c.index(x, y, z)] = column[z]
			}
		}
	}
	return c
}

func (c *Chunk) index(x, y, z int) int {
	return (x*c.height+y)*vec.ChunkSize + z
}

func (c *Chunk) inBounds(x, y, z int) bool {
	return x >= 0 && x < vec.ChunkSize &&
		z >= 0 && z < vec.ChunkSize &&
		y >= 0 && y < c.height
}

// Height возвращает высоту чанка
func (c *Chunk) Height() int {
	return c.height
}

// GetBlock возвращает блок по локальным координатам; вне чанка - воздух
func (c *Chunk) GetBlock(local vec.Vec3) block.BlockID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.inBounds(local.X, local.Y, local.Z) {
		return block.AirBlockID
	}
	return c.blocks[c.index(local.X, local.Y, local.Z)]
}

// SetBlock устанавливает блок по локальным координатам и запоминает правку.
// Вне чанка ничего не делает и возвращает false.
func (c *Chunk) SetBlock(local vec.Vec3, blockID block.BlockID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inBounds(local.X, local.Y, local.Z) {
		return false
	}

	c.blocks[c.index(local.X, local.Y, local.Z)] = blockID
	c.edits[local] = blockID
	c.ChangeCounter++
	return true
}

// Dimensions возвращает размеры объёма (для мешера)
func (c *Chunk) Dimensions() (int, int, int) {
	return vec.ChunkSize, c.height, vec.ChunkSize
}

// BlockAt возвращает блок без проверки границ (для мешера)
func (c *Chunk) BlockAt(x, y, z int) block.BlockID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[c.index(x, y, z)]
}

// ApplyEdits накладывает сохранённые правки поверх ландшафта.
// Правки запоминаются, чтобы пережить следующую выгрузку; счётчик изменений не растёт.
func (c *Chunk) ApplyEdits(edits []storage.BlockEdit) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	applied := 0
	for _, e := range edits {
		if !c.inBounds(e.X, e.Y, e.Z) {
			continue
		}
		id := block.BlockID(e.ID)
		c.blocks[c.index(e.X, e.Y, e.Z)] = id
		c.edits[vec.Vec3{X: e.X, Y: e.Y, Z: e.Z}] = id
		applied++
	}
	return applied
}

// Edits возвращает все правки чанка в детерминированном порядке
func (c *Chunk) Edits() []storage.BlockEdit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedEdits()
}

// sortedEdits вызывается под c.mu
func (c *Chunk) sortedEdits() []storage.BlockEdit {
	edits := make([]storage.BlockEdit, 0, len(c.edits))
	for pos, id := range c.edits {
		edits = append(edits, storage.BlockEdit{X: pos.X, Y: pos.Y, Z: pos.Z, ID: uint16(id)})
	}
	sort.Slice(edits, func(i, j int) bool {
		a, b := edits[i], edits[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return edits
}

// HasChanges проверяет, есть ли несохранённые изменения
func (c *Chunk) HasChanges() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ChangeCounter > 0
}

// EditsSnapshot возвращает правки вместе со счётчиком изменений, снятые под одной блокировкой.
// Счётчик передаётся в MarkSaved после успешной записи.
func (c *Chunk) EditsSnapshot() ([]storage.BlockEdit, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedEdits(), c.ChangeCounter
}

// MarkSaved вычитает сохранённые изменения. Правки, сделанные во время записи, остаются несохранёнными.
func (c *Chunk) MarkSaved(saved int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ChangeCounter -= saved
	if c.ChangeCounter < 0 {
		c.ChangeCounter = 0
	}
}

// MarkEditsMissing помечает чанк, выданный без сохранённых правок
func (c *Chunk) MarkEditsMissing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editsMissing = true
}

// EditsMissing сообщает, что сохранённые правки ещё не объединены с чанком
func (c *Chunk) EditsMissing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.editsMissing
}

// MergeSaved дописывает сохранённые правки под новыми, не трогая объём.
// Новые правки в тех же позициях важнее. Возвращает число добавленных.
func (c *Chunk) MergeSaved(saved []storage.BlockEdit) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, e := range saved {
		if !c.inBounds(e.X, e.Y, e.Z) {
			continue
		}
		pos := vec.Vec3{X: e.X, Y: e.Y, Z: e.Z}
		if _, ok := c.edits[pos]; ok {
			continue
		}
		c.edits[pos] = block.BlockID(e.ID)
		added++
	}
	c.editsMissing = false
	return added
}

// ToData возвращает копию объёма во внешнем формате [x][y][z]
func (c *Chunk) ToData() ChunkData {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data := make(ChunkData, vec.ChunkSize)
	for x := range data {
		data[x] = make([][]block.BlockID, c.height)
		for y := range data[x] {
			start := c.index(x, y, 0)
			data[x][y] = append([]block.BlockID(nil), c.blocks[start:start+vec.ChunkSize]...)
		}
	}
	return data
}

// TopSolidY возвращает высоту самого верхнего непустого блока столбца или -1
func (c *Chunk) TopSolidY(lx, lz int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.inBounds(lx, 0, lz) {
		return -1
	}
	for y := c.height - 1; y >= 0; y-- {
		if c.blocks[c.index(lx, y, lz)] != block.AirBlockID {
			return y
		}
	}
	return -1
}
