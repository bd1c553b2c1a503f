package block

import "sort"

var registry = make(map[BlockID]BlockBehavior)

// Register добавляет поведение блока в регистр
func Register(id BlockID, behavior BlockBehavior) {
	registry[id] = behavior
}

// Get возвращает поведение для указанного ID
func Get(id BlockID) (BlockBehavior, bool) {
	behavior, exists := registry[id]
	return behavior, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := registry[id]
	return exists
}

// IDs возвращает отсортированный список зарегистрированных ID
func IDs() []BlockID {
	ids := make([]BlockID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BlockID представляет идентификатор типа блока
type BlockID uint16

// Константы ID блоков
const (
	AirBlockID    BlockID = iota // 0 - зарезервирован под воздух
	GrassBlockID                 // 1
	DirtBlockID                  // 2
	StoneBlockID                 // 3
	SandBlockID                  // 4
	WaterBlockID                 // 5
	WoodBlockID                  // 6
	LeavesBlockID                // 7
	BrickBlockID                 // 8 - только для строительства игроком
)

// ColorOf возвращает цвет типа блока; для незарегистрированных - пурпурный маркер
func ColorOf(id BlockID) Color {
	if behavior, ok := registry[id]; ok {
		return behavior.Color()
	}
	return Color{R: 255, G: 0, B: 255}
}

// IsSolid сообщает, блокирует ли блок движение игрока
func IsSolid(id BlockID) bool {
	if behavior, ok := registry[id]; ok {
		return behavior.Solid()
	}
	return id != AirBlockID
}
