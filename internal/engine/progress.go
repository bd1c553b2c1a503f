package engine

import (
	"github.com/annel0/happy-builder/internal/storage"
	"github.com/annel0/happy-builder/internal/world/block"
)

// Блоки, доступные с начала игры
var starterBlocks = []block.BlockID{
	block.GrassBlockID,
	block.DirtBlockID,
	block.StoneBlockID,
	block.WoodBlockID,
}

// Каждые unlockEvery поставленных блоков открывают следующий тип
const unlockEvery = 10

// Progress - прогресс строителя: счётчики, открытые блоки и выбранный блок
type Progress struct {
	profile storage.Profile
}

// NewProgress создаёт прогресс из сохранённого профиля; nil - новый игрок
func NewProgress(playerID string, saved *storage.Profile) *Progress {
	p := &Progress{profile: storage.Profile{PlayerID: playerID}}
	if saved != nil {
		p.profile = *saved
		p.profile.PlayerID = playerID
	}

	if len(p.profile.Unlocked) == 0 {
		for _, id := range starterBlocks {
			p.profile.Unlocked = append(p.profile.Unlocked, uint16(id))
		}
	}
	if !p.isUnlocked(block.BlockID(p.profile.SelectedBlock)) {
		p.profile.SelectedBlock = p.profile.Unlocked[0]
	}
	return p
}

// Selected возвращает выбранный блок
func (p *Progress) Selected() block.BlockID {
	return block.BlockID(p.profile.SelectedBlock)
}

// Unlocked возвращает открытые блоки
func (p *Progress) Unlocked() []block.BlockID {
	out := make([]block.BlockID, len(p.profile.Unlocked))
	for i, id := range p.profile.Unlocked {
		out[i] = block.BlockID(id)
	}
	return out
}

// Cycle выбирает следующий открытый блок
func (p *Progress) Cycle() block.BlockID {
	for i, id := range p.profile.Unlocked {
		if id == p.profile.SelectedBlock {
			p.profile.SelectedBlock = p.profile.Unlocked[(i+1)%len(p.profile.Unlocked)]
			return p.Selected()
		}
	}
	p.profile.SelectedBlock = p.profile.Unlocked[0]
	return p.Selected()
}

// Placed учитывает поставленный блок; возвращает новый открытый тип, если он появился
func (p *Progress) Placed() (block.BlockID, bool) {
	p.profile.BlocksPlaced++
	if p.profile.BlocksPlaced%unlockEvery != 0 {
		return block.AirBlockID, false
	}

	for _, id := range block.IDs() {
		if id == block.AirBlockID || p.isUnlocked(id) {
			continue
		}
		behavior, ok := block.Get(id)
		if !ok || !behavior.Placeable() {
			continue
		}
		p.profile.Unlocked = append(p.profile.Unlocked, uint16(id))
		return id, true
	}
	return block.AirBlockID, false
}

// Broken учитывает сломанный блок
func (p *Progress) Broken() {
	p.profile.BlocksBroken++
}

// Profile возвращает копию профиля для сохранения
func (p *Progress) Profile() *storage.Profile {
	cp := p.profile
	cp.Unlocked = append([]uint16(nil), p.profile.Unlocked...)
	return &cp
}

func (p *Progress) isUnlocked(id block.BlockID) bool {
	for _, u := range p.profile.Unlocked {
		if block.BlockID(u) == id {
			return true
		}
	}
	return false
}
