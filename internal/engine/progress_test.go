package engine

import (
	"testing"

	"github.com/annel0/happy-builder/internal/storage"
	"github.com/annel0/happy-builder/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_NewBuilderGetsStarterBlocks(t *testing.T) {
	p := NewProgress("anna", nil)

	assert.Equal(t, starterBlocks, p.Unlocked())
	assert.Equal(t, block.GrassBlockID, p.Selected())
	assert.Equal(t, "anna", p.Profile().PlayerID)
}

func TestProgress_CycleWraps(t *testing.T) {
	p := NewProgress("p", nil)

	var seen []block.BlockID
	for i := 0; i < len(starterBlocks); i++ {
		seen = append(seen, p.Cycle())
	}
	assert.Equal(t, block.GrassBlockID, seen[len(seen)-1], "после последнего блока снова первый")
}

func TestProgress_UnlocksEveryTenPlacements(t *testing.T) {
	p := NewProgress("p", nil)

	for i := 0; i < unlockEvery-1; i++ {
		_, unlocked := p.Placed()
		require.False(t, unlocked)
	}
	id, unlocked := p.Placed()
	require.True(t, unlocked)
	assert.Equal(t, block.SandBlockID, id, "первый неоткрытый ставящийся блок")
	assert.Contains(t, p.Unlocked(), block.SandBlockID)
	assert.NotContains(t, p.Unlocked(), block.WaterBlockID)
}

func TestProgress_RestoresSavedProfile(t *testing.T) {
	saved := &storage.Profile{
		PlayerID:      "old-id",
		BlocksPlaced:  42,
		SelectedBlock: uint16(block.BrickBlockID),
		Unlocked:      []uint16{uint16(block.StoneBlockID), uint16(block.BrickBlockID)},
	}
	p := NewProgress("p", saved)

	assert.Equal(t, block.BrickBlockID, p.Selected())
	assert.Equal(t, 42, p.Profile().BlocksPlaced)
	assert.Equal(t, "p", p.Profile().PlayerID)

	// Выбранный, но не открытый блок сбрасывается на первый открытый
	saved.SelectedBlock = uint16(block.LeavesBlockID)
	assert.Equal(t, block.StoneBlockID, NewProgress("p", saved).Selected())
}

func TestProgress_ProfileIsCopy(t *testing.T) {
	p := NewProgress("p", nil)
	prof := p.Profile()
	prof.Unlocked[0] = 999

	assert.Equal(t, block.GrassBlockID, p.Unlocked()[0])
}
