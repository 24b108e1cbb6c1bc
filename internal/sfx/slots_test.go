package sfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoundTable(t *testing.T) {
	assert.Equal(t, 26, DefaultSlotCount)
	assert.Equal(t, 18, DefaultOneShotCount)
	assert.Len(t, SlotNames(), DefaultSlotCount)

	assert.Equal(t, "chip_loses", SlotName(ChipLoses))
	assert.Equal(t, "water_splash", SlotName(WaterSplash))
	assert.Equal(t, "block_moving", SlotName(BlockMoving))
	assert.Equal(t, "firewalking", SlotName(FireWalking))
	assert.Equal(t, "40", SlotName(40))
}

func TestSlotByName(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"chip_wins", ChipWins, false},
		{"  BOMB_EXPLODES ", BombExplodes, false},
		{"icewalking", IceWalking, false},
		{"12", 12, false},
		{"63", 63, false},
		{"64", 0, true},
		{"-1", 0, true},
		{"kaboom", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := SlotByName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSlot)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPartition(t *testing.T) {
	p := DefaultPartition()
	require.NoError(t, p.Validate())

	assert.False(t, p.IsLooping(WaterSplash))
	assert.True(t, p.IsLooping(BlockMoving))
	assert.True(t, p.Contains(FireWalking))
	assert.False(t, p.Contains(DefaultSlotCount))
	assert.False(t, p.Contains(-1))

	invalid := []Partition{
		{OneShotCount: 0, SlotCount: 0},
		{OneShotCount: -1, SlotCount: 4},
		{OneShotCount: 5, SlotCount: 4},
		{OneShotCount: 0, SlotCount: MaxSlots + 1},
	}
	for _, p := range invalid {
		assert.ErrorIs(t, p.Validate(), ErrInvalidPartition, "%+v", p)
	}

	assert.NoError(t, Partition{OneShotCount: 4, SlotCount: 4}.Validate(), "all one-shot")
	assert.NoError(t, Partition{OneShotCount: 0, SlotCount: 4}.Validate(), "all looping")
}
