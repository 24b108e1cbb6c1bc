package sfx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sound table of the game engine. Slots below OneShotCount play once per
// trigger; the rest loop while their bit is set.
const (
	ChipLoses = iota
	ChipWins
	TimeOut
	TimeLow
	Derezz
	CantMove
	ICCollected
	ItemCollected
	BootsStolen
	Teleporting
	DoorOpened
	SocketOpened
	ButtonPushed
	TileEmptied
	WallCreated
	TrapEntered
	BombExplodes
	WaterSplash

	BlockMoving
	SkatingForward
	SkatingTurn
	Sliding
	SlideWalking
	IceWalking
	WaterWalking
	FireWalking

	DefaultSlotCount = iota
)

// DefaultOneShotCount is the index of the first looping slot.
const DefaultOneShotCount = BlockMoving

// MaxSlots is the width of the effects bitmask.
const MaxSlots = 64

var slotNames = [DefaultSlotCount]string{
	"chip_loses",
	"chip_wins",
	"time_out",
	"time_low",
	"derezz",
	"cant_move",
	"ic_collected",
	"item_collected",
	"boots_stolen",
	"teleporting",
	"door_opened",
	"socket_opened",
	"button_pushed",
	"tile_emptied",
	"wall_created",
	"trap_entered",
	"bomb_explodes",
	"water_splash",
	"block_moving",
	"skating_forward",
	"skating_turn",
	"sliding",
	"slidewalking",
	"icewalking",
	"waterwalking",
	"firewalking",
}

var (
	ErrInvalidSlot      = errors.New("invalid slot")
	ErrInvalidPartition = errors.New("invalid slot partition")
)

// Partition splits the slot range into one-shot slots [0, OneShotCount)
// and looping slots [OneShotCount, SlotCount).
type Partition struct {
	OneShotCount int
	SlotCount    int
}

// DefaultPartition matches the game's sound table.
func DefaultPartition() Partition {
	return Partition{OneShotCount: DefaultOneShotCount, SlotCount: DefaultSlotCount}
}

// Validate checks the partition bounds
func (p Partition) Validate() error {
	if p.SlotCount <= 0 || p.SlotCount > MaxSlots {
		return fmt.Errorf("%w: slot count %d must be between 1 and %d", ErrInvalidPartition, p.SlotCount, MaxSlots)
	}
	if p.OneShotCount < 0 || p.OneShotCount > p.SlotCount {
		return fmt.Errorf("%w: one-shot count %d must be between 0 and %d", ErrInvalidPartition, p.OneShotCount, p.SlotCount)
	}
	return nil
}

// Contains reports whether slot is a valid index
func (p Partition) Contains(slot int) bool {
	return slot >= 0 && slot < p.SlotCount
}

// IsLooping reports whether slot falls in the looping range
func (p Partition) IsLooping(slot int) bool {
	return slot >= p.OneShotCount
}

// SlotName returns the sound-table name of slot, or its number for slots
// outside the table.
func SlotName(slot int) string {
	if slot >= 0 && slot < len(slotNames) {
		return slotNames[slot]
	}
	return strconv.Itoa(slot)
}

// SlotByName resolves a sound-table name or a decimal index.
func SlotByName(name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range slotNames {
		if n == name {
			return i, nil
		}
	}
	slot, err := strconv.Atoi(name)
	if err != nil || slot < 0 || slot >= MaxSlots {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, name)
	}
	return slot, nil
}

// SlotNames returns the sound-table names in slot order
func SlotNames() []string {
	names := make([]string, len(slotNames))
	copy(names, slotNames[:])
	return names
}
