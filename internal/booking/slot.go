package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jw6ventures/fitverse/internal/api"
)

// SlotsPerDay is the fixed number of times the backend lays out per
// available day. Slot indices are positional over that layout.
const SlotsPerDay = 3

var ErrSlotOutOfRange = errors.New("slot index out of range")

// Slot is a decoded (day, time) pair for a positional slot index.
type Slot struct {
	Index int
	Day   string
	Time  string
}

func (s Slot) String() string {
	return s.Day + " - " + s.Time
}

// DecodeSlot resolves index against a trainer's availability:
// day = days[index/3], time = the (index mod 3)-th comma-separated entry.
func DecodeSlot(days []string, availableTime string, index int) (Slot, error) {
	if index < 0 {
		return Slot{}, fmt.Errorf("slot %d: %w", index, ErrSlotOutOfRange)
	}
	dayIdx := index / SlotsPerDay
	if dayIdx >= len(days) {
		return Slot{}, fmt.Errorf("slot %d: %w", index, ErrSlotOutOfRange)
	}
	times := splitTimes(availableTime)
	timeIdx := index % SlotsPerDay
	if timeIdx >= len(times) {
		return Slot{}, fmt.Errorf("slot %d: %w", index, ErrSlotOutOfRange)
	}
	return Slot{Index: index, Day: strings.TrimSpace(days[dayIdx]), Time: times[timeIdx]}, nil
}

// TrainerSlot decodes index for trainer t.
func TrainerSlot(t api.Trainer, index int) (Slot, error) {
	return DecodeSlot(t.AvailableDays, t.AvailableTime, index)
}

// TrainerSlots lists every slot index that decodes for trainer t, in index
// order.
func TrainerSlots(t api.Trainer) []Slot {
	var out []Slot
	for i := 0; i < len(t.AvailableDays)*SlotsPerDay; i++ {
		s, err := TrainerSlot(t, i)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

func splitTimes(availableTime string) []string {
	if strings.TrimSpace(availableTime) == "" {
		return nil
	}
	parts := strings.Split(availableTime, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
