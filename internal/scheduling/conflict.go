package scheduling

import "time"

// SlotClass is the conflict classification of a candidate slot.
type SlotClass int

const (
	SlotFree SlotClass = iota
	SlotHeldByRequester
	SlotHeldByOther
)

// HeldSlots is the requester's own active holds: DateKey -> set of
// normalized time keys. Built from the requester's active appointment list;
// cancelled and completed appointments must not be added.
type HeldSlots map[string]map[string]struct{}

func NewHeldSlots() HeldSlots {
	return make(HeldSlots)
}

// Add records a hold, normalizing the time string.
func (h HeldSlots) Add(dateKey, timeStr string) {
	set, ok := h[dateKey]
	if !ok {
		set = make(map[string]struct{})
		h[dateKey] = set
	}
	set[NormalizeTimeKey(timeStr)] = struct{}{}
}

// Holds reports whether the requester holds the given date/time.
func (h HeldSlots) Holds(dateKey, timeKey string) bool {
	set, ok := h[dateKey]
	if !ok {
		return false
	}
	_, held := set[timeKey]
	return held
}

// Classify resolves a candidate against the two independent signals. The
// occupancy registry carries no holder identity, so the requester's own
// list is checked first: an occupied slot the requester holds is a
// self-hold, not an other-hold.
func Classify(dateKey string, slot Slot, held HeldSlots) SlotClass {
	if held.Holds(dateKey, slot.TimeKey) {
		return SlotHeldByRequester
	}
	if slot.BookedByOthers {
		return SlotHeldByOther
	}
	return SlotFree
}

// FilterElapsed drops candidates strictly in the past. An elapsed slot is
// never offered, neither as free nor as conflicted.
func FilterElapsed(days []DaySlots, now time.Time) []DaySlots {
	out := make([]DaySlots, 0, len(days))
	for _, d := range days {
		var kept []Slot
		for _, s := range d.Slots {
			if !s.Start.Before(now) {
				kept = append(kept, s)
			}
		}
		out = append(out, DaySlots{Date: d.Date, Slots: kept})
	}
	return out
}
