package scheduling

import (
	"fmt"
	"time"
)

const (
	// SlotInterval is the fixed bookable granularity.
	SlotInterval = 10 * time.Minute

	// HorizonDays is the rolling window slots are generated for.
	HorizonDays = 7
)

// DaySchedule is one weekday's availability window(s) from a provider's
// weekly template. Times are wall-clock strings ("09:00", "5:00 PM").
type DaySchedule struct {
	Available    bool
	StartTime    string
	EndTime      string
	HasEvening   bool
	EveningStart string
	EveningEnd   string
}

// WeekSchedule indexes day schedules by time.Weekday (Sunday = 0).
type WeekSchedule [7]DaySchedule

// Slot is a single bookable candidate. Ephemeral: recomputed per request,
// never persisted.
type Slot struct {
	Start          time.Time
	Label          string
	TimeKey        string
	BookedByOthers bool
}

// DaySlots groups one calendar day's ordered candidate slots. A day the
// provider is not available on carries an empty slot list.
type DaySlots struct {
	Date  time.Time
	Slots []Slot
}

// Occupancy maps a DateKey to the set of normalized time keys already taken
// for that date. It records presence only, no holder identity.
type Occupancy map[string]map[string]struct{}

// DateKey renders the registry's calendar-date key, e.g. "9_6_2025" for
// 9 June 2025. No zero padding.
func DateKey(t time.Time) string {
	return fmt.Sprintf("%d_%d_%d", t.Day(), int(t.Month()), t.Year())
}

// NewOccupancy builds set form from a raw date -> time strings mapping,
// normalizing every time string.
func NewOccupancy(raw map[string][]string) Occupancy {
	occ := make(Occupancy, len(raw))
	for dateKey, times := range raw {
		set := make(map[string]struct{}, len(times))
		for _, t := range times {
			set[NormalizeTimeKey(t)] = struct{}{}
		}
		occ[dateKey] = set
	}
	return occ
}

// Occupied reports whether timeKey is taken on the given date.
func (o Occupancy) Occupied(dateKey, timeKey string) bool {
	set, ok := o[dateKey]
	if !ok {
		return false
	}
	_, taken := set[timeKey]
	return taken
}

type session struct {
	start time.Time
	end   time.Time
}

// GenerateWeek computes the candidate slots for the HorizonDays-day window
// starting at now's date. Pure function of its inputs: safe for any number
// of concurrent callers.
//
// Per day: the weekday's template entry decides availability; the morning
// session is always present when available, the evening session only when
// HasEvening is set. Slots step by exactly SlotInterval and never straddle
// a session boundary. For today, a session already underway starts at the
// next interval boundary at or after now; a session already over yields
// nothing.
func GenerateWeek(week WeekSchedule, now time.Time, occ Occupancy) []DaySlots {
	days := make([]DaySlots, 0, HorizonDays)
	for offset := 0; offset < HorizonDays; offset++ {
		date := now.AddDate(0, 0, offset)
		day := week[int(date.Weekday())]

		ds := DaySlots{Date: midnightOf(date)}
		if day.Available {
			for _, sess := range sessionsFor(day, date) {
				ds.Slots = append(ds.Slots, sessionSlots(sess, offset == 0, now, occ)...)
			}
		}
		days = append(days, ds)
	}
	return days
}

// sessionsFor builds the day's ordered session windows from the template.
// A session with unparsable or inverted bounds contributes nothing.
func sessionsFor(day DaySchedule, date time.Time) []session {
	sessions := make([]session, 0, 2)
	if s, ok := sessionWindow(date, day.StartTime, day.EndTime); ok {
		sessions = append(sessions, s)
	}
	if day.HasEvening {
		if s, ok := sessionWindow(date, day.EveningStart, day.EveningEnd); ok {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

func sessionWindow(date time.Time, startStr, endStr string) (session, bool) {
	start, ok := clockOn(date, startStr)
	if !ok {
		return session{}, false
	}
	end, ok := clockOn(date, endStr)
	if !ok || !start.Before(end) {
		return session{}, false
	}
	return session{start: start, end: end}, true
}

// clockOn anchors a wall-clock string onto the given calendar date.
func clockOn(date time.Time, clock string) (time.Time, bool) {
	key, ok := ParseTimeKey(clock)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04", key)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), true
}

// sessionSlots emits the session's candidates from effective start
// (inclusive) to end (exclusive).
func sessionSlots(sess session, today bool, now time.Time, occ Occupancy) []Slot {
	start := sess.start
	if today {
		if !now.Before(sess.end) {
			return nil
		}
		if now.After(start) {
			start = ceilToInterval(now)
		}
	}

	dateKey := DateKey(sess.start)
	var slots []Slot
	for t := start; t.Before(sess.end); t = t.Add(SlotInterval) {
		key := t.Format("15:04")
		slots = append(slots, Slot{
			Start:          t,
			Label:          t.Format("3:04 PM"),
			TimeKey:        key,
			BookedByOthers: occ.Occupied(dateKey, key),
		})
	}
	return slots
}

// ceilToInterval rounds up to the next interval boundary at or after t,
// measured on the wall clock of t's own day.
func ceilToInterval(t time.Time) time.Time {
	day := midnightOf(t)
	elapsed := t.Sub(day)
	rounded := (elapsed + SlotInterval - 1) / SlotInterval * SlotInterval
	return day.Add(rounded)
}

func midnightOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
