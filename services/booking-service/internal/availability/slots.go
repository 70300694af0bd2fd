package availability

import (
	"sort"

	"github.com/clinica-estetica/turnos/services/booking-service/internal/model"
)

// Slot is a free start time on a given day.
type Slot struct {
	Time model.Clock
}

// GenerateSlots walks each active rule from start to end in steps of its
// duration and returns the start times that are not booked, in chronological
// order. Only whole slots are emitted: t is a slot iff t+duration <= end.
// Overlapping rules that produce the same time yield it once.
func GenerateSlots(rules []model.ScheduleRule, booked map[model.Clock]struct{}) []Slot {
	active := make([]model.ScheduleRule, 0, len(rules))
	for _, r := range rules {
		if r.Active && r.DurationMinutes > 0 && r.Start < r.End {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Start < active[j].Start })

	seen := map[model.Clock]struct{}{}
	var slots []Slot
	for _, r := range active {
		step := r.Duration()
		for t := r.Start; t+step <= r.End; t += step {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			if _, taken := booked[t]; taken {
				continue
			}
			slots = append(slots, Slot{Time: t})
		}
	}

	// Staggered overlapping rules can interleave.
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })
	return slots
}

// Contains reports whether t is one of the slots the rules generate,
// ignoring bookings.
func Contains(rules []model.ScheduleRule, t model.Clock) bool {
	for _, s := range GenerateSlots(rules, nil) {
		if s.Time == t {
			return true
		}
	}
	return false
}

// CountSlots is the number of whole slots the active rules produce on an
// empty day, before deduplication.
func CountSlots(rules []model.ScheduleRule) int {
	n := 0
	for _, r := range rules {
		if r.Active && r.DurationMinutes > 0 && r.Start < r.End {
			n += int((r.End - r.Start) / r.Duration())
		}
	}
	return n
}

// BookedSet indexes booked times for membership checks.
func BookedSet(times []model.Clock) map[model.Clock]struct{} {
	set := make(map[model.Clock]struct{}, len(times))
	for _, t := range times {
		set[t] = struct{}{}
	}
	return set
}
