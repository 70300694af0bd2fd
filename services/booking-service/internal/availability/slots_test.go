package availability

import (
	"reflect"
	"testing"

	"github.com/clinica-estetica/turnos/services/booking-service/internal/model"
)

func hm(h, m int) model.Clock { return model.Clock(h)*model.Hour + model.Clock(m)*model.Minute }

func times(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Time.String())
	}
	return out
}

func mondayMorning() model.ScheduleRule {
	return model.ScheduleRule{Weekday: 1, Start: hm(9, 0), End: hm(10, 0), DurationMinutes: 20, Active: true}
}

func TestGenerateSlots_Example(t *testing.T) {
	rules := []model.ScheduleRule{mondayMorning()}

	got := times(GenerateSlots(rules, nil))
	want := []string{"09:00:00", "09:20:00", "09:40:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got = times(GenerateSlots(rules, BookedSet([]model.Clock{hm(9, 20)})))
	want = []string{"09:00:00", "09:40:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("after booking 09:20 expected %v, got %v", want, got)
	}
}

func TestGenerateSlots_OnlyWholeSlots(t *testing.T) {
	// 50 minutes by 20 leaves a partial slot at 09:40 that must not be emitted.
	rule := model.ScheduleRule{Weekday: 2, Start: hm(9, 0), End: hm(9, 50), DurationMinutes: 20, Active: true}
	got := times(GenerateSlots([]model.ScheduleRule{rule}, nil))
	if !reflect.DeepEqual(got, []string{"09:00:00", "09:20:00"}) {
		t.Fatalf("unexpected slots %v", got)
	}
}

func TestGenerateSlots_CountMatchesFloor(t *testing.T) {
	cases := [][]model.ScheduleRule{
		{mondayMorning()},
		{
			{Weekday: 3, Start: hm(14, 0), End: hm(18, 30), DurationMinutes: 45, Active: true},
			{Weekday: 3, Start: hm(8, 0), End: hm(12, 0), DurationMinutes: 30, Active: true},
		},
		{{Weekday: 4, Start: hm(10, 0), End: hm(10, 15), DurationMinutes: 30, Active: true}},
	}
	for i, rules := range cases {
		if got, want := len(GenerateSlots(rules, nil)), CountSlots(rules); got != want {
			t.Fatalf("case %d: expected %d slots, got %d", i, want, got)
		}
	}
}

func TestGenerateSlots_SortsRulesByStart(t *testing.T) {
	rules := []model.ScheduleRule{
		{Weekday: 5, Start: hm(15, 0), End: hm(16, 0), DurationMinutes: 30, Active: true},
		{Weekday: 5, Start: hm(9, 0), End: hm(10, 0), DurationMinutes: 30, Active: true},
	}
	got := times(GenerateSlots(rules, nil))
	want := []string{"09:00:00", "09:30:00", "15:00:00", "15:30:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestGenerateSlots_SkipsInactiveAndEmpty(t *testing.T) {
	inactive := mondayMorning()
	inactive.Active = false
	if got := GenerateSlots([]model.ScheduleRule{inactive}, nil); len(got) != 0 {
		t.Fatalf("inactive rule produced slots: %v", times(got))
	}
	if got := GenerateSlots(nil, nil); len(got) != 0 {
		t.Fatal("no rules should produce no slots")
	}
}

func TestGenerateSlots_DedupesOverlappingRules(t *testing.T) {
	rules := []model.ScheduleRule{
		{Weekday: 1, Start: hm(9, 0), End: hm(10, 0), DurationMinutes: 30, Active: true},
		{Weekday: 1, Start: hm(9, 30), End: hm(10, 30), DurationMinutes: 30, Active: true},
		{Weekday: 1, Start: hm(9, 15), End: hm(9, 45), DurationMinutes: 30, Active: true},
	}
	got := times(GenerateSlots(rules, nil))
	want := []string{"09:00:00", "09:15:00", "09:30:00", "10:00:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestGenerateSlots_Idempotent(t *testing.T) {
	rules := []model.ScheduleRule{mondayMorning()}
	booked := BookedSet([]model.Clock{hm(9, 0)})
	a := GenerateSlots(rules, booked)
	b := GenerateSlots(rules, booked)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("results differ: %v vs %v", times(a), times(b))
	}
}

func TestGenerateSlots_BookedOutsideCoverageIgnored(t *testing.T) {
	rules := []model.ScheduleRule{mondayMorning()}
	got := GenerateSlots(rules, BookedSet([]model.Clock{hm(9, 10), hm(11, 0)}))
	if len(got) != 3 {
		t.Fatalf("bookings off the grid must not remove slots, got %v", times(got))
	}
}

func TestContains(t *testing.T) {
	rules := []model.ScheduleRule{mondayMorning()}
	if !Contains(rules, hm(9, 40)) {
		t.Fatal("09:40 should be a slot")
	}
	if Contains(rules, hm(10, 0)) || Contains(rules, hm(9, 10)) {
		t.Fatal("10:00 and 09:10 are not slots")
	}
}
