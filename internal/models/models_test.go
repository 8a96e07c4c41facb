package models

import "testing"

func TestNextEnergyLevelCycle(t *testing.T) {
	cases := []struct {
		in, want EnergyLevel
	}{
		{EnergyLight, EnergyMedium},
		{EnergyMedium, EnergyHeavy},
		{EnergyHeavy, EnergyLight},
		{EnergyLevel("bogus"), EnergyMedium},
	}
	for _, c := range cases {
		if got := NextEnergyLevel(c.in); got != c.want {
			t.Errorf("NextEnergyLevel(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestNewHourTasksHasAllCategories(t *testing.T) {
	h := NewHourTasks()
	if len(h) != 3 {
		t.Fatalf("expected 3 category buckets, got %d", len(h))
	}
	for _, c := range CategoryOrder {
		tasks, ok := h[c]
		if !ok {
			t.Errorf("missing bucket for category %s", c)
		}
		if tasks == nil || len(tasks) != 0 {
			t.Errorf("expected empty list for category %s", c)
		}
	}
}

func TestTaskValidate(t *testing.T) {
	task := Task{Text: "   "}
	if err := task.Validate(); err != ErrEmptyTaskText {
		t.Errorf("expected ErrEmptyTaskText, got %v", err)
	}
	task = Task{Text: "water plants", Repeat: Repeat("SOMETIMES")}
	if err := task.Validate(); err != ErrUnknownRepeat {
		t.Errorf("expected ErrUnknownRepeat, got %v", err)
	}
	task = Task{Text: "water plants", Repeat: RepeatDaily}
	if err := task.Validate(); err != nil {
		t.Errorf("expected valid task, got %v", err)
	}
}

func TestTimeOfDayForHour(t *testing.T) {
	cases := []struct {
		hour int
		want TimeOfDay
	}{
		{6, TimeMorning},
		{11, TimeMorning},
		{12, TimeAfternoon},
		{16, TimeAfternoon},
		{17, TimeEvening},
		{21, TimeEvening},
		{22, TimeNight},
		{3, TimeNight},
	}
	for _, c := range cases {
		if got := TimeOfDayForHour(c.hour); got != c.want {
			t.Errorf("TimeOfDayForHour(%d) = %s, want %s", c.hour, got, c.want)
		}
	}
}

func TestCoachResponseNormalize(t *testing.T) {
	var r CoachResponse
	r.Normalize()
	if r.Highlights == nil || r.Suggestions == nil || r.IgnoredMonthlies == nil {
		t.Error("Normalize should replace nil slices with empty ones")
	}
}
