package scheduler

import (
	"testing"
	"time"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler(time.UTC)
	defer s.Stop()
	if err := s.AddJob("* * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
	if err := s.AddJob("not a cron expr", func() {}); err == nil {
		t.Error("Expected error for invalid expression")
	}
}

func TestSchedulerDailyAndHourly(t *testing.T) {
	s := NewScheduler(nil)
	defer s.Stop()
	if err := s.AddDailyAt(0, 5, func() {}); err != nil {
		t.Errorf("AddDailyAt() error = %v", err)
	}
	if err := s.AddHourly(func() {}); err != nil {
		t.Errorf("AddHourly() error = %v", err)
	}
}
