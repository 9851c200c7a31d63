package slot

import (
	"errors"
	"testing"
	"time"
)

func newTestClock(t *testing.T, tz string) *Clock {
	t.Helper()
	c, err := NewClock(tz, "08:00", "11:30", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewClock failed: %v", err)
	}
	return c
}

func TestNewClockValidation(t *testing.T) {
	tests := []struct {
		name        string
		tz          string
		start       string
		end         string
		granularity time.Duration
		wantErr     bool
	}{
		{"valid", "UTC", "08:00", "11:30", 15 * time.Minute, false},
		{"bad time zone", "Atlantis/Nowhere", "08:00", "11:30", 15 * time.Minute, true},
		{"bad start format", "UTC", "8am", "11:30", 15 * time.Minute, true},
		{"bad end format", "UTC", "08:00", "25:00", 15 * time.Minute, true},
		{"zero granularity", "UTC", "08:00", "11:30", 0, true},
		{"window smaller than one slot", "UTC", "08:00", "08:10", 15 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClock(tt.tz, tt.start, tt.end, tt.granularity)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClock error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnumerateSlots(t *testing.T) {
	clock := newTestClock(t, "UTC")
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	keys := clock.EnumerateSlots(date)

	// 08:00 through 11:15 inclusive: 14 slots. The 11:30 slot would end at
	// 11:45, past window end, so it is excluded.
	if len(keys) != 14 {
		t.Fatalf("expected 14 slots, got %d", len(keys))
	}

	first := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	if !keys[0].Start.Equal(first) {
		t.Errorf("first slot = %v, want %v", keys[0].Start, first)
	}

	last := time.Date(2026, 9, 1, 11, 15, 0, 0, time.UTC)
	if !keys[len(keys)-1].Start.Equal(last) {
		t.Errorf("last slot = %v, want %v", keys[len(keys)-1].Start, last)
	}

	for i := 1; i < len(keys); i++ {
		if got := keys[i].Start.Sub(keys[i-1].Start); got != 15*time.Minute {
			t.Errorf("gap between slot %d and %d = %v, want 15m", i-1, i, got)
		}
	}
}

func TestSlotForFlooring(t *testing.T) {
	clock := newTestClock(t, "UTC")

	tests := []struct {
		name      string
		instant   time.Time
		wantStart time.Time
		wantErr   bool
	}{
		{
			name:      "exactly on boundary maps to that boundary",
			instant:   time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			name:      "sub-slot offset floors down",
			instant:   time.Date(2026, 9, 1, 9, 7, 0, 0, time.UTC),
			wantStart: time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name:      "one second before window end maps to last slot",
			instant:   time.Date(2026, 9, 1, 11, 29, 59, 0, time.UTC),
			wantStart: time.Date(2026, 9, 1, 11, 15, 0, 0, time.UTC),
		},
		{
			name:    "exactly at window end is rejected",
			instant: time.Date(2026, 9, 1, 11, 30, 0, 0, time.UTC),
			wantErr: true,
		},
		{
			name:    "before window start is rejected",
			instant: time.Date(2026, 9, 1, 7, 59, 59, 0, time.UTC),
			wantErr: true,
		},
		{
			name:    "middle of the night is rejected",
			instant: time.Date(2026, 9, 1, 2, 30, 0, 0, time.UTC),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := clock.SlotFor(tt.instant)
			if tt.wantErr {
				if !errors.Is(err, ErrOutsideWindow) {
					t.Fatalf("expected ErrOutsideWindow, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SlotFor failed: %v", err)
			}
			if !key.Start.Equal(tt.wantStart) {
				t.Errorf("slot start = %v, want %v", key.Start, tt.wantStart)
			}
		})
	}
}

func TestSlotForIdempotent(t *testing.T) {
	clock := newTestClock(t, "UTC")

	for _, instant := range []time.Time{
		time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 1, 9, 7, 33, 0, time.UTC),
		time.Date(2026, 9, 1, 11, 29, 59, 0, time.UTC),
	} {
		first, err := clock.SlotFor(instant)
		if err != nil {
			t.Fatalf("SlotFor(%v) failed: %v", instant, err)
		}
		second, err := clock.SlotFor(first.Start)
		if err != nil {
			t.Fatalf("SlotFor(%v) failed on floored instant: %v", first.Start, err)
		}
		if second != first {
			t.Errorf("flooring not idempotent: %v -> %v -> %v", instant, first, second)
		}
	}
}

func TestSlotForDaylightSavingTransitions(t *testing.T) {
	clock := newTestClock(t, "Asia/Jerusalem")
	loc := clock.Location()

	t.Run("spring forward day", func(t *testing.T) {
		// Israel springs forward 02:00 -> 03:00 on 2026-03-27, so wall-clock
		// 08:05 is only 7h05m after midnight. The window is defined on the
		// wall clock and must still admit it.
		key, err := clock.SlotFor(time.Date(2026, 3, 27, 8, 5, 0, 0, loc))
		if err != nil {
			t.Fatalf("SlotFor failed: %v", err)
		}
		want := time.Date(2026, 3, 27, 8, 0, 0, 0, loc)
		if !key.Start.Equal(want) {
			t.Errorf("slot start = %v, want %v", key.Start, want)
		}
		if key.Date != "2026-03-27" {
			t.Errorf("slot date = %s, want 2026-03-27", key.Date)
		}

		if _, err := clock.SlotFor(time.Date(2026, 3, 27, 7, 59, 0, 0, loc)); !errors.Is(err, ErrOutsideWindow) {
			t.Errorf("expected ErrOutsideWindow before opening, got %v", err)
		}
	})

	t.Run("fall back day", func(t *testing.T) {
		// Clocks fall back 02:00 -> 01:00 on 2026-10-25, so late-morning wall
		// times sit more than 11h30m after midnight.
		key, err := clock.SlotFor(time.Date(2026, 10, 25, 11, 0, 0, 0, loc))
		if err != nil {
			t.Fatalf("SlotFor failed: %v", err)
		}
		want := time.Date(2026, 10, 25, 11, 0, 0, 0, loc)
		if !key.Start.Equal(want) {
			t.Errorf("slot start = %v, want %v", key.Start, want)
		}
	})

	t.Run("enumeration stays on the wall clock", func(t *testing.T) {
		keys := clock.EnumerateSlots(time.Date(2026, 3, 27, 12, 0, 0, 0, loc))
		if len(keys) != 14 {
			t.Fatalf("expected 14 slots, got %d", len(keys))
		}
		first := keys[0].Start.In(loc)
		if first.Hour() != 8 || first.Minute() != 0 {
			t.Errorf("first slot at wall-clock %02d:%02d, want 08:00", first.Hour(), first.Minute())
		}
	})
}

func TestSlotIdentityAcrossZones(t *testing.T) {
	clock := newTestClock(t, "Asia/Jerusalem")

	clinicLoc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}
	nyLoc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}

	// The same instant submitted by staff in different local zones must
	// resolve to the same slot key.
	clinicView := time.Date(2026, 9, 1, 9, 5, 0, 0, clinicLoc)
	nyView := clinicView.In(nyLoc)

	k1, err := clock.SlotFor(clinicView)
	if err != nil {
		t.Fatalf("SlotFor(clinic view) failed: %v", err)
	}
	k2, err := clock.SlotFor(nyView)
	if err != nil {
		t.Fatalf("SlotFor(ny view) failed: %v", err)
	}

	if k1 != k2 {
		t.Errorf("slot keys differ across zones: %+v vs %+v", k1, k2)
	}
	if k1.ID() != k2.ID() {
		t.Errorf("slot IDs differ across zones: %s vs %s", k1.ID(), k2.ID())
	}
}

func TestEnumerateRange(t *testing.T) {
	clock := newTestClock(t, "UTC")

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	keys := clock.EnumerateRange(start, end)
	if len(keys) != 4 {
		t.Fatalf("expected 4 slots in [09:00, 10:00), got %d", len(keys))
	}
	for _, k := range keys {
		if k.Start.Before(start) || !k.Start.Before(end) {
			t.Errorf("slot %v outside requested range", k.Start)
		}
	}

	t.Run("spanning two days", func(t *testing.T) {
		start := time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC)
		end := time.Date(2026, 9, 2, 8, 30, 0, 0, time.UTC)

		keys := clock.EnumerateRange(start, end)
		// Day one: 11:00, 11:15. Day two: 08:00, 08:15.
		if len(keys) != 4 {
			t.Fatalf("expected 4 slots across days, got %d", len(keys))
		}
		if keys[1].Date == keys[2].Date {
			t.Errorf("expected a date change between slot 1 and 2, got %s on both", keys[1].Date)
		}
	})

	t.Run("empty range", func(t *testing.T) {
		if got := clock.EnumerateRange(end, start); got != nil {
			t.Errorf("expected nil for inverted range, got %d slots", len(got))
		}
	})
}
