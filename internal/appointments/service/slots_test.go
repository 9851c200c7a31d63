package service

import (
	"context"
	"testing"
	"time"

	apperrors "clinicops/pkg/errors"
)

func TestListSlotsReportsRemainingCapacity(t *testing.T) {
	ledger := newFakeLedger(4)
	svc := newTestService(t, newFakeRepo(), ledger, nil)

	start := clinicTime(t, 8, 0)
	for i := 0; i < 2; i++ {
		if _, err := svc.Book(context.Background(), clinicAppointment(start)); err != nil {
			t.Fatalf("booking %d failed: %v", i, err)
		}
	}

	dayStart := clinicTime(t, 0, 0)
	slots, err := svc.ListSlots(context.Background(), dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}

	// 08:00 through 11:15 inclusive in 15-minute steps.
	if len(slots) != 14 {
		t.Fatalf("expected 14 slots, got %d", len(slots))
	}

	if !slots[0].SlotTime.Equal(start.UTC()) {
		t.Errorf("expected first slot at %v, got %v", start.UTC(), slots[0].SlotTime)
	}
	if slots[0].Remaining != 2 || slots[0].Total != 4 {
		t.Errorf("expected 2 of 4 remaining in first slot, got %d of %d", slots[0].Remaining, slots[0].Total)
	}

	for i, s := range slots[1:] {
		if s.Remaining != 4 {
			t.Errorf("slot %d: expected untouched slot to report full capacity, got %d", i+1, s.Remaining)
		}
		if !s.SlotTime.After(slots[i].SlotTime) {
			t.Errorf("slot %d: expected ascending order", i+1)
		}
	}
}

func TestListSlotsValidatesRange(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), newFakeLedger(4), nil)

	start := clinicTime(t, 8, 0)

	_, err := svc.ListSlots(context.Background(), start, start)
	assertCode(t, err, apperrors.CodeInvalidInput)

	_, err = svc.ListSlots(context.Background(), start, start.Add(-time.Hour))
	assertCode(t, err, apperrors.CodeInvalidInput)

	_, err = svc.ListSlots(context.Background(), start, start.Add(32*24*time.Hour))
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestListSlotsOutsideWindowIsEmpty(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), newFakeLedger(4), nil)

	start := clinicTime(t, 13, 0)
	slots, err := svc.ListSlots(context.Background(), start, start.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots in the afternoon, got %d", len(slots))
	}
}
