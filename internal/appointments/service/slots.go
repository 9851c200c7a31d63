package service

import (
	"context"
	"time"

	apperrors "clinicops/pkg/errors"
	"clinicops/pkg/model"
)

// Slot availability queries are advisory. The counters can move between the
// read and any subsequent booking attempt; only the ledger write decides.
const maxSlotQueryRange = 31 * 24 * time.Hour

func (s *appointmentService) ListSlots(ctx context.Context, start, end time.Time) ([]model.SlotAvailability, error) {
	if !end.After(start) {
		return nil, apperrors.InvalidInput("end must be after start")
	}
	if end.Sub(start) > maxSlotQueryRange {
		return nil, apperrors.InvalidInput("slot query range cannot exceed 31 days")
	}

	keys := s.clock.EnumerateRange(start, end)

	remaining, err := s.ledger.RemainingForKeys(ctx, keys)
	if err != nil {
		return nil, apperrors.Internal("Failed to read slot capacities", err)
	}

	total := s.ledger.MaxCapacity()
	availability := make([]model.SlotAvailability, 0, len(keys))
	for _, k := range keys {
		rem, ok := remaining[k.ID()]
		if !ok {
			rem = total
		}
		availability = append(availability, model.SlotAvailability{
			SlotTime:  k.Start,
			Total:     total,
			Remaining: rem,
		})
	}

	return availability, nil
}
