package errors

import "errors"

var (
	ErrNotFound = errors.New("appointment not found")

	ErrInvalidID = errors.New("invalid appointment ID format")

	// ErrStaleDocument signals a compare-and-set update that lost against a
	// concurrent writer. The caller must re-read and retry.
	ErrStaleDocument = errors.New("appointment was modified concurrently")

	// ErrSlotFull is the ledger's normal out-of-capacity result, not an
	// infrastructure fault.
	ErrSlotFull = errors.New("slot has no remaining capacity")
)
