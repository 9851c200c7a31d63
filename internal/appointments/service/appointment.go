package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appterrors "clinicops/internal/appointments/errors"
	"clinicops/internal/appointments/repository"
	"clinicops/internal/appointments/validator"
	"clinicops/pkg/config"
	apperrors "clinicops/pkg/errors"
	"clinicops/pkg/kafka"
	"clinicops/pkg/model"
	"clinicops/pkg/sanitizer"
	"clinicops/pkg/slot"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	EventAppointmentBooked    = "appointment.booked"
	EventAppointmentUpdated   = "appointment.updated"
	EventAppointmentCancelled = "appointment.cancelled"
	EventAppointmentDeleted   = "appointment.deleted"

	eventSource        = "appointments"
	eventSchemaVersion = "1"
)

// EventPublisher is the slice of the Kafka producer the service needs.
type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type AppointmentService interface {
	Book(ctx context.Context, appt *model.Appointment) (*model.Appointment, error)
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Appointment, int64, error)
	Update(ctx context.Context, id string, update *model.AppointmentUpdate) (*model.Appointment, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, patientID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Appointment, int64, error)
	ListSlots(ctx context.Context, start, end time.Time) ([]model.SlotAvailability, error)
}

type appointmentService struct {
	cfg       *config.Config
	repo      repository.AppointmentRepository
	ledger    repository.SlotLedgerRepository
	validator *validator.AppointmentValidator
	clock     *slot.Clock
	publisher EventPublisher
}

func NewAppointmentService(
	cfg *config.Config,
	repo repository.AppointmentRepository,
	ledger repository.SlotLedgerRepository,
	val *validator.AppointmentValidator,
	clock *slot.Clock,
	publisher EventPublisher,
) AppointmentService {
	return &appointmentService{
		cfg:       cfg,
		repo:      repo,
		ledger:    ledger,
		validator: val,
		clock:     clock,
		publisher: publisher,
	}
}

// Book creates an appointment. Clinic appointments go through the slot
// ledger: the reservation lands first, then the record is persisted, and a
// failed persist rolls the reservation back. The ledger is the only
// serialization point, so two racing requests for the last opening resolve
// without ever reading a count.
func (s *appointmentService) Book(ctx context.Context, appt *model.Appointment) (*model.Appointment, error) {
	s.sanitizeAppointment(appt)
	s.applyDefaults(appt)

	if !appt.SlotConstrained() {
		if err := s.validator.Validate(appt); err != nil {
			return nil, apperrors.Validation("Appointment validation failed", map[string]any{"errors": err.Error()})
		}
		if err := s.persistNew(ctx, appt); err != nil {
			return nil, apperrors.Internal("Failed to create appointment", err)
		}
		s.publishEvent(ctx, EventAppointmentBooked, appt)
		return appt, nil
	}

	key, err := s.clock.SlotFor(appt.StartAt)
	if err != nil {
		return nil, apperrors.InvalidTime(fmt.Sprintf(
			"Requested time %s is outside the clinic booking window",
			appt.StartAt.Format(time.RFC3339),
		))
	}
	appt.StartAt = key.Start
	appt.EndAt = key.Start.Add(s.clock.Granularity())

	if err := s.validator.Validate(appt); err != nil {
		return nil, apperrors.Validation("Appointment validation failed", map[string]any{"errors": err.Error()})
	}

	if err := s.ledger.TryReserve(ctx, key); err != nil {
		if errors.Is(err, appterrors.ErrSlotFull) {
			return nil, apperrors.SlotFull(fmt.Sprintf(
				"The %s slot on %s has no remaining capacity", key.Start.UTC().Format("15:04"), key.Date,
			))
		}
		return nil, apperrors.Internal("Failed to reserve slot", err)
	}

	if err := s.persistNew(ctx, appt); err != nil {
		s.releaseDetached(ctx, key)
		return nil, apperrors.SlotBookingFailed(
			"Appointment could not be saved and the slot reservation was rolled back, please retry", err,
		)
	}

	s.publishEvent(ctx, EventAppointmentBooked, appt)
	return appt, nil
}

func (s *appointmentService) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateRepoError(err, id, "fetch")
	}
	return appt, nil
}

func (s *appointmentService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Appointment, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		wg       sync.WaitGroup
		appts    []*model.Appointment
		total    int64
		findErr  error
		countErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		appts, findErr = s.repo.FindAll(ctx, limit, offset)
	}()
	go func() {
		defer wg.Done()
		total, countErr = s.repo.Count(ctx)
	}()
	wg.Wait()

	if findErr != nil {
		return nil, 0, apperrors.Internal("Failed to fetch appointments", findErr)
	}
	if countErr != nil {
		return nil, 0, apperrors.Internal("Failed to count appointments", countErr)
	}

	return appts, total, nil
}

// Update applies a partial update. When the update moves a clinic
// appointment across slot boundaries, or into or out of slot accounting, the
// new slot is reserved before anything is persisted and the old one is
// released only after the persist succeeds, so a failure at any step never
// leaks capacity. The persist itself is guarded against concurrent writers,
// which keeps a double cancel from releasing the same reservation twice.
func (s *appointmentService) Update(ctx context.Context, id string, update *model.AppointmentUpdate) (*model.Appointment, error) {
	s.sanitizeUpdate(update)
	if err := s.validator.ValidateUpdate(update); err != nil {
		return nil, apperrors.Validation("Appointment update validation failed", map[string]any{"errors": err.Error()})
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateRepoError(err, id, "update")
	}

	merged := mergeUpdate(existing, update)

	oldConstrained := existing.SlotConstrained()
	var oldKey slot.Key
	if oldConstrained {
		k, err := s.clock.SlotFor(existing.StartAt)
		if err != nil {
			// Stored start predates a window reconfiguration; there is no
			// current ledger row to release.
			s.cfg.Log.Warn("Stored appointment start is outside the current clinic window",
				"appointment_id", id, "start_at", existing.StartAt)
			oldConstrained = false
		} else {
			oldKey = k
		}
	}

	newConstrained := merged.SlotConstrained()
	var newKey slot.Key
	if newConstrained {
		k, err := s.clock.SlotFor(merged.StartAt)
		if err != nil {
			return nil, apperrors.InvalidTime(fmt.Sprintf(
				"Requested time %s is outside the clinic booking window",
				merged.StartAt.Format(time.RFC3339),
			))
		}
		newKey = k
		merged.StartAt = k.Start
		merged.EndAt = k.Start.Add(s.clock.Granularity())
	}

	if err := s.validator.Validate(merged); err != nil {
		return nil, apperrors.Validation("Appointment validation failed", map[string]any{"errors": err.Error()})
	}

	needReserve := newConstrained && (!oldConstrained || newKey != oldKey)
	needRelease := oldConstrained && (!newConstrained || newKey != oldKey)

	if needReserve {
		if err := s.ledger.TryReserve(ctx, newKey); err != nil {
			if errors.Is(err, appterrors.ErrSlotFull) {
				return nil, apperrors.SlotFull(fmt.Sprintf(
					"The %s slot on %s has no remaining capacity", newKey.Start.UTC().Format("15:04"), newKey.Date,
				))
			}
			return nil, apperrors.Internal("Failed to reserve slot", err)
		}
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return s.repo.Update(sessCtx, id, merged, existing.UpdatedAt)
	})
	if err != nil {
		if needReserve {
			s.releaseDetached(ctx, newKey)
		}
		switch {
		case errors.Is(err, appterrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Appointment", id)
		case errors.Is(err, appterrors.ErrStaleDocument):
			return nil, apperrors.Conflict("Appointment was modified by another request, retry with fresh data")
		default:
			if needReserve {
				return nil, apperrors.SlotBookingFailed(
					"Appointment could not be updated and the slot reservation was rolled back, please retry", err,
				)
			}
			return nil, apperrors.Internal("Failed to update appointment", err)
		}
	}

	if needRelease {
		if err := s.ledger.Release(ctx, oldKey); err != nil {
			s.cfg.Log.Error("Failed to release previous slot after update",
				"appointment_id", id, "slot", oldKey.ID(), "error", err)
		}
	}

	eventType := EventAppointmentUpdated
	if existing.Status != model.StatusCancelled && merged.Status == model.StatusCancelled {
		eventType = EventAppointmentCancelled
	}
	s.publishEvent(ctx, eventType, merged)

	return merged, nil
}

func (s *appointmentService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.translateRepoError(err, id, "delete")
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return s.repo.Delete(sessCtx, id)
	})
	if err != nil {
		if errors.Is(err, appterrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Appointment", id)
		}
		return apperrors.Internal("Failed to delete appointment", err)
	}

	if existing.SlotConstrained() {
		if key, err := s.clock.SlotFor(existing.StartAt); err == nil {
			if err := s.ledger.Release(ctx, key); err != nil {
				s.cfg.Log.Error("Failed to release slot after delete",
					"appointment_id", id, "slot", key.ID(), "error", err)
			}
		}
	}

	s.publishEvent(ctx, EventAppointmentDeleted, existing)
	return nil
}

func (s *appointmentService) Search(
	ctx context.Context,
	patientID string,
	startTime, endTime *time.Time,
	limit int, offset int64,
) ([]*model.Appointment, int64, error) {
	if _, err := uuid.Parse(patientID); err != nil {
		return nil, 0, apperrors.InvalidInput("patient_id must be a valid UUID")
	}
	if startTime != nil && endTime != nil && !endTime.After(*startTime) {
		return nil, 0, apperrors.InvalidInput("end_time must be after start_time")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		wg       sync.WaitGroup
		appts    []*model.Appointment
		total    int64
		findErr  error
		countErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		appts, findErr = s.repo.FindByPatientAndRange(ctx, patientID, startTime, endTime, limit, offset)
	}()
	go func() {
		defer wg.Done()
		total, countErr = s.repo.CountByPatientAndRange(ctx, patientID, startTime, endTime)
	}()
	wg.Wait()

	if findErr != nil {
		return nil, 0, apperrors.Internal("Failed to search appointments", findErr)
	}
	if countErr != nil {
		return nil, 0, apperrors.Internal("Failed to count appointments", countErr)
	}

	return appts, total, nil
}

func (s *appointmentService) persistNew(ctx context.Context, appt *model.Appointment) error {
	return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return s.repo.Create(sessCtx, appt)
	})
}

// releaseDetached rolls back a reservation on a context that survives
// request cancellation. A client that gives up mid-booking must not leave a
// phantom occupant in the slot.
func (s *appointmentService) releaseDetached(ctx context.Context, key slot.Key) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()

	if err := s.ledger.Release(detached, key); err != nil {
		s.cfg.Log.Error("Failed to roll back slot reservation", "slot", key.ID(), "error", err)
	}
}

func (s *appointmentService) publishEvent(ctx context.Context, eventType string, appt *model.Appointment) {
	if s.publisher == nil {
		return
	}

	msg := kafka.NewMessage().
		WithKey(appt.ID).
		WithEventType(eventType).
		WithPatientID(appt.PatientID).
		WithSource(eventSource).
		WithSchemaVersion(eventSchemaVersion).
		WithValue(appt).
		Build()

	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.cfg.Log.Warn("Failed to publish appointment event",
			"event_type", eventType, "appointment_id", appt.ID, "error", err)
	}
}

func (s *appointmentService) translateRepoError(err error, id, action string) error {
	switch {
	case errors.Is(err, appterrors.ErrInvalidID):
		return apperrors.InvalidInput("Appointment ID must be a valid UUID")
	case errors.Is(err, appterrors.ErrNotFound):
		return apperrors.NotFoundWithID("Appointment", id)
	default:
		return apperrors.Internal(fmt.Sprintf("Failed to %s appointment", action), err)
	}
}

func (s *appointmentService) sanitizeAppointment(appt *model.Appointment) {
	appt.Title = sanitizer.SanitizeTitle(appt.Title)
	appt.Description = sanitizer.SanitizeFreeText(appt.Description)
	appt.PatientID = sanitizer.TrimAndNormalize(appt.PatientID)
	appt.Location = sanitizer.TrimAndNormalize(appt.Location)
	appt.Status = sanitizer.TrimAndNormalize(appt.Status)
}

func (s *appointmentService) sanitizeUpdate(update *model.AppointmentUpdate) {
	update.Title = sanitizer.SanitizeTitle(update.Title)
	if update.Description != nil {
		clean := sanitizer.SanitizeFreeText(*update.Description)
		update.Description = &clean
	}
	update.Location = sanitizer.TrimAndNormalize(update.Location)
	update.Status = sanitizer.TrimAndNormalize(update.Status)
}

func (s *appointmentService) applyDefaults(appt *model.Appointment) {
	if appt.Status == "" {
		appt.Status = model.StatusScheduled
	}
	if appt.EndAt.IsZero() && !appt.StartAt.IsZero() {
		appt.EndAt = appt.StartAt.Add(s.clock.Granularity())
	}
}

func mergeUpdate(existing *model.Appointment, update *model.AppointmentUpdate) *model.Appointment {
	merged := *existing

	if update.Title != "" {
		merged.Title = update.Title
	}
	if update.Description != nil {
		merged.Description = *update.Description
	}
	if update.Location != "" {
		merged.Location = update.Location
	}
	if update.Status != "" {
		merged.Status = update.Status
	}
	if update.StartAt != nil {
		merged.StartAt = *update.StartAt
		if update.EndAt == nil {
			// Reschedules keep the original duration unless told otherwise.
			merged.EndAt = merged.StartAt.Add(existing.EndAt.Sub(existing.StartAt))
		}
	}
	if update.EndAt != nil {
		merged.EndAt = *update.EndAt
	}

	return &merged
}
