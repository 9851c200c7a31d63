package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	appterrors "clinicops/internal/appointments/errors"
	"clinicops/pkg/config"
	mongotx "clinicops/pkg/db/mongo"
	"clinicops/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Appointments"
)

type mongoAppointmentRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type AppointmentRepository interface {
	Create(ctx context.Context, appt *model.Appointment) error
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Appointment, error)
	Update(ctx context.Context, id string, appt *model.Appointment, expectedUpdatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	FindByPatientAndRange(ctx context.Context, patientID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Appointment, error)
	CountByPatientAndRange(ctx context.Context, patientID string, startTime, endTime *time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoAppointmentRepository(cfg *config.Config) AppointmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a
// transaction. SessionContext cannot be wrapped without breaking transaction
// semantics, so inside a transaction the context passes through unchanged.
func (r *mongoAppointmentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoAppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	appt.CreatedAt = now
	appt.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, appt); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", appterrors.ErrInvalidID, id)
	}

	var appt model.Appointment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&appt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}

	return &appt, nil
}

func (r *mongoAppointmentRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appts []*model.Appointment
	if err = cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}

	return appts, nil
}

// Update persists the full document under a compare-and-set guard on
// updated_at. A stale guard means another writer got there first; the caller
// must re-read before retrying, which keeps slot accounting from running
// twice for the same transition.
func (r *mongoAppointmentRepository) Update(ctx context.Context, id string, appt *model.Appointment, expectedUpdatedAt time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", appterrors.ErrInvalidID, id)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	filter := bson.M{"_id": id, "updated_at": expectedUpdatedAt}
	update := bson.M{
		"$set": bson.M{
			"title":       appt.Title,
			"description": appt.Description,
			"location":    appt.Location,
			"status":      appt.Status,
			"start_at":    appt.StartAt,
			"end_at":      appt.EndAt,
			"updated_at":  now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to check appointment existence: %w", err)
		}
		if count == 0 {
			return appterrors.ErrNotFound
		}
		return appterrors.ErrStaleDocument
	}

	appt.UpdatedAt = now
	return nil
}

func (r *mongoAppointmentRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", appterrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	if result.DeletedCount == 0 {
		return appterrors.ErrNotFound
	}

	return nil
}

func (r *mongoAppointmentRepository) FindByPatientAndRange(
	ctx context.Context,
	patientID string,
	startTime, endTime *time.Time,
	limit int, offset int64,
) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := r.buildSearchFilter(patientID, startTime, endTime)

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "start_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appts []*model.Appointment
	if err = cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}

	return appts, nil
}

func (r *mongoAppointmentRepository) CountByPatientAndRange(
	ctx context.Context,
	patientID string,
	startTime, endTime *time.Time,
) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := r.buildSearchFilter(patientID, startTime, endTime)

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments by search: %w", err)
	}
	return count, nil
}

func (r *mongoAppointmentRepository) buildSearchFilter(patientID string, startTime, endTime *time.Time) bson.M {
	filter := bson.M{
		"patient_id": patientID,
	}

	if startTime != nil || endTime != nil {
		timeFilters := bson.M{}
		if startTime != nil && endTime != nil {
			timeFilters = bson.M{
				"start_at": bson.M{"$lt": *endTime},
				"end_at":   bson.M{"$gt": *startTime},
			}
		} else if startTime != nil {
			timeFilters = bson.M{
				"end_at": bson.M{"$gt": *startTime},
			}
		} else if endTime != nil {
			timeFilters = bson.M{
				"start_at": bson.M{"$lt": *endTime},
			}
		}

		filter["$and"] = []bson.M{timeFilters}
	}

	return filter
}

func (r *mongoAppointmentRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	return count, nil
}

func (r *mongoAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
