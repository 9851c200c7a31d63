package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	appterrors "clinicops/internal/appointments/errors"
	"clinicops/pkg/config"
	"clinicops/pkg/model"
	"clinicops/pkg/slot"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SlotCapacityCollectionName = "Slot_capacities"
)

// SlotLedgerRepository is the durable slot capacity counter. TryReserve and
// Release are each a single conditional write, which makes them the
// serialization point for overbooking: two racing reservations on the last
// opening cannot both succeed.
type SlotLedgerRepository interface {
	TryReserve(ctx context.Context, key slot.Key) error
	Release(ctx context.Context, key slot.Key) error
	Remaining(ctx context.Context, key slot.Key) (int, error)
	RemainingForKeys(ctx context.Context, keys []slot.Key) (map[string]int, error)
	MaxCapacity() int
}

type mongoSlotLedgerRepository struct {
	cfg         *config.Config
	collection  *mongo.Collection
	maxCapacity int
}

func NewMongoSlotLedgerRepository(cfg *config.Config) SlotLedgerRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotLedgerRepository{
		cfg:         cfg,
		collection:  db.Collection(SlotCapacityCollectionName),
		maxCapacity: cfg.SlotMaxCapacity,
	}
}

func (r *mongoSlotLedgerRepository) MaxCapacity() int {
	return r.maxCapacity
}

func (r *mongoSlotLedgerRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// TryReserve increments the slot counter iff it is below capacity, creating
// the ledger row on first use. The filter only matches rows with spare
// capacity; when the row exists at capacity the filter misses, the upsert
// tries to insert a duplicate _id and Mongo rejects it, which is exactly the
// slot-full signal. One statement, no read-modify-write window.
func (r *mongoSlotLedgerRepository) TryReserve(ctx context.Context, key slot.Key) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":          key.ID(),
		"booked_count": bson.M{"$lt": r.maxCapacity},
	}
	update := bson.M{
		"$inc": bson.M{"booked_count": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
		"$setOnInsert": bson.M{
			"date":       key.Date,
			"slot_start": key.Start,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", appterrors.ErrSlotFull, key.ID())
		}
		return fmt.Errorf("failed to reserve slot %s: %w", key.ID(), err)
	}

	return nil
}

// Release decrements the slot counter, floored at zero. Releasing a slot that
// was never reserved is a no-op, so compensation paths may call it without
// tracking whether their reservation landed.
func (r *mongoSlotLedgerRepository) Release(ctx context.Context, key slot.Key) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":          key.ID(),
		"booked_count": bson.M{"$gt": 0},
	}
	update := bson.M{
		"$inc": bson.M{"booked_count": -1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to release slot %s: %w", key.ID(), err)
	}

	return nil
}

func (r *mongoSlotLedgerRepository) Remaining(ctx context.Context, key slot.Key) (int, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var row model.SlotCapacity
	err := r.collection.FindOne(ctx, bson.M{"_id": key.ID()}).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return r.maxCapacity, nil
		}
		return 0, fmt.Errorf("failed to read slot %s: %w", key.ID(), err)
	}

	return clampRemaining(r.maxCapacity, row.BookedCount), nil
}

// RemainingForKeys reads the counters for a batch of slots in one query.
// Slots with no ledger row have never been booked and report full capacity.
func (r *mongoSlotLedgerRepository) RemainingForKeys(ctx context.Context, keys []slot.Key) (map[string]int, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	remaining := make(map[string]int, len(keys))
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		remaining[k.ID()] = r.maxCapacity
		ids = append(ids, k.ID())
	}

	if len(ids) == 0 {
		return remaining, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to read slot capacities: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []model.SlotCapacity
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode slot capacities: %w", err)
	}

	for _, row := range rows {
		remaining[row.ID] = clampRemaining(r.maxCapacity, row.BookedCount)
	}

	return remaining, nil
}

func clampRemaining(maxCapacity, bookedCount int) int {
	remaining := maxCapacity - bookedCount
	if remaining < 0 {
		return 0
	}
	if remaining > maxCapacity {
		return maxCapacity
	}
	return remaining
}
