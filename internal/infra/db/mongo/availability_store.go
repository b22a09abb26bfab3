package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staybook/internal/domain/availability"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/unit"
)

const dayFormat = "2006-01-02"

// AvailabilityStore keeps one document per claimed (unit, date). A unique
// index on (unit_id, date) makes the upsert in TrySetExclusive the
// linearization point: the loser of a race hits the index and the whole
// transaction rolls back.
type AvailabilityStore struct {
	col *mongo.Collection
}

func NewAvailabilityStore(db *mongo.Database) *AvailabilityStore {
	col := db.Collection("availability")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "unit_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &AvailabilityStore{col: col}
}

type slotDocument struct {
	UnitID    string    `bson:"unit_id"`
	Date      string    `bson:"date"`
	Status    string    `bson:"status"`
	Ref       string    `bson:"ref"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (s *AvailabilityStore) StatusOf(ctx context.Context, id unit.UnitID, date time.Time) (availability.Status, error) {
	var doc slotDocument
	err := s.col.FindOne(ctx, bson.M{"unit_id": string(id), "date": daterange.Day(date).Format(dayFormat)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return availability.StatusAvailable, nil
		}
		return "", err
	}
	return availability.Status(doc.Status), nil
}

func (s *AvailabilityStore) RangeStatus(ctx context.Context, id unit.UnitID, dr daterange.DateRange) ([]availability.DaySlot, error) {
	filter := bson.M{
		"unit_id": string(id),
		"date": bson.M{
			"$gte": dr.CheckIn.Format(dayFormat),
			"$lt":  dr.CheckOut.Format(dayFormat),
		},
	}
	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	byDate := make(map[string]slotDocument)
	for cursor.Next(ctx) {
		var doc slotDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		byDate[doc.Date] = doc
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	days := dr.Days()
	out := make([]availability.DaySlot, 0, len(days))
	for _, day := range days {
		slot := availability.DaySlot{UnitID: id, Date: day, Status: availability.StatusAvailable}
		if doc, ok := byDate[day.Format(dayFormat)]; ok {
			slot.Status = availability.Status(doc.Status)
			slot.Ref = doc.Ref
		}
		out = append(out, slot)
	}
	return out, nil
}

// TrySetExclusive runs every per-date transition inside one session
// transaction; any date out of expected status aborts the lot. Requires a
// replica set, as all multi-document transactions do.
func (s *AvailabilityStore) TrySetExclusive(ctx context.Context, id unit.UnitID, dates []time.Time, from, to availability.Status, ref string) error {
	session, err := s.col.Database().Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		now := time.Now().UTC()
		for _, date := range dates {
			if err := s.transitionOne(sc, id, daterange.Day(date), from, to, ref, now); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (s *AvailabilityStore) transitionOne(ctx context.Context, id unit.UnitID, day time.Time, from, to availability.Status, ref string, now time.Time) error {
	key := day.Format(dayFormat)
	set := bson.M{"status": string(to), "ref": ref, "updated_at": now}
	if to == availability.StatusAvailable {
		set["ref"] = ""
	}

	if from == availability.StatusAvailable {
		// Missing row counts as AVAILABLE, so upsert: an existing row in
		// any other status fails the filter and the insert then trips the
		// unique index.
		filter := bson.M{"unit_id": string(id), "date": key, "status": string(availability.StatusAvailable)}
		update := bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"unit_id": string(id), "date": key},
		}
		_, err := s.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				if s.alreadyApplied(ctx, id, key, to, ref) {
					return nil
				}
				return fmt.Errorf("%w: %s already claimed", availability.ErrConflict, key)
			}
			return err
		}
		return nil
	}

	filter := bson.M{"unit_id": string(id), "date": key, "status": string(from)}
	if from == availability.StatusHold && to == availability.StatusBooked {
		// Promoting a hold requires owning it.
		filter["ref"] = ref
	}
	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if s.alreadyApplied(ctx, id, key, to, ref) {
			return nil
		}
		return fmt.Errorf("%w: %s not in status %s", availability.ErrConflict, key, from)
	}
	return nil
}

// alreadyApplied reports whether the slot sits in the target status under
// the caller's own ref, i.e. a replay of a transition that committed on an
// earlier delivery.
func (s *AvailabilityStore) alreadyApplied(ctx context.Context, id unit.UnitID, key string, to availability.Status, ref string) bool {
	if to == availability.StatusAvailable || ref == "" {
		return false
	}
	count, err := s.col.CountDocuments(ctx, bson.M{
		"unit_id": string(id),
		"date":    key,
		"status":  string(to),
		"ref":     ref,
	})
	return err == nil && count > 0
}

func (s *AvailabilityStore) Release(ctx context.Context, id unit.UnitID, dates []time.Time, ref string) error {
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		keys = append(keys, daterange.Day(d).Format(dayFormat))
	}
	filter := bson.M{
		"unit_id": string(id),
		"date":    bson.M{"$in": keys},
		"ref":     ref,
		"status":  bson.M{"$in": []string{string(availability.StatusHold), string(availability.StatusBooked)}},
	}
	update := bson.M{"$set": bson.M{"status": string(availability.StatusAvailable), "ref": "", "updated_at": time.Now().UTC()}}
	_, err := s.col.UpdateMany(ctx, filter, update)
	return err
}

var _ availability.Store = (*AvailabilityStore)(nil)
