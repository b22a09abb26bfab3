package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "staybook/internal/domain/booking"
	domainrange "staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/unit"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("bookings")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "state", Value: 1}, {Key: "hold_expires_at", Value: 1}},
	})
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "check_in", Value: 1}},
	})
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	return decodeBookings(ctx, cursor)
}

func (r *BookingRepository) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"state":           string(domainbooking.StatePendingPayment),
		"hold_expires_at": bson.M{"$gt": 0, "$lte": cutoff.UnixMilli()},
	}
	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return decodeBookings(ctx, cursor)
}

func decodeBookings(ctx context.Context, cursor *mongo.Cursor) ([]*domainbooking.Booking, error) {
	defer cursor.Close(ctx)
	var out []*domainbooking.Booking
	for cursor.Next(ctx) {
		var doc bookingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

type bookingDocument struct {
	ID            string `bson:"_id"`
	UnitID        string `bson:"unit_id"`
	UserID        string `bson:"user_id"`
	CheckIn       int64  `bson:"check_in"`
	CheckOut      int64  `bson:"check_out"`
	TotalCents    int64  `bson:"total_cents"`
	Currency      string `bson:"currency"`
	State         string `bson:"state"`
	PaymentRef    string `bson:"payment_ref"`
	HoldExpiresAt int64  `bson:"hold_expires_at"`
	CreatedAt     int64  `bson:"created_at"`
	UpdatedAt     int64  `bson:"updated_at"`
	Version       int64  `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:         string(b.ID),
		UnitID:     string(b.UnitID),
		UserID:     b.UserID,
		CheckIn:    b.Range.CheckIn.UnixMilli(),
		CheckOut:   b.Range.CheckOut.UnixMilli(),
		TotalCents: b.TotalPrice.Amount,
		Currency:   b.TotalPrice.Currency,
		State:      string(b.State),
		PaymentRef: b.PaymentRef,
		CreatedAt:  b.CreatedAt.UnixMilli(),
		UpdatedAt:  b.UpdatedAt.UnixMilli(),
		Version:    b.Version,
	}
	if !b.HoldExpiresAt.IsZero() {
		doc.HoldExpiresAt = b.HoldExpiresAt.UnixMilli()
	}
	return doc
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	b := &domainbooking.Booking{
		ID:         domainbooking.BookingID(d.ID),
		UnitID:     unit.UnitID(d.UnitID),
		UserID:     d.UserID,
		Range:      domainrange.DateRange{CheckIn: msToTime(d.CheckIn), CheckOut: msToTime(d.CheckOut)},
		TotalPrice: money.Money{Amount: d.TotalCents, Currency: d.Currency},
		State:      domainbooking.BookingState(d.State),
		PaymentRef: d.PaymentRef,
		CreatedAt:  msToTime(d.CreatedAt),
		UpdatedAt:  msToTime(d.UpdatedAt),
		Version:    d.Version,
	}
	if d.HoldExpiresAt > 0 {
		b.HoldExpiresAt = msToTime(d.HoldExpiresAt)
	}
	return b
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
