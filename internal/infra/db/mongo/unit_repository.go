package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/unit"
)

// UnitRepository reads the unit catalog. Units are written by inventory
// management, not by the reservation core.
type UnitRepository struct {
	col *mongo.Collection
}

func NewUnitRepository(db *mongo.Database) *UnitRepository {
	return &UnitRepository{col: db.Collection("units")}
}

type unitDocument struct {
	ID              string `bson:"_id"`
	Title           string `bson:"title"`
	InventoryCount  int    `bson:"inventory_count"`
	WeeklyRateCents int64  `bson:"weekly_rate_cents"`
	Currency        string `bson:"currency"`
}

func (r *UnitRepository) ByID(ctx context.Context, id unit.UnitID) (*unit.Unit, error) {
	var doc unitDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, unit.ErrUnitNotFound
		}
		return nil, err
	}
	return doc.toUnit(), nil
}

func (r *UnitRepository) List(ctx context.Context) ([]*unit.Unit, error) {
	cursor, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*unit.Unit
	for cursor.Next(ctx) {
		var doc unitDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toUnit())
	}
	return out, cursor.Err()
}

func (d unitDocument) toUnit() *unit.Unit {
	currency := d.Currency
	if currency == "" {
		currency = "EUR"
	}
	return &unit.Unit{
		ID:             unit.UnitID(d.ID),
		Title:          d.Title,
		InventoryCount: d.InventoryCount,
		WeeklyRate:     money.Money{Amount: d.WeeklyRateCents, Currency: currency},
	}
}

var _ unit.Repository = (*UnitRepository)(nil)
