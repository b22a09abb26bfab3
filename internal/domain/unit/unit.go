package unit

import (
	"context"
	"errors"

	"staybook/internal/domain/shared/money"
)

var ErrUnitNotFound = errors.New("unit: not found")

type UnitID string

// Unit is a bookable lodging item. Units are owned by inventory
// management; the reservation core only ever reads them.
type Unit struct {
	ID             UnitID
	Title          string
	InventoryCount int
	WeeklyRate     money.Money
}

type Repository interface {
	ByID(ctx context.Context, id UnitID) (*Unit, error)
	List(ctx context.Context) ([]*Unit, error)
}

// NightlyRate derives the per-night price from the weekly rate. The ledger
// books whole nights, so quotes are nights x nightly rate.
func (u *Unit) NightlyRate() money.Money {
	return money.Money{Amount: u.WeeklyRate.Amount / 7, Currency: u.WeeklyRate.Currency}
}
