package availability

import (
	"time"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/unit"
)

type SlotsHeld struct {
	UnitID string
	Range  daterange.DateRange
	Ref    string
	At     time.Time
}

func (e SlotsHeld) EventName() string     { return "availability.slots_held" }
func (e SlotsHeld) AggregateID() string   { return e.UnitID }
func (e SlotsHeld) OccurredAt() time.Time { return e.At }

type SlotsBooked struct {
	UnitID string
	Range  daterange.DateRange
	Ref    string
	At     time.Time
}

func (e SlotsBooked) EventName() string     { return "availability.slots_booked" }
func (e SlotsBooked) AggregateID() string   { return e.UnitID }
func (e SlotsBooked) OccurredAt() time.Time { return e.At }

type SlotsReleased struct {
	UnitID string
	Range  daterange.DateRange
	Ref    string
	At     time.Time
}

func (e SlotsReleased) EventName() string     { return "availability.slots_released" }
func (e SlotsReleased) AggregateID() string   { return e.UnitID }
func (e SlotsReleased) OccurredAt() time.Time { return e.At }

type SlotToggled struct {
	UnitID string
	Date   time.Time
	Status Status
	At     time.Time
}

func (e SlotToggled) EventName() string     { return "availability.slot_toggled" }
func (e SlotToggled) AggregateID() string   { return e.UnitID }
func (e SlotToggled) OccurredAt() time.Time { return e.At }

func SlotsHeldEvent(id unit.UnitID, r daterange.DateRange, ref string, at time.Time) SlotsHeld {
	return SlotsHeld{UnitID: string(id), Range: r, Ref: ref, At: at}
}

func SlotsBookedEvent(id unit.UnitID, r daterange.DateRange, ref string, at time.Time) SlotsBooked {
	return SlotsBooked{UnitID: string(id), Range: r, Ref: ref, At: at}
}

func SlotsReleasedEvent(id unit.UnitID, r daterange.DateRange, ref string, at time.Time) SlotsReleased {
	return SlotsReleased{UnitID: string(id), Range: r, Ref: ref, At: at}
}

func SlotToggledEvent(id unit.UnitID, date time.Time, status Status, at time.Time) SlotToggled {
	return SlotToggled{UnitID: string(id), Date: date, Status: status, At: at}
}
