package ginserver

import (
	"context"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/reservation"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/unit"
)

// CheckoutStarter opens a hosted payment session for a held booking.
type CheckoutStarter interface {
	CreateSession(ctx context.Context, u *unit.Unit, receipt *reservation.HoldReceipt, userID string) (string, error)
}

type ReservationHandler struct {
	Coordinator *reservation.Coordinator
	Bookings    booking.Repository
	Units       unit.Repository
	Sessions    CheckoutStarter
}

type holdRequest struct {
	UnitID   string    `json:"unit_id"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

type holdResponse struct {
	BookingID string    `json:"booking_id"`
	State     string    `json:"state"`
	AmountDue int64     `json:"amount_due"`
	Currency  string    `json:"currency"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

func (h ReservationHandler) Hold(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req holdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receipt, err := h.Coordinator.RequestHold(c.Request.Context(), reservation.RequestHoldParams{
		UnitID:   unit.UnitID(req.UnitID),
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
		UserID:   user.ID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, holdResponse{
		BookingID: string(receipt.BookingID),
		State:     string(receipt.State),
		AmountDue: receipt.AmountDue.Amount,
		Currency:  receipt.AmountDue.Currency,
		ExpiresAt: receipt.ExpiresAt,
	})
}

// Checkout opens a payment session for a pending hold and returns the URL
// the guest completes payment on.
func (h ReservationHandler) Checkout(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payments unavailable"})
		return
	}
	b, err := h.Bookings.ByID(c.Request.Context(), booking.BookingID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	if b.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your booking"})
		return
	}
	if b.State != booking.StatePendingPayment {
		writeError(c, booking.ErrInvalidState)
		return
	}
	u, err := h.Units.ByID(c.Request.Context(), b.UnitID)
	if err != nil {
		writeError(c, err)
		return
	}
	receipt := &reservation.HoldReceipt{
		BookingID: b.ID,
		AmountDue: b.TotalPrice,
		State:     b.State,
		ExpiresAt: b.HoldExpiresAt,
	}
	url, err := h.Sessions.CreateSession(c.Request.Context(), u, receipt, user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkout_url": url})
}

func (h ReservationHandler) Release(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	id := booking.BookingID(c.Param("id"))
	b, err := h.Bookings.ByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if b.UserID != user.ID && !user.HasRole("admin") {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your booking"})
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "released by user"
	}
	if err := h.Coordinator.Release(c.Request.Context(), id, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ack": true})
}

type bookingSummary struct {
	BookingID string    `json:"booking_id"`
	UnitID    string    `json:"unit_id"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	State     string    `json:"state"`
	Total     int64     `json:"total"`
	Currency  string    `json:"currency"`
}

func (h ReservationHandler) ListMine(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	list, err := h.Bookings.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]bookingSummary, 0, len(list))
	for _, b := range list {
		out = append(out, bookingSummary{
			BookingID: string(b.ID),
			UnitID:    string(b.UnitID),
			CheckIn:   b.Range.CheckIn,
			CheckOut:  b.Range.CheckOut,
			State:     string(b.State),
			Total:     b.TotalPrice.Amount,
			Currency:  b.TotalPrice.Currency,
		})
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

var _ ReservationHTTP = ReservationHandler{}
