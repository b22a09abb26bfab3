package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/domain/availability"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/rules"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/unit"
)

// writeError maps domain sentinels onto HTTP statuses. Policy rejections
// and malformed ranges are the caller's fault, conflicts mean someone else
// won the slot race, everything unmapped is a server-side failure.
func writeError(c *gin.Context, err error) {
	switch {
	case rules.IsViolation(err) || errors.Is(err, daterange.ErrInvalidRange) || errors.Is(err, booking.ErrUserRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, unit.ErrUnitNotFound) || errors.Is(err, booking.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, availability.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, availability.ErrInvalidState) || errors.Is(err, booking.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
