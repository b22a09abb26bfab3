package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/domain/availability"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/unit"
)

const (
	dayParamFormat      = "2006-01-02"
	defaultCalendarSpan = 90 * 24 * time.Hour
)

type CalendarHandler struct {
	Units unit.Repository
	Slots availability.Store
}

type unitSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	WeeklyRate  int64  `json:"weekly_rate"`
	NightlyRate int64  `json:"nightly_rate"`
	Currency    string `json:"currency"`
}

func (h CalendarHandler) Catalog(c *gin.Context) {
	units, err := h.Units.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]unitSummary, 0, len(units))
	for _, u := range units {
		out = append(out, unitSummary{
			ID:          string(u.ID),
			Title:       u.Title,
			WeeklyRate:  u.WeeklyRate.Amount,
			NightlyRate: u.NightlyRate().Amount,
			Currency:    u.WeeklyRate.Currency,
		})
	}
	c.JSON(http.StatusOK, gin.H{"units": out})
}

type calendarDay struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

// Calendar returns the per-date ledger for a unit. The response never
// exposes claim refs; who holds a date is not the caller's business.
func (h CalendarHandler) Calendar(c *gin.Context) {
	id := unit.UnitID(c.Param("id"))
	if _, err := h.Units.ByID(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	from := daterange.Day(time.Now().UTC())
	to := from.Add(defaultCalendarSpan)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(dayParamFormat, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(dayParamFormat, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		to = parsed
	}
	dr, err := daterange.New(from, to)
	if err != nil {
		writeError(c, err)
		return
	}

	slots, err := h.Slots.RangeStatus(c.Request.Context(), id, dr)
	if err != nil {
		writeError(c, err)
		return
	}
	days := make([]calendarDay, 0, len(slots))
	for _, s := range slots {
		days = append(days, calendarDay{Date: s.Date.Format(dayParamFormat), Status: string(s.Status)})
	}
	c.JSON(http.StatusOK, gin.H{"unit_id": string(id), "days": days})
}

var _ CalendarHTTP = CalendarHandler{}
