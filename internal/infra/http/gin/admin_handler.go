package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/reservation"
	"staybook/internal/domain/availability"
	"staybook/internal/domain/unit"
)

type AdminHandler struct {
	Coordinator *reservation.Coordinator
}

type setSlotRequest struct {
	UnitID string `json:"unit_id"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

func (h AdminHandler) SetSlot(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	var req setSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := time.Parse(dayParamFormat, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}
	status, err := availability.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Coordinator.AdminSetSlot(c.Request.Context(), unit.UnitID(req.UnitID), date, status); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ack": true})
}

var _ AdminHTTP = AdminHandler{}
