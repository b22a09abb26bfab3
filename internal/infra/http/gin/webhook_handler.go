package ginserver

import (
	"errors"
	"io"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/payments"
)

const maxWebhookBody = 64 << 10

type WebhookHandler struct {
	Payments *payments.Handler
}

// Receive takes the raw processor callback. The body must reach the
// verifier byte-for-byte, so no JSON binding happens here.
func (h WebhookHandler) Receive(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	signature := c.GetHeader("Stripe-Signature")

	err = h.Payments.Handle(c.Request.Context(), payload, signature)
	switch {
	case err == nil:
		c.Status(http.StatusOK)
	case errors.Is(err, payments.ErrVerificationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "verification failed"})
	default:
		// Non-2xx makes the processor redeliver; dedupe and the
		// idempotent confirm absorb the repeats.
		writeError(c, err)
	}
}

var _ WebhookHTTP = WebhookHandler{}
