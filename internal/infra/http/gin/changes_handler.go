package ginserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/notify"
)

const changeStreamHeartbeat = 25 * time.Second

type ChangesHandler struct {
	Hub *notify.Hub
}

// Stream pushes ledger and booking change signals over SSE. Payloads carry
// just enough for the client to know what to re-fetch.
func (h ChangesHandler) Stream(c *gin.Context) {
	ch, cancel := h.Hub.Subscribe(32)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(changeStreamHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()
		case change, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "event: change\ndata: %s\n\n", data)
			c.Writer.Flush()
		}
	}
}

var _ ChangesHTTP = ChangesHandler{}
