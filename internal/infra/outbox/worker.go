package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker drains staged change events to the broker with claim/backoff
// bookkeeping. Delivery is at-least-once: a crash between publish and
// MarkSent produces a duplicate, which consumers must tolerate.
type Worker struct {
	Store       *Store
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.processOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) error {
	doc, err := w.Store.Claim(ctx, w.workerID())
	if err != nil || doc == nil {
		return err
	}
	topic := w.topicFor(doc.Name)
	payload, headers, err := w.formatPayload(doc)
	if err != nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
		return nil
	}
	if err := w.Producer.Publish(ctx, topic, doc.Aggregate, payload, headers); err != nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
		return nil
	}
	return w.Store.MarkSent(ctx, doc.ID)
}

func (w *Worker) formatPayload(doc *EventDocument) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(doc.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              uuid.NewString(),
		"type":            doc.Name + ".v1",
		"source":          w.source(),
		"time":            doc.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
	}
	for k, v := range doc.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor routes by table: "availability.slots_held" publishes on
// "availability.changes.v1".
func (w *Worker) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".changes.v1"
	if w.TopicPrefix != "" {
		topic = w.TopicPrefix + topic
	}
	return topic
}

// workerID is minted once per worker so claimed_by stays attributable
// across claims.
func (w *Worker) workerID() string {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return w.ID
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://staybook"
}
