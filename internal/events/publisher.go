package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/civicpulse/engagement-platform/pkg/logger"
	"github.com/civicpulse/engagement-platform/pkg/metrics"
)

const (
	// StreamName is the name of the engagement audit stream.
	StreamName = "ENGAGEMENT"

	// SubjectPrefix is the prefix for all engagement subjects.
	SubjectPrefix = "engagement"
)

// Event is the envelope published for every audit entry.
type Event struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Publisher writes audit events to the engagement stream. Publishing is
// best-effort: failures are counted and logged, never propagated.
type Publisher struct {
	client *Client
	logger *logger.Logger
}

// NewPublisher creates a publisher on an established client.
func NewPublisher(client *Client, log *logger.Logger) *Publisher {
	return &Publisher{client: client, logger: log}
}

// EnsureStream ensures the engagement stream exists.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Constituent engagement audit events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// Record publishes one audit event to engagement.audit.<event>.
func (p *Publisher) Record(ctx context.Context, event string, fields map[string]any) {
	payload := Event{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Event:     event,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("audit event marshal failed", zap.Error(err), zap.String("event", event))
		metrics.AuditEventsTotal.WithLabelValues("error").Inc()
		return
	}

	subject := fmt.Sprintf("%s.audit.%s", SubjectPrefix, event)

	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := p.client.JetStream().Publish(pubCtx, subject, data); err != nil {
		p.logger.Warn("audit event publish failed", zap.Error(err), zap.String("event", event))
		metrics.AuditEventsTotal.WithLabelValues("error").Inc()
		return
	}

	metrics.AuditEventsTotal.WithLabelValues("ok").Inc()
}
