package calc

import (
	"context"
	"time"

	"github.com/WessleyAI/gridlink/pkg/natsutil"
)

// DefaultEventsSubject is where completion events are published.
const DefaultEventsSubject = "calc.completed"

// Event announces a finished calculation.
type Event struct {
	RunID      string    `json:"run_id"`
	Calc       Kind      `json:"calc"`
	User       string    `json:"user"`
	Records    int       `json:"records"`
	Failures   int       `json:"failures"`
	Overlays   int       `json:"overlays"`
	Notices    int       `json:"notices"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// Publisher delivers completion events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NATSPublisher publishes events as JSON on a NATS subject.
type NATSPublisher struct {
	nc      natsutil.Conn
	subject string
}

// NewNATSPublisher creates a publisher on subject, or DefaultEventsSubject
// when subject is empty.
func NewNATSPublisher(nc natsutil.Conn, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultEventsSubject
	}
	return &NATSPublisher{nc: nc, subject: subject}
}

func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	return natsutil.Publish(ctx, p.nc, p.subject, e)
}
