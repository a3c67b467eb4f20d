package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event kinds published on the enrollment channels.
const (
	KindEnrollment      = "enrollment"
	KindCapacityReached = "capacity-reached"
)

// Event is the payload broadcast to dashboard subscribers.
type Event struct {
	Kind           string    `json:"kind"`
	StudentID      string    `json:"student_id,omitempty"`
	OfferingID     int64     `json:"offering_id"`
	SubjectName    string    `json:"subject_name"`
	FacultyName    string    `json:"faculty_name,omitempty"`
	DepartmentCode string    `json:"department_code"`
	SeatsTaken     int       `json:"seats_taken"`
	Capacity       int       `json:"capacity"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher broadcasts enrollment events over Redis pub/sub. Delivery is
// fire-and-forget: publish failures are logged and never propagated.
type Publisher struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewPublisher constructs a Publisher. A nil client yields a no-op publisher.
func NewPublisher(client *redis.Client, prefix string, timeout time.Duration, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "dept-admin"
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Publisher{client: client, prefix: prefix, timeout: timeout, logger: logger}
}

// Publish serialises the event and sends it on a detached goroutine so the
// caller never waits on broker round-trips.
func (p *Publisher) Publish(event Event) {
	if p == nil || p.client == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		payload, err := json.Marshal(event)
		if err != nil {
			p.logger.Warn("failed to encode notification", zap.String("kind", event.Kind), zap.Error(err))
			return
		}

		channel := p.prefix + ":" + event.Kind
		if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
			p.logger.Warn("failed to publish notification",
				zap.String("channel", channel),
				zap.Int64("offering_id", event.OfferingID),
				zap.Error(err),
			)
		}
	}()
}
