package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/export"
	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

// Event types published on the export subject.
const (
	EventCycleStarted   = "cycle.started"
	EventCycleCompleted = "cycle.completed"
	EventCycleFailed    = "cycle.failed"
)

// ExportEvent is the JSON payload published for each export cycle transition.
type ExportEvent struct {
	Type      string    `json:"type"`
	JobID     string    `json:"job_id,omitempty"`
	RootID    string    `json:"root_id,omitempty"`
	Exported  int       `json:"exported,omitempty"`
	Skipped   int       `json:"skipped,omitempty"`
	Failed    int       `json:"failed,omitempty"`
	Images    int       `json:"images,omitempty"`
	Duration  string    `json:"duration,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits export cycle events onto a NATS JetStream stream.
type Publisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	log     *slog.Logger
}

// NewPublisher connects to NATS and ensures the event stream exists.
func NewPublisher(ctx context.Context, cfg *config.NATSConfig, log *slog.Logger) (*Publisher, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.ConfigError("NATS URL is required for event publishing").Build()
	}
	if log == nil {
		log = slog.Default()
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").
			WithCause(err).WithContext("url", cfg.URL).Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.NetworkError("failed to create JetStream context").WithCause(err).Build()
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "Confluence export cycle events",
		Subjects:    []string{cfg.Subject},
	})
	if err != nil {
		conn.Close()
		return nil, errors.NetworkError("failed to ensure event stream").
			WithCause(err).WithContext("stream", cfg.Stream).Build()
	}

	log.Info("Connected to NATS for event publishing",
		slog.String("url", cfg.URL),
		slog.String("subject", cfg.Subject),
		slog.String("stream", cfg.Stream))

	return &Publisher{
		conn:    conn,
		js:      js,
		subject: cfg.Subject,
		log:     log,
	}, nil
}

// Publish sends a single event. Failures are logged, not returned: a
// broken event bus must never stop the export loop.
func (p *Publisher) Publish(ctx context.Context, event ExportEvent) {
	if p == nil {
		return
	}
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Error("Failed to marshal export event", slog.String("type", event.Type), slog.Any("error", err))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.js.Publish(pubCtx, p.subject, data); err != nil {
		p.log.Error("Failed to publish export event", slog.String("type", event.Type), slog.Any("error", err))
		return
	}

	p.log.Debug("Published export event", slog.String("type", event.Type), slog.String("job_id", event.JobID))
}

// Started builds a cycle.started event.
func Started() ExportEvent {
	return ExportEvent{Type: EventCycleStarted}
}

// Completed builds a cycle.completed event from an export result.
func Completed(res *export.Result) ExportEvent {
	return ExportEvent{
		Type:     EventCycleCompleted,
		JobID:    res.JobID,
		RootID:   res.RootID,
		Exported: res.Exported,
		Skipped:  res.Skipped,
		Failed:   res.Failed,
		Images:   res.Images,
		Duration: res.Duration.String(),
	}
}

// FailedEvent builds a cycle.failed event. A partial result may be attached.
func FailedEvent(res *export.Result, err error) ExportEvent {
	ev := ExportEvent{Type: EventCycleFailed, Error: err.Error()}
	if res != nil {
		ev.JobID = res.JobID
		ev.RootID = res.RootID
		ev.Exported = res.Exported
		ev.Skipped = res.Skipped
		ev.Failed = res.Failed
	}
	return ev
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
