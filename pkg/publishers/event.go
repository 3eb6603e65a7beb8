package publishers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
	"github.com/Adda-Baaj/stock-pulse/internal/logger"
)

// EventAnalysisCompleted is emitted after an analysis finishes.
const EventAnalysisCompleted = "analysis.completed"

// Logger is the logging surface publishers use.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger { return logger.Ensure(log) }

// Event is the payload delivered to every sink.
type Event struct {
	ID           string             `json:"id"`
	Type         string             `json:"type"`
	Mode         string             `json:"mode"`
	Ticker       string             `json:"ticker"`
	Question     string             `json:"question,omitempty"`
	Prediction   *domain.Prediction `json:"prediction,omitempty"`
	Sentiment    *domain.Sentiment  `json:"news_sentiment,omitempty"`
	Alignment    domain.Alignment   `json:"alignment,omitempty"`
	NewsProvider string             `json:"news_provider,omitempty"`
	Report       string             `json:"report,omitempty"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

// NewEvent stamps a fresh id and timestamp on an event of type typ.
func NewEvent(typ, mode, ticker string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Mode:       mode,
		Ticker:     strings.ToUpper(strings.TrimSpace(ticker)),
		OccurredAt: time.Now().UTC(),
	}
}

// attributes are the routing attributes attached by queue senders.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_type": e.Type,
		"ticker":     e.Ticker,
	}
}

// Publisher delivers events to one sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Dispatcher fans an event out to a set of publishers.
type Dispatcher struct {
	pubs   []Publisher
	events map[string][]string
	log    Logger
}

// NewDispatcher builds a dispatcher. cfgs supply per-publisher event filters
// and may be nil.
func NewDispatcher(pubs []Publisher, cfgs []PublisherConfig, log Logger) *Dispatcher {
	events := make(map[string][]string, len(cfgs))
	for _, c := range cfgs {
		events[c.ID] = c.Events
	}
	return &Dispatcher{pubs: pubs, events: events, log: ensureLogger(log)}
}

// Len reports how many publishers are attached.
func (d *Dispatcher) Len() int {
	if d == nil {
		return 0
	}
	return len(d.pubs)
}

// Publish delivers evt to every subscribed publisher. All publishers are
// attempted; failures are logged and returned joined.
func (d *Dispatcher) Publish(ctx context.Context, evt Event) error {
	if d == nil {
		return nil
	}

	var errs []error
	for _, p := range d.pubs {
		if !(PublisherConfig{Events: d.events[p.ID()]}).Accepts(evt.Type) {
			continue
		}
		if err := p.Publish(ctx, evt); err != nil {
			d.log.WarnObj("publisher delivery failed", "publish_error", map[string]any{
				"publisher_id": p.ID(),
				"type":         p.Type(),
				"event_id":     evt.ID,
				"error":        err.Error(),
			})
			errs = append(errs, fmt.Errorf("publisher %s: %w", p.ID(), err))
			continue
		}
		d.log.DebugObj("event published", "publish_ok", map[string]any{
			"publisher_id": p.ID(),
			"event_id":     evt.ID,
			"event_type":   evt.Type,
		})
	}
	return errors.Join(errs...)
}

// Close releases publisher resources such as Pub/Sub clients.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	return closeAll(d.pubs)
}
