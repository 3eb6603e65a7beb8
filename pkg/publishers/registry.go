package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Factory maps publisher types to builders.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewFactory returns a factory with the http and queue builders registered.
func NewFactory() *Factory {
	f := &Factory{builders: make(map[string]Builder)}
	f.Register(TypeHTTP, newHTTPPublisher)
	f.Register(TypeQueue, newQueuePublisher)
	return f
}

// Register associates a builder with a publisher type, replacing any
// existing one.
func (f *Factory) Register(typ string, builder Builder) {
	if typ = strings.ToLower(strings.TrimSpace(typ)); typ == "" || builder == nil {
		return
	}
	f.mu.Lock()
	f.builders[typ] = builder
	f.mu.Unlock()
}

// Build instantiates one publisher per config. Publishers built before a
// failure are closed.
func (f *Factory) Build(ctx context.Context, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log = ensureLogger(log)

	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		f.mu.RLock()
		builder := f.builders[strings.ToLower(cfg.Type)]
		f.mu.RUnlock()

		if builder == nil {
			closeAll(pubs)
			return nil, fmt.Errorf("publisher %q: no builder for type %q", cfg.ID, cfg.Type)
		}
		pub, err := builder(ctx, cfg, log.With(zap.String("publisher_id", cfg.ID)))
		if err != nil {
			closeAll(pubs)
			return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// BuildDispatcher loads the publishers file at path and returns a dispatcher
// over its enabled entries.
func BuildDispatcher(ctx context.Context, f *Factory, path string, log Logger) (*Dispatcher, error) {
	reg, err := LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	if f == nil {
		f = NewFactory()
	}

	enabled := reg.Enabled()
	pubs, err := f.Build(ctx, enabled, log)
	if err != nil {
		return nil, err
	}

	log = ensureLogger(log)
	ids := make([]string, 0, len(pubs))
	for _, p := range pubs {
		ids = append(ids, p.ID())
	}
	log.InfoObj("publishers ready", "publishers_ready", map[string]any{
		"count":      len(pubs),
		"publishers": ids,
		"configured": len(reg.All()),
	})
	return NewDispatcher(pubs, enabled, log), nil
}

func closeAll(pubs []Publisher) error {
	var errs []error
	for _, p := range pubs {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close publisher %s: %w", p.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
