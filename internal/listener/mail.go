package listener

import (
	"context"
	"log/slog"
	"time"

	"calibboard/internal"
)

// Fetcher returns the messages that arrived since the last call.
type Fetcher interface {
	Fetch(ctx context.Context) ([]internal.Source, error)
}

// MailPoller replaces the working set with each non-empty batch of fetched
// messages.
type MailPoller struct {
	fetcher  Fetcher
	loader   Loader
	interval time.Duration
	log      *slog.Logger
}

func NewMailPoller(fetcher Fetcher, loader Loader, interval time.Duration, log *slog.Logger) *MailPoller {
	if log == nil {
		log = slog.Default()
	}
	return &MailPoller{fetcher: fetcher, loader: loader, interval: interval, log: log}
}

func (p *MailPoller) Run(ctx context.Context) error {
	p.log.Info("polling mailbox", "interval", p.interval)
	for {
		if _, err := p.RunCycle(ctx); err != nil {
			p.log.Warn("mail cycle error", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.interval):
		}
	}
}

// RunCycle reports whether a batch was loaded. An empty mailbox is not an error.
func (p *MailPoller) RunCycle(ctx context.Context) (bool, error) {
	sources, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return false, err
	}
	if len(sources) == 0 {
		return false, nil
	}
	res, err := p.loader.Load(ctx, sources)
	if err != nil {
		return false, err
	}
	p.log.Info("mail cycle done", "messages", len(sources), "accepted", res.Accepted, "trace_id", res.TraceID)
	return true, nil
}
