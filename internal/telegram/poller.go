package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ytget/rip-bot/internal/logging"
)

// Backoff bounds for failed getUpdates calls
const (
	MinBackoff = 2 * time.Second
	MaxBackoff = time.Minute
)

// Handler processes one update
type Handler func(ctx context.Context, update Update)

// UpdateSource is the part of Client the poller needs
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int) ([]Update, error)
}

// Poller pulls updates and dispatches each one on its own goroutine
type Poller struct {
	source     UpdateSource
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewPoller creates a poller over source
func NewPoller(source UpdateSource) *Poller {
	return &Poller{source: source, minBackoff: MinBackoff, maxBackoff: MaxBackoff}
}

// Run polls until ctx is cancelled, then waits for in-flight handlers and
// returns ctx's error.
func (p *Poller) Run(ctx context.Context, handler Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	offset := 0
	backoff := p.minBackoff
	for {
		updates, err := p.source.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait := backoff
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > wait {
				wait = apiErr.RetryAfter
			}
			logging.Warn("getUpdates failed", logging.Err(err), logging.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			backoff *= 2
			if backoff > p.maxBackoff {
				backoff = p.maxBackoff
			}
			continue
		}
		backoff = p.minBackoff

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			wg.Add(1)
			go func(u Update) {
				defer wg.Done()
				handler(ctx, u)
			}(upd)
		}
	}
}
