package violations

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Feed is the slice of the collaborator the watcher polls. *Client satisfies it.
type Feed interface {
	Recent(ctx context.Context, limit int) ([]Violation, error)
}

// Watcher polls the violations feed on an interval, keeps the latest poll as
// a snapshot for the kiosk API, and publishes violations not seen before to a
// bounded event queue. Poll failures are logged and retried next tick.
type Watcher struct {
	feed  Feed
	every time.Duration
	limit int
	log   zerolog.Logger

	mu     sync.Mutex
	latest []Violation
	seen   map[string]bool
	events chan Violation
}

// NewWatcher creates a watcher polling every interval for up to limit entries.
func NewWatcher(feed Feed, every time.Duration, limit int, log zerolog.Logger) *Watcher {
	if every <= 0 {
		every = 10 * time.Second
	}
	if limit <= 0 {
		limit = 20
	}
	return &Watcher{
		feed:   feed,
		every:  every,
		limit:  limit,
		log:    log,
		seen:   make(map[string]bool),
		events: make(chan Violation, 64),
	}
}

// Run polls until ctx is done. It polls once immediately so the snapshot is
// warm before the first tick.
func (w *Watcher) Run(ctx context.Context) {
	w.poll(ctx)
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			close(w.events)
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// Events streams violations the watcher has not seen before. The channel is
// closed when Run returns.
func (w *Watcher) Events() <-chan Violation {
	return w.events
}

// Latest returns the most recent poll result.
func (w *Watcher) Latest() []Violation {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Violation, len(w.latest))
	copy(out, w.latest)
	return out
}

func (w *Watcher) poll(ctx context.Context) {
	found, err := w.feed.Recent(ctx, w.limit)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn().Err(err).Msg("violation poll failed")
		}
		return
	}

	w.mu.Lock()
	w.latest = found
	fresh := make([]Violation, 0, len(found))
	// The feed is newest-first, so an id that fell out of the recent window
	// never comes back; tracking only the current window keeps the dedup
	// state bounded on a long-running agent.
	seen := make(map[string]bool, len(found))
	for _, v := range found {
		if v.ID == "" {
			continue
		}
		seen[v.ID] = true
		if w.seen[v.ID] {
			continue
		}
		fresh = append(fresh, v)
	}
	w.seen = seen
	w.mu.Unlock()

	for _, v := range fresh {
		// Non-blocking publish: a full queue drops the oldest concern, the
		// snapshot still carries the data.
		select {
		case w.events <- v:
		default:
			w.log.Warn().Str("id", v.ID).Msg("violation event queue full, dropping")
		}
	}
}
