package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"catalog-browser/internal/report"
)

// ErrStale means a newer load was started while this one was in flight; its
// result was dropped and the newer load decides the snapshot.
var ErrStale = errors.New("catalog load superseded by a newer one")

// LoadError is a failed load attempt, shown to the user as one message.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string { return "Ошибка загрузки данных: " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// Loader fetches the feed and publishes catalog snapshots. A failed load
// keeps the previous snapshot. Loads are never retried automatically.
type Loader struct {
	feed   Feed
	logger zerolog.Logger
	rep    report.Reporter
	now    func() time.Time

	seq     atomic.Uint64
	mu      sync.Mutex // публикация снимка и lastErr
	cur     atomic.Pointer[Catalog]
	lastErr error
}

// NewLoader starts with an empty snapshot; call Load to populate it.
func NewLoader(feed Feed, logger zerolog.Logger, rep report.Reporter) *Loader {
	if rep == nil {
		rep = report.Nop
	}
	l := &Loader{
		feed:   feed,
		logger: logger.With().Str("component", "catalog").Logger(),
		rep:    rep,
		now:    time.Now,
	}
	l.cur.Store(New(nil, feed.Source(), time.Time{}))
	return l
}

// Current returns the latest published snapshot. Never nil.
func (l *Loader) Current() *Catalog { return l.cur.Load() }

// LastError is the error of the most recent load that was not superseded,
// or nil when it succeeded.
func (l *Loader) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Load runs one load cycle from scratch. Errors are *LoadError, or ErrStale
// when a newer Load was issued before this one finished.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	seq := l.seq.Add(1)
	start := l.now()

	records, err := l.feed.Fetch(ctx)
	var snap *Catalog
	if err == nil {
		snap = New(Build(records), l.feed.Source(), l.now())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq.Load() {
		l.logger.Debug().Uint64("seq", seq).Msg("stale load dropped")
		return nil, ErrStale
	}
	if err != nil {
		le := &LoadError{Source: l.feed.Source(), Err: err}
		l.lastErr = le
		l.rep.Report(le)
		return nil, le
	}
	l.cur.Store(snap)
	l.lastErr = nil
	l.logger.Info().
		Str("source", snap.Source()).
		Int("records", len(records)).
		Int("items", snap.Len()).
		Dur("elapsed", l.now().Sub(start)).
		Msg("catalog loaded")
	return snap, nil
}
