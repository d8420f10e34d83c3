// Package report carries non-fatal errors from core components to whoever
// hosts them. Components receive a Reporter explicitly; there are no global hooks.
package report

import (
	"sync"

	"github.com/rs/zerolog"
)

// Reporter receives errors that a component swallowed to keep working.
type Reporter interface {
	Report(err error)
}

// Func adapts a plain function to Reporter.
type Func func(err error)

func (f Func) Report(err error) {
	if f != nil && err != nil {
		f(err)
	}
}

// Nop drops everything.
var Nop Reporter = Func(func(error) {})

type logReporter struct {
	logger zerolog.Logger
}

// Log reports errors as warnings on logger.
func Log(logger zerolog.Logger) Reporter {
	return logReporter{logger: logger}
}

func (r logReporter) Report(err error) {
	if err == nil {
		return
	}
	r.logger.Warn().Err(err).Msg("reported")
}

// Recorder keeps reported errors in memory; handy in tests and for the
// last-error banner of a view.
type Recorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *Recorder) Report(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

// Errors returns a copy of everything reported so far.
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

// Last returns the most recent error, or nil.
func (r *Recorder) Last() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[len(r.errs)-1]
}
