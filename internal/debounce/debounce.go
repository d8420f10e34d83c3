// Package debounce delays a fast-changing value until input goes quiet.
// Only the last value of a burst is delivered; nothing is delivered before
// the first full delay.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Debouncer is the callback form. At most one timer is pending; each Push
// cancels the previous one.
type Debouncer[T any] struct {
	delay time.Duration
	emit  func(T)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending T
	has     bool
	stopped bool
}

// New returns a debouncer that calls emit from its own goroutine.
func New[T any](delay time.Duration, emit func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, emit: emit}
}

// Push replaces the held value and restarts the delay.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.gen++
	d.pending, d.has = v, true
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire: таймер мог сработать уже после Push/Stop, поэтому сверяем поколение
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.has || d.stopped {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()
	d.emit(v)
}

// Flush delivers the held value now, if any, on the caller's goroutine.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.has || d.stopped {
		d.mu.Unlock()
		return false
	}
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	v := d.take()
	d.mu.Unlock()
	d.emit(v)
	return true
}

// Stop drops the held value; later Pushes are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	d.take()
}

// Pending reports whether a value is waiting for its delay.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.has
}

func (d *Debouncer[T]) take() T {
	v := d.pending
	var zero T
	d.pending, d.has = zero, false
	return v
}

// Stream debounces a channel. The output closes when ctx is done, or when in
// is closed and the last held value (if any) has been delivered.
func Stream[T any](ctx context.Context, in <-chan T, delay time.Duration) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		var (
			timer   *time.Timer
			fire    <-chan time.Time
			pending T
		)
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					in = nil
					if fire == nil {
						return
					}
					continue
				}
				pending = v
				if timer == nil {
					timer = time.NewTimer(delay)
				} else {
					timer.Reset(delay)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				select {
				case out <- pending:
				case <-ctx.Done():
					return
				}
				if in == nil {
					return
				}
			}
		}
	}()
	return out
}
