package world

import (
	"context"
	"time"
)

type command struct {
	name string
	fn   func(w *World) error
	resp chan error
	// query commands only read state and stay out of the tick log.
	query bool
}

// Run drives Update at TickRateHz. Commands submitted while it runs are
// applied at the next tick boundary, in arrival order, before the update.
func (w *World) Run(ctx context.Context) error {
	w.running.Store(true)
	defer w.halt()
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	dt := 1 / float64(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []command
	for {
		if w.stopped() {
			w.reject(pending, ErrStopped)
			return nil
		}
		select {
		case <-ctx.Done():
			w.reject(pending, ctx.Err())
			return ctx.Err()
		case <-w.stop:
			w.reject(pending, ErrStopped)
			return nil
		case c := <-w.inbox:
			pending = append(pending, c)
		case <-ticker.C:
			if w.stopped() {
				w.reject(pending, ErrStopped)
				return nil
			}
			for _, c := range pending {
				w.apply(c)
			}
			pending = pending[:0]
			w.Update(dt)
		}
	}
}

// Stop ends Run. It may be called more than once, and without Run, after
// which every Do and Query returns ErrStopped.
func (w *World) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	if !w.running.Load() {
		w.halt()
	}
}

func (w *World) stopped() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

// halt marks the loop as gone and answers whatever is still queued.
func (w *World) halt() {
	w.haltOnce.Do(func() { close(w.halted) })
	for {
		select {
		case c := <-w.inbox:
			if c.resp != nil {
				c.resp <- ErrStopped
			}
		default:
			return
		}
	}
}

func (w *World) apply(c command) {
	if !c.query {
		w.applied = append(w.applied, c.name)
	}
	err := c.fn(w)
	if c.resp != nil {
		c.resp <- err
	}
}

func (w *World) reject(pending []command, err error) {
	for _, c := range pending {
		if c.resp != nil {
			c.resp <- err
		}
	}
}

// Do queues fn for the next tick boundary and waits for its result. fn runs
// on the world goroutine and may touch any state.
func (w *World) Do(ctx context.Context, name string, fn func(w *World) error) error {
	return w.submit(ctx, command{name: name, fn: fn})
}

// Query is Do for read-only fn; it is not recorded in the tick log.
func (w *World) Query(ctx context.Context, fn func(w *World) error) error {
	return w.submit(ctx, command{name: "query", fn: fn, query: true})
}

func (w *World) submit(ctx context.Context, c command) error {
	resp := make(chan error, 1)
	c.resp = resp
	select {
	case <-w.halted:
		return ErrStopped
	default:
	}
	select {
	case w.inbox <- c:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.halted:
		return ErrStopped
	}
	select {
	case err := <-resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-w.halted:
		select {
		case err := <-resp:
			return err
		default:
			return ErrStopped
		}
	}
}
