package pipeline

import (
	"context"
	"errors"
	"time"
)

var errTimeout = errors.New("generation timed out")

// deadline bounds one generation call. Its context descends from the run,
// so Start Over cancels it, and is also cancelled when the request ends or
// the timer fires. stop detaches the request and the timer without
// cancelling, which lets background work started by the call (statement
// images) continue for the rest of the run.
type deadline struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	timer  *time.Timer
	detach func() bool
}

func newDeadline(run, req context.Context, d time.Duration) *deadline {
	ctx, cancel := context.WithCancelCause(run)
	dl := &deadline{ctx: ctx, cancel: cancel}
	dl.detach = context.AfterFunc(req, func() { cancel(context.Cause(req)) })
	if d > 0 {
		dl.timer = time.AfterFunc(d, func() { cancel(errTimeout) })
	}
	return dl
}

func (d *deadline) stop() {
	d.detach()
	if d.timer != nil {
		d.timer.Stop()
	}
}

// release stops the deadline and cancels its context.
func (d *deadline) release() {
	d.stop()
	d.cancel(nil)
}

// err marks err as a timeout when the timer caused it.
func (d *deadline) err(err error) error {
	if err != nil && errors.Is(context.Cause(d.ctx), errTimeout) {
		return errors.Join(errTimeout, err)
	}
	return err
}
