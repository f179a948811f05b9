package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// interruptGrace is how long an input error may precede the signal that
// caused it.
const interruptGrace = 100 * time.Millisecond

// SignalManager cancels a run on SIGINT or SIGTERM.
type SignalManager struct {
	ctx  context.Context
	stop context.CancelFunc
}

func NewSignalManager(parent context.Context) *SignalManager {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return &SignalManager{ctx: ctx, stop: stop}
}

func (sm *SignalManager) Context() context.Context { return sm.ctx }

// Stop releases the signal listener.
func (sm *SignalManager) Stop() { sm.stop() }

// Quiet reports whether err ends a run without being a failure: end of
// input, or an interrupt. A Ctrl+C can close stdin slightly before the
// context is cancelled, so a pending signal gets a short grace window.
func (sm *SignalManager) Quiet(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return true
	}
	t := time.NewTimer(interruptGrace)
	defer t.Stop()
	select {
	case <-sm.ctx.Done():
		return true
	case <-t.C:
		return false
	}
}
