package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/aretw0/actscript/pkg/adapters/file"
	"github.com/aretw0/actscript/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sc.sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-sc.Context.Done():
		}
		sc.stop.Do(func() {
			signal.Stop(sc.sigCh)
		})
	}()

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// ParseContext turns key=value pairs into a context. Values that parse as
// JSON (numbers, booleans, arrays, objects) keep their type; anything else
// is a string. Dotted keys build nested objects.
func ParseContext(pairs []string) (domain.Context, error) {
	ctx := domain.Context{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context pair %q: want key=value", pair)
		}
		var value any = raw
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
			value = decoded
		}
		domain.Config(ctx).Set(key, value)
	}
	return ctx, nil
}

// ScriptSource resolves a command argument to a script. An existing file
// path is read as is; anything else is looked up in the script library.
func ScriptSource(lookup func(id string) (*domain.Script, error), arg string) (*domain.Script, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read script: %w", err)
		}
		id := strings.TrimSuffix(filepath.Base(arg), file.Extension)
		return &domain.Script{ID: id, Text: string(data)}, nil
	}
	script, err := lookup(arg)
	if err != nil {
		if errors.Is(err, domain.ErrScriptNotFound) {
			return nil, fmt.Errorf("%w (not a file either)", err)
		}
		return nil, err
	}
	return script, nil
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)
}

// handleExecutionError maps interruptions to a clean exit.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}
