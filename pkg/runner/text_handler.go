package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/actscript/pkg/domain"
)

// ContinueMarker at the end of an input line continues the answer on the
// next line, the way the script continuation marker does.
const ContinueMarker = `\`

// TextHandler talks to a person through plain text streams.
type TextHandler struct {
	Reader   io.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	lines chan lineResult
	once  sync.Once
}

type lineResult struct {
	text string
	err  error
}

// TextHandlerOption configures a TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer formats message content before it is printed.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler reads from r and writes to w, defaulting to stdin/stdout.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Reader: r, Writer: w}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// readLines feeds h.lines from a background goroutine so Input can return
// on cancellation while a read is pending. The channel closes at EOF.
func (h *TextHandler) readLines() {
	scanner := bufio.NewScanner(h.Reader)
	scanner.Buffer(make([]byte, 0, 4096), DefaultMaxInputSize*4)
	for scanner.Scan() {
		h.lines <- lineResult{text: scanner.Text()}
	}
	if err := scanner.Err(); err != nil {
		h.lines <- lineResult{err: err}
	}
	close(h.lines)
}

// Output prints each message under its role.
func (h *TextHandler) Output(ctx context.Context, messages []domain.Message) error {
	for _, msg := range messages {
		content := msg.Content
		if h.Renderer != nil {
			if rendered, err := h.Renderer(content); err == nil {
				content = rendered
			}
		}
		if _, err := fmt.Fprintf(h.Writer, "%s:\n%s\n\n", msg.Role, strings.TrimSpace(content)); err != nil {
			return err
		}
	}
	return nil
}

// Input prompts and reads one answer. Lines ending in ContinueMarker are
// joined with a newline. Rejected input is reported and asked again.
func (h *TextHandler) Input(ctx context.Context, prompt string) (string, error) {
	h.once.Do(func() {
		h.lines = make(chan lineResult)
		go h.readLines()
	})

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprint(h.Writer, prompt+"> ")

		var parts []string
		for {
			var line lineResult
			var ok bool
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case line, ok = <-h.lines:
			}
			if !ok {
				if len(parts) == 0 {
					return "", io.EOF
				}
				break
			}
			if line.err != nil {
				return "", line.err
			}
			text, more := strings.CutSuffix(strings.TrimRight(line.text, "\r"), ContinueMarker)
			parts = append(parts, text)
			if !more {
				break
			}
		}

		clean, err := SanitizeInput(strings.Join(parts, "\n"))
		if err != nil {
			fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
			continue
		}
		return strings.TrimSpace(clean), nil
	}
}

// SystemOutput prints a bracketed status line.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "[%s]\n", msg)
	return err
}
