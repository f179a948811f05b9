package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize caps a single reply or placeholder value, in bytes.
const DefaultMaxInputSize = 4096

// EnvMaxInputSize overrides DefaultMaxInputSize.
const EnvMaxInputSize = "ACTSCRIPT_MAX_INPUT_SIZE"

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput prepares text typed by a person or sent by a client before
// it enters a session. Oversized input and invalid UTF-8 are rejected.
// CRLF becomes LF, and control characters other than newline and tab are
// stripped so terminal escapes never reach the history or the logs.
func SanitizeInput(input string) (string, error) {
	if limit := maxInputSize(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	input = strings.ReplaceAll(input, "\r\n", "\n")
	if strings.IndexFunc(input, unsafeRune) < 0 {
		return input, nil
	}
	return strings.Map(func(r rune) rune {
		if unsafeRune(r) {
			return -1
		}
		return r
	}, input), nil
}

func unsafeRune(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t'
}

func maxInputSize() int {
	if size, err := strconv.Atoi(os.Getenv(EnvMaxInputSize)); err == nil && size > 0 {
		return size
	}
	return DefaultMaxInputSize
}
