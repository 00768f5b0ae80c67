// Package text holds the typed text produced by key commits.
package text

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ayusman/gazekeys/internal/keyboard"
)

// Buffer is the typed text. It only grows, except for Backspace.
type Buffer struct {
	b strings.Builder
}

// Apply performs the edit for a committed key label.
func (t *Buffer) Apply(key string) {
	switch key {
	case keyboard.Space:
		t.b.WriteByte(' ')
	case keyboard.Enter:
		t.b.WriteByte('\n')
	case keyboard.Backspace:
		t.Backspace()
	default:
		t.b.WriteString(key)
	}
}

// Backspace removes the last character. It is a no-op on an empty buffer.
func (t *Buffer) Backspace() {
	s := t.b.String()
	if s == "" {
		return
	}
	_, size := utf8.DecodeLastRuneInString(s)
	s = s[:len(s)-size]
	t.b.Reset()
	t.b.WriteString(s)
}

// String returns the buffer contents.
func (t *Buffer) String() string {
	return t.b.String()
}

// Len returns the buffer length in bytes.
func (t *Buffer) Len() int {
	return t.b.Len()
}

// LastToken returns the trailing whitespace-delimited word, or "" when the
// buffer is empty or ends in whitespace.
func (t *Buffer) LastToken() string {
	s := t.b.String()
	i := strings.LastIndexFunc(s, unicode.IsSpace)
	return s[i+1:]
}

// Reset clears the buffer.
func (t *Buffer) Reset() {
	t.b.Reset()
}
