package awsquery

import (
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
)

const lf = '\n'

const (
	amzDateTimeFormat    = "20060102T150405Z"
	amzDateFormat        = "20060102"
	queryTimestampFormat = "2006-01-02T15:04:05Z"
)

type nestedError struct {
	sentinel error
	wrapped  error
}

// nestError wraps err under sentinel so that errors.Is matches both.
func nestError(sentinel error, format string, args ...any) error {
	return &nestedError{
		sentinel: sentinel,
		wrapped:  fmt.Errorf(format, args...),
	}
}

func (e *nestedError) Error() string {
	return e.sentinel.Error() + ": " + e.wrapped.Error()
}

func (e *nestedError) Is(target error) bool {
	return errors.Is(e.sentinel, target)
}

func (e *nestedError) Unwrap() error {
	return e.wrapped
}

const upperhex = "0123456789ABCDEF"

// uriEncode percent-encodes s leaving the unreserved set (A-Za-z0-9-._~)
// intact. With isPath, the path separator is left intact too.
func uriEncode(s string, isPath bool) string {
	b := new(strings.Builder)
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= 'A' && c <= 'Z',
			c >= 'a' && c <= 'z',
			c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~',
			c == '/' && isPath:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}

	return b.String()
}

type hashBuilder struct {
	h hash.Hash
}

func newHashBuilder(newHash func() hash.Hash) *hashBuilder {
	return &hashBuilder{h: newHash()}
}

func (b *hashBuilder) Write(p []byte) {
	b.h.Write(p)
}

func (b *hashBuilder) WriteString(s string) {
	io.WriteString(b.h, s)
}

func (b *hashBuilder) WriteByte(c byte) error {
	b.h.Write([]byte{c})
	return nil
}

func (b *hashBuilder) Sum() []byte {
	return b.h.Sum(nil)
}

// collapseSpaces trims s and collapses internal runs of spaces and tabs to
// a single space, except within double quotes.
func collapseSpaces(s string) string {
	b := new(strings.Builder)
	b.Grow(len(s))

	var quoted, pending bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			quoted = !quoted
		}
		if !quoted && (c == ' ' || c == '\t') {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteByte(c)
	}

	return b.String()
}
