// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

// NewLimitedWriter wraps target, allowing maxWrites successful writes.
func NewLimitedWriter(target io.Writer, maxWrites int) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, target: target}
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}
