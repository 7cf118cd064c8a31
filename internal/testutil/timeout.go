package testutil

import (
	"context"
	"testing"
	"time"
)

const (
	// DefaultEventTimeout bounds a wait for one broadcast.
	DefaultEventTimeout = 2 * time.Second

	// DefaultTestBuffer is subtracted from the test deadline to leave time
	// for cleanup.
	DefaultTestBuffer = 5 * time.Second
)

// ContextWithTestDeadline creates a context that ends before the test's
// deadline, or after fallback if the test has none.
func ContextWithTestDeadline(t *testing.T, fallback time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return ContextWithTestDeadlineBuffer(t, fallback, DefaultTestBuffer)
}

// ContextWithTestDeadlineBuffer is ContextWithTestDeadline with a custom
// buffer. If the buffered deadline has already passed, fallback is used.
func ContextWithTestDeadlineBuffer(t *testing.T, fallback, buffer time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()

	if deadline, ok := t.Deadline(); ok {
		adjusted := deadline.Add(-buffer)
		if remaining := time.Until(adjusted); remaining > 0 && remaining < fallback {
			return context.WithDeadline(context.Background(), adjusted)
		}
	}
	return context.WithTimeout(context.Background(), fallback)
}

// EventContext creates a context for waiting on a single event.
func EventContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return ContextWithTestDeadline(t, DefaultEventTimeout)
}
