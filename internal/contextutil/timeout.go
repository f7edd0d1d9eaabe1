package contextutil

import (
	"context"
	"time"
)

// WithTimeout returns parent if d<=0; otherwise wraps it with a timeout.
//
// A nil parent is treated as context.Background().
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if d <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, d)
}

// CauseOf returns why ctx ended, or nil while it is still live.
//
// Workers use it after a failed read to report the session's own shutdown
// reason instead of the "use of closed connection" error it provoked.
func CauseOf(ctx context.Context) error {
	if ctx == nil || ctx.Err() == nil {
		return nil
	}
	return context.Cause(ctx)
}
