package defaults

import (
	"testing"
	"time"
)

func TestKeepalivePeriod(t *testing.T) {
	t.Run("non-positive timeout disables keepalive", func(t *testing.T) {
		if got := KeepalivePeriod(0); got != 0 {
			t.Fatalf("expected 0, got %v", got)
		}
		if got := KeepalivePeriod(-time.Second); got != 0 {
			t.Fatalf("expected 0, got %v", got)
		}
	})

	t.Run("timeout/3", func(t *testing.T) {
		if got := KeepalivePeriod(RelayTimeout); got != 20*time.Second {
			t.Fatalf("expected 20s, got %v", got)
		}
		if got := KeepalivePeriod(90 * time.Millisecond); got != 30*time.Millisecond {
			t.Fatalf("expected 30ms, got %v", got)
		}
	})
}
