package defaults

import "time"

// KeepalivePeriod returns the idle watchdog period for a relay timeout.
//
// It is a third of the timeout, so at least two probes fit in one idle window.
// A non-positive timeout disables the watchdog.
func KeepalivePeriod(relayTimeout time.Duration) time.Duration {
	if relayTimeout <= 0 {
		return 0
	}
	return relayTimeout / 3
}
