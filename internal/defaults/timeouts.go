package defaults

import "time"

const (
	// ConnectTimeout bounds resolving and dialing the relay.
	ConnectTimeout = 10 * time.Second
	// RelayTimeout is the idle timeout the relay enforces on a silent connection.
	RelayTimeout = 60 * time.Second
	// ModulusBits is the compiled-in Diffie-Hellman modulus length. Both peers
	// must use the same value; it is never negotiated.
	ModulusBits = 1024
)
