package client

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/floegence/safechat/crypto/e2ee"
	"github.com/floegence/safechat/internal/defaults"
	"github.com/floegence/safechat/internal/log"
	"github.com/floegence/safechat/observability"
	"gopkg.in/op/go-logging.v1"
)

// Option configures a Session.
//
// Omit an option to use the default. For durations, 0 disables the feature.
type Option func(*options) error

type options struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	modulusBits    int
	relayTimeout   time.Duration
	connectTimeout time.Duration

	observer observability.ClientObserver
	logger   *logging.Logger
	rand     io.Reader
	now      func() time.Time
}

func defaultOptions() options {
	return options{
		in:             os.Stdin,
		out:            os.Stdout,
		errOut:         os.Stderr,
		modulusBits:    defaults.ModulusBits,
		relayTimeout:   defaults.RelayTimeout,
		connectTimeout: defaults.ConnectTimeout,
		observer:       observability.NoopClientObserver,
		now:            time.Now,
	}
}

func applyOptions(opts []Option) (options, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return options{}, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = log.Discard().GetLogger("client")
	}
	return cfg, nil
}

// WithTerminal sets the line input and the chat output (stdin/stdout by default).
func WithTerminal(in io.Reader, out io.Writer) Option {
	return func(cfg *options) error {
		if in == nil || out == nil {
			return fmt.Errorf("terminal input and output are required")
		}
		cfg.in = in
		cfg.out = out
		return nil
	}
}

// WithErrorOutput sets where recoverable errors are reported (stderr by default).
func WithErrorOutput(w io.Writer) Option {
	return func(cfg *options) error {
		if w == nil {
			return fmt.Errorf("error output is required")
		}
		cfg.errOut = w
		return nil
	}
}

// WithModulusBits sets the Diffie-Hellman modulus length. Both peers must agree.
func WithModulusBits(n int) Option {
	return func(cfg *options) error {
		if n < e2ee.MinModulusBits {
			return fmt.Errorf("modulus bits must be >= %d", e2ee.MinModulusBits)
		}
		cfg.modulusBits = n
		return nil
	}
}

// WithRelayTimeout sets the relay idle timeout the keepalive watchdog guards
// against; the watchdog wakes every timeout/3. 0 disables the watchdog.
func WithRelayTimeout(d time.Duration) Option {
	return func(cfg *options) error {
		if d < 0 {
			return fmt.Errorf("relay timeout must be >= 0")
		}
		cfg.relayTimeout = d
		return nil
	}
}

// WithConnectTimeout bounds Dial; 0 disables the timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(cfg *options) error {
		if d < 0 {
			return fmt.Errorf("connect timeout must be >= 0")
		}
		cfg.connectTimeout = d
		return nil
	}
}

// WithObserver reports session metrics to obs.
func WithObserver(obs observability.ClientObserver) Option {
	return func(cfg *options) error {
		if obs == nil {
			obs = observability.NoopClientObserver
		}
		cfg.observer = obs
		return nil
	}
}

// WithLogger sets the protocol event logger (discarded by default).
func WithLogger(l *logging.Logger) Option {
	return func(cfg *options) error {
		cfg.logger = l
		return nil
	}
}

// WithRand sets the entropy source for key generation (crypto/rand by default).
func WithRand(r io.Reader) Option {
	return func(cfg *options) error {
		cfg.rand = r
		return nil
	}
}
