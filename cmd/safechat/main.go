package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/floegence/safechat/client"
	"github.com/floegence/safechat/config"
	"github.com/floegence/safechat/internal/cmdutil"
	"github.com/floegence/safechat/internal/log"
	scversion "github.com/floegence/safechat/internal/version"
	"github.com/floegence/safechat/observability"
	"github.com/floegence/safechat/observability/prom"
	"github.com/floegence/safechat/scerrors"
	"github.com/spf13/cobra"
	"gopkg.in/op/go-logging.v1"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

type cliOptions struct {
	configFile    string
	overrides     config.Overrides
	logFile       string
	logLevel      string
	metricsListen string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// envDefaults seeds the options from SAFECHAT_* environment variables;
// flags override them.
func envDefaults() (cliOptions, error) {
	o := cliOptions{
		configFile:    cmdutil.EnvString("CONFIG", ""),
		logFile:       cmdutil.EnvString("LOG_FILE", ""),
		logLevel:      cmdutil.EnvString("LOG_LEVEL", ""),
		metricsListen: cmdutil.EnvString("METRICS_LISTEN", ""),
	}
	o.overrides.Server = cmdutil.EnvString("SERVER", "")
	port, err := cmdutil.EnvInt("PORT", 0)
	if err != nil {
		return cliOptions{}, err
	}
	o.overrides.Port = port
	return o, nil
}

func newRootCommand(o *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "safechat",
		Short: "End-to-end encrypted chat and file transfer through a SafeChat relay",
		Long: `SafeChat connects to a relay, lets you host a conversation or join one,
and encrypts everything between the two peers. Type a line to chat, type a
file path to offer the file, and enter an empty line to disconnect.

Settings are read from $HOME/.safechat and written back on a clean exit.`,
		Example: `  # Join the relay at chat.example.net:4000 as alice
  safechat -n alice -s chat.example.net -p 4000 -f ~/Downloads

  # Use a relay behind a WebSocket endpoint
  safechat -s wss://chat.example.net/relay`,
		Version:       scversion.String(version, commit, date),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	f := cmd.Flags()
	f.StringVarP(&o.overrides.LocalName, "name", "n", o.overrides.LocalName, "name forwarded to the relay")
	f.StringVarP(&o.overrides.Server, "server", "s", o.overrides.Server, "DNS name, IP address, or ws:// / wss:// URL of the relay (env: SAFECHAT_SERVER)")
	f.IntVarP(&o.overrides.Port, "port", "p", o.overrides.Port, "port the relay is running on (env: SAFECHAT_PORT)")
	f.StringVarP(&o.overrides.FilePath, "file-path", "f", o.overrides.FilePath, "directory received files are written to")
	f.StringVarP(&o.configFile, "config", "c", o.configFile, "configuration file (default $HOME/.safechat) (env: SAFECHAT_CONFIG)")
	f.StringVar(&o.logFile, "log-file", o.logFile, "log file (default $TMPDIR/safechat.log) (env: SAFECHAT_LOG_FILE)")
	f.StringVar(&o.logLevel, "log-level", o.logLevel, "logging level: ERROR, WARNING, NOTICE, INFO or DEBUG (env: SAFECHAT_LOG_LEVEL)")
	f.StringVar(&o.metricsListen, "metrics-listen", o.metricsListen, "listen address for the Prometheus metrics server, empty disables (env: SAFECHAT_METRICS_LISTEN)")
	return cmd
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	o, err := envDefaults()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s.\n", err)
		return exitUsage
	}
	cmd := newRootCommand(&o)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return cmdutil.Usage(err) })

	code := exitOK
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		var err error
		code, err = chat(cmd.Context(), o, stdin, stdout, stderr)
		return err
	}
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "Error: %s.\n", err)
		if cmdutil.IsUsage(err) {
			fmt.Fprint(stderr, "\n"+cmd.UsageString())
			return exitUsage
		}
		if code == exitOK {
			code = exitUsage
		}
	}
	return code
}

// chat runs one session. A returned error is printed by the caller; the
// code is the process exit status.
func chat(ctx context.Context, o cliOptions, stdin io.Reader, stdout io.Writer, stderr io.Writer) (int, error) {
	path := o.configFile
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return exitUsage, err
		}
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return exitUsage, err
	}
	cfg.ApplyOverrides(o.overrides)
	if cfg.Logging == nil {
		cfg.Logging = &config.Logging{}
	}
	if o.logFile != "" {
		cfg.Logging.File = o.logFile
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return exitUsage, cmdutil.Usage(err)
	}

	backend, err := cfg.InitLogBackend()
	if err != nil {
		return exitUsage, err
	}
	defer backend.Close()
	logger := backend.GetLogger("safechat")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go rotateOnSignal(ctx, backend, logger)

	observer := observability.NewAtomicClientObserver()
	if o.metricsListen != "" {
		shutdown, addr, err := serveMetrics(o.metricsListen, observer, backend)
		if err != nil {
			return exitFatal, err
		}
		defer shutdown()
		logger.Noticef("metrics on http://%s/metrics", addr)
	}

	sess, err := client.Dial(ctx, cfg.Server, cfg.Port,
		client.Config{Name: cfg.LocalName, DownloadDir: cfg.FilePath},
		client.WithTerminal(stdin, stdout),
		client.WithErrorOutput(stderr),
		client.WithLogger(backend.GetLogger("client")),
		client.WithObserver(observer),
	)
	if err != nil {
		logger.Errorf("dial %s:%d: %v", cfg.Server, cfg.Port, err)
		return exitFatal, errors.New(scerrors.Message(err))
	}

	err = sess.Run(ctx)
	if !scerrors.IsGraceful(err) {
		return exitFatal, errors.New(scerrors.Message(err))
	}
	if err := cfg.Save(path); err != nil {
		logger.Warningf("save config: %v", err)
		fmt.Fprintf(stderr, "Error: %s.\n", err)
	}
	return exitOK, nil
}

// serveMetrics exposes the session observer on listen until shutdown is called.
func serveMetrics(listen string, observer *observability.AtomicClientObserver, backend *log.Backend) (shutdown func(), addr string, err error) {
	reg := prom.NewRegistry()
	observer.Set(prom.NewClientObserver(reg))

	mux := http.NewServeMux()
	mux.Handle("/metrics", prom.Handler(reg))
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, "", err
	}
	srv := newHTTPServer(mux)
	srv.ErrorLog = backend.GetGoLogger("metrics", "WARNING")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			backend.GetLogger("metrics").Errorf("serve: %v", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, ln.Addr().String(), nil
}

func rotateOnSignal(ctx context.Context, backend *log.Backend, logger *logging.Logger) {
	sig := make(chan os.Signal, 1)
	if !notifyRotate(sig) {
		return
	}
	defer signal.Stop(sig)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			if err := backend.Rotate(); err != nil {
				logger.Errorf("log rotation failed: %v", err)
				continue
			}
			logger.Notice("log file reopened")
		}
	}
}
