package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/floegence/safechat/crypto/e2ee"
	"github.com/floegence/safechat/framing/frame"
	"github.com/floegence/safechat/internal/contextutil"
	"github.com/floegence/safechat/internal/defaults"
	"github.com/floegence/safechat/internal/mailbox"
	"github.com/floegence/safechat/scerrors"
	"github.com/floegence/safechat/transport"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/op/go-logging.v1"
)

// ProtocolVersion is the relay protocol version this client speaks.
const ProtocolVersion int32 = 1

// maxLineBytes bounds one line of terminal input.
const maxLineBytes = 1 << 20

// Config is what a session needs from the configuration collaborator.
type Config struct {
	Name        string // Display name sent to the relay.
	DownloadDir string // Directory accepted files are written to.
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return wrapErr(StageConfig, CodeConfig, ErrMissingName)
	}
	if strings.TrimSpace(c.DownloadDir) == "" {
		return wrapErr(StageConfig, CodeConfig, ErrMissingDownloadDir)
	}
	return nil
}

// Session is one client connection to the relay, from the version check
// through matchmaking to the encrypted chat shell.
//
// Three workers feed the session loop: the network reader and the terminal
// reader hand over one item at a time through mailbox slots, and the
// keepalive watchdog writes probes directly. Only the session loop makes
// protocol decisions.
type Session struct {
	id   string
	cfg  Config
	opts options
	conn net.Conn
	log  *logging.Logger

	sendMu   sync.Mutex
	channel  *e2ee.Channel // nil until the key exchange completes; set under sendMu.
	lastSend atomic.Int64  // Unix nanoseconds of the last successful send.
	leaving  atomic.Bool   // Set once this side has decided to disconnect.

	net  *mailbox.Slot[frame.Frame]
	term *mailbox.Slot[string]

	// Owned by the session loop.
	role     Role
	peerName string
}

// New wraps an established relay connection. The session takes ownership of
// conn and closes it when Run returns.
func New(conn net.Conn, cfg Config, opts ...Option) (*Session, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, wrapErr(StageConfig, CodeConfig, err)
	}
	return newSession(conn, cfg, o)
}

// Dial connects to the relay at server:port and returns a session ready to Run.
func Dial(ctx context.Context, server string, port int, cfg Config, opts ...Option) (*Session, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, wrapErr(StageConfig, CodeConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	conn, err := transport.Dial(ctx, server, port, o.connectTimeout)
	if err != nil {
		return nil, wrapErr(StageConnect, scerrors.ClassifyConnectCode(err), err)
	}
	o.logger.Noticef("connected to %s (%s)", conn.RemoteAddr(), server)
	return newSession(conn, cfg, o)
}

func newSession(conn net.Conn, cfg Config, o options) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Session{
		id:   uuid.NewString(),
		cfg:  cfg,
		opts: o,
		conn: conn,
		log:  o.logger,
		net:  mailbox.NewSlot[frame.Frame](),
		term: mailbox.NewSlot[string](),
	}
	s.lastSend.Store(o.now().UnixNano())
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Run drives the session until it ends and returns why.
//
// A local or peer disconnect ends the session with an error for which
// scerrors.IsGraceful reports true. Canceling ctx disconnects from the relay
// the same way an empty input line does.
func (s *Session) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return s.readNetwork(gctx) })
	if period := defaults.KeepalivePeriod(s.opts.relayTimeout); period > 0 {
		g.Go(func() error { return s.keepalive(gctx, period) })
	}
	// Blocking terminal reads cannot be interrupted, so this worker is not joined.
	go s.readTerminal(gctx, cancel)

	s.log.Infof("session %s: started", s.id)
	err := s.drive(gctx)
	if ctx.Err() != nil && !scerrors.IsGraceful(err) {
		s.leaving.Store(true)
		_ = s.send(frame.CommandDisconnect, nil)
		err = wrapErr(StageShell, CodeDisconnected, ErrLocalDisconnect)
	}
	cancel(err)
	_ = s.conn.Close()
	_ = g.Wait()

	if scerrors.IsGraceful(err) {
		s.log.Noticef("session %s: disconnected: %v", s.id, scerrors.Message(err))
		s.printf("\nDisconnected.\n")
	} else {
		s.log.Errorf("session %s: %v", s.id, err)
	}
	return err
}

func (s *Session) drive(ctx context.Context) error {
	if err := s.greetRelay(ctx); err != nil {
		return err
	}
	for {
		choice, err := s.prompt(ctx, menuText, func(a string) bool { return a == "1" || a == "2" })
		if err != nil {
			return err
		}
		if choice == "1" {
			err = s.host(ctx)
		} else {
			err = s.browse(ctx)
		}
		if err != nil {
			return err
		}
	}
}

// send writes one frame, sealing non-empty payloads once the channel is up.
func (s *Session) send(cmd frame.Command, payload []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	wire := payload
	if s.channel != nil && len(payload) > 0 {
		var err error
		if wire, err = s.channel.Seal(payload); err != nil {
			return err
		}
	}
	if err := frame.Write(s.conn, cmd, wire); err != nil {
		return err
	}
	s.lastSend.Store(s.opts.now().UnixNano())
	s.opts.observer.FrameSent(cmd.String(), len(wire))
	return nil
}

// recv takes the next frame from the network reader and opens it.
func (s *Session) recv(ctx context.Context) (frame.Frame, error) {
	f, err := s.net.Take(ctx)
	if err != nil {
		return frame.Frame{}, err
	}
	return s.open(f)
}

func (s *Session) open(f frame.Frame) (frame.Frame, error) {
	if s.channel == nil || len(f.Payload) == 0 {
		return f, nil
	}
	plain, err := s.channel.Open(f.Payload)
	if err != nil {
		return frame.Frame{}, wrapErr(StageNetwork, CodeProtocolViolation, err)
	}
	f.Payload = plain
	return f, nil
}

func (s *Session) setChannel(ch *e2ee.Channel) {
	s.sendMu.Lock()
	s.channel = ch
	s.sendMu.Unlock()
}

func (s *Session) lastSendTime() time.Time {
	return time.Unix(0, s.lastSend.Load())
}

// readNetwork decodes frames and hands them to the session loop one at a time.
// Disconnect frames end the session; keepalives are dropped.
func (s *Session) readNetwork(ctx context.Context) error {
	for {
		f, err := frame.Read(s.conn)
		if err != nil {
			if contextutil.CauseOf(ctx) != nil || s.leaving.Load() {
				return nil
			}
			s.log.Errorf("session %s: read: %v", s.id, err)
			return scerrors.WrapClassified(StageNetwork, err)
		}
		s.opts.observer.FrameReceived(f.Command.String(), f.Size())
		switch f.Command {
		case frame.CommandDisconnect:
			return wrapErr(StageNetwork, CodeDisconnected, ErrPeerDisconnected)
		case frame.CommandKeepalive:
			continue
		}
		if err := s.net.Put(ctx, f); err != nil {
			return nil
		}
	}
}

// readTerminal hands input lines to the session loop. An empty line or the
// end of input disconnects. Over-long lines are reported and skipped.
func (s *Session) readTerminal(ctx context.Context, cancel context.CancelCauseFunc) {
	r := bufio.NewReader(s.opts.in)
	var err error
	for {
		var line string
		line, err = readBoundedLine(r, maxLineBytes)
		if errors.Is(err, ErrLineTooLong) {
			s.log.Warningf("session %s: skipped terminal line over %d bytes", s.id, maxLineBytes)
			s.report(wrapErr(StageShell, CodeLocalIO, err))
			continue
		}
		if err != nil || line == "" {
			break
		}
		if err := s.term.Put(ctx, line); err != nil {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	s.leaving.Store(true)
	_ = s.send(frame.CommandDisconnect, nil)
	if err != nil && !errors.Is(err, io.EOF) {
		cancel(wrapErr(StageShell, CodeLocalIO, fmt.Errorf("terminal: %w", err)))
		return
	}
	cancel(wrapErr(StageShell, CodeDisconnected, ErrLocalDisconnect))
}

// readBoundedLine returns the next line without its terminator. A line longer
// than limit is consumed whole and rejected with ErrLineTooLong.
func readBoundedLine(r *bufio.Reader, limit int) (string, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return "", err
		}
		if !tooLong {
			if len(buf)+len(chunk) > limit {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			if tooLong {
				return "", ErrLineTooLong
			}
			return string(buf), nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	return s.term.Take(ctx)
}

// prompt prints question until the answer satisfies valid.
func (s *Session) prompt(ctx context.Context, question string, valid func(string) bool) (string, error) {
	for {
		s.printf("%s", question)
		line, err := s.readLine(ctx)
		if err != nil {
			return "", err
		}
		if valid(strings.TrimSpace(line)) {
			return strings.TrimSpace(line), nil
		}
	}
}

func yesNo(a string) bool { return a == "y" || a == "n" }

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.opts.out, format, args...)
}

// report prints a recoverable failure as a single distinct line.
func (s *Session) report(err error) {
	fmt.Fprintf(s.opts.errOut, "Error: %s.\n", scerrors.Message(err))
}
