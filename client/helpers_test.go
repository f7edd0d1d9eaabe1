package client

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/floegence/safechat/crypto/e2ee"
	"github.com/floegence/safechat/framing/frame"
	"github.com/floegence/safechat/observability"
	"github.com/stretchr/testify/require"
)

const (
	testModulusBits = 128
	defaultWait     = 20 * time.Second
	pollInterval    = 5 * time.Millisecond
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// pipeTransport lets the test play the peer's side of the key exchange.
type pipeTransport struct {
	c net.Conn
}

func (t pipeTransport) SendFrame(cmd frame.Command, payload []byte) error {
	return frame.Write(t.c, cmd, payload)
}

func (t pipeTransport) RecvFrame(context.Context) (frame.Frame, error) {
	return frame.Read(t.c)
}

// harness runs a Session against a scripted relay. The test goroutine plays
// both the relay and, after matchmaking, the remote peer.
type harness struct {
	t      *testing.T
	sess   *Session
	relay  net.Conn
	in     *io.PipeWriter
	out    *syncBuffer
	errOut *syncBuffer
	dlDir  string
	cancel context.CancelFunc
	done   chan error

	peer     *e2ee.Channel
	lastWire int
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	return newHarnessWithConfig(t, nil, opts...)
}

// newHarnessWithConfig lets a test adjust the session config before Run starts.
func newHarnessWithConfig(t *testing.T, adjust func(*Config), opts ...Option) *harness {
	t.Helper()
	clientConn, relayConn := net.Pipe()
	inR, inW := io.Pipe()
	h := &harness{
		t:      t,
		relay:  relayConn,
		in:     inW,
		out:    &syncBuffer{},
		errOut: &syncBuffer{},
		dlDir:  t.TempDir(),
		done:   make(chan error, 1),
	}
	all := append([]Option{
		WithTerminal(inR, h.out),
		WithErrorOutput(h.errOut),
		WithRelayTimeout(0),
		WithModulusBits(testModulusBits),
	}, opts...)
	cfg := Config{Name: "alice", DownloadDir: h.dlDir}
	if adjust != nil {
		adjust(&cfg)
	}
	s, err := New(clientConn, cfg, all...)
	require.NoError(t, err)
	h.sess = s
	require.NoError(t, relayConn.SetDeadline(time.Now().Add(30*time.Second)))

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = inW.Close()
		_ = relayConn.Close()
	})
	return h
}

func (h *harness) send(cmd frame.Command, payload []byte) {
	h.t.Helper()
	wire := payload
	if h.peer != nil && len(payload) > 0 {
		var err error
		wire, err = h.peer.Seal(payload)
		require.NoError(h.t, err)
	}
	require.NoError(h.t, frame.Write(h.relay, cmd, wire))
}

// expect reads the next frame, requires cmd, and returns the opened payload.
func (h *harness) expect(cmd frame.Command) []byte {
	h.t.Helper()
	f, err := frame.Read(h.relay)
	require.NoError(h.t, err)
	require.Equal(h.t, cmd, f.Command, "unexpected command")
	h.lastWire = len(f.Payload)
	if h.peer == nil || len(f.Payload) == 0 {
		return f.Payload
	}
	plain, err := h.peer.Open(f.Payload)
	require.NoError(h.t, err)
	return plain
}

func (h *harness) greet() {
	h.t.Helper()
	h.send(frame.CommandData, frame.Int32(ProtocolVersion))
	h.send(frame.CommandData, []byte{0})
	require.Equal(h.t, "alice", frame.ParseCString(h.expect(frame.CommandName)))
	h.waitOutput("Choice: ", 1)
}

func (h *harness) typeLine(line string) {
	h.t.Helper()
	_, err := io.WriteString(h.in, line+"\n")
	require.NoError(h.t, err)
}

// waitOutput blocks until substr has appeared at least n times on the terminal.
func (h *harness) waitOutput(substr string, n int) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return strings.Count(h.out.String(), substr) >= n
	}, defaultWait, pollInterval, "waiting for %q x%d in output:\n%s", substr, n, h.out.String())
}

func (h *harness) wait() error {
	h.t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(defaultWait):
		h.t.Fatalf("session did not end; output:\n%s", h.out.String())
		return nil
	}
}

// handshakeAs runs the peer's side of the key exchange.
func (h *harness) handshakeAs(role Role) {
	h.t.Helper()
	ctx := context.Background()
	opts := e2ee.HandshakeOptions{ModulusBits: testModulusBits}
	var res *e2ee.Result
	var err error
	if role == RoleHost {
		res, err = e2ee.HostHandshake(ctx, pipeTransport{c: h.relay}, opts)
	} else {
		res, err = e2ee.GuestHandshake(ctx, pipeTransport{c: h.relay}, opts)
	}
	require.NoError(h.t, err)
	h.peer = res.Channel
	h.waitOutput("<entr> - Disconnect", 1)
}

type transferEvent struct {
	direction observability.TransferDirection
	result    observability.TransferResult
	bytes     int64
}

type recordingObserver struct {
	mu         sync.Mutex
	sent       map[string]int
	keepalives int
	handshakes []observability.HandshakeResult
	transfers  []transferEvent
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{sent: map[string]int{}}
}

func (o *recordingObserver) FrameSent(command string, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent[command]++
}

func (o *recordingObserver) FrameReceived(string, int) {}

func (o *recordingObserver) Keepalive() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.keepalives++
}

func (o *recordingObserver) Handshake(_ observability.HandshakeRole, result observability.HandshakeResult, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handshakes = append(o.handshakes, result)
}

func (o *recordingObserver) Transfer(direction observability.TransferDirection, result observability.TransferResult, bytes int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transfers = append(o.transfers, transferEvent{direction, result, bytes})
}

func (o *recordingObserver) snapshot() ([]observability.HandshakeResult, []transferEvent, map[string]int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sent := map[string]int{}
	for k, v := range o.sent {
		sent[k] = v
	}
	return append([]observability.HandshakeResult(nil), o.handshakes...), append([]transferEvent(nil), o.transfers...), sent
}

// hostFor takes the session from the main menu to an encrypted shell in
// which it hosts peer.
func (h *harness) hostFor(peer string) {
	h.t.Helper()
	h.greet()
	h.typeLine("1")
	h.expect(frame.CommandHost)
	h.send(frame.CommandData, frame.CString(peer))
	h.waitOutput("Accept connection from "+peer+"? (y/n) ", 1)
	h.typeLine("y")
	h.expect(frame.CommandAccept)
	h.handshakeAs(RoleGuest)
}
