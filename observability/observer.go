package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

type HandshakeRole string

const (
	HandshakeRoleHost  HandshakeRole = "host"
	HandshakeRoleGuest HandshakeRole = "guest"
)

type HandshakeResult string

const (
	HandshakeResultOK   HandshakeResult = "ok"
	HandshakeResultFail HandshakeResult = "fail"
)

type TransferDirection string

const (
	TransferSend    TransferDirection = "send"
	TransferReceive TransferDirection = "receive"
)

type TransferResult string

const (
	TransferResultOK       TransferResult = "ok"
	TransferResultDeclined TransferResult = "declined"
	TransferResultLocalIO  TransferResult = "local_io"
	TransferResultFail     TransferResult = "fail"
)

// ClientObserver receives session-level metric events.
//
// Command labels are frame command names ("data", "keepalive", ...); byte
// counts are wire payload sizes.
type ClientObserver interface {
	FrameSent(command string, bytes int)
	FrameReceived(command string, bytes int)
	Keepalive()
	Handshake(role HandshakeRole, result HandshakeResult, d time.Duration)
	Transfer(direction TransferDirection, result TransferResult, bytes int64)
}

type noopClientObserver struct{}

func (noopClientObserver) FrameSent(string, int)                                   {}
func (noopClientObserver) FrameReceived(string, int)                               {}
func (noopClientObserver) Keepalive()                                              {}
func (noopClientObserver) Handshake(HandshakeRole, HandshakeResult, time.Duration) {}
func (noopClientObserver) Transfer(TransferDirection, TransferResult, int64)       {}

// NoopClientObserver is a zero-cost observer used when metrics are disabled.
var NoopClientObserver ClientObserver = noopClientObserver{}

// AtomicClientObserver swaps its delegate at runtime.
type AtomicClientObserver struct {
	once sync.Once
	v    atomic.Value
}

type clientObserverHolder struct {
	obs ClientObserver
}

// NewAtomicClientObserver returns an initialized atomic observer.
func NewAtomicClientObserver() *AtomicClientObserver {
	a := &AtomicClientObserver{}
	a.once.Do(func() { a.v.Store(&clientObserverHolder{obs: NoopClientObserver}) })
	return a
}

// Set replaces the delegate, falling back to the no-op observer on nil.
func (a *AtomicClientObserver) Set(obs ClientObserver) {
	if obs == nil {
		obs = NoopClientObserver
	}
	a.once.Do(func() { a.v.Store(&clientObserverHolder{obs: NoopClientObserver}) })
	a.v.Store(&clientObserverHolder{obs: obs})
}

func (a *AtomicClientObserver) load() ClientObserver {
	a.once.Do(func() { a.v.Store(&clientObserverHolder{obs: NoopClientObserver}) })
	return a.v.Load().(*clientObserverHolder).obs
}

func (a *AtomicClientObserver) FrameSent(command string, bytes int) {
	a.load().FrameSent(command, bytes)
}
func (a *AtomicClientObserver) FrameReceived(command string, bytes int) {
	a.load().FrameReceived(command, bytes)
}
func (a *AtomicClientObserver) Keepalive() { a.load().Keepalive() }
func (a *AtomicClientObserver) Handshake(role HandshakeRole, result HandshakeResult, d time.Duration) {
	a.load().Handshake(role, result, d)
}
func (a *AtomicClientObserver) Transfer(direction TransferDirection, result TransferResult, bytes int64) {
	a.load().Transfer(direction, result, bytes)
}
