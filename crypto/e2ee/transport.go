package e2ee

import (
	"context"

	"github.com/floegence/safechat/framing/frame"
)

// FrameTransport is the minimal frame-oriented transport needed by the key exchange.
//
// Frames exchanged through it before the exchange completes are plaintext; the
// relay sees the DH values but cannot derive the shared secret from them.
type FrameTransport interface {
	// SendFrame writes one frame.
	SendFrame(cmd frame.Command, payload []byte) error
	// RecvFrame blocks until the next frame arrives or the context is done.
	RecvFrame(ctx context.Context) (frame.Frame, error)
}
