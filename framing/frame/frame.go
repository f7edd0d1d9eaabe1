package frame

import (
	"errors"
	"fmt"
	"io"

	"github.com/floegence/safechat/internal/bin"
)

const (
	// MaxBlockSize bounds the payload of every frame on the wire.
	MaxBlockSize = 4096
	// HeaderLen is command(u32) + size(u32).
	HeaderLen = 4 + 4
)

var (
	// ErrOversized signals a frame whose declared size exceeds MaxBlockSize.
	ErrOversized = errors.New("oversized block")
	// ErrConnectionDropped signals a short read or write on the stream.
	ErrConnectionDropped = errors.New("connection dropped")
)

// Frame is the atomic unit of the relay protocol.
type Frame struct {
	Command Command
	Payload []byte
}

// Size returns the payload length as carried in the header.
func (f Frame) Size() int { return len(f.Payload) }

// Encode serializes f as command || size || payload.
func Encode(cmd Command, payload []byte) ([]byte, error) {
	if len(payload) > MaxBlockSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrOversized, len(payload))
	}
	out := make([]byte, HeaderLen+len(payload))
	bin.PutU32LE(out[:4], uint32(cmd))
	bin.PutU32LE(out[4:8], uint32(len(payload)))
	copy(out[HeaderLen:], payload)
	return out, nil
}

// Write serializes one frame with a single Write call so message-oriented
// transports carry exactly one frame per message.
func Write(w io.Writer, cmd Command, payload []byte) error {
	b, err := Encode(cmd, payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionDropped, err)
	}
	return nil
}

// Read decodes one frame. The declared size is validated before any payload
// byte is consumed.
func Read(r io.Reader) (Frame, error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:4]); err != nil {
		return Frame{}, dropped(err)
	}
	if _, err := io.ReadFull(r, hdr[4:]); err != nil {
		return Frame{}, dropped(err)
	}
	cmd := Command(bin.U32LE(hdr[:4]))
	n := bin.U32LE(hdr[4:])
	if n > MaxBlockSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrOversized, n)
	}
	f := Frame{Command: cmd}
	if n == 0 {
		return f, nil
	}
	f.Payload = make([]byte, n)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return Frame{}, dropped(err)
	}
	return f, nil
}

func dropped(err error) error {
	if errors.Is(err, ErrConnectionDropped) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrConnectionDropped, err)
}
