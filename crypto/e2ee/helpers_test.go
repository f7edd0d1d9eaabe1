package e2ee

import (
	"context"
	"io"
	"sync"

	"github.com/floegence/safechat/framing/frame"
)

type memoryTransport struct {
	readCh  <-chan frame.Frame
	writeCh chan<- frame.Frame
	once    sync.Once
}

func (t *memoryTransport) RecvFrame(ctx context.Context) (frame.Frame, error) {
	select {
	case f, ok := <-t.readCh:
		if !ok {
			return frame.Frame{}, io.EOF
		}
		return f, nil
	case <-ctx.Done():
		return frame.Frame{}, ctx.Err()
	}
}

func (t *memoryTransport) SendFrame(cmd frame.Command, payload []byte) error {
	cpy := make([]byte, len(payload))
	copy(cpy, payload)
	t.writeCh <- frame.Frame{Command: cmd, Payload: cpy}
	return nil
}

func (t *memoryTransport) Close() error {
	t.once.Do(func() {
		close(t.writeCh)
	})
	return nil
}

func newMemoryTransportPair(buffer int) (*memoryTransport, *memoryTransport) {
	h2g := make(chan frame.Frame, buffer)
	g2h := make(chan frame.Frame, buffer)
	return &memoryTransport{readCh: g2h, writeCh: h2g}, &memoryTransport{readCh: h2g, writeCh: g2h}
}
