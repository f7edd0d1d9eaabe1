// Package ws carries the relay's frame stream over WebSocket binary messages.
//
// Conn implements net.Conn: each Write becomes one binary message and Read
// returns the concatenation of received message payloads, so the frame codec
// runs over it unchanged.
package ws

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNonBinaryMessage is returned by Read when the peer sends a text message.
var ErrNonBinaryMessage = errors.New("websocket: non-binary message")

// Conn adapts a gorilla/websocket connection to net.Conn.
type Conn struct {
	c *websocket.Conn // Underlying gorilla/websocket connection.

	readMu sync.Mutex
	cur    io.Reader // Unfinished message, or nil.

	writeMu sync.Mutex
}

var _ net.Conn = (*Conn)(nil)

// UpgraderOptions exposes a small set of websocket upgrader controls.
type UpgraderOptions struct {
	ReadBufferSize  int                        // Read buffer size for upgrader.
	WriteBufferSize int                        // Write buffer size for upgrader.
	CheckOrigin     func(r *http.Request) bool // Optional origin check.
	ReadLimit       int64                      // Maximum message size; 0 means unlimited.
}

// Upgrade upgrades an HTTP request to a websocket connection.
func Upgrade(w http.ResponseWriter, r *http.Request, opts UpgraderOptions) (*Conn, error) {
	up := websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     opts.CheckOrigin,
	}
	c, err := up.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	if opts.ReadLimit > 0 {
		c.SetReadLimit(opts.ReadLimit)
	}
	return &Conn{c: c}, nil
}

// DialOptions provides optional settings for websocket dialing.
type DialOptions struct {
	Header    http.Header // Optional headers for the handshake request.
	Dialer    *websocket.Dialer
	ReadLimit int64 // Maximum message size; 0 means unlimited.
}

// Dial opens a websocket connection with deadline-aware handshake.
func Dial(ctx context.Context, urlStr string, opts DialOptions) (*Conn, *http.Response, error) {
	var d websocket.Dialer
	if opts.Dialer != nil {
		d = *opts.Dialer
	} else {
		d = websocket.Dialer{Proxy: http.ProxyFromEnvironment}
	}
	if deadline, ok := ctx.Deadline(); ok {
		// Prefer the tighter of dialer.HandshakeTimeout and the context deadline when both are set.
		dl := time.Until(deadline)
		if d.HandshakeTimeout == 0 || d.HandshakeTimeout > dl {
			d.HandshakeTimeout = dl
		}
	}
	c, resp, err := d.DialContext(ctx, urlStr, opts.Header)
	if err != nil {
		return nil, resp, err
	}
	if opts.ReadLimit > 0 {
		c.SetReadLimit(opts.ReadLimit)
	}
	return &Conn{c: c}, resp, nil
}

// Read reads from the current binary message, advancing to the next one as
// each is drained. A normal close from the peer reads as io.EOF.
func (c *Conn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	for {
		if c.cur == nil {
			mt, r, err := c.c.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if mt != websocket.BinaryMessage {
				return 0, ErrNonBinaryMessage
			}
			c.cur = r
		}
		n, err := c.cur.Read(p)
		if err == io.EOF {
			c.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Write sends p as a single binary message.
func (c *Conn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.c.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a normal close control frame before closing.
func (c *Conn) Close() error {
	_ = c.c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.c.Close()
}

func (c *Conn) LocalAddr() net.Addr  { return c.c.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr { return c.c.RemoteAddr() }

func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.c.SetReadDeadline(t); err != nil {
		return err
	}
	return c.c.SetWriteDeadline(t)
}

func (c *Conn) SetReadDeadline(t time.Time) error  { return c.c.SetReadDeadline(t) }
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.c.SetWriteDeadline(t) }

// Underlying exposes the raw gorilla/websocket connection.
func (c *Conn) Underlying() *websocket.Conn {
	return c.c
}
