// Package transport dials the relay over TCP or WebSocket.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/floegence/safechat/framing/frame"
	"github.com/floegence/safechat/internal/contextutil"
	"github.com/floegence/safechat/realtime/ws"
)

// ErrInvalidServer signals a server string that is neither a host nor a ws/wss URL.
var ErrInvalidServer = errors.New("invalid server address")

// IsWebSocketURL reports whether server names a WebSocket relay.
func IsWebSocketURL(server string) bool {
	s := strings.ToLower(strings.TrimSpace(server))
	return strings.HasPrefix(s, "ws://") || strings.HasPrefix(s, "wss://")
}

// Dial connects to the relay at server:port.
//
// server may be a host name, an IP address, or a ws:// / wss:// URL. For URLs
// without an explicit port, port is applied; a URL port wins. timeout bounds
// the whole dial (0 disables it).
func Dial(ctx context.Context, server string, port int, timeout time.Duration) (net.Conn, error) {
	ctx, cancel := contextutil.WithTimeout(ctx, timeout)
	defer cancel()

	server = strings.TrimSpace(server)
	if server == "" {
		return nil, ErrInvalidServer
	}
	if IsWebSocketURL(server) {
		u, err := WebSocketURL(server, port)
		if err != nil {
			return nil, err
		}
		c, _, err := ws.Dial(ctx, u, ws.DialOptions{ReadLimit: frame.HeaderLen + frame.MaxBlockSize})
		if err != nil {
			return nil, fmt.Errorf("can't connect to server: %w", err)
		}
		return c, nil
	}

	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", net.JoinHostPort(server, strconv.Itoa(port)))
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return nil, fmt.Errorf("can't resolve server name: %w", err)
		}
		return nil, fmt.Errorf("can't connect to server: %w", err)
	}
	return c, nil
}

// WebSocketURL normalises a ws/wss server URL, filling in port when the URL has none.
func WebSocketURL(server string, port int) (string, error) {
	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidServer, server)
	}
	if u.Port() == "" && port > 0 {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
	}
	return u.String(), nil
}
