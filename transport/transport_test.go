package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/floegence/safechat/framing/frame"
	"github.com/floegence/safechat/realtime/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketURL(t *testing.T) {
	got, err := WebSocketURL("ws://relay.example.net/chat", 4000)
	require.NoError(t, err)
	assert.Equal(t, "ws://relay.example.net:4000/chat", got)

	got, err = WebSocketURL("wss://relay.example.net:8443/chat", 4000)
	require.NoError(t, err)
	assert.Equal(t, "wss://relay.example.net:8443/chat", got)

	_, err = WebSocketURL("ws://", 4000)
	assert.ErrorIs(t, err, ErrInvalidServer)
}

func TestIsWebSocketURL(t *testing.T) {
	assert.True(t, IsWebSocketURL("WS://relay"))
	assert.True(t, IsWebSocketURL(" wss://relay"))
	assert.False(t, IsWebSocketURL("relay.example.net"))
	assert.False(t, IsWebSocketURL("10.0.0.1"))
}

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		_ = frame.Write(c, frame.CommandData, frame.Int32(1))
		_ = c.Close()
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	c, err := Dial(context.Background(), "127.0.0.1", port, 5*time.Second)
	require.NoError(t, err)
	defer c.Close()
	f, err := frame.Read(c)
	require.NoError(t, err)
	v, err := frame.ParseInt32(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)
}

func TestDialWebSocket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := ws.Upgrade(w, r, ws.UpgraderOptions{})
		if err != nil {
			return
		}
		defer c.Close()
		_ = frame.Write(c, frame.CommandData, frame.Int32(1))
		_, _ = frame.Read(c)
	}))
	defer srv.Close()

	hostPort := strings.TrimPrefix(srv.URL, "http://")
	_, portStr, err := net.SplitHostPort(hostPort)
	require.NoError(t, err)
	port, _ := strconv.Atoi(portStr)

	c, err := Dial(context.Background(), "ws://127.0.0.1/", port, 5*time.Second)
	require.NoError(t, err)
	defer c.Close()
	f, err := frame.Read(c)
	require.NoError(t, err)
	assert.Equal(t, frame.CommandData, f.Command)
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), "127.0.0.1", port, 2*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't connect to server")
}

func TestDialEmptyServer(t *testing.T) {
	_, err := Dial(context.Background(), " ", 4000, time.Second)
	assert.True(t, errors.Is(err, ErrInvalidServer))
}
