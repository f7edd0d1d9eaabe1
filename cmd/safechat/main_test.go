package main

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/floegence/safechat/config"
	"github.com/floegence/safechat/internal/relaytest"
	"github.com/stretchr/testify/require"
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

// baseArgs returns flags that keep a test away from $HOME and $TMPDIR.
func baseArgs(t *testing.T) ([]string, string) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "safechat.toml")
	return []string{"-c", cfgPath, "--log-file", filepath.Join(dir, "safechat.log"), "-f", dir}, cfgPath
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--version"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	require.Contains(t, stdout.String(), "safechat version")
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--help"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, exitOK, code)
	require.Contains(t, stdout.String(), "--file-path")
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"--bogus"}, "unknown flag"},
		{"positional argument", []string{"extra"}, "unknown command"},
		{"bad port", []string{"-p", "eighty"}, "invalid argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, strings.NewReader(""), &stdout, &stderr)
			require.Equal(t, exitUsage, code)
			require.Contains(t, stderr.String(), "Error: ")
			require.Contains(t, stderr.String(), tt.want)
		})
	}
}

func TestRunValidatesConfiguration(t *testing.T) {
	args, _ := baseArgs(t)
	var stdout, stderr bytes.Buffer
	code := run(append(args, "-s", "relay", "-p", "4000"), strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, exitUsage, code)
	require.Contains(t, stderr.String(), "Error: name required.")
	require.Contains(t, stderr.String(), "Usage:")

	stderr.Reset()
	code = run(append(args, "-n", "alice", "-s", "relay", "-p", "70000"), strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, exitUsage, code)
	require.Contains(t, stderr.String(), "Error: invalid port number.")
}

func TestRunRejectsUnknownConfigKeys(t *testing.T) {
	args, cfgPath := baseArgs(t)
	require.NoError(t, os.WriteFile(cfgPath, []byte("Nickname = \"alice\"\n"), 0o600))

	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, exitUsage, code)
	require.Contains(t, stderr.String(), "Undecoded keys")
}

func TestRunConnectFailureIsFatal(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	args, _ := baseArgs(t)
	var stdout, stderr bytes.Buffer
	code := run(append(args, "-n", "alice", "-s", "127.0.0.1", "-p", strconv.Itoa(port)), strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, exitFatal, code)
	require.Contains(t, stderr.String(), "Error: can't connect to server")
}

func TestRunGracefulSessionSavesConfig(t *testing.T) {
	relay := relaytest.New(relaytest.Config{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = relay.Serve(ln) }()
	defer relay.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	args, cfgPath := baseArgs(t)
	args = append(args, "-n", "alice", "-s", "127.0.0.1", "-p", strconv.Itoa(port), "--metrics-listen", "127.0.0.1:0")

	inR, inW := io.Pipe()
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	done := make(chan int, 1)
	go func() { done <- run(args, inR, stdout, stderr) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "Choice: ")
	}, 10*time.Second, 5*time.Millisecond)
	require.NoError(t, inW.Close())

	select {
	case code := <-done:
		require.Equal(t, exitOK, code, stderr.String())
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return")
	}
	require.Contains(t, stdout.String(), "Disconnected.")

	saved, err := config.LoadFile(cfgPath)
	require.NoError(t, err)
	require.Equal(t, "alice", saved.LocalName)
	require.Equal(t, port, saved.Port)

	logData, err := os.ReadFile(saved.Logging.File)
	require.NoError(t, err)
	require.Contains(t, string(logData), "connected to")
}

func TestRunEnvironmentDefaults(t *testing.T) {
	t.Setenv("SAFECHAT_PORT", "not-a-port")
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitUsage, run(nil, strings.NewReader(""), &stdout, &stderr))
	require.Contains(t, stderr.String(), "invalid SAFECHAT_PORT")

	args, _ := baseArgs(t)
	t.Setenv("SAFECHAT_PORT", "70000")
	stderr.Reset()
	require.Equal(t, exitUsage, run(append(args, "-n", "alice", "-s", "relay"), strings.NewReader(""), &stdout, &stderr))
	require.Contains(t, stderr.String(), "Error: invalid port number.")
}
