package cmdserver

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts a single connection and answers every request with
// a fixed response, echoing the request name back for inspection.
func fakeServer(t *testing.T, socketPath string, handle func(name string, data any) response) net.Listener {
	t.Helper()
	l, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req request
			if err := readFrame(conn, &req); err != nil {
				return
			}
			resp := handle(req.Request, req.Data)
			if err := writeFrame(conn, resp); err != nil {
				return
			}
		}
	}()
	return l
}

func TestCallRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "server.sock")
	l := fakeServer(t, sock, func(name string, data any) response {
		return response{Status: "ok", Data: map[string]any{"echo": name}}
	})
	defer l.Close()

	c := New(Config{SocketPath: sock, LockPath: filepath.Join(dir, "server.lock")})
	defer c.Close()

	data, err := c.Call("ping", nil)
	require.NoError(t, err)
	m, ok := data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ping", m["echo"])
}

func TestCallReusesConnection(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "server.sock")
	var calls int
	l := fakeServer(t, sock, func(name string, data any) response {
		calls++
		return response{Status: "ok", Data: calls}
	})
	defer l.Close()

	c := New(Config{SocketPath: sock, LockPath: filepath.Join(dir, "server.lock")})
	defer c.Close()

	_, err := c.Call("a", nil)
	require.NoError(t, err)
	_, err = c.Call("b", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCallErrorStatusReturnsReason(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "server.sock")
	l := fakeServer(t, sock, func(name string, data any) response {
		return response{Status: "err", Reason: "bad request"}
	})
	defer l.Close()

	c := New(Config{SocketPath: sock, LockPath: filepath.Join(dir, "server.lock")})
	defer c.Close()

	_, err := c.Call("oops", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad request")
}

func TestGetCommandsUnexpectedShapeErrors(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "server.sock")
	l := fakeServer(t, sock, func(name string, data any) response {
		return response{Status: "ok", Data: []any{"not", "a", "map"}}
	})
	defer l.Close()

	c := New(Config{SocketPath: sock, LockPath: filepath.Join(dir, "server.lock")})
	defer c.Close()

	_, err := c.GetCommands()
	require.Error(t, err)
}

func TestShutdownSuppressesRetryableConnectError(t *testing.T) {
	dir := t.TempDir()
	c := New(Config{
		SocketPath: filepath.Join(dir, "no-such.sock"),
		LockPath:   filepath.Join(dir, "server.lock"),
		SpawnCmd:   "/bin/false",
	})
	// The socket doesn't exist and the spawn fails before exec because
	// the empty LogPath cannot be opened (ENOENT), so Shutdown should see
	// a retryable connect error and swallow it.
	err := c.Shutdown()
	assert.NoError(t, err)
}

func TestIsConnectRetryable(t *testing.T) {
	assert.True(t, isConnectRetryable(syscall.ENOENT))
	assert.True(t, isConnectRetryable(syscall.ECONNREFUSED))
	assert.False(t, isConnectRetryable(errors.New("some other error")))
}

func TestFrameRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "server.sock")
	l, err := net.Listen("unix", sock)
	require.NoError(t, err)
	defer l.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var payload map[string]any
		if err := readFrame(conn, &payload); err != nil {
			return
		}
		writeFrame(conn, payload)
	}()

	conn, err := net.DialTimeout("unix", sock, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, writeFrame(conn, map[string]any{"hello": "world"}))
	var out map[string]any
	require.NoError(t, readFrame(conn, &out))
	assert.Equal(t, "world", out["hello"])
	<-done
}

func TestWriteFrameHeaderLength(t *testing.T) {
	var buf fakeWriter
	require.NoError(t, writeFrame(&buf, map[string]any{"a": 1}))
	payload, err := json.Marshal(map[string]any{"a": 1})
	require.NoError(t, err)
	n := binary.BigEndian.Uint32(buf.data[:4])
	assert.Equal(t, uint32(len(payload)), n)
}

type fakeWriter struct{ data []byte }

func (w *fakeWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}
