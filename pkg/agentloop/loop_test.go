package agentloop

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hll/pkg/cmdserver"
	"github.com/kadirpekel/hll/pkg/httpclient"
)

// fakeCmdServer runs a one-shot command server over a UNIX socket that
// answers handle_agent requests according to respond, one call at a
// time, mirroring the fake used in pkg/cmdserver's own tests.
func fakeCmdServer(t *testing.T, respond func(call int) (status, reason string, data any)) *cmdserver.Client {
	t.Helper()
	dir := t.TempDir()
	sock := filepath.Join(dir, "server.sock")
	l, err := net.Listen("unix", sock)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		call := 0
		for {
			var hdr [4]byte
			if _, err := readFull(conn, hdr[:]); err != nil {
				return
			}
			n := beUint32(hdr[:])
			payload := make([]byte, n)
			if _, err := readFull(conn, payload); err != nil {
				return
			}
			call++
			status, reason, data := respond(call)
			out, _ := json.Marshal(map[string]any{"status": status, "reason": reason, "data": data})
			var outHdr [4]byte
			putUint32(outHdr[:], uint32(len(out)))
			conn.Write(outHdr[:])
			conn.Write(out)
		}
	}()

	return cmdserver.New(cmdserver.Config{SocketPath: sock, LockPath: filepath.Join(dir, "server.lock")})
}

func readFull(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func TestRunSucceedsOnFirstAttempt(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer provider.Close()

	cs := fakeCmdServer(t, func(call int) (string, string, any) {
		return "ok", "", map[string]any{"new_context": []any{"reply"}, "agent_error": false}
	})

	loop := New(httpclient.New(httpclient.WithMaxRetries(0)), provider.URL, "key", cs, nil)
	result, err := loop.Run(context.Background(), Request{Mode: ModeReply})
	require.NoError(t, err)
	assert.True(t, result.Answer)
	assert.Contains(t, result.Context, "reply")
}

func TestRunRepairsMalformedCallThenSucceeds(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer provider.Close()

	cs := fakeCmdServer(t, func(call int) (string, string, any) {
		if call == 1 {
			return "ok", "", map[string]any{"new_context": []any{"malformed"}, "agent_error": true}
		}
		return "ok", "", map[string]any{"new_context": []any{"fixed"}, "agent_error": false}
	})

	loop := New(httpclient.New(httpclient.WithMaxRetries(0)), provider.URL, "key", cs, nil)
	result, err := loop.Run(context.Background(), Request{Mode: ModeAction, Actions: []Action{{Name: "search"}}})
	require.NoError(t, err)
	assert.True(t, result.Answer)
	assert.Contains(t, result.Context, "fixed")
}

func TestRunProviderErrorStatusIsRetried(t *testing.T) {
	attempts := 0
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer provider.Close()

	cs := fakeCmdServer(t, func(call int) (string, string, any) {
		return "ok", "", map[string]any{"new_context": []any{"reply"}, "agent_error": false}
	})

	loop := New(httpclient.New(httpclient.WithMaxRetries(0)), provider.URL, "key", cs, nil)
	loop.baseBackoff = time.Millisecond
	loop.maxBackoff = 5 * time.Millisecond

	result, err := loop.Run(context.Background(), Request{Mode: ModeReply})
	require.NoError(t, err)
	assert.True(t, result.Answer)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestRunContextCancelledWhileRetrying(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer provider.Close()

	loop := New(httpclient.New(httpclient.WithMaxRetries(0)), provider.URL, "key", nil, nil)
	loop.baseBackoff = 50 * time.Millisecond
	loop.maxBackoff = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := loop.Run(ctx, Request{Mode: ModeReply})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRepairMessageLadder(t *testing.T) {
	msg, escalate := repairMessage(MaxReplyAttempts - 4)
	assert.False(t, escalate)
	assert.NotEmpty(t, msg)

	_, escalate = repairMessage(MaxReplyAttempts + 1)
	assert.True(t, escalate)

	msg, escalate = repairMessage(0)
	assert.False(t, escalate)
	assert.Empty(t, msg)
}

func TestInstructionTurnReplyVsAction(t *testing.T) {
	reply := instructionTurn(ModeReply, nil).(map[string]any)
	parts := reply["parts"].([]any)
	text := parts[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, "plain text")

	action := instructionTurn(ModeAction, []Action{{Name: "search"}}).(map[string]any)
	aparts := action["parts"].([]any)
	atext := aparts[0].(map[string]any)["text"].(string)
	assert.True(t, strings.Contains(atext, "search"))
}
