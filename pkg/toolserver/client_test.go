package toolserver

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestToolServerHelper is not a test: re-executed as the tool server
// subprocess by TestClientAgainstHelper.
func TestToolServerHelper(t *testing.T) {
	if os.Getenv("ROCBRIDGE_SERVER_HELPER") != "1" {
		t.Skip("helper process")
	}

	scanner := bufio.NewScanner(os.Stdin)
	encoder := json.NewEncoder(os.Stdout)

	for scanner.Scan() {
		var req rpcRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}

		switch req.Method {
		case "initialize":
			writeHelperResponse(encoder, req.ID, map[string]interface{}{"protocolVersion": protocolVersion}, nil)
		case "notifications/initialized":
			// notification, no response
		case "tools/list":
			writeHelperResponse(encoder, req.ID, map[string]interface{}{
				"tools": []map[string]interface{}{
					{
						"name":        "get_weather",
						"description": "Get the weather for a US state",
						"inputSchema": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"state": map[string]interface{}{"type": "string", "title": "Two-letter US state code"},
							},
							"required": []string{"state"},
						},
					},
				},
			}, nil)
		case "tools/call":
			params, _ := req.Params.(map[string]interface{})
			name, _ := params["name"].(string)
			if name != "get_weather" {
				writeHelperResponse(encoder, req.ID, nil, &rpcError{Code: -32601, Message: "tool not found"})
				continue
			}
			args, _ := params["arguments"].(map[string]interface{})
			state, _ := args["state"].(string)
			writeHelperResponse(encoder, req.ID, map[string]interface{}{
				"content": []map[string]interface{}{
					{"type": "text", "text": "72F and clear in " + state},
				},
			}, nil)
		default:
			writeHelperResponse(encoder, req.ID, nil, &rpcError{Code: -32601, Message: "method not found"})
		}
	}
	_ = scanner.Err()
}

func writeHelperResponse(encoder *json.Encoder, id interface{}, result interface{}, rpcErr *rpcError) {
	resp := rpcResponse{JSONRPC: "2.0", ID: id, Error: rpcErr}
	if rpcErr == nil {
		payload, _ := json.Marshal(result)
		resp.Result = payload
	}
	_ = encoder.Encode(resp)
}

func TestClientAgainstHelper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	os.Setenv("ROCBRIDGE_SERVER_HELPER", "1")
	defer os.Unsetenv("ROCBRIDGE_SERVER_HELPER")

	client := New(os.Args[0], []string{"-test.run", "TestToolServerHelper"}, zerolog.Nop())
	defer func() {
		_ = client.Close()
	}()

	require.NoError(t, client.Start(ctx))

	// Start is idempotent.
	require.NoError(t, client.Start(ctx))

	tools, err := client.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "get_weather", tools[0].Name)
	assert.Contains(t, string(tools[0].InputSchema), "Two-letter US state code")

	result, err := client.CallTool(ctx, "get_weather", map[string]interface{}{"state": "CA"})
	require.NoError(t, err)
	text, ok := result.FirstText()
	require.True(t, ok)
	assert.Equal(t, "72F and clear in CA", text)

	_, err = client.CallTool(ctx, "no_such_tool", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool not found")
}

func TestNewForScript(t *testing.T) {
	t.Run("should launch python for .py scripts", func(t *testing.T) {
		client, err := NewForScript("server.py", zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "python", client.command)
		assert.Equal(t, []string{"server.py"}, client.args)
	})

	t.Run("should launch node for .js scripts", func(t *testing.T) {
		client, err := NewForScript("server.js", zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "node", client.command)
	})

	t.Run("should ignore extension case", func(t *testing.T) {
		client, err := NewForScript("server.PY", zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "python", client.command)
	})

	t.Run("should reject other launch targets", func(t *testing.T) {
		_, err := NewForScript("server.sh", zerolog.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), ".py or .js")
	})
}

func TestClientLifecycle(t *testing.T) {
	t.Run("should fail calls before start", func(t *testing.T) {
		client := New("python", []string{"server.py"}, zerolog.Nop())

		_, err := client.ListTools(context.Background())
		assert.Error(t, err)
	})

	t.Run("should not restart after close", func(t *testing.T) {
		client := New("python", []string{"server.py"}, zerolog.Nop())
		require.NoError(t, client.Close())

		err := client.Start(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "closed")
	})

	t.Run("should tolerate double close", func(t *testing.T) {
		client := New("python", []string{"server.py"}, zerolog.Nop())
		require.NoError(t, client.Close())
		require.NoError(t, client.Close())
	})

	t.Run("should fail in-flight calls on close", func(t *testing.T) {
		client := New("python", []string{"server.py"}, zerolog.Nop())
		client.process = &exec.Cmd{}
		client.stdin = nopWriteCloser{}

		done := make(chan error, 1)
		go func() {
			_, err := client.ListTools(context.Background())
			done <- err
		}()

		require.Eventually(t, func() bool {
			client.mu.Lock()
			defer client.mu.Unlock()
			return len(client.pending) == 1
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, client.Close())

		select {
		case err := <-done:
			require.Error(t, err)
			assert.Contains(t, err.Error(), "closed")
		case <-time.After(time.Second):
			t.Fatal("in-flight call did not return after close")
		}
	})
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriteCloser) Close() error                { return nil }

func TestFirstText(t *testing.T) {
	t.Run("should return the first non-empty text block", func(t *testing.T) {
		result := ToolResult{Content: []ContentBlock{
			{Type: "image"},
			{Type: "text", Text: ""},
			{Type: "text", Text: "payload"},
		}}

		text, ok := result.FirstText()
		assert.True(t, ok)
		assert.Equal(t, "payload", text)
	})

	t.Run("should report absence of text", func(t *testing.T) {
		_, ok := ToolResult{}.FirstText()
		assert.False(t, ok)
	})
}
