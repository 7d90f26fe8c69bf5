package toolserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	protocolVersion = "2024-11-05"
	callTimeout     = 10 * time.Second
)

// JSON-RPC messages
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      interface{} `json:"id,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      interface{}     `json:"id"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Client speaks JSON-RPC to a tool server subprocess over stdio.
type Client struct {
	command string
	args    []string
	logger  zerolog.Logger

	mu      sync.Mutex
	process *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Scanner
	id      int
	pending map[int]chan *rpcResponse
	closed  bool
}

// New creates a client that will run the given command as the tool server.
func New(command string, args []string, logger zerolog.Logger) *Client {
	return &Client{
		command: command,
		args:    args,
		logger:  logger,
		pending: make(map[int]chan *rpcResponse),
	}
}

// NewForScript creates a client for a server script path. Python and Node
// scripts are the only supported launch targets.
func NewForScript(scriptPath string, logger zerolog.Logger) (*Client, error) {
	switch strings.ToLower(filepath.Ext(scriptPath)) {
	case ".py":
		return New("python", []string{scriptPath}, logger), nil
	case ".js":
		return New("node", []string{scriptPath}, logger), nil
	default:
		return nil, fmt.Errorf("server script must be a .py or .js file, got %q", scriptPath)
	}
}

// Start spawns the tool server process and performs the initialize handshake.
// It is safe to call more than once; subsequent calls are no-ops.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()

	if c.process != nil {
		c.mu.Unlock()
		return nil
	}
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("tool server client is closed")
	}

	cmd := exec.CommandContext(ctx, c.command, c.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("start tool server: %w", err)
	}

	c.process = cmd
	c.stdin = stdin
	c.stdout = bufio.NewScanner(stdout)
	c.mu.Unlock()

	// Listen for responses separately
	go c.listen()

	if err := c.initialize(ctx); err != nil {
		_ = c.Close()
		return fmt.Errorf("initialize: %w", err)
	}

	c.logger.Info().Str("command", c.command).Strs("args", c.args).Msg("Tool server started")
	return nil
}

func (c *Client) listen() {
	for c.stdout.Scan() {
		var resp rpcResponse
		if err := json.Unmarshal(c.stdout.Bytes(), &resp); err != nil {
			// Non-JSON lines are server log output.
			continue
		}

		if id, ok := resp.ID.(float64); ok {
			c.mu.Lock()
			ch, exists := c.pending[int(id)]
			if exists {
				delete(c.pending, int(id))
				ch <- &resp
			}
			c.mu.Unlock()
		}
	}
}

func (c *Client) initialize(ctx context.Context) error {
	params := map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]interface{}{
			"name":    "rocbridge",
			"version": "0.1.0",
		},
	}
	if _, err := c.call(ctx, "initialize", params); err != nil {
		return err
	}

	// Initialized notification carries no id and expects no response.
	notif := rpcRequest{JSONRPC: "2.0", Method: "notifications/initialized"}
	data, err := json.Marshal(notif)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = io.WriteString(c.stdin, string(data)+"\n")
	return err
}

func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	if c.process == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("tool server not started")
	}
	c.id++
	id := c.id
	ch := make(chan *rpcResponse, 1)
	c.pending[id] = ch
	stdin := c.stdin
	c.mu.Unlock()

	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	if _, err := io.WriteString(stdin, string(data)+"\n"); err != nil {
		return nil, fmt.Errorf("write to tool server: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("tool server client closed")
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("tool server error (%d): %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(callTimeout):
		return nil, fmt.Errorf("tool server request timeout")
	}
}

// ListTools fetches the tool metadata exposed by the server.
func (c *Client) ListTools(ctx context.Context) ([]ToolSpec, error) {
	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var listResult struct {
		Tools []ToolSpec `json:"tools"`
	}
	if err := json.Unmarshal(result, &listResult); err != nil {
		return nil, fmt.Errorf("decode tools/list result: %w", err)
	}

	return listResult.Tools, nil
}

// CallTool invokes a named tool with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (ToolResult, error) {
	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}

	result, err := c.call(ctx, "tools/call", params)
	if err != nil {
		return ToolResult{}, err
	}

	var toolResult ToolResult
	if err := json.Unmarshal(result, &toolResult); err != nil {
		return ToolResult{}, fmt.Errorf("decode tools/call result: %w", err)
	}

	return toolResult, nil
}

// Close stops the tool server process. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	// Fail in-flight calls immediately rather than letting them sit on
	// their pending channels until the call timeout.
	for id, ch := range c.pending {
		delete(c.pending, id)
		close(ch)
	}

	if c.process != nil && c.process.Process != nil {
		err := c.process.Process.Kill()
		c.process = nil
		return err
	}
	return nil
}
