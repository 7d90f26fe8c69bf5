package runtime

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HTTPRuntime implements Runtime against an HTTP endpoint that accepts JSON
// requests and answers invocations with a newline-delimited JSON event
// stream. Each stream line is an object with exactly one of the keys
// "chunk", "trace" or "returnControl".
type HTTPRuntime struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHTTPRuntime creates a runtime client for the given base URL.
func NewHTTPRuntime(baseURL string, logger zerolog.Logger) *HTTPRuntime {
	return &HTTPRuntime{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No client timeout: invocation responses stream for the
		// duration of a turn.
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// RegisterFunctions installs the action group on the agent.
func (r *HTTPRuntime) RegisterFunctions(ctx context.Context, group ActionGroup) error {
	body, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("encode action group: %w", err)
	}

	url := fmt.Sprintf("%s/actiongroups", r.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("register functions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("register functions: status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	r.logger.Info().
		Str("actionGroup", group.Name).
		Int("functions", len(group.Functions)).
		Msg("Action group registered")
	return nil
}

// Invoke submits a turn and returns the response event stream. The caller
// owns the stream and must close it.
func (r *HTTPRuntime) Invoke(ctx context.Context, req InvokeRequest) (EventStream, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode invoke request: %w", err)
	}

	url := fmt.Sprintf("%s/agents/%s/agentAliases/%s/sessions/%s/text",
		r.baseURL, req.AgentID, req.AliasID, req.SessionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("invoke agent: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("invoke agent: status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	r.logger.Debug().
		Str("sessionId", req.SessionID).
		Dur("firstByte", time.Since(started)).
		Msg("Invoke stream opened")

	return NewJSONLStream(resp.Body), nil
}

// jsonlStream decodes newline-delimited JSON events from a reader.
type jsonlStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// NewJSONLStream wraps a reader of newline-delimited JSON event objects as
// an EventStream.
func NewJSONLStream(body io.ReadCloser) EventStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &jsonlStream{body: body, scanner: scanner}
}

func (s *jsonlStream) Next() (Event, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return DecodeEvent(line)
	}
	if err := s.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

func (s *jsonlStream) Close() error {
	return s.body.Close()
}

// wire shapes
type wireChunk struct {
	Bytes []byte `json:"bytes"`
}

type wireFunctionInvocationInput struct {
	ActionGroup string      `json:"actionGroup"`
	Function    string      `json:"function"`
	Parameters  []Parameter `json:"parameters"`
}

type wireInvocationInput struct {
	FunctionInvocationInput *wireFunctionInvocationInput `json:"functionInvocationInput"`
}

type wireReturnControl struct {
	InvocationID     string                `json:"invocationId"`
	InvocationInputs []wireInvocationInput `json:"invocationInputs"`
}

type wireEvent struct {
	Chunk         *wireChunk         `json:"chunk"`
	Trace         json.RawMessage    `json:"trace"`
	ReturnControl *wireReturnControl `json:"returnControl"`
}

// DecodeEvent turns one wire event object into an Event. An object that is
// not valid JSON or matches none of the recognized keys comes back with only
// Raw set; classification is the consumer's job.
func DecodeEvent(line []byte) (Event, error) {
	raw := json.RawMessage(append([]byte(nil), line...))

	var we wireEvent
	if err := json.Unmarshal(line, &we); err != nil {
		return Event{Raw: raw}, nil
	}

	switch {
	case we.Chunk != nil:
		return Event{Chunk: &Chunk{Text: string(we.Chunk.Bytes)}, Raw: raw}, nil
	case len(we.Trace) > 0 && string(we.Trace) != "null":
		return Event{Trace: &Trace{Payload: we.Trace}, Raw: raw}, nil
	case we.ReturnControl != nil:
		rc := we.ReturnControl
		if len(rc.InvocationInputs) == 0 || rc.InvocationInputs[0].FunctionInvocationInput == nil {
			return Event{Raw: raw}, nil
		}
		input := rc.InvocationInputs[0].FunctionInvocationInput
		return Event{
			ReturnControl: &ReturnControl{
				InvocationID: rc.InvocationID,
				ActionGroup:  input.ActionGroup,
				Function:     input.Function,
				Parameters:   input.Parameters,
			},
			Raw: raw,
		}, nil
	default:
		return Event{Raw: raw}, nil
	}
}
