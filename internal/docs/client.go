package docs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/doclantern/doclantern/internal/retry"
)

const (
	toolResolveLibraryID = "resolve-library-id"
	toolQueryDocs        = "query-docs"
)

// Config describes how to reach the documentation backend: either a stdio
// subprocess (Command) or a streamable HTTP endpoint (URL).
type Config struct {
	Command     string
	Args        []string
	Env         map[string]string
	URL         string
	Headers     map[string]string
	CallTimeout time.Duration // per-call budget; defaults to 30s
	Retry       retry.Policy  // transient-failure retry; zero value = DefaultToolPolicy
}

// Client manages JSON-RPC communication with the documentation backend and
// exposes the two typed operations of the tool contract.
//
// Both operations are idempotent and side-effect-free, so retrying a
// transient failure is always safe. Retries apply only to
// UpstreamUnavailableError; NotFound and AmbiguousMatch never retry.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retrier    retry.Policy

	// Stdio fields (non-nil when command-based)
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	mu      sync.Mutex
	nextID  int64
	ready   atomic.Bool
	pendMu  sync.Mutex
	pending map[int64]chan rpcResult
}

// rpcResult carries one JSON-RPC response from the stdout pump to the caller
// waiting on that request id.
type rpcResult struct {
	result json.RawMessage
	err    error
}

// NewClient creates a Client from cfg. Connect must be called before use.
func NewClient(cfg Config) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	r := cfg.Retry
	if r.MaxAttempts == 0 {
		r = retry.DefaultToolPolicy()
	}
	r.Timeout = cfg.CallTimeout
	return &Client{
		cfg:        cfg,
		retrier:    r,
		httpClient: &http.Client{Timeout: cfg.CallTimeout},
	}
}

// Connect starts the backend subprocess (or prepares HTTP) and initializes
// the MCP session.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.Command != "" {
		return c.connectStdio(ctx)
	}
	if c.cfg.URL != "" {
		// HTTP backend: no persistent connection needed; just mark ready.
		c.ready.Store(true)
		return nil
	}
	return fmt.Errorf("docs backend: no command or url configured")
}

// Close stops a subprocess-based backend.
func (c *Client) Close() {
	if c.cmd != nil && c.cmd.Process != nil {
		c.cmd.Process.Kill() //nolint:errcheck
	}
}

func (c *Client) connectStdio(ctx context.Context) error {
	c.cmd = exec.CommandContext(ctx, c.cfg.Command, c.cfg.Args...)
	c.cmd.Env = mergeEnv(c.cfg.Env)

	stdinPipe, err := c.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdoutPipe, err := c.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	c.stdin = stdinPipe
	c.stdout = bufio.NewReader(stdoutPipe)

	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("start docs backend: %w", err)
	}
	c.pending = make(map[int64]chan rpcResult)
	go c.readLoop()

	if err := c.initialize(ctx); err != nil {
		c.cmd.Process.Kill() //nolint:errcheck
		return fmt.Errorf("initialize: %w", err)
	}
	c.ready.Store(true)
	return nil
}

// Ping checks that the backend answers a tools/list request. Used by the
// health probe; failures mean the backend is unreachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return &UpstreamUnavailableError{Err: err}
	}
	return nil
}

// ResolveLibraryID resolves a free-form library name to its canonical
// identifier.
//
// Disambiguation policy: the top-scored match is chosen only when its score
// strictly exceeds every other candidate's; a tie at the top surfaces
// AmbiguousMatchError so the caller can ask the user to clarify.
func (c *Client) ResolveLibraryID(ctx context.Context, q LibraryQuery) (ResolvedLibrary, error) {
	name := strings.TrimSpace(q.Name)
	if name == "" {
		return ResolvedLibrary{}, &NotFoundError{Subject: q.Name}
	}

	args := map[string]any{"libraryName": name}
	if q.Version != "" {
		args["version"] = q.Version
	}

	var out ResolvedLibrary
	err := c.retrier.Do(ctx, toolResolveLibraryID, func(ctx context.Context) error {
		raw, err := c.callTool(ctx, toolResolveLibraryID, args)
		if err != nil {
			return err
		}
		lib, err := parseResolvePayload(name, raw)
		if err != nil {
			return err
		}
		out = lib
		return nil
	}, IsRetryable)
	if err != nil {
		return ResolvedLibrary{}, err
	}

	slog.Debug("library resolved", "name", name, "id", out.ID, "score", out.Score)
	return out, nil
}

// QueryDocs fetches documentation snippets for a resolved library and a
// question. NotFoundError means the identifier is valid but nothing relevant
// exists.
func (c *Client) QueryDocs(ctx context.Context, lib ResolvedLibrary, question string) ([]Snippet, error) {
	if lib.ID == "" {
		return nil, &NotFoundError{Subject: "(empty library id)"}
	}

	args := map[string]any{
		"libraryId": lib.ID,
		"question":  question,
	}

	var out []Snippet
	err := c.retrier.Do(ctx, toolQueryDocs, func(ctx context.Context) error {
		raw, err := c.callTool(ctx, toolQueryDocs, args)
		if err != nil {
			return err
		}
		snippets, err := parseQueryPayload(lib.ID, raw)
		if err != nil {
			return err
		}
		out = snippets
		return nil
	}, IsRetryable)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Payload parsing
// ---------------------------------------------------------------------------

// resolvePayload is the JSON body the backend returns from resolve-library-id.
type resolvePayload struct {
	Matches []struct {
		ID    string  `json:"id"`
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	} `json:"matches"`
}

func parseResolvePayload(name, raw string) (ResolvedLibrary, error) {
	var body resolvePayload
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return ResolvedLibrary{}, &UpstreamUnavailableError{
			Err: fmt.Errorf("malformed resolve payload: %w", err),
		}
	}
	if len(body.Matches) == 0 {
		return ResolvedLibrary{}, &NotFoundError{Subject: name}
	}

	candidates := make([]ResolvedLibrary, len(body.Matches))
	for i, m := range body.Matches {
		candidates[i] = ResolvedLibrary{ID: m.ID, Name: m.Name, Score: m.Score}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > 1 && candidates[0].Score == candidates[1].Score {
		// Keep only the tied top group in the error.
		tied := []ResolvedLibrary{candidates[0]}
		for _, c := range candidates[1:] {
			if c.Score == candidates[0].Score {
				tied = append(tied, c)
			}
		}
		return ResolvedLibrary{}, &AmbiguousMatchError{Name: name, Candidates: tied}
	}
	return candidates[0], nil
}

// queryPayload is the JSON body the backend returns from query-docs.
type queryPayload struct {
	Snippets []struct {
		Content string `json:"content"`
		Source  string `json:"source"`
	} `json:"snippets"`
}

func parseQueryPayload(id, raw string) ([]Snippet, error) {
	var body queryPayload
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		// Some backends return plain prose. Treat non-empty text as a
		// single snippet rather than failing the request.
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			return []Snippet{{Content: trimmed}}, nil
		}
		return nil, &NotFoundError{Subject: id}
	}
	if len(body.Snippets) == 0 {
		return nil, &NotFoundError{Subject: id}
	}
	out := make([]Snippet, len(body.Snippets))
	for i, s := range body.Snippets {
		out[i] = Snippet{Content: s.Content, Source: s.Source}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// JSON-RPC plumbing
// ---------------------------------------------------------------------------

func (c *Client) initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "doclantern", "version": "1.0"},
	}
	if _, err := c.call(ctx, "initialize", params); err != nil {
		return err
	}
	// Send initialized notification (no response expected).
	notif := map[string]any{"jsonrpc": "2.0", "method": "notifications/initialized"}
	data, _ := json.Marshal(notif)
	_, _ = fmt.Fprintf(c.stdin, "%s\n", data)
	return nil
}

// callTool invokes a named tool and joins the text content blocks of the
// result. Transport failures come back as UpstreamUnavailableError.
func (c *Client) callTool(ctx context.Context, toolName string, args map[string]any) (string, error) {
	payload := map[string]any{
		"name":      toolName,
		"arguments": args,
	}
	resp, err := c.call(ctx, "tools/call", payload)
	if err != nil {
		return "", &UpstreamUnavailableError{Err: err}
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return string(resp), nil
	}

	var parts []string
	for _, block := range result.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if c.cfg.URL != "" {
		return c.callHTTP(ctx, method, params)
	}
	return c.callStdio(ctx, method, params)
}

func (c *Client) nextRequestID() int64 {
	return atomic.AddInt64(&c.nextID, 1)
}

func (c *Client) callStdio(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := c.nextRequestID()
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	// Buffered so a late response from the pump never blocks after the
	// caller has timed out and walked away.
	ch := make(chan rpcResult, 1)
	c.pendMu.Lock()
	if c.pending == nil {
		c.pendMu.Unlock()
		return nil, fmt.Errorf("docs backend not connected")
	}
	c.pending[id] = ch
	c.pendMu.Unlock()

	c.mu.Lock()
	if c.stdin == nil {
		c.mu.Unlock()
		c.dropPending(id)
		return nil, fmt.Errorf("docs backend not connected")
	}
	_, err = fmt.Fprintf(c.stdin, "%s\n", data)
	c.mu.Unlock()
	if err != nil {
		c.dropPending(id)
		return nil, fmt.Errorf("write to backend stdin: %w", err)
	}

	select {
	case res := <-ch:
		return res.result, res.err
	case <-ctx.Done():
		c.dropPending(id)
		return nil, ctx.Err()
	}
}

// readLoop pumps JSON-RPC responses from the subprocess stdout to waiting
// callers, matched by request id. Runs until the pipe closes; a read error
// fails every in-flight call.
func (c *Client) readLoop() {
	for {
		line, err := c.stdout.ReadString('\n')
		if err != nil {
			c.failPending(fmt.Errorf("read backend stdout: %w", err))
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var resp map[string]any
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			continue // skip non-JSON lines (server log output)
		}
		respID, ok := resp["id"].(float64)
		if !ok {
			continue // notification or malformed id
		}

		c.pendMu.Lock()
		ch := c.pending[int64(respID)]
		delete(c.pending, int64(respID))
		c.pendMu.Unlock()
		if ch == nil {
			continue // caller already gave up on this id
		}

		if errObj, ok := resp["error"]; ok {
			ch <- rpcResult{err: fmt.Errorf("backend error: %v", errObj)}
			continue
		}
		result, _ := json.Marshal(resp["result"])
		ch <- rpcResult{result: json.RawMessage(result)}
	}
}

func (c *Client) dropPending(id int64) {
	c.pendMu.Lock()
	delete(c.pending, id)
	c.pendMu.Unlock()
}

func (c *Client) failPending(err error) {
	c.pendMu.Lock()
	defer c.pendMu.Unlock()
	for id, ch := range c.pending {
		ch <- rpcResult{err: err}
		delete(c.pending, id)
	}
}

// mergeEnv layers the configured backend variables over the process
// environment, so PATH and HOME survive for command lookup.
func mergeEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

func (c *Client) callHTTP(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := c.nextRequestID()
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend HTTP %d", resp.StatusCode)
	}

	var rpcResp map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, err
	}
	if errObj, ok := rpcResp["error"]; ok {
		return nil, fmt.Errorf("backend error: %v", errObj)
	}
	result, _ := json.Marshal(rpcResp["result"])
	return json.RawMessage(result), nil
}
