package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const maxFrameBytes = 4 << 20

// ClientConfig configures how the calendar provider process is launched and
// how long one RPC roundtrip may take.
type ClientConfig struct {
	Command string        `envconfig:"COMMAND" split_words:"true" default:"./calendarmcp"`
	Args    []string      `envconfig:"ARGS" split_words:"true"`
	Dir     string        `envconfig:"DIR" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

// Client owns one long-lived connection to a tool provider child process,
// speaking line-framed JSON-RPC 2.0 over the process's stdin/stdout.
//
// CallTool self-heals: it connects on demand and retries exactly once after
// re-establishing a dead connection. Connection establishment is serialized
// so concurrent callers never race to spawn two provider processes.
//
// Lock order is connMu before ioMu, always. connMu guards the connection
// fields; ioMu serializes request/response exchanges and owns seq. The
// roundtrip path never touches connMu: callers hand it the stream pair,
// either directly (connect path, which already holds connMu) or via a
// snapshot (steady-state calls).
type Client struct {
	cfg ClientConfig

	connMu    sync.Mutex
	connected bool
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	frames    chan []byte
	stop      chan struct{}

	ioMu sync.Mutex
	seq  int64
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg}
}

// Connected reports the connection flag. Callers may use it as a cheap
// pre-check, but CallTool reconnects on its own either way.
func (c *Client) Connected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connected
}

// Connect spawns the provider process and performs the initialize handshake.
// Idempotent: connecting an already-connected client is a logged no-op. On
// failure every partially-acquired resource is released before returning.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.connected {
		log.Warn().Msg("tool client already connected")
		return nil
	}

	cmd := exec.Command(c.cfg.Command, c.cfg.Args...)
	cmd.Dir = c.cfg.Dir
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr // stdout carries protocol frames only

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("tool client: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return fmt.Errorf("tool client: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("tool client: spawn %s: %w", c.cfg.Command, err)
	}

	log.Info().Str("command", c.cfg.Command).Strs("args", c.cfg.Args).
		Msg("connecting to tool provider")

	frames := make(chan []byte)
	stop := make(chan struct{})
	go readFrames(bufio.NewReader(stdout), frames, stop)

	c.cmd = cmd
	c.stdin = stdin
	c.frames = frames
	c.stop = stop

	c.ioMu.Lock()
	c.seq = 0 // fresh process, fresh id space
	c.ioMu.Unlock()

	if err := c.handshake(ctx, stdin, frames); err != nil {
		c.cleanupLocked()
		return fmt.Errorf("tool client: handshake: %w", err)
	}

	c.connected = true
	return nil
}

func (c *Client) handshake(ctx context.Context, stdin io.Writer, frames <-chan []byte) error {
	raw, err := c.roundtrip(ctx, stdin, frames, "initialize", map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      peerInfo{Name: "calplan", Version: "1.0.0"},
	})
	if err != nil {
		return err
	}

	var init initializeResult
	if err := json.Unmarshal(raw, &init); err != nil {
		return fmt.Errorf("decode initialize result: %w", err)
	}
	if err := c.notify(stdin, "notifications/initialized", nil); err != nil {
		return err
	}

	// Diagnostics only: surface what the provider offers in the logs.
	raw, err = c.roundtrip(ctx, stdin, frames, "tools/list", nil)
	if err != nil {
		return err
	}
	var listed listToolsResult
	if err := json.Unmarshal(raw, &listed); err != nil {
		return fmt.Errorf("decode tools/list result: %w", err)
	}
	names := make([]string, 0, len(listed.Tools))
	for _, t := range listed.Tools {
		names = append(names, t.Name)
	}

	log.Info().
		Str("server", init.ServerInfo.Name).
		Str("version", init.ServerInfo.Version).
		Strs("tools", names).
		Msg("tool provider connected")
	return nil
}

// Disconnect tears down the provider process and pipes. Safe to call when
// already disconnected; failures are logged and swallowed so that shutdown
// always completes.
func (c *Client) Disconnect() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if !c.connected && c.cmd == nil {
		return
	}
	c.cleanupLocked()
	log.Info().Msg("tool provider disconnected")
}

// cleanupLocked releases process and stream resources; callers hold connMu.
func (c *Client) cleanupLocked() {
	if c.stop != nil {
		close(c.stop)
	}
	if c.stdin != nil {
		if err := c.stdin.Close(); err != nil {
			log.Warn().Err(err).Msg("closing tool provider stdin")
		}
	}
	if c.cmd != nil && c.cmd.Process != nil {
		if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Warn().Err(err).Msg("killing tool provider process")
		}
		_ = c.cmd.Wait()
	}
	c.cmd = nil
	c.stdin = nil
	c.frames = nil
	c.stop = nil
	c.connected = false
}

func (c *Client) reconnect(ctx context.Context) error {
	log.Warn().Msg("reconnecting to tool provider")
	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.cleanupLocked()
	return c.connectLocked(ctx)
}

// conn snapshots the live stream pair for steady-state calls.
func (c *Client) conn() (io.Writer, <-chan []byte, bool) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.stdin == nil || c.frames == nil {
		return nil, nil, false
	}
	return c.stdin, c.frames, true
}

// CallTool invokes a named procedure and decodes its textual payload as
// JSON. Transport failures are retried exactly once after one reconnect; at
// most two procedure attempts happen per call. Failures come back as a map
// carrying an "error" key, never as a panic or a nil result.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) any {
	if !c.Connected() {
		if err := c.Connect(ctx); err != nil {
			return errResult(fmt.Sprintf("calendar service not available: %v", err))
		}
	}

	log.Info().Str("tool", name).Interface("args", args).Msg("calling tool")

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		text, err := c.invoke(ctx, name, args)
		if err == nil {
			return decodePayload(text)
		}

		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt+1).Str("tool", name).
			Msg("tool call failed")

		if attempt == 0 {
			if rerr := c.reconnect(ctx); rerr != nil {
				log.Error().Err(rerr).Msg("tool provider reconnection failed")
				return errResult(fmt.Sprintf("connection lost: %v", rerr))
			}
		}
	}
	return errResult(lastErr.Error())
}

// invoke performs one tools/call attempt and returns the raw text payload.
// Every failure here, including a broken result envelope, is a transport
// fault and therefore retryable.
func (c *Client) invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	stdin, frames, ok := c.conn()
	if !ok {
		return "", errors.New("not connected")
	}

	raw, err := c.roundtrip(ctx, stdin, frames, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return "", err
	}

	var result callToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode call envelope: %w", err)
	}
	if len(result.Content) == 0 {
		return "{}", nil
	}
	return result.Content[0].Text, nil
}

// decodePayload parses the tool's JSON document. A payload that fails to
// parse is an application-shaped failure, not a transport fault: it is
// reported without retrying.
func decodePayload(text string) any {
	var payload any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return errResult(fmt.Sprintf("invalid tool payload: %v", err))
	}
	if payload == nil {
		return map[string]any{}
	}
	return payload
}

// ListTools returns the provider's advertised procedures. Best-effort: any
// failure yields an empty result rather than an error.
func (c *Client) ListTools(ctx context.Context) []ToolInfo {
	if !c.Connected() {
		return nil
	}
	stdin, frames, ok := c.conn()
	if !ok {
		return nil
	}
	raw, err := c.roundtrip(ctx, stdin, frames, "tools/list", nil)
	if err != nil {
		log.Warn().Err(err).Msg("tools/list failed")
		return nil
	}
	var listed listToolsResult
	if err := json.Unmarshal(raw, &listed); err != nil {
		return nil
	}
	return listed.Tools
}

func (c *Client) notify(stdin io.Writer, method string, params any) error {
	req := rpcRequest{JSONRPC: "2.0", Method: method, Params: params}
	frame, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}
	frame = append(frame, '\n')

	c.ioMu.Lock()
	defer c.ioMu.Unlock()
	_, err = stdin.Write(frame)
	return err
}

// roundtrip performs a full request/response exchange under ioMu so frames
// never interleave between callers. The deadline covers the whole exchange,
// including a provider that accepts the request and then goes silent. Junk
// lines and stale responses are skipped.
func (c *Client) roundtrip(ctx context.Context, stdin io.Writer, frames <-chan []byte, method string, params any) (json.RawMessage, error) {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	c.seq++
	id := c.seq
	req := rpcRequest{JSONRPC: "2.0", ID: &id, Method: method, Params: params}
	frame, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", method, err)
	}
	frame = append(frame, '\n')
	if _, err := stdin.Write(frame); err != nil {
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, fmt.Errorf("timeout waiting for %s", method)
		case line, ok := <-frames:
			if !ok {
				return nil, fmt.Errorf("read %s: connection closed", method)
			}
			if len(line) == 0 || line[0] != '{' {
				continue
			}

			var resp rpcResponse
			if err := json.Unmarshal(line, &resp); err != nil {
				continue
			}
			if resp.ID == nil || *resp.ID != id {
				continue
			}
			if resp.Error != nil {
				return nil, fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
			}
			return resp.Result, nil
		}
	}
}

// readFrames pumps stdout lines into the frame channel until the stream
// dies or the connection is torn down. The closed channel is how waiting
// callers learn the connection is gone.
func readFrames(out *bufio.Reader, frames chan<- []byte, stop <-chan struct{}) {
	for {
		line, err := readFrame(out)
		if err != nil {
			close(frames)
			return
		}
		select {
		case frames <- line:
		case <-stop:
			return
		}
	}
}

func readFrame(out *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		frag, err := out.ReadBytes('\n')
		buf.Write(frag)
		if buf.Len() > maxFrameBytes {
			return nil, errors.New("frame too large")
		}
		if err == nil {
			break
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return nil, err
		}
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

func errResult(msg string) map[string]any {
	return map[string]any{"error": msg}
}
