package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
)

// ToolHandler executes one procedure call and returns the JSON payload to
// embed in the reply. Handlers report per-call failures inside the payload
// ({"error": ...}); a returned error becomes a protocol-level fault.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

type serverTool struct {
	info    ToolInfo
	handler ToolHandler
}

// Server answers line-framed JSON-RPC 2.0 requests on a byte stream,
// typically the process's stdin/stdout. It understands the initialize
// handshake, tools/list and tools/call.
type Server struct {
	name    string
	version string
	tools   []serverTool
}

func NewServer(name, version string) *Server {
	return &Server{name: name, version: version}
}

// Register adds a named procedure. Not safe to call once Run has started.
func (s *Server) Register(info ToolInfo, handler ToolHandler) {
	s.tools = append(s.tools, serverTool{info: info, handler: handler})
}

// Run serves requests until the reader is exhausted or ctx is cancelled.
// The provider's peer closes stdin to shut it down.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxFrameBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.reply(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error"}})
			continue
		}
		// Notifications carry no id and expect no reply.
		if req.ID == nil {
			continue
		}

		resp := s.dispatch(ctx, req)
		s.reply(w, resp)
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req rpcRequest) rpcResponse {
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		resp.Result = mustMarshal(initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      peerInfo{Name: s.name, Version: s.version},
		})

	case "tools/list":
		infos := make([]ToolInfo, 0, len(s.tools))
		for _, t := range s.tools {
			infos = append(infos, t.info)
		}
		resp.Result = mustMarshal(listToolsResult{Tools: infos})

	case "tools/call":
		resp = s.callTool(ctx, req)

	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}
	return resp
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (s *Server) callTool(ctx context.Context, req rpcRequest) rpcResponse {
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}

	raw, err := json.Marshal(req.Params)
	if err != nil {
		resp.Error = &rpcError{Code: codeInvalidParams, Message: "invalid params"}
		return resp
	}
	var params callParams
	if err := json.Unmarshal(raw, &params); err != nil {
		resp.Error = &rpcError{Code: codeInvalidParams, Message: "invalid params"}
		return resp
	}

	for _, t := range s.tools {
		if t.info.Name != params.Name {
			continue
		}
		payload, err := t.handler(ctx, params.Arguments)
		if err != nil {
			log.Error().Err(err).Str("tool", params.Name).Msg("tool handler failed")
			resp.Error = &rpcError{Code: codeInternalError, Message: err.Error()}
			return resp
		}
		resp.Result = mustMarshal(callToolResult{
			Content: []contentItem{{Type: "text", Text: payload}},
		})
		return resp
	}

	resp.Error = &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown tool: %s", params.Name)}
	return resp
}

func (s *Server) reply(w io.Writer, resp rpcResponse) {
	frame, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("marshal rpc response")
		return
	}
	frame = append(frame, '\n')
	if _, err := w.Write(frame); err != nil {
		log.Error().Err(err).Msg("write rpc response")
	}
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
