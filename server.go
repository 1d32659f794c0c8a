package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/o3as/o3as-export-server/cache"
	"github.com/o3as/o3as-export-server/export"
	"github.com/o3as/o3as-export-server/format"
	"github.com/o3as/o3as-export-server/observability"
	"github.com/o3as/o3as-export-server/store"
)

// maxLineBytes bounds a single JSON-RPC message; record payloads travel inline.
const maxLineBytes = 32 << 20

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

type MCPServer struct {
	reader     io.Reader
	writer     io.Writer
	db         *store.Client
	exporter   *export.Service
	queryCache *cache.Cache[format.Table]
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewMCPServer wires a server reading requests from r and answering on w.
// db and queryCache may be nil when no database is configured.
func NewMCPServer(r io.Reader, w io.Writer, exporter *export.Service, db *store.Client, queryCache *cache.Cache[format.Table], metrics *observability.Metrics, logger *slog.Logger) *MCPServer {
	return &MCPServer{
		reader:     r,
		writer:     w,
		db:         db,
		exporter:   exporter,
		queryCache: queryCache,
		metrics:    metrics,
		logger:     logger,
	}
}

// Serve answers requests line by line until the input ends.
func (s *MCPServer) Serve(ctx context.Context) error {
	s.logger.Info("mcp server starting", "database", s.db != nil)

	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("error parsing request", "error", err)
			if err := s.sendError(nil, codeParseError, "Parse error"); err != nil {
				return err
			}
			continue
		}

		response := s.handleRequest(ctx, &req)
		if err := s.sendResponse(response); err != nil {
			return fmt.Errorf("failed to send response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	s.logger.Info("mcp input closed")
	return nil
}

func (s *MCPServer) handleRequest(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return errorResponse(req.ID, codeMethodNotFound, "Method not found")
	}
}

func (s *MCPServer) handleInitialize(req *Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "o3as-export-server",
				"version": Version,
			},
		},
	}
}

func errorResponse(id interface{}, code int, message string) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	}
}

// textResult builds a tool result made of text content blocks.
func textResult(id interface{}, texts ...string) *Response {
	content := make([]map[string]interface{}, 0, len(texts))
	for _, text := range texts {
		content = append(content, map[string]interface{}{
			"type": "text",
			"text": text,
		})
	}
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Result: map[string]interface{}{
			"content": content,
		},
	}
}

func (s *MCPServer) sendResponse(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(s.writer, "%s\n", data)
	return err
}

func (s *MCPServer) sendError(id interface{}, code int, message string) error {
	return s.sendResponse(errorResponse(id, code, message))
}
