// Package lspserver is the glue: a stdio JSON-RPC transport
// wiring TreeProvider, PositionMapper, Workspace, SymbolResolver,
// ModAnalyzer, Formatter, and Navigation together behind the Language
// Server Protocol's request surface. The protocol machinery itself has no
// natural home in the domain stack — no third-party JSON-RPC/LSP
// framework appears anywhere in the retrieved example repos with a
// license and API shape this module could adopt outright — so it is
// hand-rolled here in the same spirit the rest of this package treats as
// "ambient plumbing, not a feature to build out."
package lspserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// rpcMessage is the wire shape of a JSON-RPC 2.0 request, response, or
// notification — fields are left as json.RawMessage where a typed struct
// buys nothing until a specific method unmarshals it.
type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Transport reads Content-Length-framed JSON-RPC messages from r and
// writes responses to w, synchronously — one request is fully handled
// before the next is read: a single-task event-loop model, not a
// concurrent request dispatcher.
type Transport struct {
	r *bufio.Reader
	w io.Writer
}

// NewTransport wraps r/w for stdio framing.
func NewTransport(r io.Reader, w io.Writer) *Transport {
	return &Transport{r: bufio.NewReader(r), w: w}
}

// ReadMessage blocks for the next framed message, or returns io.EOF when
// the peer closes the stream.
func (t *Transport) ReadMessage() (*rpcMessage, error) {
	var contentLength int
	for {
		line, err := t.r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			n, err := strconv.Atoi(strings.TrimSpace(line[len("content-length:"):]))
			if err != nil {
				return nil, fmt.Errorf("lspserver: malformed Content-Length header %q: %w", line, err)
			}
			contentLength = n
		}
	}
	if contentLength <= 0 {
		return nil, fmt.Errorf("lspserver: missing Content-Length header")
	}
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(t.r, body); err != nil {
		return nil, err
	}
	var msg rpcMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("lspserver: invalid JSON-RPC body: %w", err)
	}
	return &msg, nil
}

// WriteMessage frames and writes msg.
func (t *Transport) WriteMessage(msg *rpcMessage) error {
	msg.JSONRPC = "2.0"
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(t.w, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return err
	}
	_, err = t.w.Write(body)
	return err
}

// WriteResult writes a successful response to id.
func (t *Transport) WriteResult(id json.RawMessage, result interface{}) error {
	return t.WriteMessage(&rpcMessage{ID: id, Result: result})
}

// WriteError writes an error response to id.
func (t *Transport) WriteError(id json.RawMessage, code int, message string) error {
	return t.WriteMessage(&rpcMessage{ID: id, Error: &rpcError{Code: code, Message: message}})
}

// Notify sends a server-initiated notification (no id), e.g.
// textDocument/publishDiagnostics.
func (t *Transport) Notify(method string, params interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return t.WriteMessage(&rpcMessage{Method: method, Params: raw})
}
