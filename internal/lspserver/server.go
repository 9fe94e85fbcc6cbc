package lspserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mnshdw/squirrel-lsp/internal/format"
	"github.com/mnshdw/squirrel-lsp/internal/modanalyzer"
	"github.com/mnshdw/squirrel-lsp/internal/navigation"
	"github.com/mnshdw/squirrel-lsp/internal/posmap"
	"github.com/mnshdw/squirrel-lsp/internal/resolver"
	"github.com/mnshdw/squirrel-lsp/internal/sqlang"
	"github.com/mnshdw/squirrel-lsp/internal/workspace"
)

// Server is the LSP request handler loop: one goroutine reads framed
// requests from stdin and replies on stdout. The document store is
// guarded by its own RWMutex; the workspace index has no lock and is only
// touched from this loop goroutine. Handlers never spawn their own
// goroutines.
type Server struct {
	transport *Transport
	logger    *Logger
	docs      *documentStore
	ws        *workspace.Workspace
	analyzer  *modanalyzer.Analyzer
	options   format.Options

	shuttingDown atomic.Bool
	requestSeq   atomic.Int64

	indexLimiter *rate.Limiter
}

// NewServer wires a Server reading r and writing w, with diagnostics and
// formatting logged to logOut.
func NewServer(r io.Reader, w io.Writer, logOut io.Writer) *Server {
	ws := workspace.New()
	return &Server{
		transport:    NewTransport(r, w),
		logger:       NewLogger(logOut),
		docs:         newDocumentStore(),
		ws:           ws,
		analyzer:     modanalyzer.New(ws, nil),
		options:      format.DefaultOptions(),
		indexLimiter: rate.NewLimiter(rate.Limit(50), 10),
	}
}

// Serve runs the request loop until the stream closes or ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := s.transport.ReadMessage()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("lspserver: read failed: %w", err)
		}
		seq := s.requestSeq.Add(1)
		reqID := uuid.NewString()
		s.logger.Debugf("req #%d [%s] method=%s", seq, reqID, msg.Method)
		s.dispatch(msg)
	}
}

func (s *Server) dispatch(msg *rpcMessage) {
	switch msg.Method {
	case "initialize":
		s.handleInitialize(msg)
	case "initialized":
		// no-op notification
	case "shutdown":
		s.shuttingDown.Store(true)
		_ = s.transport.WriteResult(msg.ID, nil)
	case "exit":
		// handled by the caller's Serve loop exiting on EOF in practice;
		// nothing to clean up here beyond the shutdown flag already set.
	case "textDocument/didOpen":
		s.handleDidOpen(msg)
	case "textDocument/didChange":
		s.handleDidChange(msg)
	case "textDocument/didClose":
		s.handleDidClose(msg)
	case "textDocument/formatting":
		s.handleFormatting(msg)
	case "textDocument/definition":
		s.handleDefinition(msg)
	case "textDocument/documentSymbol":
		s.handleDocumentSymbol(msg)
	case "workspace/symbol":
		s.handleWorkspaceSymbol(msg)
	default:
		if msg.ID != nil {
			_ = s.transport.WriteError(msg.ID, -32601, "method not found: "+msg.Method)
		}
	}
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type textDocumentItem struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

func (s *Server) handleInitialize(msg *rpcMessage) {
	var params struct {
		RootPath string `json:"rootPath"`
	}
	if err := json.Unmarshal(msg.Params, &params); err == nil && params.RootPath != "" {
		// Synchronous, like every other handler: the event loop is
		// single-task, so the initial sweep is just a slow request.
		if err := s.IndexWorkspace(context.Background(), params.RootPath); err != nil {
			s.logger.Errorf("workspace index of %s failed: %v", params.RootPath, err)
		}
	}

	result := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"textDocumentSync":           1, // full-document sync; no incremental edits
			"documentFormattingProvider": true,
			"definitionProvider":         true,
			"documentSymbolProvider":     true,
			"workspaceSymbolProvider":    true,
		},
	}
	if err := s.transport.WriteResult(msg.ID, result); err != nil {
		s.logger.Errorf("initialize response failed: %v", err)
	}
}

func (s *Server) handleDidOpen(msg *rpcMessage) {
	var params struct {
		TextDocument textDocumentItem `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Errorf("didOpen: %v", err)
		return
	}
	s.docs.open(params.TextDocument.URI, params.TextDocument.Text)
	s.indexAndPublish(params.TextDocument.URI, params.TextDocument.Text)
}

func (s *Server) handleDidChange(msg *rpcMessage) {
	var params struct {
		TextDocument   textDocumentIdentifier `json:"textDocument"`
		ContentChanges []struct {
			Text string `json:"text"`
		} `json:"contentChanges"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Errorf("didChange: %v", err)
		return
	}
	if len(params.ContentChanges) == 0 {
		return
	}
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	s.docs.update(params.TextDocument.URI, text)
	s.indexAndPublish(params.TextDocument.URI, text)
}

func (s *Server) handleDidClose(msg *rpcMessage) {
	var params struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return
	}
	s.docs.close(params.TextDocument.URI)
}

// indexAndPublish re-indexes uri's file in the workspace (so inheritance
// and hook validation see the latest edit) and publishes resolver +
// modanalyzer diagnostics for it.
func (s *Server) indexAndPublish(uri, text string) {
	path := uriToPath(uri)
	if err := s.ws.IndexFile(path, text); err != nil {
		s.logger.Errorf("indexing %s: %v", path, err)
	}
	s.ws.RebuildInheritanceGraph()

	tree := sqlang.Parse(text)
	mapper := posmap.New(text)
	scriptPath := workspace.ScriptPathFromFilePath(path)

	var lspDiags []lspDiagnostic
	for _, d := range resolver.Analyze(tree, s.knownGlobalsSet()) {
		lspDiags = append(lspDiags, diagnosticFromResolver(d))
	}
	for _, d := range s.analyzer.AnalyzeInheritance(scriptPath, mapper) {
		lspDiags = append(lspDiags, diagnosticFromAnalyzer(d))
	}
	for _, d := range s.analyzer.AnalyzeHooks(tree, mapper) {
		lspDiags = append(lspDiags, diagnosticFromAnalyzer(d))
	}

	_ = s.transport.Notify("textDocument/publishDiagnostics", map[string]interface{}{
		"uri":         uri,
		"diagnostics": lspDiags,
	})
}

func (s *Server) knownGlobalsSet() map[string]bool {
	out := make(map[string]bool)
	for _, g := range s.ws.Globals() {
		out[g] = true
	}
	return out
}

type lspDiagnostic struct {
	Range    lspRange `json:"range"`
	Severity int      `json:"severity"`
	Message  string   `json:"message"`
	Code     string   `json:"code,omitempty"`
}

type lspRange struct {
	Start lspPosition `json:"start"`
	End   lspPosition `json:"end"`
}

type lspPosition struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

func toLSPRange(r posmap.Range) lspRange {
	return lspRange{
		Start: lspPosition{Line: r.Start.Line, Character: r.Start.Character},
		End:   lspPosition{Line: r.End.Line, Character: r.End.Character},
	}
}

func diagnosticFromResolver(d resolver.Diagnostic) lspDiagnostic {
	return lspDiagnostic{Range: toLSPRange(d.Range), Severity: int(d.Severity), Message: d.Message}
}

func diagnosticFromAnalyzer(d modanalyzer.Diagnostic) lspDiagnostic {
	return lspDiagnostic{Range: toLSPRange(d.Range), Severity: int(d.Severity), Message: d.Message, Code: d.Code}
}

func (s *Server) handleFormatting(msg *rpcMessage) {
	var params struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		_ = s.transport.WriteError(msg.ID, -32602, "invalid params")
		return
	}
	text, ok := s.docs.get(params.TextDocument.URI)
	if !ok {
		_ = s.transport.WriteResult(msg.ID, nil)
		return
	}
	formatted := format.Format(text, s.options)
	if formatted == text {
		_ = s.transport.WriteResult(msg.ID, []interface{}{})
		return
	}
	edits := []map[string]interface{}{{
		"range":   toLSPRange(fullDocumentRange(text)),
		"newText": formatted,
	}}
	_ = s.transport.WriteResult(msg.ID, edits)
}

func fullDocumentRange(text string) posmap.Range {
	mapper := posmap.New(text)
	return mapper.RangeAt(0, len(text))
}

func (s *Server) handleDefinition(msg *rpcMessage) {
	var params struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
		Position     lspPosition            `json:"position"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		_ = s.transport.WriteError(msg.ID, -32602, "invalid params")
		return
	}
	text, ok := s.docs.get(params.TextDocument.URI)
	if !ok {
		_ = s.transport.WriteResult(msg.ID, nil)
		return
	}
	path := uriToPath(params.TextDocument.URI)
	scriptPath := workspace.ScriptPathFromFilePath(path)
	pos := posmap.Position{Line: params.Position.Line, Character: params.Position.Character}

	def, ok := navigation.FindDefinition(text, pos, scriptPath, s.ws)
	if !ok {
		_ = s.transport.WriteResult(msg.ID, nil)
		return
	}
	loc := map[string]interface{}{
		"uri": pathToURI(def.FilePath),
		"range": lspRange{
			Start: lspPosition{Line: def.Line, Character: def.Column},
			End:   lspPosition{Line: def.Line, Character: def.Column},
		},
	}
	_ = s.transport.WriteResult(msg.ID, loc)
}

func (s *Server) handleDocumentSymbol(msg *rpcMessage) {
	var params struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		_ = s.transport.WriteError(msg.ID, -32602, "invalid params")
		return
	}
	text, ok := s.docs.get(params.TextDocument.URI)
	if !ok {
		_ = s.transport.WriteResult(msg.ID, []interface{}{})
		return
	}
	_ = s.transport.WriteResult(msg.ID, toLSPSymbols(navigation.DocumentSymbols(text)))
}

func toLSPSymbols(syms []navigation.DocumentSymbol) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(syms))
	for _, sym := range syms {
		entry := map[string]interface{}{
			"name":           sym.Name,
			"kind":           int(sym.Kind),
			"range":          toLSPRange(sym.Range),
			"selectionRange": toLSPRange(sym.Range),
		}
		if len(sym.Children) > 0 {
			entry["children"] = toLSPSymbols(sym.Children)
		}
		out = append(out, entry)
	}
	return out
}

func (s *Server) handleWorkspaceSymbol(msg *rpcMessage) {
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		_ = s.transport.WriteError(msg.ID, -32602, "invalid params")
		return
	}
	results := navigation.WorkspaceSymbols(params.Query, s.ws)
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		out = append(out, map[string]interface{}{
			"name": r.Name,
			"kind": int(r.Kind),
			"location": map[string]interface{}{
				"uri": pathToURI(r.FilePath),
				"range": lspRange{
					Start: lspPosition{Line: r.Line, Character: r.Column},
					End:   lspPosition{Line: r.Line, Character: r.Column},
				},
			},
			"containerName": r.ContainerName,
		})
	}
	_ = s.transport.WriteResult(msg.ID, out)
}

// IndexWorkspace walks root and indexes every .nut file it finds,
// rate-limited so a large mod folder doesn't starve the event loop. A
// per-root parse cache is loaded beforehand and saved afterward, so
// reopening the same mod folder only reparses files that changed since
// the last session.
func (s *Server) IndexWorkspace(ctx context.Context, root string) error {
	readFile := func(path string) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	cache := workspace.LoadFileCache(cachePathFor(root))
	if err := s.ws.IndexDirectory(ctx, root, readFile, s.indexLimiter, cache); err != nil {
		return err
	}
	s.ws.RebuildInheritanceGraph()
	if err := cache.Save(); err != nil {
		s.logger.Debugf("workspace cache not saved: %v", err)
	}
	return nil
}

// cachePathFor returns the parse-cache file for a workspace root, stored
// gzip-compressed in a hidden .sq-lsp directory under that root rather
// than loose among the mod's scripts.
func cachePathFor(root string) string {
	return filepath.Join(root, ".sq-lsp", "parse-cache.json.gz")
}

func uriToPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func pathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	return "file://" + path
}
