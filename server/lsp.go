package server

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/nuqta/compiler"
	"github.com/chazu/nuqta/driver"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "nuqta-lsp"

// document is an open editor buffer and its most recent compilation.
type document struct {
	version protocol.Integer
	text    string
	result  *driver.Result
}

// LspServer bridges LSP editor features to the nuqta pipeline.
type LspServer struct {
	worker *CompileWorker

	mu   sync.Mutex
	docs map[string]*document // URI → document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server. Documents are always analyzed past
// syntax errors so hover and completion keep working while typing.
func NewLSP() *LspServer {
	s := &LspServer{
		worker:  NewCompileWorker(driver.Options{StopOnSyntaxErrors: false}),
		docs:    make(map[string]*document),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("nuqta LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc := params.TextDocument
	s.update(ctx, doc.URI, doc.Version, doc.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.update(ctx, params.TextDocument.URI, params.TextDocument.Version, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.close(params.TextDocument.URI, notifier(ctx))
	return nil
}

// publishFunc delivers one diagnostics notification to the client.
type publishFunc func(protocol.PublishDiagnosticsParams)

func notifier(ctx *glsp.Context) publishFunc {
	return func(params protocol.PublishDiagnosticsParams) {
		ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, params)
	}
}

func (s *LspServer) update(ctx *glsp.Context, uri protocol.DocumentUri, version protocol.Integer, text string) {
	s.refresh(uri, version, text, notifier(ctx))
}

// refresh recompiles a document and publishes its diagnostics. Publishing
// happens under the document lock, so clients see diagnostic sets in the
// order documents were stored. A compile that finishes after a newer
// version was stored is dropped.
func (s *LspServer) refresh(uri protocol.DocumentUri, version protocol.Integer, text string, publish publishFunc) {
	res, err := s.worker.Compile(context.Background(), text)
	if err != nil {
		log.Warningf("compiling %s: %s", uri, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.docs[string(uri)]; ok && cur.version > version {
		log.Debugf("dropping diagnostics for %s version %d, have %d", uri, version, cur.version)
		return
	}
	s.docs[string(uri)] = &document{version: version, text: text, result: res}
	publish(protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: toLSPDiagnostics(res.Diagnostics),
	})
}

func (s *LspServer) close(uri protocol.DocumentUri, publish publishFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, string(uri))
	publish(protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
}

func (s *LspServer) lookup(uri protocol.DocumentUri) *document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[string(uri)]
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc := s.lookup(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	prefix := extractPrefix(doc.text, params.Position)
	return complete(doc.result, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := s.lookup(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return hover(doc.result, word, params.Position), nil
}

// complete offers keywords in both spellings and every declared name that
// starts with prefix.
func complete(res *driver.Result, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)

	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if seen[label] || !strings.HasPrefix(label, prefix) {
			return
		}
		seen[label] = true
		labelCopy := label
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &labelCopy,
		})
	}

	if res != nil && res.Types != nil {
		names := make([]string, 0, len(res.Types.Signatures))
		for name := range res.Types.Signatures {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			add(name, protocol.CompletionItemKindFunction, formatSignature(res.Types.Signatures[name]))
		}
	}
	if res != nil && res.Scopes != nil {
		for id := 0; id < res.Scopes.Len(); id++ {
			for _, sym := range res.Scopes.Symbols(compiler.ScopeID(id)) {
				if sym.IsFunction {
					add(sym.Name, protocol.CompletionItemKindFunction, "fn "+sym.Type.String())
					continue
				}
				add(sym.Name, protocol.CompletionItemKindVariable, sym.Type.String())
			}
		}
	}

	keywords := compiler.Keywords()
	sort.Strings(keywords)
	for _, kw := range keywords {
		add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}

	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

// hover describes a function by its signature, or a variable by the type
// of the closest declaration at or before the cursor.
func hover(res *driver.Result, word string, pos protocol.Position) *protocol.Hover {
	if res == nil {
		return nil
	}

	var value string
	if res.Types != nil {
		if sig, ok := res.Types.Signatures[word]; ok {
			value = "```\n" + formatSignature(sig) + "\n```"
		}
	}
	if value == "" && res.Scopes != nil {
		if sym := closestDeclaration(res.Scopes, word, int(pos.Line)+1, int(pos.Character)+1); sym != nil {
			value = fmt.Sprintf("```\n%s %s\n```", sym.Type, sym.Name)
		}
	}
	if value == "" {
		return nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}

// closestDeclaration returns the latest declaration of name that starts at
// or before line:col, falling back to the earliest one.
func closestDeclaration(table *compiler.ScopeTable, name string, line, col int) *compiler.Symbol {
	var best, first *compiler.Symbol
	before := func(a compiler.Position, line, col int) bool {
		return a.Line < line || (a.Line == line && a.Column <= col)
	}
	for id := 0; id < table.Len(); id++ {
		sym, ok := table.LookupLocal(compiler.ScopeID(id), name)
		if !ok || sym.IsFunction {
			continue
		}
		if first == nil || sym.Pos.Offset < first.Pos.Offset {
			first = sym
		}
		if before(sym.Pos, line, col) && (best == nil || sym.Pos.Offset > best.Pos.Offset) {
			best = sym
		}
	}
	if best != nil {
		return best
	}
	return first
}

func formatSignature(sig *compiler.FunctionSignature) string {
	params := make([]string, len(sig.ParamTypes))
	for i, t := range sig.ParamTypes {
		params[i] = t.String()
	}
	return fmt.Sprintf("fn %s %s(%s)", sig.ReturnType, sig.Name, strings.Join(params, ", "))
}

// --- Diagnostics ---

func toLSPDiagnostics(diags []compiler.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	source := lspName
	for _, d := range diags {
		severity := protocol.DiagnosticSeverityError
		if d.Severity == compiler.SeverityWarning {
			severity = protocol.DiagnosticSeverityWarning
		}
		var line, char protocol.UInteger
		if d.Pos.Line > 0 {
			line = protocol.UInteger(d.Pos.Line - 1)
		}
		if d.Pos.Column > 0 {
			char = protocol.UInteger(d.Pos.Column - 1)
		}
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: char},
				End:   protocol.Position{Line: line, Character: char + 1},
			},
			Severity: &severity,
			Code:     &protocol.IntegerOrString{Value: string(d.Code)},
			Source:   &source,
			Message:  fmt.Sprintf("%s: %s", d.Stage, d.Message),
		})
	}
	return out
}

// --- Text extraction helpers ---

func isWordRune(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// lineRunes returns the runes of the requested line and the cursor column
// clamped to it.
func lineRunes(text string, pos protocol.Position) ([]rune, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return nil, 0, false
	}
	line := []rune(strings.TrimSuffix(lines[pos.Line], "\r"))
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := lineRunes(text, pos)
	if !ok {
		return ""
	}
	start := col
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	return string(line[start:col])
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := lineRunes(text, pos)
	if !ok {
		return ""
	}
	start := col
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isWordRune(line[end]) {
		end++
	}
	return string(line[start:end])
}

func boolPtr(b bool) *bool {
	return &b
}
