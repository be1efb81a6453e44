// Package driver runs the nuqta pipeline over one compilation unit and
// collects every stage's artifact.
package driver

import (
	"context"
	"errors"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/nuqta/cache"
	"github.com/chazu/nuqta/compiler"
	"github.com/chazu/nuqta/compiler/hash"
	"github.com/chazu/nuqta/compiler/qbe"
	"github.com/chazu/nuqta/compiler/tac"
)

var log = commonlog.GetLogger("nuqta.driver")

// ArtifactVersion identifies the output of the TAC generator and backend
// emitter. Bump it whenever either changes what it emits for the same
// program, so cached artifacts from older builds are no longer served.
const ArtifactVersion = "2"

// CacheKey returns the cache key for a program with the given content
// hash.
func CacheKey(programHash string) string {
	return programHash + "-v" + ArtifactVersion
}

// Options control a compilation.
type Options struct {
	// StopOnSyntaxErrors ends the pipeline after parsing when lexing or
	// parsing reported an error.
	StopOnSyntaxErrors bool

	// Cache, when set, stores and reuses the lowered artifacts of programs
	// that type-check cleanly.
	Cache *cache.Cache
}

// DefaultOptions returns the options the CLI uses.
func DefaultOptions() Options {
	return Options{StopOnSyntaxErrors: true}
}

// Result holds everything one compilation produced. Fields for stages that
// did not run are left zero.
type Result struct {
	Tokens      []compiler.Token
	Program     *compiler.Program
	Scopes      *compiler.ScopeTable
	Types       *compiler.TypeResult
	Quads       []tac.Quad
	TAC         string
	Backend     string
	Diagnostics []compiler.Diagnostic

	// Stage is the last stage that ran.
	Stage compiler.Stage
	// Hash is the hex content hash of Program.
	Hash string
	// Cached reports whether Quads, TAC and Backend came from the cache.
	Cached bool
}

// HasErrors reports whether any error diagnostic was produced.
func (r *Result) HasErrors() bool {
	return compiler.HasErrors(r.Diagnostics)
}

// DiagnosticStrings renders every diagnostic, prefixed with its stage.
func (r *Result) DiagnosticStrings() []string {
	out := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		out = append(out, string(d.Stage)+": "+d.String())
	}
	return out
}

// FormatTokens renders the token stream one token per line.
func (r *Result) FormatTokens() string {
	var sb strings.Builder
	for _, tok := range r.Tokens {
		sb.WriteString(tok.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Compile runs the pipeline over src. It never fails: problems are
// reported as diagnostics on the result.
func Compile(ctx context.Context, src string, opts Options) *Result {
	r := &Result{}

	var lexDiags, parseDiags []compiler.Diagnostic
	r.Tokens, lexDiags = compiler.Tokenize(src)
	r.Diagnostics = append(r.Diagnostics, lexDiags...)
	r.Stage = compiler.StageLex

	r.Program, parseDiags = compiler.Parse(r.Tokens)
	r.Diagnostics = append(r.Diagnostics, parseDiags...)
	r.Stage = compiler.StageParse
	r.Hash = hash.Hex(hash.HashProgram(r.Program))
	log.Debugf("parsed %d top-level items, %d tokens", len(r.Program.Stmts), len(r.Tokens))

	if opts.StopOnSyntaxErrors && r.HasErrors() {
		log.Infof("stopping after parse: %d diagnostics", len(r.Diagnostics))
		return r
	}

	r.Scopes = compiler.NewScopeTable()
	r.Diagnostics = append(r.Diagnostics, compiler.AnalyzeScopes(r.Program, r.Scopes)...)
	r.Stage = compiler.StageScope

	var typeDiags []compiler.Diagnostic
	r.Types, typeDiags = compiler.CheckTypes(r.Program, r.Scopes)
	r.Diagnostics = append(r.Diagnostics, typeDiags...)
	r.Stage = compiler.StageType

	// Lowering assumes a program that passed semantic analysis.
	if r.HasErrors() {
		log.Infof("stopping after type check: %d diagnostics", len(r.Diagnostics))
		return r
	}

	cacheable := opts.Cache != nil
	key := CacheKey(r.Hash)
	if cacheable {
		art, err := opts.Cache.Get(ctx, key)
		switch {
		case err == nil:
			r.Quads, r.TAC, r.Backend = art.Quads, art.TAC, art.Backend
			r.Cached = true
			r.Stage = compiler.StageIR
			return r
		case !errors.Is(err, cache.ErrNotFound):
			log.Warningf("cache lookup: %s", err)
		}
	}

	quads, err := tac.Generate(r.Program)
	r.Quads = quads
	r.Stage = compiler.StageIR
	if err != nil {
		d := compiler.Diagnostic{
			Stage:    compiler.StageIR,
			Code:     compiler.LoweringFailed,
			Severity: compiler.SeverityError,
			Message:  err.Error(),
		}
		var lerr *tac.LoweringError
		if errors.As(err, &lerr) {
			d.Pos = lerr.Pos
			d.Message = lerr.What + ": " + tac.ErrUnsupported.Error()
		}
		r.Diagnostics = append(r.Diagnostics, d)
		log.Errorf("IR generation stopped: %s", err)
		return r
	}
	r.TAC = tac.Format(quads)
	r.Backend = qbe.Emit(quads)

	if cacheable {
		art := &cache.Artifact{Quads: r.Quads, TAC: r.TAC, Backend: r.Backend}
		if err := opts.Cache.Put(ctx, key, art); err != nil {
			log.Warningf("cache store: %s", err)
		}
	}

	log.Infof("compiled %d quads, %d diagnostics", len(r.Quads), len(r.Diagnostics))
	return r
}
