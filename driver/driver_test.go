package driver

import (
	"context"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/chazu/nuqta/cache"
	"github.com/chazu/nuqta/compiler"
)

func TestCompileClean(t *testing.T) {
	res := Compile(context.Background(), "int x = 1 + 2 .", DefaultOptions())

	be.Equal(t, res.HasErrors(), false)
	be.Equal(t, len(res.Diagnostics), 0)
	be.Equal(t, res.Stage, compiler.StageIR)
	be.Equal(t, res.TAC, "  _t0 = 1 + 2\n  x = _t0\n")
	be.True(t, strings.Contains(res.Backend, "%.t0 =l add 1, 2"))
	be.Equal(t, len(res.Quads), 2)
	be.Equal(t, len(res.Hash), 64)
	be.Equal(t, res.Cached, false)
	be.True(t, res.Scopes != nil)
	be.True(t, res.Types != nil)
}

func TestCompileFormatTokens(t *testing.T) {
	res := Compile(context.Background(), "int x .", DefaultOptions())
	be.Equal(t, res.FormatTokens(), "int(\"int\")\nIDENTIFIER(\"x\")\n.(\".\")\nEOF\n")
}

func TestCompileStopsOnSyntaxErrors(t *testing.T) {
	src := "int = 3 . int z = q ."

	res := Compile(context.Background(), src, DefaultOptions())
	be.Equal(t, res.Stage, compiler.StageParse)
	be.Equal(t, len(res.Diagnostics), 1)
	be.Equal(t, res.Diagnostics[0].Code, compiler.ExpectedIdentifier)
	be.True(t, res.Scopes == nil)
	be.Equal(t, res.TAC, "")

	res = Compile(context.Background(), src, Options{})
	be.Equal(t, res.Stage, compiler.StageType)
	be.Equal(t, len(res.Diagnostics), 2)
	be.Equal(t, res.Diagnostics[1].Code, compiler.UndeclaredVariableAccessed)
	be.Equal(t, res.TAC, "")
}

func TestCompileIgnoresComments(t *testing.T) {
	res := Compile(context.Background(), "/* note */ int x = 1 . // done", DefaultOptions())
	be.Equal(t, res.HasErrors(), false)
	be.Equal(t, res.TAC, "  x = 1\n")
}

func TestCompileSemanticErrorsSkipLowering(t *testing.T) {
	res := Compile(context.Background(), "int x = 1 + 2.0 .", DefaultOptions())
	be.Equal(t, res.Stage, compiler.StageType)
	be.Equal(t, len(res.Diagnostics), 1)
	be.Equal(t, res.Diagnostics[0].Code, compiler.ErroneousVarDecl)
	be.Equal(t, len(res.Quads), 0)
	be.Equal(t, res.Backend, "")
}

func TestDiagnosticStrings(t *testing.T) {
	res := Compile(context.Background(), "int x = y .\nbreak .", DefaultOptions())
	be.Equal(t, res.DiagnosticStrings(), []string{
		"scope: line 1, column 9: undeclared variable y",
		"type: line 2, column 1: break outside of a loop",
	})
}

func TestCompileIdempotent(t *testing.T) {
	src := "fn int sq(int v) { return v * v . } .\nint i = 0 .\nwhile (i < 3) { i = i + sq(i) . }\n"
	first := Compile(context.Background(), src, DefaultOptions())
	for i := 0; i < 3; i++ {
		again := Compile(context.Background(), src, DefaultOptions())
		be.Equal(t, again.TAC, first.TAC)
		be.Equal(t, again.Backend, first.Backend)
		be.Equal(t, again.Hash, first.Hash)
	}
}

func TestCompileCache(t *testing.T) {
	ctx := context.Background()
	c, err := cache.Open(":memory:")
	be.Err(t, err, nil)
	defer c.Close()
	opts := Options{StopOnSyntaxErrors: true, Cache: c}

	first := Compile(ctx, "int x = 4 - 1 .", opts)
	be.Equal(t, first.Cached, false)
	n, err := c.Len(ctx)
	be.Err(t, err, nil)
	be.Equal(t, n, 1)

	// Same tree, different layout.
	second := Compile(ctx, "int x=4-1. // again", opts)
	be.Equal(t, second.Cached, true)
	be.Equal(t, second.Hash, first.Hash)
	be.Equal(t, second.TAC, first.TAC)
	be.Equal(t, second.Backend, first.Backend)
	be.Equal(t, second.Quads, first.Quads)
	be.Equal(t, second.Stage, compiler.StageIR)

	// Programs with errors are never stored.
	Compile(ctx, "int x = y .", opts)
	n, _ = c.Len(ctx)
	be.Equal(t, n, 1)
}

// Entries written under another artifact version are never served.
func TestCompileCacheVersioned(t *testing.T) {
	ctx := context.Background()
	c, err := cache.Open(":memory:")
	be.Err(t, err, nil)
	defer c.Close()

	src := "int b0 = 5 . bool c = 1 < 2 ."
	fresh := Compile(ctx, src, DefaultOptions())
	be.Equal(t, fresh.HasErrors(), false)

	stale := &cache.Artifact{TAC: "stale tac", Backend: "stale backend"}
	be.Err(t, c.Put(ctx, fresh.Hash, stale), nil)
	be.Err(t, c.Put(ctx, fresh.Hash+"-v1", stale), nil)

	res := Compile(ctx, src, Options{StopOnSyntaxErrors: true, Cache: c})
	be.Equal(t, res.Cached, false)
	be.Equal(t, res.TAC, fresh.TAC)
	be.Equal(t, res.Backend, fresh.Backend)

	art, err := c.Get(ctx, CacheKey(fresh.Hash))
	be.Err(t, err, nil)
	be.Equal(t, art.Backend, fresh.Backend)
	be.Equal(t, CacheKey(fresh.Hash), fresh.Hash+"-v"+ArtifactVersion)
}

// A failing cache only costs the lookup.
func TestCompileClosedCache(t *testing.T) {
	c, err := cache.Open(":memory:")
	be.Err(t, err, nil)
	c.Close()

	res := Compile(context.Background(), "int x = 2 .", Options{Cache: c})
	be.Equal(t, res.HasErrors(), false)
	be.Equal(t, res.Cached, false)
	be.Equal(t, res.TAC, "  x = 2\n")
}
