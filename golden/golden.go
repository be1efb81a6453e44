// Package golden extracts pipeline golden tests from Markdown documents.
//
// A test starts at a heading "Test: <name>". It holds one ```nuqta fence
// with the source and one or more assertion fences, each naming the stage
// artifact it expects:
//
//	## Test: addition
//	```nuqta
//	int x = 1 + 2 .
//	```
//	```tac
//	  _t0 = 1 + 2
//	  x = _t0
//	```
package golden

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/chazu/nuqta/compiler"
	"github.com/chazu/nuqta/driver"
)

// InputFence is the fence language holding a test's source.
const InputFence = "nuqta"

// AssertionType names the artifact an assertion fence checks.
type AssertionType string

const (
	AssertTokens      AssertionType = "tokens"
	AssertAST         AssertionType = "ast"
	AssertDiagnostics AssertionType = "diagnostics"
	AssertCodes       AssertionType = "codes"
	AssertTAC         AssertionType = "tac"
	AssertBackend     AssertionType = "backend"
)

var assertionTypes = map[string]AssertionType{
	string(AssertTokens):      AssertTokens,
	string(AssertAST):         AssertAST,
	string(AssertDiagnostics): AssertDiagnostics,
	string(AssertCodes):       AssertCodes,
	string(AssertTAC):         AssertTAC,
	string(AssertBackend):     AssertBackend,
}

// Assertion is one expected artifact.
type Assertion struct {
	Type    AssertionType
	Content string
	Line    int
}

// TestCase is a named source with its assertions.
type TestCase struct {
	Name       string
	Line       int
	Input      string
	Assertions []Assertion
}

// ExtractTestCases parses a Markdown document and returns its test cases in
// document order.
func ExtractTestCases(markdown string) ([]TestCase, error) {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []TestCase
	var cur *TestCase
	hasInput := false

	finish := func() error {
		if cur == nil {
			return nil
		}
		if !hasInput {
			return fmt.Errorf("line %d: test '%s' has no %s fence", cur.Line, cur.Name, InputFence)
		}
		if len(cur.Assertions) == 0 {
			return fmt.Errorf("line %d: test '%s' has no assertion fences", cur.Line, cur.Name)
		}
		cases = append(cases, *cur)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := textOf(n, source)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := finish(); err != nil {
				return ast.WalkStop, err
			}
			cur = &TestCase{
				Name: strings.TrimSpace(strings.TrimPrefix(heading, "Test: ")),
				Line: lineOf(n, source),
			}
			hasInput = false
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			line := lineOf(n, source)
			if cur == nil {
				if lang == InputFence || assertionTypes[lang] != "" {
					return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", line, lang)
				}
				return ast.WalkContinue, nil
			}

			content := fenceContent(n, source)
			switch {
			case lang == InputFence:
				if hasInput {
					return ast.WalkStop, fmt.Errorf("line %d: multiple %s fences in test '%s'", line, InputFence, cur.Name)
				}
				cur.Input = content
				hasInput = true
			case assertionTypes[lang] != "":
				cur.Assertions = append(cur.Assertions, Assertion{
					Type:    assertionTypes[lang],
					Content: strings.TrimRight(content, "\n"),
					Line:    line,
				})
			case lang != "":
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", line, lang, cur.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return cases, nil
}

// Actual renders the artifact an assertion of type typ compares against.
func Actual(res *driver.Result, typ AssertionType) (string, error) {
	var out string
	switch typ {
	case AssertTokens:
		out = res.FormatTokens()
	case AssertAST:
		if res.Program != nil {
			out = compiler.Dump(res.Program)
		}
	case AssertDiagnostics:
		out = strings.Join(res.DiagnosticStrings(), "\n")
	case AssertCodes:
		codes := make([]string, len(res.Diagnostics))
		for i, d := range res.Diagnostics {
			codes[i] = string(d.Code)
		}
		out = strings.Join(codes, "\n")
	case AssertTAC:
		out = res.TAC
	case AssertBackend:
		out = res.Backend
	default:
		return "", fmt.Errorf("unknown assertion type %q", typ)
	}
	return strings.TrimRight(out, "\n"), nil
}

func textOf(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// lineOf returns the 1-based source line where node's first line starts.
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 0
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:start], []byte("\n")) + 1
}
