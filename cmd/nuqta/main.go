// nuqta CLI - compiles dot-terminated nuqta programs to TAC and backend text
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/nuqta/cache"
	"github.com/chazu/nuqta/compiler"
	"github.com/chazu/nuqta/driver"
	"github.com/chazu/nuqta/manifest"
	"github.com/chazu/nuqta/server"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the parsed command line.
type options struct {
	tokens, ast, tac, backend bool
	output                    string
	config                    string
	cachePath                 string
	noCache                   bool
	keepGoing                 bool
	verbosity                 int
	logFile                   string
	lsp                       bool
	serve                     bool
	port                      int
	expr                      string
	args                      []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("nuqta", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.BoolVar(&o.tokens, "tokens", false, "Print the token stream")
	fs.BoolVar(&o.ast, "ast", false, "Print the AST as s-expressions")
	fs.BoolVar(&o.tac, "tac", false, "Print three-address code")
	fs.BoolVar(&o.backend, "backend", false, "Print backend text")
	fs.StringVar(&o.output, "o", "", "Write backend text to this file")
	fs.StringVar(&o.config, "config", "", "Path to nuqta.toml (default: search upward from the working directory)")
	fs.StringVar(&o.cachePath, "cache", "", "Artifact cache database path")
	fs.BoolVar(&o.noCache, "no-cache", false, "Disable the artifact cache")
	fs.BoolVar(&o.keepGoing, "keep-going", false, "Run semantic analysis even after syntax errors")
	fs.IntVar(&o.verbosity, "v", -1, "Log verbosity 0-5 (default: from nuqta.toml)")
	fs.StringVar(&o.logFile, "log", "", "Log file (default: stderr)")
	fs.BoolVar(&o.lsp, "lsp", false, "Run the language server on stdio")
	fs.BoolVar(&o.serve, "serve", false, "Start the Connect compile service")
	fs.IntVar(&o.port, "port", 0, "Compile service port (default: from nuqta.toml)")
	fs.StringVar(&o.expr, "e", "", "Compile this source text instead of a file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: nuqta [options] [file.nq]\n\n")
		fmt.Fprintf(stderr, "Compiles a nuqta program and prints the requested artifacts.\n")
		fmt.Fprintf(stderr, "Diagnostics are always printed to stderr.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  nuqta -tac hello.nq             # Print TAC\n")
		fmt.Fprintf(stderr, "  nuqta -e 'int x = 1 + 2 .' -ast # Compile a literal\n")
		fmt.Fprintf(stderr, "  nuqta -backend -o out.ssa       # Build the manifest entry\n")
		fmt.Fprintf(stderr, "  nuqta -serve -port 8765         # Start the compile service\n")
		fmt.Fprintf(stderr, "  nuqta -lsp                      # Language server on stdio\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.args = fs.Args()
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	m, found, err := loadManifest(o.config)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	configureLogging(o, m)

	opts := driver.Options{StopOnSyntaxErrors: m.StopOnSyntaxErrors() && !o.keepGoing}
	if c := openCache(o, m, stderr); c != nil {
		defer c.Close()
		opts.Cache = c
	}

	if o.lsp {
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(stderr, "LSP error: %v\n", err)
			return 1
		}
		return 0
	}

	if o.serve {
		port := o.port
		if port == 0 {
			port = m.Server.Port
		}
		srv := server.New(opts)
		defer srv.Stop()
		if err := srv.ListenAndServe(fmt.Sprintf(":%d", port)); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return 1
		}
		return 0
	}

	src, err := readSource(o, m, found)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	res := driver.Compile(context.Background(), src, opts)
	printArtifacts(o, m, res, stdout)
	for _, d := range res.DiagnosticStrings() {
		fmt.Fprintln(stderr, d)
	}

	if o.output != "" && res.Backend != "" {
		if err := os.WriteFile(o.output, []byte(res.Backend), 0644); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	if res.HasErrors() {
		return 1
	}
	return 0
}

// loadManifest loads -config, else searches upward from the working
// directory, else falls back to defaults. found reports whether a file was
// read.
func loadManifest(config string) (m *manifest.Manifest, found bool, err error) {
	if config != "" {
		m, err = manifest.LoadFile(config)
		return m, err == nil, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, false, err
	}
	m, err = manifest.FindAndLoad(wd)
	if err != nil {
		return nil, false, err
	}
	if m == nil {
		return manifest.Default(wd), false, nil
	}
	return m, true, nil
}

func configureLogging(o *options, m *manifest.Manifest) {
	verbosity := m.Log.Verbosity
	if o.verbosity >= 0 {
		verbosity = o.verbosity
	}
	logFile := m.Log.File
	if o.logFile != "" {
		logFile = o.logFile
	}
	var path *string
	if logFile != "" {
		path = &logFile
	}
	commonlog.Configure(verbosity, path)
}

// openCache returns the artifact cache selected by -cache or build.cache,
// or nil. Failing to open it only costs speed, so it is reported and
// skipped.
func openCache(o *options, m *manifest.Manifest, stderr io.Writer) *cache.Cache {
	if o.noCache {
		return nil
	}
	path := o.cachePath
	if path == "" && m.Build.Cache {
		path = m.CachePath()
	}
	if path == "" {
		return nil
	}
	c, err := cache.Open(path)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: cache disabled: %v\n", err)
		return nil
	}
	return c
}

func readSource(o *options, m *manifest.Manifest, found bool) (string, error) {
	switch {
	case o.expr != "":
		return o.expr, nil
	case len(o.args) > 1:
		return "", fmt.Errorf("expected one source file, got %d", len(o.args))
	case len(o.args) == 1:
		data, err := os.ReadFile(o.args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	case found:
		data, err := os.ReadFile(m.EntryPath())
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("no input: pass a file, -e 'source', or run inside a project with %s", manifest.FileName)
}

// printArtifacts writes each selected stage artifact. With no selection
// flags, the manifest's build.emit decides.
func printArtifacts(o *options, m *manifest.Manifest, res *driver.Result, w io.Writer) {
	showTAC, showBackend := o.tac, o.backend
	if !o.tokens && !o.ast && !o.tac && !o.backend && o.output == "" {
		showTAC, showBackend = m.EmitTAC(), m.EmitBackend()
	}

	if o.tokens {
		fmt.Fprintln(w, "-- tokens --")
		fmt.Fprint(w, res.FormatTokens())
	}
	if o.ast && res.Program != nil {
		fmt.Fprintln(w, "-- ast --")
		fmt.Fprint(w, compiler.Dump(res.Program))
	}
	if showTAC && res.TAC != "" {
		fmt.Fprintln(w, "-- tac --")
		fmt.Fprint(w, res.TAC)
	}
	if showBackend && res.Backend != "" {
		fmt.Fprintln(w, "-- backend --")
		fmt.Fprint(w, res.Backend)
	}
}
