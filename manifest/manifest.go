// Package manifest handles nuqta.toml project configuration.
package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "nuqta.toml"

// ErrInvalid is wrapped by Load when a manifest parses but fails schema
// validation.
var ErrInvalid = errors.New("invalid manifest")

//go:embed schema.cue
var schemaSource string

// Manifest represents a nuqta.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project" json:"project"`
	Source  Source       `toml:"source" json:"source"`
	Build   BuildConfig  `toml:"build" json:"build"`
	Log     LogConfig    `toml:"log" json:"log"`
	Server  ServerConfig `toml:"server" json:"server"`

	// Dir is the directory containing the nuqta.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" json:"name"`
	Version string `toml:"version" json:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs  []string `toml:"dirs" json:"dirs"`
	Entry string   `toml:"entry" json:"entry"`
}

// BuildConfig selects pipeline behavior and outputs.
type BuildConfig struct {
	// Emit is one of "tac", "backend" or "both".
	Emit               string `toml:"emit" json:"emit"`
	Cache              bool   `toml:"cache" json:"cache"`
	StopOnSyntaxErrors *bool  `toml:"stop-on-syntax-errors" json:"stop-on-syntax-errors"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	File      string `toml:"file" json:"file"`
}

// ServerConfig configures the compile service.
type ServerConfig struct {
	Port int `toml:"port" json:"port"`
}

// Default returns the manifest used when no nuqta.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

// Load parses and validates the nuqta.toml file in dir.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses and validates the manifest at path. Dir is set to the
// directory containing it.
func LoadFile(path string) (*Manifest, error) {
	dir := filepath.Dir(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes manifest text, fills in defaults and validates the result.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	m.applyDefaults()
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a nuqta.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) applyDefaults() {
	if m.Project.Name == "" {
		m.Project.Name = "nuqta"
	}
	if m.Project.Version == "" {
		m.Project.Version = "0.1.0"
	}
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Source.Entry == "" {
		m.Source.Entry = "main.nq"
	}
	if m.Build.Emit == "" {
		m.Build.Emit = "backend"
	}
	if m.Build.StopOnSyntaxErrors == nil {
		stop := true
		m.Build.StopOnSyntaxErrors = &stop
	}
	if m.Server.Port == 0 {
		m.Server.Port = 8765
	}
}

// StopOnSyntaxErrors reports the effective build.stop-on-syntax-errors value.
func (m *Manifest) StopOnSyntaxErrors() bool {
	return m.Build.StopOnSyntaxErrors == nil || *m.Build.StopOnSyntaxErrors
}

// EmitTAC reports whether TAC text is a requested output.
func (m *Manifest) EmitTAC() bool {
	return m.Build.Emit == "tac" || m.Build.Emit == "both"
}

// EmitBackend reports whether backend text is a requested output.
func (m *Manifest) EmitBackend() bool {
	return m.Build.Emit == "backend" || m.Build.Emit == "both"
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// EntryPath returns the entry file, resolved against the first source
// directory.
func (m *Manifest) EntryPath() string {
	if filepath.IsAbs(m.Source.Entry) {
		return m.Source.Entry
	}
	return filepath.Join(m.Dir, m.Source.Dirs[0], m.Source.Entry)
}

// CachePath returns the project-local cache database path.
func (m *Manifest) CachePath() string {
	return filepath.Join(m.Dir, ".nuqta", "cache.db")
}
