// Package config loads loxoracle suite configuration from YAML.
//
// A config file lets a fixture corpus pin its interpreter invocation:
//
//	interpreter: ./build/clox
//	language: c
//	root: test
//	exclude: benchmark
//	timeout: 10s
//	history: .loxoracle/history.db
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	lerrors "github.com/FocuswithJustin/loxoracle/core/errors"
)

// Config is the suite configuration. Zero values mean "not set".
type Config struct {
	Interpreter string        `yaml:"interpreter,omitempty"`
	Args        []string      `yaml:"args,omitempty"`
	Language    string        `yaml:"language,omitempty"`
	Root        string        `yaml:"root,omitempty"`
	Extension   string        `yaml:"extension,omitempty"`
	Exclude     string        `yaml:"exclude,omitempty"`
	Strict      bool          `yaml:"strict,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	History     string        `yaml:"history,omitempty"`
	JUnit       string        `yaml:"junit,omitempty"`
	Transcripts string        `yaml:"transcripts,omitempty"`
	Bundle      string        `yaml:"bundle,omitempty"`
	Live        string        `yaml:"live,omitempty"`

	// Path is the file the configuration was loaded from, if any.
	Path string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Language:  "c",
		Root:      "test",
		Extension: ".lox",
		Exclude:   "benchmark",
	}
}

// ValidationError aggregates configuration validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Unwrap lets callers match the error with errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Unwrap() error {
	return lerrors.ErrInvalidInput
}

// Load parses the YAML file at path. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, lerrors.NewConfig("path", "empty config path")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, lerrors.NewIO("open", path, err)
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		return nil, lerrors.Wrapf(err, "config %s", path)
	}
	cfg.Path = path
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Decode parses a YAML document from r.
func Decode(r io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, &lerrors.ConfigError{Message: err.Error()}
	}
	return &cfg, nil
}

// resolvePaths makes relative file settings relative to the config file.
// The interpreter is only resolved when it names a path, not a command on
// PATH.
func (c *Config) resolvePaths(dir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	c.Root = resolve(c.Root)
	c.History = resolve(c.History)
	c.JUnit = resolve(c.JUnit)
	c.Transcripts = resolve(c.Transcripts)
	c.Bundle = resolve(c.Bundle)
	if strings.ContainsRune(c.Interpreter, '/') {
		c.Interpreter = resolve(c.Interpreter)
	}
}

// Merge returns a copy of c with every field set in override replacing
// the corresponding value.
func (c *Config) Merge(override *Config) *Config {
	merged := *c
	merged.Args = append([]string(nil), c.Args...)
	if override == nil {
		return &merged
	}

	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&merged.Interpreter, override.Interpreter)
	setString(&merged.Language, override.Language)
	setString(&merged.Root, override.Root)
	setString(&merged.Extension, override.Extension)
	setString(&merged.Exclude, override.Exclude)
	setString(&merged.History, override.History)
	setString(&merged.JUnit, override.JUnit)
	setString(&merged.Transcripts, override.Transcripts)
	setString(&merged.Bundle, override.Bundle)
	setString(&merged.Live, override.Live)
	setString(&merged.Path, override.Path)

	if len(override.Args) > 0 {
		merged.Args = append([]string(nil), override.Args...)
	}
	if override.Strict {
		merged.Strict = true
	}
	if override.Timeout != 0 {
		merged.Timeout = override.Timeout
	}
	return &merged
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var issues []string

	if c.Interpreter == "" {
		issues = append(issues, "interpreter is required")
	}
	switch c.Language {
	case "c", "java":
	case "":
		issues = append(issues, "language is required")
	default:
		issues = append(issues, fmt.Sprintf("language %q is not one of c, java", c.Language))
	}
	if c.Root == "" {
		issues = append(issues, "root is required")
	}
	if c.Extension != "" && !strings.HasPrefix(c.Extension, ".") {
		issues = append(issues, fmt.Sprintf("extension %q must start with '.'", c.Extension))
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must not be negative")
	}
	if c.Bundle != "" && c.Transcripts == "" {
		issues = append(issues, "bundle requires transcripts")
	}
	if c.Bundle != "" && !strings.HasSuffix(c.Bundle, ".tar.xz") {
		issues = append(issues, fmt.Sprintf("bundle %q must end in .tar.xz", c.Bundle))
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
