// Package runner invokes the interpreter under test on one fixture and
// captures its exit code and output streams.
package runner

import (
	"context"
	"path/filepath"
	"time"
)

// Request describes one interpreter invocation.
type Request struct {
	Interpreter string   `json:"interpreter"`
	Args        []string `json:"args,omitempty"`
	// Fixture is passed as the final argument, always with '/' separators.
	Fixture string `json:"fixture"`
	// Dir is the working directory; empty means the current one.
	Dir     string        `json:"dir,omitempty"`
	Env     EnvConfig     `json:"env"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

// EnvConfig contains environment configuration for deterministic execution.
type EnvConfig struct {
	TZ    string `json:"TZ"`
	LCALL string `json:"LC_ALL"`
	LANG  string `json:"LANG"`
}

// DefaultEnv returns the deterministic environment every run gets.
func DefaultEnv() EnvConfig {
	return EnvConfig{
		TZ:    "UTC",
		LCALL: "C.UTF-8",
		LANG:  "C.UTF-8",
	}
}

// Vars returns the environment as KEY=value pairs.
func (e EnvConfig) Vars() []string {
	var vars []string
	if e.TZ != "" {
		vars = append(vars, "TZ="+e.TZ)
	}
	if e.LCALL != "" {
		vars = append(vars, "LC_ALL="+e.LCALL)
	}
	if e.LANG != "" {
		vars = append(vars, "LANG="+e.LANG)
	}
	return vars
}

// NewRequest creates a request with the default environment settings.
func NewRequest(interpreter, fixture string) *Request {
	return &Request{
		Interpreter: interpreter,
		Args:        []string{},
		Fixture:     filepath.ToSlash(fixture),
		Env:         DefaultEnv(),
	}
}

// ForFixture returns a copy of r aimed at another fixture.
func (r *Request) ForFixture(fixture string) *Request {
	clone := *r
	clone.Args = append([]string(nil), r.Args...)
	clone.Fixture = filepath.ToSlash(fixture)
	return &clone
}

// Argv returns the arguments passed to the interpreter.
func (r *Request) Argv() []string {
	argv := make([]string, 0, len(r.Args)+1)
	argv = append(argv, r.Args...)
	return append(argv, filepath.ToSlash(r.Fixture))
}

// Result is a completed invocation. Both streams are fully drained.
type Result struct {
	ExitCode int           `json:"exit_code"`
	Stdout   []byte        `json:"-"`
	Stderr   []byte        `json:"-"`
	Duration time.Duration `json:"duration"`
	// TimedOut is set when the request timeout killed the interpreter.
	TimedOut bool `json:"timed_out,omitempty"`
}

// Runner executes interpreter requests. Run blocks until the interpreter
// exits. A returned error is a tooling fault, not a test failure.
type Runner interface {
	Run(ctx context.Context, req *Request) (*Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, req *Request) (*Result, error)

// Run calls f(ctx, req).
func (f RunnerFunc) Run(ctx context.Context, req *Request) (*Result, error) {
	return f(ctx, req)
}
