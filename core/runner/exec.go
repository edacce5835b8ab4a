package runner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/FocuswithJustin/loxoracle/core/errors"
)

// Injectable functions for testing.
var (
	execCommandContext = exec.CommandContext
	osEnviron          = os.Environ
)

// ExecRunner runs the interpreter as a child process.
type ExecRunner struct{}

// NewExecRunner creates a process runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts the interpreter, waits for it to exit and returns its exit
// code and captured streams. A non-zero exit is a result, not an error.
func (e *ExecRunner) Run(ctx context.Context, req *Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Interpreter == "" {
		return nil, errors.NewInterpreter("", req.Fixture, errors.ErrInvalidInput)
	}

	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := execCommandContext(runCtx, req.Interpreter, req.Argv()...)
	cmd.Dir = req.Dir
	cmd.Env = append(osEnviron(), req.Env.Vars()...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	startTime := time.Now()
	runErr := cmd.Run()
	duration := time.Since(startTime)

	result := &Result{
		Duration: duration,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, errors.NewInterpreter(req.Interpreter, req.Fixture, runErr)
		}
		if ctx.Err() != nil {
			return nil, errors.NewInterpreter(req.Interpreter, req.Fixture, ctx.Err())
		}
		result.ExitCode = exitErr.ExitCode()
		result.TimedOut = runCtx.Err() == context.DeadlineExceeded
	}

	return result, nil
}
