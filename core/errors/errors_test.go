package errors

import (
	"errors"
	"fmt"
	"os/exec"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with ID",
			err:      &NotFoundError{Resource: "run", ID: "3f1c"},
			wantMsg:  "run not found: 3f1c",
			wantBase: ErrNotFound,
		},
		{
			name:     "without ID",
			err:      &NotFoundError{Resource: "blob"},
			wantMsg:  "blob not found",
			wantBase: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("disk error")
		err := &NotFoundError{Resource: "fixture", ID: "test/a.lox", Err: underlyingErr}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestConfigError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ConfigError
		wantMsg string
	}{
		{
			name:    "with key",
			err:     NewConfig("interpreter", "is required"),
			wantMsg: "invalid configuration for interpreter: is required",
		},
		{
			name:    "without key",
			err:     &ConfigError{Message: "empty document"},
			wantMsg: "invalid configuration: empty document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Errorf("expected %v to wrap ErrInvalidInput", tt.err)
			}
		})
	}
}

func TestIOError(t *testing.T) {
	base := fmt.Errorf("permission denied")
	err := NewIO("read", "test/a.lox", base)
	if got, want := err.Error(), "failed to read test/a.lox: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, base) {
		t.Error("IOError should unwrap to its cause")
	}

	noPath := NewIO("flush", "", base)
	if got, want := noPath.Error(), "failed to flush: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestParseError(t *testing.T) {
	err := NewParse("JUnit", "report.xml", "no testsuite element")
	if got, want := err.Error(), "failed to parse JUnit at report.xml: no testsuite element"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ParseError should unwrap to ErrInvalidInput")
	}
}

func TestFixtureError(t *testing.T) {
	cause := fmt.Errorf("token too long")
	withLine := NewFixture("test/long.lox", 12, cause)
	if got, want := withLine.Error(), "fixture test/long.lox:12: token too long"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	noLine := NewFixture("test/long.lox", 0, cause)
	if got, want := noLine.Error(), "fixture test/long.lox: token too long"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(withLine, cause) {
		t.Error("FixtureError should unwrap to its cause")
	}
}

func TestInterpreterError(t *testing.T) {
	err := NewInterpreter("./clox", "test/a.lox", exec.ErrNotFound)
	if !errors.Is(err, ErrToolFault) {
		t.Error("InterpreterError should match ErrToolFault")
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Error("InterpreterError should match its cause")
	}
	if got, want := err.Error(), "cannot run ./clox on test/a.lox: executable file not found in $PATH"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := &InterpreterError{Executable: "./clox"}
	if !errors.Is(bare, ErrToolFault) {
		t.Error("InterpreterError without cause should still match ErrToolFault")
	}
}

func TestUnsupportedError(t *testing.T) {
	err := NewUnsupported("compression", "only xz is supported")
	if got, want := err.Error(), "unsupported compression: only xz is supported"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Error("UnsupportedError should unwrap to ErrUnsupported")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}

	base := NewNotFound("run", "abc")
	wrapped := Wrapf(base, "history show %s", "abc")
	if got, want := wrapped.Error(), "history show abc: run not found: abc"; got != want {
		t.Errorf("Wrapf() = %q, want %q", got, want)
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("wrapped error should match ErrNotFound")
	}
	var nf *NotFoundError
	if !As(wrapped, &nf) || nf.ID != "abc" {
		t.Error("As should extract the NotFoundError")
	}
}
