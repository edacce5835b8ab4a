// Package expect extracts the expectations a fixture declares through
// comment annotations.
//
// A fixture is a source file for the interpreter under test. Four marker
// kinds are recognised anywhere on a physical line:
//
//	// expect: <text>                  one expected stdout line
//	// Error<rest>                     a compile error on the marker's line
//	// [<lang> ]line <N>] Error<rest>  a compile error attributed to line N
//	// expect runtime error: <text>    the runtime error message
//
// plus "// nontest", which excludes the whole file from the suite.
package expect

import "fmt"

// Exit codes the interpreter under test reports for each contract.
const (
	ExitOK           = 0
	ExitCompileError = 65
	ExitRuntimeError = 70
)

// Kind identifies a marker kind.
type Kind int

const (
	KindOutput Kind = iota
	KindCompileError
	KindRuntimeError
	KindNonTest
)

func (k Kind) String() string {
	switch k {
	case KindOutput:
		return "output"
	case KindCompileError:
		return "compile-error"
	case KindRuntimeError:
		return "runtime-error"
	case KindNonTest:
		return "nontest"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Expectation is one marker found on a fixture line. The set of
// implementations is closed: OutputExpectation, CompileErrorExpectation,
// RuntimeErrorExpectation and NonTestMarker.
type Expectation interface {
	Kind() Kind
	// SourceLine is the 1-indexed physical line carrying the marker.
	SourceLine() int
	expectation()
}

// ErrorKey identifies a compile error by the source line it is attributed
// to and its message. Keys compare with ==.
type ErrorKey struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// String returns the canonical "[line] message" form.
func (k ErrorKey) String() string {
	return fmt.Sprintf("[%d] %s", k.Line, k.Message)
}

// OutputExpectation is one expected line of stdout.
type OutputExpectation struct {
	Text string `json:"text"`
	Line int    `json:"line"`
}

func (OutputExpectation) Kind() Kind        { return KindOutput }
func (e OutputExpectation) SourceLine() int { return e.Line }
func (OutputExpectation) expectation()      {}

// CompileErrorExpectation is one expected compile-time diagnostic. Lang is
// empty unless the marker was gated to a single interpreter implementation.
type CompileErrorExpectation struct {
	Key  ErrorKey `json:"key"`
	Lang string   `json:"lang,omitempty"`
	Line int      `json:"line"`
}

func (CompileErrorExpectation) Kind() Kind        { return KindCompileError }
func (e CompileErrorExpectation) SourceLine() int { return e.Line }
func (CompileErrorExpectation) expectation()      {}

// AppliesTo reports whether the marker is active for the given interpreter
// language.
func (e CompileErrorExpectation) AppliesTo(language string) bool {
	return e.Lang == "" || e.Lang == language
}

// RuntimeErrorExpectation is the expected runtime error. Line is both the
// marker line and the line the stack trace must point at.
type RuntimeErrorExpectation struct {
	Message string `json:"message"`
	Line    int    `json:"line"`
}

func (RuntimeErrorExpectation) Kind() Kind        { return KindRuntimeError }
func (e RuntimeErrorExpectation) SourceLine() int { return e.Line }
func (RuntimeErrorExpectation) expectation()      {}

// NonTestMarker excludes the file from the suite.
type NonTestMarker struct {
	Line int `json:"line"`
}

func (NonTestMarker) Kind() Kind        { return KindNonTest }
func (m NonTestMarker) SourceLine() int { return m.Line }
func (NonTestMarker) expectation()      {}

// Set is the contract one fixture declares. It is built once by Parse and
// not modified afterwards.
type Set struct {
	Path          string                   `json:"path"`
	Output        []OutputExpectation      `json:"output"`
	CompileErrors []ErrorKey               `json:"compile_errors"`
	Runtime       *RuntimeErrorExpectation `json:"runtime,omitempty"`
	// RuntimeMarkers counts runtime error markers; only the last survives
	// in Runtime.
	RuntimeMarkers int `json:"runtime_markers"`
	// Expectations counts every active marker matched in the file.
	Expectations int `json:"expectations"`

	compileIndex map[ErrorKey]struct{}
}

func newSet(path string) *Set {
	return &Set{
		Path:          path,
		Output:        []OutputExpectation{},
		CompileErrors: []ErrorKey{},
		compileIndex:  make(map[ErrorKey]struct{}),
	}
}

func (s *Set) addCompileError(key ErrorKey) {
	s.Expectations++
	if _, ok := s.compileIndex[key]; ok {
		return
	}
	s.compileIndex[key] = struct{}{}
	s.CompileErrors = append(s.CompileErrors, key)
}

// HasCompileError reports whether key is one of the expected compile errors.
func (s *Set) HasCompileError(key ErrorKey) bool {
	_, ok := s.compileIndex[key]
	return ok
}

// ExpectsCompileErrors reports whether any compile error is expected.
func (s *Set) ExpectsCompileErrors() bool {
	return len(s.CompileErrors) > 0
}

// ExpectsRuntimeError reports whether a runtime error is expected.
func (s *Set) ExpectsRuntimeError() bool {
	return s.Runtime != nil
}

// Malformed reports whether the fixture expects both compile errors and a
// runtime error, which no interpreter run can satisfy.
func (s *Set) Malformed() bool {
	return s.ExpectsCompileErrors() && s.ExpectsRuntimeError()
}

// ExitCode returns the exit code implied by the active contract.
func (s *Set) ExitCode() int {
	switch {
	case s.ExpectsRuntimeError():
		return ExitRuntimeError
	case s.ExpectsCompileErrors():
		return ExitCompileError
	default:
		return ExitOK
	}
}
