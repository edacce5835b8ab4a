// Package suite drives the conformance run: it discovers fixtures, runs
// the interpreter on each one in turn and folds the verdicts into a Tally.
package suite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/FocuswithJustin/loxoracle/core/errors"
	"github.com/FocuswithJustin/loxoracle/core/expect"
	"github.com/FocuswithJustin/loxoracle/core/runner"
	"github.com/FocuswithJustin/loxoracle/core/validate"
	"github.com/FocuswithJustin/loxoracle/internal/logging"
)

// Defaults for the fixture filters.
const (
	DefaultExtension = ".lox"
	DefaultExclude   = "benchmark"
)

// Suite evaluates every fixture beneath Root. Fixtures are evaluated one at
// a time; the suite holds no state between them besides the Tally.
type Suite struct {
	// Root is the directory to discover fixtures in.
	Root string
	// BaseDir is the directory reported paths are relative to and the
	// interpreter runs in. Empty means the current directory.
	BaseDir string
	// Extension selects fixture files.
	Extension string
	// Exclude skips fixtures whose path relative to BaseDir contains it.
	// Directories above BaseDir are never matched.
	Exclude string

	Parser     expect.Parser
	Validator  validate.Validator
	Runner     runner.Runner
	Discoverer Discoverer
	Reporter   Reporter

	// Request is the template every fixture invocation is built from.
	Request *runner.Request
}

// New creates a suite with the default filters, a process runner and a
// lexical directory walk.
func New(root string, req *runner.Request) *Suite {
	return &Suite{
		Root:       root,
		Extension:  DefaultExtension,
		Exclude:    DefaultExclude,
		Parser:     expect.NewParser(expect.DefaultLanguage),
		Runner:     runner.NewExecRunner(),
		Discoverer: WalkDiscoverer{},
		Reporter:   NopReporter{},
		Request:    req,
	}
}

// Run evaluates every discovered fixture and returns the totals. Failing
// fixtures never stop the suite; a tooling fault such as a missing
// interpreter does, and is returned with the totals so far.
func (s *Suite) Run(ctx context.Context) (Tally, error) {
	var tally Tally
	start := time.Now()

	logging.SuiteStarted(ctx, s.Root, s.Request.Interpreter, s.Parser.Language)

	err := s.discoverer().Discover(ctx, s.Root, func(path string) error {
		if s.Extension != "" && filepath.Ext(path) != s.Extension {
			return nil
		}

		rel := s.relative(path)
		if s.Exclude != "" && strings.Contains(rel, s.Exclude) {
			outcome := Outcome{Path: rel, Verdict: VerdictSkip, SkipReason: SkipExcluded}
			tally.Add(outcome)
			logging.FixtureSkipped(ctx, rel, SkipExcluded)
			s.reporter().Result(outcome, tally)
			return nil
		}

		s.reporter().Start(rel, tally)

		outcome, err := s.RunFile(ctx, rel)
		if err != nil {
			logging.ToolFault(ctx, "run", err, "fixture", rel)
			return err
		}

		tally.Add(outcome)
		if outcome.Verdict == VerdictSkip {
			logging.FixtureSkipped(ctx, rel, outcome.SkipReason)
		} else {
			logging.FixtureResult(ctx, rel, string(outcome.Verdict), len(outcome.Failures), outcome.Expectations, outcome.Duration)
		}
		s.reporter().Result(outcome, tally)
		return nil
	})

	logging.SuiteFinished(ctx, tally.Passed, tally.Failed, tally.Skipped, tally.Expectations, time.Since(start))
	s.reporter().Finish(tally)

	if err != nil {
		return tally, errors.Wrapf(err, "suite %s", s.Root)
	}
	return tally, nil
}

// RunFile evaluates one fixture. path is relative to BaseDir (or absolute)
// and is what the interpreter receives. The error is non-nil only for
// tooling faults; a failing fixture is an Outcome with VerdictFail.
func (s *Suite) RunFile(ctx context.Context, path string) (Outcome, error) {
	start := time.Now()
	path = filepath.ToSlash(path)
	outcome := Outcome{Path: path}

	set, isTest, err := s.Parser.ParseFile(s.resolve(path))
	if err != nil {
		return outcome, err
	}
	if !isTest {
		outcome.Verdict = VerdictSkip
		outcome.SkipReason = SkipNonTest
		outcome.Duration = time.Since(start)
		return outcome, nil
	}
	outcome.Set = set
	outcome.Expectations = set.Expectations

	req := s.Request.ForFixture(path)
	if req.Dir == "" {
		req.Dir = s.BaseDir
	}

	result, err := s.Runner.Run(ctx, req)
	if err != nil {
		return outcome, err
	}
	outcome.Result = result

	outcome.Failures = s.Validator.Validate(set, result.ExitCode, result.Stdout, result.Stderr)
	if len(outcome.Failures) == 0 {
		outcome.Verdict = VerdictPass
	} else {
		outcome.Verdict = VerdictFail
	}
	outcome.Duration = time.Since(start)
	return outcome, nil
}

func (s *Suite) discoverer() Discoverer {
	if s.Discoverer == nil {
		return WalkDiscoverer{}
	}
	return s.Discoverer
}

func (s *Suite) reporter() Reporter {
	if s.Reporter == nil {
		return NopReporter{}
	}
	return s.Reporter
}

// relative returns path relative to BaseDir with '/' separators, or path
// itself when no relative form exists.
func (s *Suite) relative(path string) string {
	base := s.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return filepath.ToSlash(path)
		}
		base = wd
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(absBase, abs)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// resolve maps a reported path back to a file system path.
func (s *Suite) resolve(path string) string {
	native := filepath.FromSlash(path)
	if filepath.IsAbs(native) || s.BaseDir == "" {
		return native
	}
	return filepath.Join(s.BaseDir, native)
}
