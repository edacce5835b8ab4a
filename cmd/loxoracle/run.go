package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/loxoracle/core/expect"
	"github.com/FocuswithJustin/loxoracle/core/report"
	"github.com/FocuswithJustin/loxoracle/core/runner"
	"github.com/FocuswithJustin/loxoracle/core/suite"
	"github.com/FocuswithJustin/loxoracle/core/validate"
	"github.com/FocuswithJustin/loxoracle/internal/bundle"
	"github.com/FocuswithJustin/loxoracle/internal/config"
	"github.com/FocuswithJustin/loxoracle/internal/console"
	"github.com/FocuswithJustin/loxoracle/internal/history"
	"github.com/FocuswithJustin/loxoracle/internal/live"
	"github.com/FocuswithJustin/loxoracle/internal/logging"
)

// InterpreterFlags select the interpreter under test.
type InterpreterFlags struct {
	Interpreter string        `name:"interpreter" short:"i" help:"Interpreter executable"`
	Args        []string      `name:"arg" help:"Argument passed to the interpreter before the fixture (repeatable)"`
	Language    string        `name:"language" short:"l" help:"Interpreter language variant: c or java"`
	Strict      bool          `name:"strict" help:"Treat repeated runtime error markers as a malformed fixture"`
	Timeout     time.Duration `name:"timeout" help:"Per-fixture time limit (0 for none)"`
}

func (f InterpreterFlags) config() *config.Config {
	return &config.Config{
		Interpreter: f.Interpreter,
		Args:        f.Args,
		Language:    f.Language,
		Strict:      f.Strict,
		Timeout:     f.Timeout,
	}
}

// loadConfig layers the defaults, the config file and the flags.
func loadConfig(g *Globals, override *config.Config) (*config.Config, error) {
	cfg := config.Default()
	if g.Config != "" {
		file, err := config.Load(g.Config)
		if err != nil {
			return nil, err
		}
		cfg = cfg.Merge(file)
	}
	cfg = cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRequest(cfg *config.Config) *runner.Request {
	req := runner.NewRequest(cfg.Interpreter, "")
	req.Args = append(req.Args, cfg.Args...)
	req.Timeout = cfg.Timeout
	return req
}

func newSuite(cfg *config.Config) *suite.Suite {
	s := suite.New(cfg.Root, newRequest(cfg))
	s.Extension = cfg.Extension
	s.Exclude = cfg.Exclude
	s.Parser = expect.NewParser(cfg.Language)
	s.Validator = validate.Validator{Strict: cfg.Strict}
	return s
}

func newPrinter(kctx *kong.Context, g *Globals, verbose bool) *console.Printer {
	p := console.NewPrinter(kctx.Stdout)
	if g.NoColor {
		p.Color = false
	}
	p.Verbose = verbose
	return p
}

// RunCmd runs the whole corpus.
type RunCmd struct {
	Root string `arg:"" optional:"" help:"Fixture directory (default: test)" type:"path"`

	InterpreterFlags `embed:""`

	Extension   string `name:"extension" help:"Fixture file extension (default: .lox)"`
	Exclude     string `name:"exclude" help:"Skip fixtures whose path contains this (default: benchmark)"`
	History     string `name:"history" help:"Record the run in this SQLite history database" type:"path"`
	JUnit       string `name:"junit" help:"Write a JUnit XML report to this file" type:"path"`
	Transcripts string `name:"transcripts" help:"Write per-fixture transcripts to this directory" type:"path"`
	Bundle      string `name:"bundle" help:"Pack the transcripts into this .tar.xz file" type:"path"`
	Live        string `name:"live" help:"Stream progress over websocket on this address, e.g. 127.0.0.1:8642"`
	Verbose     bool   `name:"verbose" short:"v" help:"Print a line for every passing fixture"`
}

func (c *RunCmd) override() *config.Config {
	o := c.InterpreterFlags.config()
	o.Root = c.Root
	o.Extension = c.Extension
	o.Exclude = c.Exclude
	o.History = c.History
	o.JUnit = c.JUnit
	o.Transcripts = c.Transcripts
	o.Bundle = c.Bundle
	o.Live = c.Live
	return o
}

func (c *RunCmd) Run(kctx *kong.Context, g *Globals, ctx context.Context) error {
	cfg, err := loadConfig(g, c.override())
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	s := newSuite(cfg)
	reporters := suite.MultiReporter{newPrinter(kctx, g, c.Verbose)}

	var junit *report.JUnit
	if cfg.JUnit != "" {
		junit = report.NewJUnit("loxoracle")
		junit.Properties["interpreter"] = cfg.Interpreter
		junit.Properties["language"] = cfg.Language
		junit.Properties["run_id"] = runID
		reporters = append(reporters, junit)
	}

	var recorder *history.Recorder
	if cfg.History != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.History), 0755); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
		db, err := history.Open(ctx, cfg.History)
		if err != nil {
			return err
		}
		defer db.Close()

		corpus, err := history.CorpusCommit(cfg.Root)
		if err != nil {
			logging.WarnContext(ctx, "corpus_commit_unknown", "root", cfg.Root, "error", err.Error())
		}
		recorder, err = history.NewRecorder(ctx, db, history.Run{
			ID:          runID,
			Interpreter: strings.Join(append([]string{cfg.Interpreter}, cfg.Args...), " "),
			Language:    cfg.Language,
			Root:        filepath.ToSlash(cfg.Root),
			Corpus:      corpus,
		}, "")
		if err != nil {
			return err
		}
		reporters = append(reporters, recorder)
	}

	var capture *bundle.Capture
	if cfg.Transcripts != "" {
		capture, err = bundle.NewCapture(ctx, cfg.Transcripts, cfg.Interpreter)
		if err != nil {
			return err
		}
		reporters = append(reporters, capture)
	}

	if cfg.Live != "" {
		liveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		hub := live.NewHub()
		addr, err := live.NewServer(hub).Start(liveCtx, cfg.Live)
		if err != nil {
			return err
		}
		fmt.Fprintf(kctx.Stderr, "Streaming progress on ws://%s/ws\n", addr)
		reporters = append(reporters, &live.Reporter{Hub: hub, RunID: runID})
	}

	s.Reporter = reporters
	tally, runErr := s.Run(ctx)

	if junit != nil {
		if err := writeJUnit(junit, cfg.JUnit); err != nil {
			return err
		}
	}
	if recorder != nil {
		if err := recorder.Err(); err != nil {
			return fmt.Errorf("failed to record history: %w", err)
		}
	}
	if capture != nil {
		if err := capture.Err(); err != nil {
			return fmt.Errorf("failed to write transcripts: %w", err)
		}
		if cfg.Bundle != "" {
			if err := bundle.Pack(cfg.Transcripts, cfg.Bundle); err != nil {
				return err
			}
		}
	}

	if runErr != nil {
		return runErr
	}
	if !tally.OK() {
		return fmt.Errorf("%d test(s) failed", tally.Failed)
	}
	return nil
}

func writeJUnit(j *report.JUnit, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JUnit report: %w", err)
	}
	if err := j.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// CheckCmd runs one fixture.
type CheckCmd struct {
	Fixture string `arg:"" help:"Fixture to run"`

	InterpreterFlags `embed:""`

	JSON bool `name:"json" help:"Print the outcome as JSON"`
}

func (c *CheckCmd) Run(kctx *kong.Context, g *Globals, ctx context.Context) error {
	override := c.InterpreterFlags.config()
	override.Root = filepath.Dir(c.Fixture)
	cfg, err := loadConfig(g, override)
	if err != nil {
		return err
	}

	s := newSuite(cfg)
	outcome, err := s.RunFile(ctx, c.Fixture)
	if err != nil {
		return err
	}

	if c.JSON {
		if err := writeJSON(kctx.Stdout, outcome); err != nil {
			return err
		}
	} else {
		p := newPrinter(kctx, g, true)
		if outcome.Verdict == suite.VerdictSkip {
			fmt.Fprintf(kctx.Stdout, "SKIP: %s (%s)\n", outcome.Path, outcome.SkipReason)
		}
		var tally suite.Tally
		tally.Add(outcome)
		p.Result(outcome, tally)
	}

	if outcome.Verdict == suite.VerdictFail {
		return fmt.Errorf("%s failed with %d problem(s)", outcome.Path, len(outcome.Failures))
	}
	return nil
}

// ParseCmd prints the expectation set of a fixture.
type ParseCmd struct {
	Fixture  string `arg:"" help:"Fixture to parse"`
	Language string `name:"language" short:"l" help:"Interpreter language variant: c or java" default:"c" enum:"c,java"`
}

type parseOutput struct {
	Path     string      `json:"path"`
	Test     bool        `json:"test"`
	ExitCode int         `json:"exit_code,omitempty"`
	Set      *expect.Set `json:"expectations,omitempty"`
}

func (c *ParseCmd) Run(kctx *kong.Context) error {
	set, isTest, err := expect.NewParser(c.Language).ParseFile(c.Fixture)
	if err != nil {
		return err
	}
	out := parseOutput{Path: filepath.ToSlash(c.Fixture), Test: isTest}
	if isTest {
		out.Set = set
		out.ExitCode = set.ExitCode()
	}
	return writeJSON(kctx.Stdout, out)
}
