package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/loxoracle/core/report"
	"github.com/FocuswithJustin/loxoracle/core/runner"
	"github.com/FocuswithJustin/loxoracle/internal/bundle"
	"github.com/FocuswithJustin/loxoracle/internal/fixtures"
	"github.com/FocuswithJustin/loxoracle/internal/history"
)

// HistoryGroup contains run history queries.
type HistoryGroup struct {
	List HistoryListCmd `cmd:"" help:"List recorded runs, newest first"`
	Show HistoryShowCmd `cmd:"" help:"Show one run and its fixture verdicts"`
	Diff HistoryDiffCmd `cmd:"" help:"Compare the verdicts of two runs"`
}

// HistoryDB names the history database.
type HistoryDB struct {
	DB string `name:"db" short:"d" help:"History database" required:"" type:"existingfile"`
}

func (h HistoryDB) open(ctx context.Context) (*history.DB, error) {
	return history.Open(ctx, h.DB)
}

// HistoryListCmd lists runs.
type HistoryListCmd struct {
	HistoryDB `embed:""`
	Limit     int  `name:"limit" short:"n" help:"Maximum number of runs (0 for all)" default:"20"`
	JSON      bool `name:"json" help:"Print JSON"`
}

func (c *HistoryListCmd) Run(kctx *kong.Context, ctx context.Context) error {
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx, c.Limit)
	if err != nil {
		return err
	}
	if c.JSON {
		if runs == nil {
			runs = []history.Run{}
		}
		return writeJSON(kctx.Stdout, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(kctx.Stdout, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(kctx.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tINTERPRETER\tPASSED\tFAILED\tSKIPPED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
			shortID(r.ID), r.StartedAt.Local().Format(time.DateTime), r.Interpreter, r.Passed, r.Failed, r.Skipped)
	}
	return tw.Flush()
}

// HistoryShowCmd shows one run.
type HistoryShowCmd struct {
	HistoryDB `embed:""`
	ID        string `arg:"" help:"Run ID or unique prefix"`
	Failed    bool   `name:"failed" help:"Only list failing fixtures"`
	JSON      bool   `name:"json" help:"Print JSON"`
}

func (c *HistoryShowCmd) Run(kctx *kong.Context, ctx context.Context) error {
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetRun(ctx, c.ID)
	if err != nil {
		return err
	}
	results, err := db.Results(ctx, run.ID)
	if err != nil {
		return err
	}
	if c.Failed {
		kept := results[:0]
		for _, r := range results {
			if r.Verdict == "fail" {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	if c.JSON {
		return writeJSON(kctx.Stdout, struct {
			Run     *history.Run     `json:"run"`
			Results []history.Result `json:"results"`
		}{run, results})
	}

	w := kctx.Stdout
	fmt.Fprintf(w, "Run:          %s\n", run.ID)
	fmt.Fprintf(w, "Started:      %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Interpreter:  %s (%s)\n", run.Interpreter, run.Language)
	fmt.Fprintf(w, "Root:         %s\n", run.Root)
	if run.Corpus != "" {
		fmt.Fprintf(w, "Corpus:       %s\n", run.Corpus)
	}
	if run.Fingerprint != "" {
		fmt.Fprintf(w, "Fingerprint:  %s\n", run.Fingerprint)
	}
	fmt.Fprintf(w, "Passed: %d Failed: %d Skipped: %d Expectations: %d\n\n", run.Passed, run.Failed, run.Skipped, run.Expectations)

	for _, r := range results {
		fmt.Fprintf(w, "%-4s %s\n", verdictLabel(r.Verdict), r.Path)
		for _, f := range r.Failures {
			fmt.Fprintf(w, "      %s\n", f)
		}
	}
	return nil
}

// HistoryDiffCmd compares two runs.
type HistoryDiffCmd struct {
	HistoryDB `embed:""`
	From      string `arg:"" help:"Baseline run ID or prefix"`
	To        string `arg:"" help:"Run ID or prefix to compare"`
	JSON      bool   `name:"json" help:"Print JSON"`
}

func (c *HistoryDiffCmd) Run(kctx *kong.Context, ctx context.Context) error {
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	d, err := db.Diff(ctx, c.From, c.To)
	if err != nil {
		return err
	}

	if c.JSON {
		if err := writeJSON(kctx.Stdout, d); err != nil {
			return err
		}
	} else {
		printDiff(kctx, d)
	}

	if len(d.Regressions) > 0 {
		return fmt.Errorf("%d regression(s)", len(d.Regressions))
	}
	return nil
}

func printDiff(kctx *kong.Context, d *history.Diff) {
	w := kctx.Stdout
	fmt.Fprintf(w, "%s -> %s\n", shortID(d.From), shortID(d.To))
	if d.Empty() {
		fmt.Fprintln(w, "No verdict changes.")
	}
	for _, c := range d.Regressions {
		fmt.Fprintf(w, "REGRESSED  %s\n", c.Path)
	}
	for _, c := range d.Fixes {
		fmt.Fprintf(w, "FIXED      %s\n", c.Path)
	}
	for _, c := range d.Changed {
		fmt.Fprintf(w, "CHANGED    %s (%s -> %s)\n", c.Path, c.Before, c.After)
	}
	for _, p := range d.Added {
		fmt.Fprintf(w, "ADDED      %s\n", p)
	}
	for _, p := range d.Removed {
		fmt.Fprintf(w, "REMOVED    %s\n", p)
	}
	for _, p := range d.Edited {
		fmt.Fprintf(w, "EDITED     %s\n", p)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func verdictLabel(v string) string {
	switch v {
	case "pass":
		return "PASS"
	case "fail":
		return "FAIL"
	default:
		return "SKIP"
	}
}

// ReportGroup contains report tools.
type ReportGroup struct {
	Summarize ReportSummarizeCmd `cmd:"" help:"Summarize a JUnit XML report"`
}

// ReportSummarizeCmd summarizes a JUnit report.
type ReportSummarizeCmd struct {
	Path string `arg:"" help:"JUnit XML file" type:"existingfile"`
	JSON bool   `name:"json" help:"Print JSON"`
}

func (c *ReportSummarizeCmd) Run(kctx *kong.Context) error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}
	s, err := report.SummarizeJUnit(data)
	if err != nil {
		return err
	}

	if c.JSON {
		return writeJSON(kctx.Stdout, s)
	}
	fmt.Fprintf(kctx.Stdout, "Tests: %d Passed: %d Failed: %d Skipped: %d\n", s.Tests, s.Passed(), s.Failures, s.Skipped)
	for _, name := range s.Failing {
		fmt.Fprintf(kctx.Stdout, "FAIL: %s\n", name)
	}
	return nil
}

// BundleGroup contains transcript bundle tools.
type BundleGroup struct {
	Show BundleShowCmd `cmd:"" help:"List the fixtures in a bundle, or show one fixture's transcript"`
}

// BundleShowCmd prints a bundle index or a single transcript.
type BundleShowCmd struct {
	Path    string `arg:"" help:"Bundle (.tar.xz) or capture directory" type:"path"`
	Fixture string `arg:"" optional:"" help:"Fixture path as listed in the bundle"`
	Stream  string `name:"stream" help:"Print a captured stream of the fixture: stdout or stderr"`
	JSON    bool   `name:"json" help:"Print JSON"`
}

func (c *BundleShowCmd) Run(kctx *kong.Context) error {
	switch c.Stream {
	case "", "stdout", "stderr":
	default:
		return fmt.Errorf("unknown stream %q: want stdout or stderr", c.Stream)
	}

	b, err := bundle.Open(c.Path)
	if err != nil {
		return err
	}
	if c.Fixture == "" {
		if c.Stream != "" {
			return fmt.Errorf("--stream needs a fixture")
		}
		return c.showIndex(kctx, b.Index)
	}

	t, err := b.Transcript(c.Fixture)
	if err != nil {
		return err
	}
	if c.Stream != "" {
		ev, ok := t.GetStreams()[c.Stream]
		if !ok {
			return fmt.Errorf("%s has no captured %s", c.Fixture, c.Stream)
		}
		data, err := b.Stream(ev)
		if err != nil {
			return err
		}
		_, err = kctx.Stdout.Write(data)
		return err
	}
	if c.JSON {
		return writeJSON(kctx.Stdout, t.Events)
	}
	return showTranscript(kctx, c.Fixture, t)
}

func (c *BundleShowCmd) showIndex(kctx *kong.Context, idx *bundle.Index) error {
	if c.JSON {
		return writeJSON(kctx.Stdout, idx)
	}
	fmt.Fprintf(kctx.Stdout, "Interpreter: %s\n", idx.Interpreter)
	if idx.RunID != "" {
		fmt.Fprintf(kctx.Stdout, "Run:         %s\n", idx.RunID)
	}
	fmt.Fprintf(kctx.Stdout, "Created:     %s\n\n", idx.CreatedAt)
	for _, e := range idx.Fixtures {
		fmt.Fprintf(kctx.Stdout, "%-4s %s  %s\n", verdictLabel(e.Verdict), e.Path, e.Transcript)
	}
	fmt.Fprintln(kctx.Stdout)
	fmt.Fprintln(kctx.Stdout, idx.Tally.Summary())
	return nil
}

func showTranscript(kctx *kong.Context, fixture string, t *runner.Transcript) error {
	w := kctx.Stdout
	fmt.Fprintf(w, "Fixture: %s\n", fixture)
	fmt.Fprintf(w, "Verdict: %s\n", t.Verdict())
	fmt.Fprintf(w, "Events:  %d\n", t.EventCount())
	if exit := t.GetExit(); exit != nil && exit.ExitCode != nil {
		fmt.Fprintf(w, "Exit:    %d\n", *exit.ExitCode)
	}

	streams := t.GetStreams()
	if len(streams) > 0 {
		fmt.Fprintln(w, "\nStreams:")
		for _, name := range []string{"stdout", "stderr"} {
			if ev, ok := streams[name]; ok {
				fmt.Fprintf(w, "  %-6s %6d bytes  blake3:%s\n", name, ev.Bytes, ev.BLAKE3)
			}
		}
	}

	if t.HasFailures() {
		fmt.Fprintln(w, "\nFailures:")
		for _, f := range t.GetFailures() {
			fmt.Fprintf(w, "  %s: %s\n", f.Kind, f.Message)
			if lines, ok := f.Attributes["context"].([]interface{}); ok {
				for _, l := range lines {
					fmt.Fprintf(w, "      %v\n", l)
				}
			}
		}
	}
	return nil
}

// FixturesGroup contains fixture generators.
type FixturesGroup struct {
	LongLocal LongLocalCmd `cmd:"" name:"long-local" help:"Emit a fixture with many chained local variables"`
}

// LongLocalCmd writes the long-local stress fixture.
type LongLocalCmd struct {
	Count  int    `name:"count" short:"n" help:"Number of chained locals" default:"${long_local_count}"`
	Output string `name:"output" short:"o" help:"Write to this file instead of stdout" type:"path"`
}

func (c *LongLocalCmd) Run(kctx *kong.Context) error {
	if c.Output == "" {
		return fixtures.LongLocal(kctx.Stdout, c.Count)
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.Output, err)
	}
	if err := fixtures.LongLocal(f, c.Count); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
