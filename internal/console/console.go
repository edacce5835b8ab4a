// Package console prints suite progress and verdicts for a human at a
// terminal.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/FocuswithJustin/loxoracle/core/suite"
	"github.com/FocuswithJustin/loxoracle/core/validate"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPink   = "\033[91m"
	colorGray   = "\033[1;30m"

	clearLine = "\033[2K"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printer is a suite.Reporter that renders the suite the way a terminal
// user expects: a rewritten status line while fixtures run, a FAIL block
// per failing fixture and a closing summary.
type Printer struct {
	w io.Writer
	// Color enables ANSI colors.
	Color bool
	// Status enables the in-place progress line.
	Status bool
	// Verbose prints a PASS line per passing fixture.
	Verbose bool

	statusShown bool
}

// NewPrinter creates a printer for w. Colors and the status line are enabled
// only when w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	tty := IsTerminal(w)
	return &Printer{w: w, Color: tty, Status: tty}
}

func (p *Printer) colorize(s, c string) string {
	if !p.Color {
		return s
	}
	return c + s + colorReset
}

func (p *Printer) green(v any) string  { return p.colorize(fmt.Sprint(v), colorGreen) }
func (p *Printer) red(v any) string    { return p.colorize(fmt.Sprint(v), colorRed) }
func (p *Printer) yellow(v any) string { return p.colorize(fmt.Sprint(v), colorYellow) }
func (p *Printer) gray(v any) string   { return p.colorize(fmt.Sprint(v), colorGray) }
func (p *Printer) pink(v any) string   { return p.colorize(fmt.Sprint(v), colorPink) }

// line rewrites the current terminal line.
func (p *Printer) line(s string) {
	fmt.Fprint(p.w, "\r"+clearLine+s)
	p.statusShown = s != ""
}

func (p *Printer) endStatus() {
	if p.statusShown {
		p.line("")
	}
}

func (p *Printer) Start(path string, t suite.Tally) {
	if !p.Status {
		return
	}
	p.line(fmt.Sprintf("Passed: %s Failed: %s Skipped: %s %s",
		p.green(t.Passed), p.red(t.Failed), p.yellow(t.Skipped), p.gray("("+path+")")))
}

func (p *Printer) Result(o suite.Outcome, _ suite.Tally) {
	switch o.Verdict {
	case suite.VerdictFail:
		p.endStatus()
		fmt.Fprintf(p.w, "%s: %s\n\n", p.red("FAIL"), o.Path)
		for _, l := range validate.Lines(o.Failures) {
			fmt.Fprintf(p.w, "      %s\n", p.pink(l))
		}
		fmt.Fprintln(p.w)
	case suite.VerdictPass:
		if p.Verbose {
			p.endStatus()
			fmt.Fprintf(p.w, "%s: %s\n", p.green("PASS"), o.Path)
		}
	}
}

func (p *Printer) Finish(t suite.Tally) {
	p.endStatus()
	line := t.FormatSummary(
		func(n int) string { return p.green(n) },
		func(n int) string { return p.red(n) },
	)
	fmt.Fprintln(p.w, line)
}
