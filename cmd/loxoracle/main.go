// Command loxoracle checks a Lox interpreter against a corpus of annotated
// fixture scripts.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/loxoracle/core/sqlite"
	"github.com/FocuswithJustin/loxoracle/internal/fixtures"
	"github.com/FocuswithJustin/loxoracle/internal/logging"
)

const version = "0.1.0"

// Globals are flags shared by every command.
type Globals struct {
	Config    string `name:"config" short:"c" help:"Suite configuration file (YAML)" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn, error" default:"warn"`
	LogFormat string `name:"log-format" help:"Log format: text, json" default:"text"`
	NoColor   bool   `name:"no-color" help:"Disable colored output"`
}

// CLI defines the command-line interface for loxoracle.
type CLI struct {
	Globals

	Run      RunCmd        `cmd:"" help:"Run every fixture in the corpus"`
	Check    CheckCmd      `cmd:"" help:"Run and validate a single fixture"`
	Parse    ParseCmd      `cmd:"" help:"Print the expectations declared by a fixture"`
	History  HistoryGroup  `cmd:"" help:"Query the run history"`
	Report   ReportGroup   `cmd:"" help:"Inspect suite reports"`
	Bundle   BundleGroup   `cmd:"" help:"Inspect transcript bundles"`
	Fixtures FixturesGroup `cmd:"" help:"Generate synthetic fixtures"`
	Version  VersionCmd    `cmd:"" help:"Print version information"`
}

// initLogging configures the global logger from the flags. Logs go to w so
// that stdout carries only the report.
func (g *Globals) initLogging(w io.Writer) error {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLoggerWithWriter(w, level, format)
	return nil
}

func newParser(cli *CLI, stdout, stderr io.Writer, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("loxoracle"),
		kong.Description("Conformance oracle for Lox interpreters"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Writers(stdout, stderr),
		kong.Vars{
			"long_local_count": strconv.Itoa(fixtures.DefaultLongLocalCount),
		},
	}, options...)
	return kong.New(cli, options...)
}

// execute parses args and runs the selected command.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer, options ...kong.Option) error {
	var cli CLI
	parser, err := newParser(&cli, stdout, stderr, options...)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	if err := cli.Globals.initLogging(stderr); err != nil {
		return err
	}
	kctx.BindTo(ctx, (*context.Context)(nil))
	return kctx.Run(&cli.Globals)
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(kctx *kong.Context) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(kctx.Stdout, "loxoracle version %s\n", version)
	fmt.Fprintf(kctx.Stdout, "sqlite driver: %s (%s)\n", info.DriverName, info.DriverType)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "loxoracle: error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
