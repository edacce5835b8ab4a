package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	lerrors "github.com/FocuswithJustin/loxoracle/core/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "loxoracle.yml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
interpreter: ./build/clox
args: ["--gc-stress"]
language: c
root: test
exclude: benchmark
strict: true
timeout: 10s
history: .loxoracle/history.db
`)
	dir := filepath.Dir(path)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Config{
		Interpreter: filepath.Join(dir, "build", "clox"),
		Args:        []string{"--gc-stress"},
		Language:    "c",
		Root:        filepath.Join(dir, "test"),
		Exclude:     "benchmark",
		Strict:      true,
		Timeout:     10 * time.Second,
		History:     filepath.Join(dir, ".loxoracle", "history.db"),
		Path:        path,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadKeepsCommandInterpreter(t *testing.T) {
	cfg, err := Load(writeConfig(t, "interpreter: jlox\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Interpreter != "jlox" {
		t.Errorf("Interpreter = %q, want bare command kept", cfg.Interpreter)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Interpreter != "" {
		t.Errorf("empty config should leave fields unset: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); !lerrors.Is(err, lerrors.ErrInvalidInput) {
		t.Errorf("Load(\"\") error = %v, want ErrInvalidInput", err)
	}

	var ioErr *lerrors.IOError
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); !lerrors.As(err, &ioErr) {
		t.Errorf("Load(missing) error = %v, want IOError", err)
	}

	_, err := Load(writeConfig(t, "interpreter: ./clox\ncolour: red\n"))
	if err == nil || !strings.Contains(err.Error(), "colour") {
		t.Errorf("unknown key error = %v", err)
	}
	if !lerrors.Is(err, lerrors.ErrInvalidInput) {
		t.Errorf("unknown key error should match ErrInvalidInput: %v", err)
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.Interpreter = "./clox"
	base.Args = []string{"a"}
	base.Timeout = time.Second

	merged := base.Merge(&Config{Language: "java", Args: []string{"b", "c"}, Strict: true})

	if merged.Interpreter != "./clox" || merged.Language != "java" || !merged.Strict {
		t.Errorf("Merge() = %+v", merged)
	}
	if diff := cmp.Diff([]string{"b", "c"}, merged.Args); diff != "" {
		t.Errorf("Args mismatch (-want +got):\n%s", diff)
	}
	if merged.Timeout != time.Second || merged.Root != "test" {
		t.Errorf("unset override fields should keep base values: %+v", merged)
	}
	if base.Language != "c" || len(base.Args) != 1 {
		t.Error("Merge must not modify the receiver")
	}

	if same := base.Merge(nil); same.Interpreter != "./clox" {
		t.Errorf("Merge(nil) = %+v", same)
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Interpreter = "./clox"
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() on valid config = %v", err)
	}

	bad := &Config{
		Language:  "python",
		Extension: "lox",
		Timeout:   -time.Second,
		Bundle:    "out.zip",
	}
	err := bad.Validate()
	var verr *ValidationError
	if !lerrors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want ValidationError", err)
	}

	want := []string{
		"interpreter is required",
		`language "python" is not one of c, java`,
		"root is required",
		`extension "lox" must start with '.'`,
		"timeout must not be negative",
		"bundle requires transcripts",
		`bundle "out.zip" must end in .tar.xz`,
	}
	if diff := cmp.Diff(want, verr.Issues); diff != "" {
		t.Errorf("Issues mismatch (-want +got):\n%s", diff)
	}
	if !lerrors.Is(err, lerrors.ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
	if !strings.HasPrefix(err.Error(), "config validation failed:\n- interpreter is required") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidationErrorEmpty(t *testing.T) {
	if got := (&ValidationError{}).Error(); got != "config: invalid configuration" {
		t.Errorf("Error() = %q", got)
	}
}
