package fixtures

import (
	"bytes"
	"strings"
	"testing"

	"github.com/FocuswithJustin/loxoracle/core/expect"
)

func TestLongLocalDefault(t *testing.T) {
	var buf bytes.Buffer
	if err := LongLocal(&buf, DefaultLongLocalCount); err != nil {
		t.Fatalf("LongLocal() error = %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 1004 {
		t.Fatalf("got %d lines, want 1004", len(lines))
	}
	checks := map[int]string{
		0:    "{",
		1:    "    var v0 = 0;",
		2:    "    var v1 = v0 + 1;",
		1001: "    var v1000 = v999 + 1000;",
		1002: "    print v1000; // expect: 500500",
		1003: "}",
	}
	for i, want := range checks {
		if lines[i] != want {
			t.Errorf("line %d = %q, want %q", i, lines[i], want)
		}
	}
}

func TestLongLocalParses(t *testing.T) {
	var buf bytes.Buffer
	if err := LongLocal(&buf, 3); err != nil {
		t.Fatal(err)
	}

	set, isTest, err := expect.NewParser("c").ParseBytes("long_local.lox", buf.Bytes())
	if err != nil || !isTest {
		t.Fatalf("ParseBytes() = %v, %v", isTest, err)
	}
	if len(set.Output) != 1 || set.Output[0].Text != "6" || set.Output[0].Line != 6 {
		t.Errorf("output expectations = %+v", set.Output)
	}
}

func TestLongLocalInvalid(t *testing.T) {
	if err := LongLocal(&bytes.Buffer{}, 0); err == nil {
		t.Error("LongLocal(0) should fail")
	}
}
