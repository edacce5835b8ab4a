// Package fixtures generates synthetic Lox fixtures that are too large or
// too regular to keep in the corpus by hand.
package fixtures

import (
	"bufio"
	"fmt"
	"io"
)

// DefaultLongLocalCount is the number of chained locals LongLocal emits by
// default, enough to overflow a 256-slot local table.
const DefaultLongLocalCount = 1000

// LongLocal writes a block that declares n+1 chained locals,
// v0 = 0 and vi = v(i-1) + i, then prints the last one. The expected
// output is the n-th triangular number.
func LongLocal(w io.Writer, n int) error {
	if n < 1 {
		return fmt.Errorf("long-local needs at least one local, got %d", n)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "{")
	fmt.Fprintln(bw, "    var v0 = 0;")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(bw, "    var v%d = v%d + %d;\n", i, i-1, i)
	}
	fmt.Fprintf(bw, "    print v%d; // expect: %d\n", n, n*(n+1)/2)
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
