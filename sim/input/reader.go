// Package input parses the graph and rat text formats into the records the
// sim package builds its state from.
//
// Both formats are line oriented. Lines whose first non-blank character is
// '#' are comments; blank lines are ignored. Every error carries the 1-based
// line number of the record that caused it.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/graphrat-sim/graphrat-sim/sim"
)

// MaxLine is the longest accepted input line in bytes, newline excluded.
const MaxLine = 1024

// lineReader yields the non-comment lines of r split into fields.
type lineReader struct {
	scanner *bufio.Scanner
	line    int
}

func newLineReader(r io.Reader) *lineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 256), MaxLine+1)
	return &lineReader{scanner: s}
}

// next returns the fields of the next record. what names the expected record
// in the error returned at end of input.
func (lr *lineReader) next(what string) ([]string, error) {
	for lr.scanner.Scan() {
		lr.line++
		text := lr.scanner.Text()
		if len(text) > MaxLine {
			return nil, lr.errorf("line longer than %d bytes", MaxLine)
		}
		fields := strings.Fields(text)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		return fields, nil
	}
	if err := lr.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			lr.line++
			return nil, lr.errorf("line longer than %d bytes", MaxLine)
		}
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return nil, lr.errorf("unexpected end of input, expecting %s", what)
}

func (lr *lineReader) errorf(format string, args ...any) error {
	return &sim.InputError{Line: lr.line, Msg: fmt.Sprintf(format, args...)}
}

// ints parses fields as base-10 integers.
func (lr *lineReader) ints(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, lr.errorf("invalid integer %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// tagged checks that fields start with tag and hold n integer arguments.
func (lr *lineReader) tagged(fields []string, tag string, n int, what string) ([]int, error) {
	if fields[0] != tag || len(fields) != n+1 {
		return nil, lr.errorf("malformed line %q, expecting %s", strings.Join(fields, " "), what)
	}
	return lr.ints(fields[1:])
}
