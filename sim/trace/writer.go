package trace

import (
	"bufio"
	"io"
	"strconv"
)

// Writer prints display records in the line protocol read by external
// visualizers:
//
//	STEP <nnode> <nrat>
//	<count of node 0>      (only when counts are shown)
//	...
//	END
//
// and a single DONE line after the last record. Write errors are sticky:
// after the first one every call is a no-op and Err returns it.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Step writes one record for counts; the per-node lines are omitted unless
// showCounts is set.
func (tw *Writer) Step(counts []int, showCounts bool) {
	if tw.err != nil {
		return
	}
	nrat := 0
	for _, c := range counts {
		nrat += c
	}
	buf := make([]byte, 0, 32)
	buf = append(buf, "STEP "...)
	buf = strconv.AppendInt(buf, int64(len(counts)), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(nrat), 10)
	buf = append(buf, '\n')
	tw.write(buf)
	if showCounts {
		for _, c := range counts {
			buf = strconv.AppendInt(buf[:0], int64(c), 10)
			buf = append(buf, '\n')
			tw.write(buf)
		}
	}
	tw.write([]byte("END\n"))
	tw.flush()
}

// Done writes the end-of-run marker.
func (tw *Writer) Done() {
	tw.write([]byte("DONE\n"))
	tw.flush()
}

// Err returns the first write error.
func (tw *Writer) Err() error { return tw.err }

func (tw *Writer) write(p []byte) {
	if tw.err == nil {
		_, tw.err = tw.w.Write(p)
	}
}

func (tw *Writer) flush() {
	if tw.err == nil {
		tw.err = tw.w.Flush()
	}
}
