package semp

import (
	"fmt"
	"io"
)

// DefaultDotsPerLine is the line width of a DotPrinter.
const DefaultDotsPerLine = 75

// Progress receives one step per completed request.
type Progress interface {
	Step()
}

// NopProgress discards steps.
type NopProgress struct{}

// Step does nothing.
func (NopProgress) Step() {}

// DotPrinter writes a dot per step and breaks the line every PerLine dots.
// It is owned by a single loop and is not safe for concurrent use.
type DotPrinter struct {
	w       io.Writer
	perLine int
	count   int
}

// NewDotPrinter returns a DotPrinter writing to w. A non-positive perLine
// selects DefaultDotsPerLine.
func NewDotPrinter(w io.Writer, perLine int) *DotPrinter {
	if perLine <= 0 {
		perLine = DefaultDotsPerLine
	}
	return &DotPrinter{w: w, perLine: perLine}
}

// Step prints one dot.
func (d *DotPrinter) Step() {
	fmt.Fprint(d.w, ".")
	d.count++
	if d.count%d.perLine == 0 {
		fmt.Fprintln(d.w)
	}
}

// Count returns the number of steps printed so far.
func (d *DotPrinter) Count() int {
	return d.count
}
