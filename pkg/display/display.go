// Package display is the render request boundary of the daemon. The consumer
// asks for one render per measurement cycle; how a renderer draws it is its
// own business.
package display

import (
	"fmt"
	"io"
	"strings"
)

// WidthPX is the pixel width of the reference display, an SSD1306 128x32.
const WidthPX = 128

// Renderer receives one render request per measurement cycle.
type Renderer interface {
	// Status shows a free text status line, e.g. the boot banner.
	Status(text string)
	// Failure shows a failed cycle.
	Failure(text string)
	// Distance shows a measured distance and a proportional bar of
	// barPX pixels.
	Distance(cm float64, barPX int)
}

// Console renders to a writer, one line of text plus a bar line per request.
// It is the renderer for headless runs; pixel displays are driven by their
// own renderers behind the same interface.
type Console struct {
	w io.Writer
}

// NewConsole returns a Console rendering to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Status(text string) {
	fmt.Fprintln(c.w, text)
}

func (c *Console) Failure(text string) {
	fmt.Fprintln(c.w, text)
}

func (c *Console) Distance(cm float64, barPX int) {
	fmt.Fprintf(c.w, "Dist: %.2f cm\n%s\n", cm, strings.Repeat("=", barPX))
}

// Discard swallows all render requests, for runs without any display.
type Discard struct{}

func (Discard) Status(string)         {}
func (Discard) Failure(string)        {}
func (Discard) Distance(float64, int) {}
