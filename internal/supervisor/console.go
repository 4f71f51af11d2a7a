package supervisor

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"

	"procmux/internal/logstore"
)

const dumpTimeLayout = "15:04:05.000"

// consolePrinter writes entries as "NAME | text" with a colored, aligned
// name column.
type consolePrinter struct {
	w        io.Writer
	withTime bool

	mu     sync.Mutex
	width  int
	colors map[string]*color.Color
}

func newConsolePrinter(w io.Writer) *consolePrinter {
	return &consolePrinter{w: w, colors: make(map[string]*color.Color)}
}

func (c *consolePrinter) print(e logstore.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(e.Name); n > c.width {
		c.width = n
	}
	col, ok := c.colors[e.Color]
	if !ok {
		col = consoleColor(e.Color)
		c.colors[e.Color] = col
	}

	name := col.Sprintf("%-*s |", c.width, e.Name)
	if c.withTime {
		fmt.Fprintf(c.w, "%s %s %s\n", e.Time.Local().Format(dumpTimeLayout), name, e.Text)
		return
	}
	fmt.Fprintf(c.w, "%s %s\n", name, e.Text)
}

// Dump writes every buffered entry to w in chronological order.
func (s *Supervisor) Dump(w io.Writer) {
	entries := s.store.AllSorted()
	if len(entries) == 0 {
		return
	}
	p := newConsolePrinter(w)
	p.withTime = true
	for _, e := range entries {
		if len(e.Name) > p.width {
			p.width = len(e.Name)
		}
	}
	for _, e := range entries {
		p.print(e)
	}
}

// consoleColor maps a palette index or #rrggbb value to an SGR color.
func consoleColor(c string) *color.Color {
	if c == "" {
		return color.New(color.Faint)
	}
	if n, err := strconv.Atoi(c); err == nil {
		switch {
		case n < 8:
			return color.New(color.FgBlack + color.Attribute(n))
		case n < 16:
			return color.New(color.FgHiBlack + color.Attribute(n-8))
		default:
			return color.New(38, 5, color.Attribute(n))
		}
	}
	if hex, ok := strings.CutPrefix(c, "#"); ok && len(hex) == 6 {
		v, err := strconv.ParseUint(hex, 16, 32)
		if err == nil {
			return color.New(38, 2, color.Attribute(v>>16&0xff), color.Attribute(v>>8&0xff), color.Attribute(v&0xff))
		}
	}
	return color.New(color.Reset)
}
