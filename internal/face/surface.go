package face

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Surface receives every redrawn frame.
type Surface interface {
	Render(f Frame) error
}

// TextSurface renders frames as a fixed-size character grid.
type TextSurface struct {
	w    io.Writer
	cols int
	rows int
}

// NewTextSurface creates a surface writing cols x rows grids to w.
func NewTextSurface(w io.Writer, cols, rows int) *TextSurface {
	if cols < 16 {
		cols = 16
	}
	if rows < 8 {
		rows = 8
	}
	return &TextSurface{w: w, cols: cols, rows: rows}
}

// Render draws f. Elements are placed by scaling canvas offsets onto the
// grid left to right; an element that overlaps the next one on its row is
// cut short.
func (s *TextSurface) Render(f Frame) error {
	elems := slices.Clone(f.Elements)
	slices.SortStableFunc(elems, func(a, b Element) int { return cmp.Compare(a.X, b.X) })

	grid := make([]string, s.rows)
	for _, e := range elems {
		text := e.Text
		if e.Kind == KindIcon {
			text = "[" + strings.TrimPrefix(e.Icon, "art_") + "]"
		}
		row := int(e.Y / CanvasHeight * float64(s.rows))
		col := int(e.X / CanvasWidth * float64(s.cols))
		row = min(max(row, 0), s.rows-1)
		grid[row] = place(grid[row], text, col, s.cols)
	}

	var b strings.Builder
	border := "+" + strings.Repeat("-", s.cols) + "+"
	fmt.Fprintf(&b, "%s %s %s\n", border, f.Mode, f.Background)
	for _, line := range grid {
		b.WriteString("|" + runewidth.FillRight(runewidth.Truncate(line, s.cols, ""), s.cols) + "|\n")
	}
	b.WriteString(border + "\n")

	_, err := io.WriteString(s.w, b.String())
	return err
}

// place writes text into line starting at display column col.
func place(line, text string, col, width int) string {
	if w := runewidth.StringWidth(line); w < col {
		line += strings.Repeat(" ", col-w)
	} else if w > col {
		line = runewidth.Truncate(line, col, "")
		line += strings.Repeat(" ", col-runewidth.StringWidth(line))
	}
	return runewidth.Truncate(line+text, width, "")
}
