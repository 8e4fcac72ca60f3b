// Package export renders tree snapshots to shareable artifacts. The SVG
// outline is the main product: the engine's visible rows drawn as an
// indented list, suitable for embedding in docs or review threads.
package export

import (
	"fmt"
	"io"
	"os"

	svg "github.com/ajstarks/svgo"

	"github.com/vanderheijden86/treeline/pkg/engine"
)

// SVGOptions tune outline rendering. Zero values pick readable defaults.
type SVGOptions struct {
	Title      string
	RowHeight  int // default 22
	IndentStep int // default 18
	FontSize   int // default 13
	MaxRows    int // 0 = all
}

func (o SVGOptions) withDefaults() SVGOptions {
	if o.RowHeight <= 0 {
		o.RowHeight = 22
	}
	if o.IndentStep <= 0 {
		o.IndentStep = 18
	}
	if o.FontSize <= 0 {
		o.FontSize = 13
	}
	return o
}

const (
	svgWidth      = 720
	svgPadding    = 16
	svgTitleSpace = 28
)

// WriteSVG renders the engine's current visible rows as an SVG outline.
func WriteSVG(w io.Writer, eng *engine.Engine, opts SVGOptions) error {
	return writeSVGRows(w, eng.VisibleRows(), opts)
}

// WriteSVGFile renders the outline to a file.
func WriteSVGFile(path string, eng *engine.Engine, opts SVGOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if err := WriteSVG(f, eng, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeSVGRows(w io.Writer, rows []engine.RowViewModel, opts SVGOptions) error {
	opts = opts.withDefaults()
	hidden := 0
	if opts.MaxRows > 0 && len(rows) > opts.MaxRows {
		hidden = len(rows) - opts.MaxRows
		rows = rows[:opts.MaxRows]
	}

	extra := 0
	if opts.Title != "" {
		extra += svgTitleSpace
	}
	if hidden > 0 {
		extra += opts.RowHeight
	}
	height := 2*svgPadding + extra + len(rows)*opts.RowHeight

	canvas := svg.New(w)
	canvas.Start(svgWidth, height)
	canvas.Rect(0, 0, svgWidth, height, "fill:#ffffff")

	y := svgPadding
	if opts.Title != "" {
		canvas.Text(svgPadding, y+opts.FontSize+2, opts.Title,
			fmt.Sprintf("font-family:monospace;font-size:%dpx;font-weight:bold;fill:#1a1a1a", opts.FontSize+3))
		y += svgTitleSpace
	}

	for _, row := range rows {
		drawRow(canvas, row, y, opts)
		y += opts.RowHeight
	}
	if hidden > 0 {
		canvas.Text(svgPadding, y+opts.FontSize,
			fmt.Sprintf("… %d more rows", hidden),
			fmt.Sprintf("font-family:monospace;font-size:%dpx;fill:#888888", opts.FontSize-1))
	}
	canvas.End()
	return nil
}

func drawRow(canvas *svg.SVG, row engine.RowViewModel, y int, opts SVGOptions) {
	x := svgPadding + row.Level*opts.IndentStep
	baseline := y + opts.FontSize + (opts.RowHeight-opts.FontSize)/2

	marker := markerFor(row)
	if marker != "" {
		canvas.Text(x, baseline, marker,
			fmt.Sprintf("font-family:monospace;font-size:%dpx;fill:#555555", opts.FontSize))
	}
	x += opts.IndentStep

	label := row.Label
	fill := "#1a1a1a"
	switch {
	case row.Placeholder:
		label = fmt.Sprintf("(loading item %d)", row.PlaceholderIndex)
		fill = "#aaaaaa"
	case row.Err != nil:
		label += "  ⚠ " + row.Err.Error()
		fill = "#b3261e"
	case row.Selected:
		canvas.Rect(x-4, y+1, svgWidth-x-svgPadding, opts.RowHeight-2,
			"fill:#dbeafe;stroke:none")
	}
	if row.Icon != "" {
		label = row.Icon + " " + label
	}
	canvas.Text(x, baseline, label,
		fmt.Sprintf("font-family:monospace;font-size:%dpx;fill:%s", opts.FontSize, fill))
}

func markerFor(row engine.RowViewModel) string {
	switch {
	case row.Loading:
		return "…"
	case !row.Expandable:
		return ""
	case row.Expanded:
		return "▾"
	default:
		return "▸"
	}
}
