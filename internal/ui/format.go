package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"logscope/internal/model"
	"logscope/internal/timeline"
)

// sanitize replaces control bytes with spaces. Byte offsets are preserved so
// spans computed on the raw text still apply.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}

// clip cuts s to at most width terminal cells.
func clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := 0
	for i, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > width {
			return s[:i]
		}
		w += rw
	}
	return s
}

// segment is a run of bytes [start, end) drawn with one layer: 0 is the
// base style, -1 a search hit and k > 0 the span at index k-1.
type segment struct {
	start, end int
	layer      int
}

// segments splits text into runs by layer. Hits win over spans; where spans
// overlap the earlier one wins. Ranges past the end of text are clipped.
func segments(n int, spans []model.Span, hits [][2]int) []segment {
	if n == 0 {
		return nil
	}
	layer := make([]int, n)
	for k, sp := range spans {
		lo, hi := clampRange(sp.Start, sp.End, n)
		for i := lo; i < hi; i++ {
			if layer[i] == 0 {
				layer[i] = k + 1
			}
		}
	}
	for _, h := range hits {
		lo, hi := clampRange(h[0], h[1], n)
		for i := lo; i < hi; i++ {
			layer[i] = -1
		}
	}
	var out []segment
	start := 0
	for i := 1; i <= n; i++ {
		if i < n && layer[i] == layer[start] {
			continue
		}
		out = append(out, segment{start: start, end: i, layer: layer[start]})
		start = i
	}
	return out
}

// paintLine renders text with highlight spans and search hits.
func paintLine(text string, spans []model.Span, hits [][2]int, base, hit lipgloss.Style) string {
	var b strings.Builder
	for _, sg := range segments(len(text), spans, hits) {
		seg := text[sg.start:sg.end]
		switch {
		case sg.layer < 0:
			b.WriteString(hit.Render(seg))
		case sg.layer == 0:
			b.WriteString(base.Render(seg))
		default:
			b.WriteString(spans[sg.layer-1].Style.Lipgloss().Inherit(base).Render(seg))
		}
	}
	return b.String()
}

func clampRange(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

// lineStyle is the base style of a line: its first event's style, if any.
func lineStyle(base lipgloss.Style, c model.Classification) lipgloss.Style {
	if c.LineStyle == nil {
		return base
	}
	return c.LineStyle.Lipgloss().Inherit(base)
}

var intensityGlyphs = map[timeline.Level]rune{
	timeline.None:       '·',
	timeline.Low:        '░',
	timeline.MediumLow:  '▒',
	timeline.MediumHigh: '▓',
	timeline.High:       '█',
}

func intensityGlyph(l timeline.Level) rune {
	if g, ok := intensityGlyphs[l]; ok {
		return g
	}
	return ' '
}

func padRight(s string, w int) string {
	if n := runewidth.StringWidth(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}
