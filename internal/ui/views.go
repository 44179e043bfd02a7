package ui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"logscope/internal/events"
	"logscope/internal/ingest"
	"logscope/internal/session"
	"logscope/internal/timeline"
)

func overlay(base, overlay string) string {
	// Draw overlay on top of base by replacing lines where overlay has content.
	bLines := strings.Split(base, "\n")
	oLines := strings.Split(overlay, "\n")
	maxLen := len(bLines)
	if len(oLines) > maxLen {
		maxLen = len(oLines)
	}
	for len(bLines) < maxLen {
		bLines = append(bLines, "")
	}
	for len(oLines) < maxLen {
		oLines = append(oLines, "")
	}
	out := make([]string, maxLen)
	for i := 0; i < maxLen; i++ {
		// Treat whitespace-only overlay lines as transparent
		if strings.TrimSpace(oLines[i]) != "" {
			out[i] = oLines[i]
		} else {
			out[i] = bLines[i]
		}
	}
	return strings.Join(out, "\n")
}

// placeThree lays out left, center and right labels on one line of width
// cells.
func placeThree(left, center, right string, width int) string {
	if width < 10 {
		width = 10
	}
	maxw := width / 3
	if maxw < 8 {
		maxw = 8
	}
	left, center, right = clip(left, maxw), clip(center, maxw), clip(right, maxw)
	line := []rune(strings.Repeat(" ", width))
	copy(line, []rune(left))
	if mid := (width - len([]rune(center))) / 2; mid >= 0 {
		copy(line[mid:], []rune(center))
	}
	if r := width - len([]rune(right)); r >= 0 {
		copy(line[r:], []rune(right))
	}
	return string(line)
}

// renderTimeline draws one row per event with one glyph per bucket, plus a
// time axis under the grid.
func renderTimeline(tbl *timeline.Table, st Styles) string {
	if len(tbl.Names) == 0 {
		return "no events defined"
	}
	label := 0
	for _, n := range tbl.Names {
		if l := len([]rune(n)); l > label {
			label = l
		}
	}
	var b strings.Builder
	for row, name := range tbl.Names {
		b.WriteString(padRight(name, label))
		b.WriteString(" │")
		for col := 0; col < tbl.Buckets; col++ {
			lvl := tbl.Level(row, col)
			b.WriteString(st.Intensity[lvl].Render(string(intensityGlyph(lvl))))
		}
		total := 0
		for _, c := range tbl.Counts[row] {
			total += c
		}
		fmt.Fprintf(&b, "│ %d\n", total)
	}
	b.WriteString(strings.Repeat(" ", label+2))
	b.WriteString(placeThree(
		tbl.Start.Format(time.DateTime),
		"bucket "+tbl.Width().Round(time.Millisecond).String(),
		tbl.End.Format(time.DateTime),
		tbl.Buckets,
	))
	fmt.Fprintf(&b, "\npeak %d per bucket  ", tbl.Max)
	for _, lvl := range []timeline.Level{timeline.Low, timeline.MediumLow, timeline.MediumHigh, timeline.High} {
		fmt.Fprintf(&b, " %s %s", st.Intensity[lvl].Render(string(intensityGlyph(lvl))), lvl)
	}
	return b.String()
}

func timelineError(err error) string {
	if errors.Is(err, timeline.ErrInsufficientRange) {
		return "Not enough timestamped events to build a timeline yet."
	}
	return err.Error()
}

func renderFilterList(filters []session.FilterState, sel int, st Styles) string {
	if len(filters) == 0 {
		return "no filters defined"
	}
	var b strings.Builder
	for i, f := range filters {
		box := "[ ]"
		if f.Enabled {
			box = "[x]"
		}
		desc := fmt.Sprintf("%s %-7s %q", box, f.Mode, f.Pattern)
		if f.Expr != "" {
			desc += " if " + f.Expr
		}
		if i == sel {
			desc = st.Selected.Render(desc)
		}
		b.WriteString(desc)
		if i < len(filters)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// recentEvents is how many of the latest occurrences the event list shows.
const recentEvents = 10

func renderEventList(states []session.EventState, sel int, occ []events.Named, st Styles) string {
	if len(states) == 0 {
		return "no events defined"
	}
	var b strings.Builder
	for i, e := range states {
		box := "[ ]"
		if e.Enabled {
			box = "[x]"
		}
		desc := fmt.Sprintf("%s %s (%d)", box, e.Name, e.Count)
		if i == sel {
			desc = st.Selected.Render(desc)
		}
		b.WriteString(desc)
		b.WriteByte('\n')
	}
	if len(occ) == 0 {
		return b.String() + "\nno occurrences of shown events"
	}
	if len(occ) > recentEvents {
		occ = occ[len(occ)-recentEvents:]
	}
	b.WriteString("\nlatest:")
	for _, o := range occ {
		stamp := "-"
		if o.Timestamp != nil {
			stamp = o.Timestamp.Format(time.DateTime)
		}
		fmt.Fprintf(&b, "\n  line %-6d %-19s %s", o.Seq+1, stamp, o.Name)
	}
	return b.String()
}

func sourceSummary(statuses []ingest.Status) string {
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		name := s.ID
		if s.Kind != ingest.KindStream {
			name = filepath.Base(name)
		}
		parts = append(parts, fmt.Sprintf("%s:%s(%d)", name, s.State, s.Lines))
	}
	return strings.Join(parts, " ")
}
