package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Line is one ingested unit of log text. Seq is assigned by the store and
// defines the total order of lines; it is never reused.
type Line struct {
	Seq       uint64     `json:"seq"`
	Text      string     `json:"text"`
	Source    string     `json:"source,omitempty"`
	Timestamp *time.Time `json:"ts,omitempty"`
}

// Span is a highlighted byte range [Start, End) of a line.
type Span struct {
	Start int   `json:"start"`
	End   int   `json:"end"`
	Rule  int   `json:"rule"`
	Style Style `json:"style"`
}

// Classification is the result of matching one line against a RuleSet.
// Version is the RuleSet version that produced it.
type Classification struct {
	Version uint64
	Spans   []Span
	// Events holds triggered event names in rule declaration order.
	Events []string
	// LineStyle is the style of the first triggered event, if any.
	LineStyle *Style
	Critical  bool
	// FilterHits[i] reports whether filter rule i matched the line,
	// independent of whether the filter is enabled.
	FilterHits []bool
}

// HasEvent reports whether name was triggered.
func (c *Classification) HasEvent(name string) bool {
	for _, n := range c.Events {
		if n == name {
			return true
		}
	}
	return false
}

// Color is a display colour: a name ("red", "lightblue"), an ANSI 256
// index ("196") or a hex value ("#ff8800"). The zero value means unset.
type Color string

var namedColors = map[string]string{
	"black":        "0",
	"red":          "1",
	"green":        "2",
	"yellow":       "3",
	"blue":         "4",
	"magenta":      "5",
	"cyan":         "6",
	"gray":         "7",
	"darkgray":     "8",
	"lightred":     "9",
	"lightgreen":   "10",
	"lightyellow":  "11",
	"lightblue":    "12",
	"lightmagenta": "13",
	"lightcyan":    "14",
	"white":        "15",
}

// ParseColor validates and normalizes a colour description.
func ParseColor(s string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return "", nil
	}
	if _, ok := namedColors[v]; ok {
		return Color(v), nil
	}
	if strings.HasPrefix(v, "#") {
		if len(v) != 7 {
			return "", fmt.Errorf("invalid hex colour %q", s)
		}
		if _, err := strconv.ParseUint(v[1:], 16, 32); err != nil {
			return "", fmt.Errorf("invalid hex colour %q", s)
		}
		return Color(v), nil
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 255 {
		return Color(v), nil
	}
	return "", fmt.Errorf("unknown colour %q", s)
}

// IsZero reports whether the colour is unset.
func (c Color) IsZero() bool { return c == "" }

// Lipgloss maps the colour onto a terminal colour.
func (c Color) Lipgloss() lipgloss.TerminalColor {
	if c == "" {
		return lipgloss.NoColor{}
	}
	if code, ok := namedColors[string(c)]; ok {
		return lipgloss.Color(code)
	}
	return lipgloss.Color(string(c))
}

// Style is a resolved display style for spans and event lines.
type Style struct {
	Fg   Color `json:"fg,omitempty"`
	Bg   Color `json:"bg,omitempty"`
	Bold bool  `json:"bold,omitempty"`
}

// Lipgloss builds the lipgloss style for rendering.
func (s Style) Lipgloss() lipgloss.Style {
	st := lipgloss.NewStyle()
	if !s.Fg.IsZero() {
		st = st.Foreground(s.Fg.Lipgloss())
	}
	if !s.Bg.IsZero() {
		st = st.Background(s.Bg.Lipgloss())
	}
	if s.Bold {
		st = st.Bold(true)
	}
	return st
}
