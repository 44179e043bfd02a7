// Package rules compiles highlight, event and filter rule descriptions into
// an immutable, versioned RuleSet.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"logscope/internal/filter"
	"logscope/internal/model"
)

// Kind names the rule category in errors.
type Kind string

const (
	KindHighlight Kind = "highlight"
	KindEvent     Kind = "event"
	KindFilter    Kind = "filter"
)

// StyleDesc is an unresolved style as written in configuration.
type StyleDesc struct {
	Fg   string
	Bg   string
	Bold bool
}

type HighlightDesc struct {
	Pattern       string
	Regex         bool
	CaseSensitive bool
	// Style is optional; without a foreground colour one is assigned from
	// the palette.
	Style *StyleDesc
}

type EventDesc struct {
	Name          string
	Pattern       string
	Regex         bool
	CaseSensitive bool
	Critical      bool
	Style         *StyleDesc
}

type FilterDesc struct {
	Pattern       string
	Regex         bool
	CaseSensitive bool
	Mode          filter.Mode
	Enabled       bool
	// Expr is an optional govaluate expression ANDed with the pattern.
	Expr string
}

// Descriptions is the parsed rule configuration handed to the compiler.
type Descriptions struct {
	Highlights []HighlightDesc
	Events     []EventDesc
	Filters    []FilterDesc
}

// RuleError reports the rule that failed to compile.
type RuleError struct {
	Kind    Kind
	Index   int
	Pattern string
	Err     error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s rule %d (%q): %v", e.Kind, e.Index, e.Pattern, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

var errEmptyPattern = errors.New("empty pattern")

type Highlight struct {
	Pattern string
	Matcher Matcher
	Style   model.Style
	// AutoColor is true when the foreground came from the palette.
	AutoColor bool
}

type Event struct {
	Name     string
	Pattern  string
	Matcher  Matcher
	Style    model.Style
	Critical bool
}

type Filter struct {
	Pattern       string
	Regex         bool
	CaseSensitive bool
	Matcher       Matcher
	Expr          *filter.Expr
	Mode          filter.Mode
	// Enabled is the initial state; the live state is kept outside the
	// RuleSet so toggles do not require recompilation.
	Enabled bool
}

// RuleSet is immutable once compiled.
type RuleSet struct {
	Version    uint64
	Highlights []Highlight
	Events     []Event
	Filters    []Filter
	modes      []filter.Mode
}

// FilterModes returns the mode of every filter rule in declaration order.
func (rs *RuleSet) FilterModes() []filter.Mode { return rs.modes }

// InitialEnabled returns the configured enabled flags of the filter rules.
func (rs *RuleSet) InitialEnabled() []bool {
	out := make([]bool, len(rs.Filters))
	for i, f := range rs.Filters {
		out[i] = f.Enabled
	}
	return out
}

// EventNames lists event names in declaration order without duplicates.
func (rs *RuleSet) EventNames() []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(rs.Events))
	for _, e := range rs.Events {
		if !seen[e.Name] {
			seen[e.Name] = true
			out = append(out, e.Name)
		}
	}
	return out
}

// Compiler hands out monotonically increasing RuleSet versions.
type Compiler struct {
	version atomic.Uint64
}

func NewCompiler() *Compiler { return &Compiler{} }

// Compile builds a RuleSet. It fails on the first bad rule and never returns
// a partial RuleSet.
func (c *Compiler) Compile(d Descriptions) (*RuleSet, error) {
	rs := &RuleSet{}

	colors, err := assignColors(d.Highlights)
	if err != nil {
		return nil, err
	}
	for i, h := range d.Highlights {
		if h.Pattern == "" {
			return nil, &RuleError{Kind: KindHighlight, Index: i, Pattern: h.Pattern, Err: errEmptyPattern}
		}
		m, err := Compile(h.Pattern, h.Regex, h.CaseSensitive)
		if err != nil {
			return nil, &RuleError{Kind: KindHighlight, Index: i, Pattern: h.Pattern, Err: err}
		}
		st, err := resolveStyle(h.Style)
		if err != nil {
			return nil, &RuleError{Kind: KindHighlight, Index: i, Pattern: h.Pattern, Err: err}
		}
		auto := st.Fg.IsZero()
		if auto {
			st.Fg = colors[i]
		}
		rs.Highlights = append(rs.Highlights, Highlight{Pattern: h.Pattern, Matcher: m, Style: st, AutoColor: auto})
	}

	for i, e := range d.Events {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, &RuleError{Kind: KindEvent, Index: i, Pattern: e.Pattern, Err: errors.New("event name is required")}
		}
		if e.Pattern == "" {
			return nil, &RuleError{Kind: KindEvent, Index: i, Pattern: e.Pattern, Err: errEmptyPattern}
		}
		m, err := Compile(e.Pattern, e.Regex, e.CaseSensitive)
		if err != nil {
			return nil, &RuleError{Kind: KindEvent, Index: i, Pattern: e.Pattern, Err: err}
		}
		st := defaultEventStyle
		if e.Style != nil {
			if st, err = resolveStyle(e.Style); err != nil {
				return nil, &RuleError{Kind: KindEvent, Index: i, Pattern: e.Pattern, Err: err}
			}
		}
		rs.Events = append(rs.Events, Event{Name: name, Pattern: e.Pattern, Matcher: m, Style: st, Critical: e.Critical})
	}

	for i, f := range d.Filters {
		expr := strings.TrimSpace(f.Expr)
		if f.Pattern == "" && expr == "" {
			return nil, &RuleError{Kind: KindFilter, Index: i, Pattern: f.Pattern, Err: errEmptyPattern}
		}
		m, err := Compile(f.Pattern, f.Regex, f.CaseSensitive)
		if err != nil {
			return nil, &RuleError{Kind: KindFilter, Index: i, Pattern: f.Pattern, Err: err}
		}
		cf := Filter{Pattern: f.Pattern, Regex: f.Regex, CaseSensitive: f.CaseSensitive, Matcher: m, Mode: f.Mode, Enabled: f.Enabled}
		if expr != "" {
			if cf.Expr, err = filter.NewExpr(expr); err != nil {
				return nil, &RuleError{Kind: KindFilter, Index: i, Pattern: expr, Err: err}
			}
		}
		rs.Filters = append(rs.Filters, cf)
		rs.modes = append(rs.modes, f.Mode)
	}

	rs.Version = c.version.Add(1)
	return rs, nil
}

var defaultEventStyle = model.Style{Fg: "white", Bg: "blue"}

func resolveStyle(d *StyleDesc) (model.Style, error) {
	if d == nil {
		return model.Style{}, nil
	}
	fg, err := model.ParseColor(d.Fg)
	if err != nil {
		return model.Style{}, err
	}
	bg, err := model.ParseColor(d.Bg)
	if err != nil {
		return model.Style{}, err
	}
	return model.Style{Fg: fg, Bg: bg, Bold: d.Bold}, nil
}
