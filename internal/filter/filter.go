package filter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Knetic/govaluate"
)

type Mode int

const (
	Include Mode = iota
	Exclude
)

func (m Mode) String() string {
	if m == Exclude {
		return "exclude"
	}
	return "include"
}

// ParseMode accepts "include" (also the empty string) or "exclude".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "include":
		return Include, nil
	case "exclude":
		return Exclude, nil
	}
	return Include, fmt.Errorf("unknown filter mode %q", s)
}

// Visible combines per-filter match results with the enabled filter stack.
// With at least one enabled include filter a line must match one of them;
// a match on any enabled exclude filter always hides the line. Disabled
// filters have no effect.
func Visible(hits []bool, modes []Mode, enabled []bool) bool {
	hasInclude := false
	included := false
	for i, mode := range modes {
		if i >= len(enabled) || !enabled[i] {
			continue
		}
		hit := i < len(hits) && hits[i]
		switch mode {
		case Exclude:
			if hit {
				return false
			}
		case Include:
			hasInclude = true
			if hit {
				included = true
			}
		}
	}
	if hasInclude {
		return included
	}
	return true
}

// Params are the attributes of a line visible to filter expressions.
type Params struct {
	Line      string
	Source    string
	Critical  bool
	Events    int
	Timestamp *time.Time
}

func (p Params) toMap() map[string]any {
	unix := 0.0
	if p.Timestamp != nil {
		unix = float64(p.Timestamp.UnixNano()) / 1e9
	}
	return map[string]any{
		"line":     p.Line,
		"source":   p.Source,
		"critical": p.Critical,
		"events":   float64(p.Events),
		"has_time": p.Timestamp != nil,
		"unix":     unix,
	}
}

// Expr is a compiled govaluate filter expression.
type Expr struct {
	src  string
	expr *govaluate.EvaluableExpression
}

func NewExpr(src string) (*Expr, error) {
	expr, err := govaluate.NewEvaluableExpression(src)
	if err != nil {
		return nil, err
	}
	return &Expr{src: src, expr: expr}, nil
}

func (e *Expr) String() string { return e.src }

// Match evaluates the expression; evaluation errors and non-boolean results
// count as no match.
func (e *Expr) Match(p Params) bool {
	result, err := e.expr.Evaluate(p.toMap())
	if err != nil {
		return false
	}
	b, ok := result.(bool)
	return ok && b
}

// State holds the enabled flag of every filter rule. Toggling a flag only
// bumps the generation; it never touches compiled matchers.
type State struct {
	mu      sync.RWMutex
	enabled []bool
	rng     TimeRange
	gen     uint64
}

func NewState(initial []bool) *State {
	s := &State{}
	s.Reset(initial)
	return s
}

// Reset replaces the whole stack, e.g. after a RuleSet install. The time
// range is kept.
func (s *State) Reset(initial []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = append([]bool(nil), initial...)
	s.gen++
}

func (s *State) Set(i int, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.enabled) {
		return fmt.Errorf("filter index %d out of range (have %d)", i, len(s.enabled))
	}
	if s.enabled[i] != on {
		s.enabled[i] = on
		s.gen++
	}
	return nil
}

// Toggle flips filter i and returns its new state.
func (s *State) Toggle(i int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.enabled) {
		return false, fmt.Errorf("filter index %d out of range (have %d)", i, len(s.enabled))
	}
	s.enabled[i] = !s.enabled[i]
	s.gen++
	return s.enabled[i], nil
}

func (s *State) Snapshot() []bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]bool, len(s.enabled))
	copy(out, s.enabled)
	return out
}

func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// SetRange replaces the time range applied on top of the filter stack.
func (s *State) SetRange(r TimeRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = r
	s.gen++
}

func (s *State) Range() TimeRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rng
}

// TimeRange limits visible lines to timestamps in [Start, End]. A nil bound
// is open; lines without a timestamp always pass.
type TimeRange struct {
	Start *time.Time
	End   *time.Time
}

func (r TimeRange) IsZero() bool { return r.Start == nil && r.End == nil }

func (r TimeRange) Contains(ts *time.Time) bool {
	if ts == nil {
		return true
	}
	if r.Start != nil && ts.Before(*r.Start) {
		return false
	}
	if r.End != nil && ts.After(*r.End) {
		return false
	}
	return true
}

func (r TimeRange) String() string {
	var start, end string
	if r.Start != nil {
		start = r.Start.Format(time.DateTime)
	}
	if r.End != nil {
		end = r.End.Format(time.DateTime)
	}
	return start + ".." + end
}

var rangeLayouts = []string{time.RFC3339Nano, time.DateTime, "2006-01-02T15:04:05", time.DateOnly}

// ParseTimeRange reads "start..end" where either side may be empty. Bounds
// without a zone are taken in loc.
func ParseTimeRange(s string, loc *time.Location) (TimeRange, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "..")
	if !ok {
		return TimeRange{}, fmt.Errorf("time range %q: want start..end", s)
	}
	var r TimeRange
	var err error
	if r.Start, err = parseBound(from, loc); err != nil {
		return TimeRange{}, err
	}
	if r.End, err = parseBound(to, loc); err != nil {
		return TimeRange{}, err
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return TimeRange{}, fmt.Errorf("time range %q: end before start", s)
	}
	return r, nil
}

func parseBound(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range rangeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised time %q (want RFC 3339 or %s)", s, time.DateTime)
}
