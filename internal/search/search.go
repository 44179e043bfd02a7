// Package search finds lines matching a query and keeps a navigable,
// incrementally extended list of hits.
package search

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"logscope/internal/model"
	"logscope/internal/rules"
	"logscope/internal/util/logx"
)

var (
	ErrEmptyQuery = errors.New("search: empty query")
	// ErrSuperseded is returned by a scan whose query was replaced before it
	// finished; its results are discarded.
	ErrSuperseded = errors.New("search: superseded by a newer query")
)

type Query struct {
	Text          string
	Regex         bool
	CaseSensitive bool
}

func (q Query) String() string {
	flags := ""
	if q.Regex {
		flags += "r"
	}
	if q.CaseSensitive {
		flags += "c"
	}
	if flags == "" {
		return q.Text
	}
	return fmt.Sprintf("%s [%s]", q.Text, flags)
}

// QueryError reports a query that could not be compiled.
type QueryError struct {
	Query Query
	Err   error
}

func (e *QueryError) Error() string { return fmt.Sprintf("invalid query %q: %v", e.Query.Text, e.Err) }
func (e *QueryError) Unwrap() error { return e.Err }

// Lines is the read side of the log store used for scanning.
type Lines interface {
	Bounds() (first, next uint64)
	Each(lo, hi uint64, fn func(model.Line, model.Classification) bool)
}

type state struct {
	query   Query
	matcher rules.Matcher
	matches []uint64
	cursor  int
}

type scan struct {
	gen     uint64
	matcher rules.Matcher
	pending []uint64
	minSeq  uint64
}

// Engine holds the active search. Register it as a store observer so that
// appended lines extend the match list and evicted lines leave it.
type Engine struct {
	src Lines

	mu       sync.Mutex
	gen      atomic.Uint64
	cur      state
	inflight *scan
	history  History
}

func NewEngine(src Lines) *Engine {
	return &Engine{src: src, cur: state{cursor: -1}}
}

// Search scans the buffer for q and makes it the active query. On a compile
// error the previous state is left untouched. Concurrent calls supersede
// each other; only the newest scan installs its results.
func (e *Engine) Search(q Query) ([]uint64, error) {
	if q.Text == "" {
		return nil, ErrEmptyQuery
	}
	m, err := rules.Compile(q.Text, q.Regex, q.CaseSensitive)
	if err != nil {
		return nil, &QueryError{Query: q, Err: err}
	}

	// Register before reading the bounds: every line appended from here on
	// lands in pending, every earlier one is below hi.
	e.mu.Lock()
	run := &scan{gen: e.gen.Add(1), matcher: m}
	e.inflight = run
	e.mu.Unlock()

	first, hi := e.src.Bounds()
	var found []uint64
	n := 0
	superseded := false
	e.src.Each(first, hi, func(l model.Line, _ model.Classification) bool {
		n++
		if n%1024 == 0 && e.gen.Load() != run.gen {
			superseded = true
			return false
		}
		if m.Match(l.Text) {
			found = append(found, l.Seq)
		}
		return true
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if superseded || e.inflight != run {
		return nil, ErrSuperseded
	}
	e.inflight = nil
	for _, seq := range run.pending {
		if seq >= hi {
			found = append(found, seq)
		}
	}
	found = dropBelow(found, run.minSeq)
	e.cur = state{query: q, matcher: m, matches: found, cursor: -1}
	if len(found) > 0 {
		e.cur.cursor = 0
	}
	e.history.Add(q)
	logx.Debugf("search: %q matched %d lines in [%d, %d)", q.Text, len(found), first, hi)
	return append([]uint64(nil), found...), nil
}

func dropBelow(seqs []uint64, min uint64) []uint64 {
	i := 0
	for i < len(seqs) && seqs[i] < min {
		i++
	}
	return seqs[i:]
}

// History returns past successful queries, oldest first, without repeats.
func (e *Engine) History() []Query {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Items()
}

// HistoryOlder steps the history cursor back one query.
func (e *Engine) HistoryOlder() (Query, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Older()
}

// HistoryNewer steps the history cursor forward; past the newest entry it
// reports false.
func (e *Engine) HistoryNewer() (Query, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Newer()
}

// Clear drops the active query and abandons any scan in flight.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen.Add(1)
	e.inflight = nil
	e.cur = state{cursor: -1}
}

// LinesAppended extends the active match list. Called under the store lock.
func (e *Engine) LinesAppended(lines []model.Line) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range lines {
		if e.cur.matcher != nil && e.cur.matcher.Match(l.Text) {
			e.cur.matches = append(e.cur.matches, l.Seq)
		}
		if e.inflight != nil && e.inflight.matcher.Match(l.Text) {
			e.inflight.pending = append(e.inflight.pending, l.Seq)
		}
	}
}

// LinesEvicted drops matches below first and moves the cursor to the
// nearest remaining match.
func (e *Engine) LinesEvicted(first uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight != nil {
		if first > e.inflight.minSeq {
			e.inflight.minSeq = first
		}
		e.inflight.pending = dropBelow(e.inflight.pending, first)
	}
	before := len(e.cur.matches)
	e.cur.matches = dropBelow(e.cur.matches, first)
	dropped := before - len(e.cur.matches)
	if dropped == 0 {
		return
	}
	switch {
	case len(e.cur.matches) == 0:
		e.cur.cursor = -1
	case e.cur.cursor >= 0:
		e.cur.cursor -= dropped
		if e.cur.cursor < 0 {
			e.cur.cursor = 0
		}
	}
}

// Next moves the cursor forward, wrapping at the end. It returns the
// selected line and false when there are no matches.
func (e *Engine) Next() (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.cur.matches)
	if n == 0 {
		return 0, false
	}
	e.cur.cursor = (e.cur.cursor + 1) % n
	return e.cur.matches[e.cur.cursor], true
}

// Previous moves the cursor backward, wrapping at the start.
func (e *Engine) Previous() (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.cur.matches)
	if n == 0 {
		return 0, false
	}
	if e.cur.cursor < 0 {
		e.cur.cursor = 0
	}
	e.cur.cursor = (e.cur.cursor - 1 + n) % n
	return e.cur.matches[e.cur.cursor], true
}

// Seek places the cursor on the first match at or after seq, wrapping to
// the first match when there is none.
func (e *Engine) Seek(seq uint64) (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.cur.matches)
	if n == 0 {
		return 0, false
	}
	e.cur.cursor = 0
	for i, m := range e.cur.matches {
		if m >= seq {
			e.cur.cursor = i
			break
		}
	}
	return e.cur.matches[e.cur.cursor], true
}

// Cursor returns the cursor position and the number of matches. The
// position is -1 when there are no matches.
func (e *Engine) Cursor() (pos, count int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur.cursor, len(e.cur.matches)
}

// Current returns the line under the cursor.
func (e *Engine) Current() (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur.cursor < 0 || e.cur.cursor >= len(e.cur.matches) {
		return 0, false
	}
	return e.cur.matches[e.cur.cursor], true
}

func (e *Engine) Matches() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uint64(nil), e.cur.matches...)
}

// Query returns the active query and whether there is one.
func (e *Engine) Query() (Query, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur.query, e.cur.matcher != nil
}

// Matcher returns the compiled active query, for highlighting hits.
func (e *Engine) Matcher() rules.Matcher {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur.matcher
}
