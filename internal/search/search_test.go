package search

import (
	"errors"
	"reflect"
	"testing"

	"logscope/internal/model"
	"logscope/internal/rules"
	"logscope/internal/store"
)

func newStore(t *testing.T, capacity int, texts ...string) *store.Store {
	t.Helper()
	rs, err := rules.NewCompiler().Compile(rules.Descriptions{})
	if err != nil {
		t.Fatal(err)
	}
	s := store.New(capacity, rs)
	for _, txt := range texts {
		s.Append(model.Line{Text: txt})
	}
	return s
}

func TestSearchLiteralAndRegex(t *testing.T) {
	s := newStore(t, 0, "GET /a 200", "get /b 500", "POST /c 500", "GET /d 404")
	e := NewEngine(s)

	tests := []struct {
		name string
		q    Query
		want []uint64
	}{
		{"literal ignores case", Query{Text: "get"}, []uint64{0, 1, 3}},
		{"literal case sensitive", Query{Text: "GET", CaseSensitive: true}, []uint64{0, 3}},
		{"regex", Query{Text: `\s5\d\d$`, Regex: true}, []uint64{1, 2}},
		{"no hits", Query{Text: "DELETE"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Search(tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Search() = %v, want %v", got, tt.want)
			}
			pos, count := e.Cursor()
			if count != len(tt.want) {
				t.Fatalf("count = %d", count)
			}
			if (count == 0) != (pos == -1) {
				t.Fatalf("cursor %d with %d matches", pos, count)
			}
		})
	}
}

func TestNextPreviousInverse(t *testing.T) {
	s := newStore(t, 0, "x", "y", "x", "x", "y", "x")
	e := NewEngine(s)
	if _, err := e.Search(Query{Text: "x"}); err != nil {
		t.Fatal(err)
	}
	_, count := e.Cursor()
	for i := 0; i < count; i++ {
		start, _ := e.Cursor()
		e.Next()
		e.Previous()
		if pos, _ := e.Cursor(); pos != start {
			t.Fatalf("next/previous from %d landed on %d", start, pos)
		}
		e.Next()
	}
}

func TestNavigationWraps(t *testing.T) {
	s := newStore(t, 0, "err", "ok", "err")
	e := NewEngine(s)
	if _, err := e.Search(Query{Text: "err"}); err != nil {
		t.Fatal(err)
	}
	if seq, _ := e.Next(); seq != 2 {
		t.Fatalf("Next() = %d", seq)
	}
	if seq, _ := e.Next(); seq != 0 {
		t.Fatalf("Next() should wrap to 0, got %d", seq)
	}
	if seq, _ := e.Previous(); seq != 2 {
		t.Fatalf("Previous() should wrap to 2, got %d", seq)
	}
}

func TestEmptyMatchesNavigationNoop(t *testing.T) {
	e := NewEngine(newStore(t, 0, "a", "b"))
	if _, err := e.Search(Query{Text: "zzz"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Next(); ok {
		t.Fatal("Next() on empty list should report false")
	}
	if _, ok := e.Previous(); ok {
		t.Fatal("Previous() on empty list should report false")
	}
	if pos, _ := e.Cursor(); pos != -1 {
		t.Fatalf("cursor = %d", pos)
	}
}

func TestInvalidRegexKeepsState(t *testing.T) {
	e := NewEngine(newStore(t, 0, "a1", "b2", "a3"))
	if _, err := e.Search(Query{Text: "a"}); err != nil {
		t.Fatal(err)
	}
	e.Next()
	before := e.Matches()
	pos, _ := e.Cursor()

	_, err := e.Search(Query{Text: "([", Regex: true})
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QueryError, got %v", err)
	}
	if got := e.Matches(); !reflect.DeepEqual(got, before) {
		t.Fatalf("matches changed to %v", got)
	}
	if p, _ := e.Cursor(); p != pos {
		t.Fatalf("cursor moved from %d to %d", pos, p)
	}
	if q, _ := e.Query(); q.Text != "a" {
		t.Fatalf("query replaced by %q", q.Text)
	}
	if _, err := e.Search(Query{}); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestAppendOnlyExtends(t *testing.T) {
	s := newStore(t, 0, "hit 1", "miss", "hit 2")
	e := NewEngine(s)
	s.AddObserver(e)
	if _, err := e.Search(Query{Text: "hit"}); err != nil {
		t.Fatal(err)
	}
	e.Next()
	pos, _ := e.Cursor()

	for _, txt := range []string{"miss", "hit 3", "miss", "hit 4"} {
		before := e.Matches()
		s.Append(model.Line{Text: txt})
		after := e.Matches()
		if !reflect.DeepEqual(after[:len(before)], before) {
			t.Fatalf("append reordered matches: %v -> %v", before, after)
		}
		if len(after) < len(before) || len(after) > len(before)+1 {
			t.Fatalf("append changed length %d -> %d", len(before), len(after))
		}
	}
	if got := e.Matches(); !reflect.DeepEqual(got, []uint64{0, 2, 4, 6}) {
		t.Fatalf("matches = %v", got)
	}
	if p, _ := e.Cursor(); p != pos {
		t.Fatalf("cursor moved from %d to %d", pos, p)
	}
}

func TestEvictionDropsStaleMatches(t *testing.T) {
	s := newStore(t, 4, "hit", "miss", "hit", "hit")
	e := NewEngine(s)
	s.AddObserver(e)
	if _, err := e.Search(Query{Text: "hit"}); err != nil {
		t.Fatal(err)
	}
	e.Next() // cursor on seq 2

	s.Append(model.Line{Text: "miss"}) // evicts seq 0
	s.Append(model.Line{Text: "hit"})  // evicts seq 1

	first, _ := s.Bounds()
	for _, m := range e.Matches() {
		if m < first {
			t.Fatalf("match %d below first retained line %d", m, first)
		}
	}
	if cur, ok := e.Current(); !ok || cur != 2 {
		t.Fatalf("Current() = %d, %v; want 2", cur, ok)
	}

	for i := 0; i < 4; i++ {
		s.Append(model.Line{Text: "miss"})
	}
	if _, count := e.Cursor(); count != 0 {
		t.Fatalf("count = %d after all hits evicted", count)
	}
	if pos, _ := e.Cursor(); pos != -1 {
		t.Fatalf("cursor = %d", pos)
	}
}

func TestBatchEvictionKeepsMatchesRetained(t *testing.T) {
	s := newStore(t, 2)
	e := NewEngine(s)
	s.AddObserver(e)
	if _, err := e.Search(Query{Text: "hit"}); err != nil {
		t.Fatal(err)
	}

	s.AppendBatch([]model.Line{{Text: "hit 0"}, {Text: "hit 1"}, {Text: "hit 2"}, {Text: "hit 3"}, {Text: "hit 4"}})
	if first, next := s.Bounds(); first != 3 || next != 5 {
		t.Fatalf("Bounds() = %d, %d", first, next)
	}
	if got := e.Matches(); !reflect.DeepEqual(got, []uint64{3, 4}) {
		t.Fatalf("matches = %v, want [3 4]", got)
	}
	if _, count := e.Cursor(); count != 2 {
		t.Fatalf("count = %d", count)
	}
}

func TestHistoryDeduplicates(t *testing.T) {
	e := NewEngine(newStore(t, 0, "a"))
	for _, txt := range []string{"a", "b", "a"} {
		if _, err := e.Search(Query{Text: txt}); err != nil {
			t.Fatal(err)
		}
	}
	got := e.History()
	want := []Query{{Text: "b"}, {Text: "a"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("History() = %v", got)
	}
}

// hookLines runs hook during the first scanned line.
type hookLines struct {
	*store.Store
	hook func()
}

func (h *hookLines) Each(lo, hi uint64, fn func(model.Line, model.Classification) bool) {
	h.Store.Each(lo, hi, func(l model.Line, c model.Classification) bool {
		if h.hook != nil {
			hook := h.hook
			h.hook = nil
			hook()
		}
		return fn(l, c)
	})
}

func TestSupersededScanDiscarded(t *testing.T) {
	src := &hookLines{Store: newStore(t, 0, "a", "b")}
	e := NewEngine(src)
	src.hook = func() { e.Clear() }

	if _, err := e.Search(Query{Text: "a"}); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if _, ok := e.Query(); ok {
		t.Fatal("superseded scan must not install its query")
	}
}

func TestHistoryNavigation(t *testing.T) {
	var h History
	if _, ok := h.Older(); ok {
		t.Fatal("empty history has nothing older")
	}
	h.Add(Query{Text: "a"})
	h.Add(Query{Text: "b"})
	h.Add(Query{Text: "c"})

	var got []string
	for i := 0; i < 4; i++ {
		q, _ := h.Older()
		got = append(got, q.Text)
	}
	if !reflect.DeepEqual(got, []string{"c", "b", "a", "a"}) {
		t.Fatalf("older walk = %v", got)
	}
	if q, ok := h.Newer(); !ok || q.Text != "b" {
		t.Fatalf("Newer() = %v, %v", q, ok)
	}
	h.Newer()
	if _, ok := h.Newer(); ok {
		t.Fatal("walking past the newest entry should report false")
	}
	h.Add(Query{Text: "a"})
	if items := h.Items(); len(items) != 3 || items[2].Text != "a" {
		t.Fatalf("items = %v", items)
	}
}
