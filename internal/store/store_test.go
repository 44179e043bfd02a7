package store

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"logscope/internal/events"
	"logscope/internal/filter"
	"logscope/internal/model"
	"logscope/internal/rules"
)

func compile(t *testing.T, c *rules.Compiler, d rules.Descriptions) *rules.RuleSet {
	t.Helper()
	rs, err := c.Compile(d)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return rs
}

func appendTexts(s *Store, texts ...string) {
	for _, txt := range texts {
		s.Append(model.Line{Text: txt})
	}
}

type recorder struct {
	mu       sync.Mutex
	appended []uint64
	evicted  []uint64
}

func (r *recorder) LinesAppended(lines []model.Line) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range lines {
		r.appended = append(r.appended, l.Seq)
	}
}

func (r *recorder) LinesEvicted(first uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evicted = append(r.evicted, first)
}

func TestAppendAssignsSequence(t *testing.T) {
	s := New(0, compile(t, rules.NewCompiler(), rules.Descriptions{}))
	rec := &recorder{}
	s.AddObserver(rec)

	a := s.Append(model.Line{Text: "one"})
	batch := s.AppendBatch([]model.Line{{Text: "two"}, {Text: "three"}})
	if a.Seq != 0 || batch[0].Seq != 1 || batch[1].Seq != 2 {
		t.Fatalf("unexpected seqs: %d %d %d", a.Seq, batch[0].Seq, batch[1].Seq)
	}
	if first, next := s.Bounds(); first != 0 || next != 3 {
		t.Fatalf("Bounds() = %d, %d", first, next)
	}
	if l, ok := s.Get(1); !ok || l.Text != "two" {
		t.Fatalf("Get(1) = %+v, %v", l, ok)
	}
	if _, ok := s.Get(3); ok {
		t.Fatal("Get past the end should fail")
	}
	if !reflect.DeepEqual(rec.appended, []uint64{0, 1, 2}) {
		t.Fatalf("observer saw %v", rec.appended)
	}
}

func TestEvictionOldestFirst(t *testing.T) {
	c := rules.NewCompiler()
	rs := compile(t, c, rules.Descriptions{Events: []rules.EventDesc{{Name: "Error", Pattern: "ERROR"}}})
	s := New(3, rs)
	rec := &recorder{}
	s.AddObserver(rec)

	appendTexts(s, "ERROR a", "ok", "ERROR b", "ok", "ok")
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	first, next := s.Bounds()
	if first != 2 || next != 5 {
		t.Fatalf("Bounds() = %d, %d", first, next)
	}
	if _, ok := s.Get(1); ok {
		t.Fatal("evicted line still readable")
	}
	if l, ok := s.Get(first); !ok || l.Text != "ERROR b" {
		t.Fatalf("Get(%d) = %+v, %v", first, l, ok)
	}
	for _, o := range s.Events().Occurrences["Error"] {
		if o.Seq < first {
			t.Errorf("index references evicted seq %d", o.Seq)
		}
	}
	if !reflect.DeepEqual(rec.evicted, []uint64{1, 2}) {
		t.Fatalf("evictions = %v", rec.evicted)
	}
}

func TestBatchLargerThanCapacity(t *testing.T) {
	s := New(2, compile(t, rules.NewCompiler(), rules.Descriptions{}))
	rec := &recorder{}
	s.AddObserver(rec)

	out := s.AppendBatch([]model.Line{{Text: "hit 0"}, {Text: "hit 1"}, {Text: "hit 2"}, {Text: "hit 3"}, {Text: "hit 4"}})
	if len(out) != 5 || out[4].Seq != 4 {
		t.Fatalf("AppendBatch returned %+v", out)
	}
	if first, next := s.Bounds(); first != 3 || next != 5 {
		t.Fatalf("Bounds() = %d, %d", first, next)
	}
	if !reflect.DeepEqual(rec.appended, []uint64{3, 4}) {
		t.Fatalf("observer saw appended %v, want [3 4]", rec.appended)
	}
	if !reflect.DeepEqual(rec.evicted, []uint64{3}) {
		t.Fatalf("evictions = %v", rec.evicted)
	}
}

func TestEventIndexOnAppend(t *testing.T) {
	rs := compile(t, rules.NewCompiler(), rules.Descriptions{
		Events: []rules.EventDesc{{Name: "Error", Pattern: "ERROR", Critical: true}, {Name: "Warn", Pattern: "WARN"}},
	})
	s := New(0, rs)
	appendTexts(s, "a ERROR x", "b INFO y", "a WARN z")

	snap := s.Events()
	want := map[string][]events.Occurrence{
		"Error": {{Seq: 0}},
		"Warn":  {{Seq: 2}},
	}
	if !reflect.DeepEqual(snap.Occurrences, want) {
		t.Fatalf("occurrences = %+v", snap.Occurrences)
	}
	_, cls, ok := s.Classified(0)
	if !ok || !cls.Critical {
		t.Fatalf("line 0 should be critical: %+v", cls)
	}
}

func TestInstallRebuildsAndReclassifies(t *testing.T) {
	c := rules.NewCompiler()
	s := New(0, compile(t, c, rules.Descriptions{}))
	appendTexts(s, "disk full", "all good", "disk ok")

	if _, cls, _ := s.Classified(0); len(cls.Events) != 0 {
		t.Fatalf("no rules yet, got events %v", cls.Events)
	}
	rs := compile(t, c, rules.Descriptions{Events: []rules.EventDesc{{Name: "Disk", Pattern: "disk"}}})
	s.Install(rs)

	if got := s.Events().Occurrences["Disk"]; len(got) != 2 || got[0].Seq != 0 || got[1].Seq != 2 {
		t.Fatalf("rebuilt index = %+v", got)
	}
	_, cls, _ := s.Classified(2)
	if cls.Version != rs.Version || !cls.HasEvent("Disk") {
		t.Fatalf("stale classification: %+v", cls)
	}
}

func TestInstallOlderVersionPanics(t *testing.T) {
	c := rules.NewCompiler()
	old := compile(t, c, rules.Descriptions{})
	s := New(0, compile(t, c, rules.Descriptions{}))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	s.Install(old)
}

func TestVisibleSeqsFollowToggles(t *testing.T) {
	rs := compile(t, rules.NewCompiler(), rules.Descriptions{
		Filters: []rules.FilterDesc{
			{Pattern: "app", Mode: filter.Include, Enabled: true},
			{Pattern: "DEBUG", Mode: filter.Exclude, Enabled: true},
		},
	})
	s := New(0, rs)
	appendTexts(s, "app DEBUG x", "app INFO y", "db INFO z")

	if got := s.VisibleSeqs(0, 3); !reflect.DeepEqual(got, []uint64{1}) {
		t.Fatalf("visible = %v", got)
	}
	if _, err := s.Filters().Toggle(0); err != nil {
		t.Fatal(err)
	}
	if got := s.VisibleSeqs(0, 3); !reflect.DeepEqual(got, []uint64{1, 2}) {
		t.Fatalf("visible after disabling include = %v", got)
	}
	if s.Visible(0) {
		t.Fatal("DEBUG line should stay hidden")
	}
}

func TestVisibleSeqsTimeRange(t *testing.T) {
	s := New(0, compile(t, rules.NewCompiler(), rules.Descriptions{}))
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(min int) *time.Time {
		ts := base.Add(time.Duration(min) * time.Minute)
		return &ts
	}
	s.Append(model.Line{Text: "early", Timestamp: at(0)})
	s.Append(model.Line{Text: "no stamp"})
	s.Append(model.Line{Text: "inside", Timestamp: at(10)})
	s.Append(model.Line{Text: "late", Timestamp: at(30)})

	s.Filters().SetRange(filter.TimeRange{Start: at(5), End: at(20)})
	if got := s.VisibleSeqs(0, 4); !reflect.DeepEqual(got, []uint64{1, 2}) {
		t.Fatalf("visible in range = %v", got)
	}
	if s.Visible(0) || !s.Visible(1) {
		t.Fatal("Visible disagrees with VisibleSeqs")
	}
	s.Filters().SetRange(filter.TimeRange{})
	if got := s.VisibleSeqs(0, 4); len(got) != 4 {
		t.Fatalf("cleared range still hides lines: %v", got)
	}
}

func TestInstallKeepsUnchangedFilterToggles(t *testing.T) {
	c := rules.NewCompiler()
	d := rules.Descriptions{Filters: []rules.FilterDesc{{Pattern: "noise", Mode: filter.Exclude, Enabled: true}}}
	s := New(0, compile(t, c, d))
	if _, err := s.Filters().Toggle(0); err != nil {
		t.Fatal(err)
	}

	d.Filters = append(d.Filters, rules.FilterDesc{Pattern: "api", Enabled: true})
	s.Install(compile(t, c, d))
	if got := s.Filters().Snapshot(); !reflect.DeepEqual(got, []bool{false, true}) {
		t.Fatalf("enabled = %v", got)
	}
}

func TestEachStopsEarly(t *testing.T) {
	s := New(0, compile(t, rules.NewCompiler(), rules.Descriptions{}))
	appendTexts(s, "a", "b", "c", "d")
	var seen []string
	s.Each(1, 10, func(l model.Line, _ model.Classification) bool {
		seen = append(seen, l.Text)
		return len(seen) < 2
	})
	if !reflect.DeepEqual(seen, []string{"b", "c"}) {
		t.Fatalf("seen = %v", seen)
	}
}

func TestConcurrentAppendAndRead(t *testing.T) {
	s := New(100, compile(t, rules.NewCompiler(), rules.Descriptions{
		Highlights: []rules.HighlightDesc{{Pattern: "x"}},
	}))
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				s.Append(model.Line{Text: "x line"})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			first, next := s.Bounds()
			prev := int64(-1)
			s.Each(first, next, func(l model.Line, _ model.Classification) bool {
				if int64(l.Seq) <= prev {
					t.Errorf("out of order: %d after %d", l.Seq, prev)
				}
				prev = int64(l.Seq)
				return true
			})
		}
	}()
	wg.Wait()
	if _, next := s.Bounds(); next != 2000 {
		t.Fatalf("next = %d, want 2000", next)
	}
}
