package match

import (
	"reflect"
	"testing"

	"logscope/internal/filter"
	"logscope/internal/model"
	"logscope/internal/rules"
)

func compile(t *testing.T, d rules.Descriptions) *rules.RuleSet {
	t.Helper()
	rs, err := rules.NewCompiler().Compile(d)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return rs
}

type span struct{ start, end, rule int }

func spansOf(ss []model.Span) []span {
	out := make([]span, 0, len(ss))
	for _, s := range ss {
		out = append(out, span{s.Start, s.End, s.Rule})
	}
	return out
}

func TestHighlightsFirstRuleWins(t *testing.T) {
	rs := compile(t, rules.Descriptions{Highlights: []rules.HighlightDesc{
		{Pattern: "ERROR", CaseSensitive: true},
		{Pattern: "RROR-42", CaseSensitive: true},
		{Pattern: `\d+`, Regex: true},
	}})
	//            0123456789012
	text := "x ERROR-42 7"
	got := spansOf(Highlights(text, rs))
	want := []span{
		{2, 7, 0},   // ERROR
		{7, 10, 1},  // "-42" left over from RROR-42
		{11, 12, 2}, // 7; the 42 is already covered by rule 1
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("spans = %v, want %v", got, want)
	}
}

func TestHighlightsLaterRuleFillsGaps(t *testing.T) {
	rs := compile(t, rules.Descriptions{Highlights: []rules.HighlightDesc{
		{Pattern: "b", CaseSensitive: true},
		{Pattern: "abc", CaseSensitive: true},
	}})
	got := spansOf(Highlights("abc", rs))
	want := []span{{0, 1, 1}, {1, 2, 0}, {2, 3, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("spans = %v, want %v", got, want)
	}
}

func TestClassifyEvents(t *testing.T) {
	rs := compile(t, rules.Descriptions{Events: []rules.EventDesc{
		{Name: "Error", Pattern: " ERROR ", CaseSensitive: true, Critical: true},
		{Name: "Any", Pattern: "a", CaseSensitive: true},
		{Name: "Any", Pattern: "x", CaseSensitive: true},
	}})

	c := Classify("a ERROR x", rs)
	if !reflect.DeepEqual(c.Events, []string{"Error", "Any"}) {
		t.Errorf("events = %v", c.Events)
	}
	if !c.Critical {
		t.Error("expected critical")
	}
	if c.LineStyle == nil || *c.LineStyle != rs.Events[0].Style {
		t.Error("line style should come from the first triggered event")
	}

	c = Classify("a WARN z", rs)
	if !reflect.DeepEqual(c.Events, []string{"Any"}) || c.Critical {
		t.Errorf("unexpected classification %+v", c)
	}
	if c.Version != rs.Version {
		t.Errorf("version = %d, want %d", c.Version, rs.Version)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	rs := compile(t, rules.Descriptions{
		Highlights: []rules.HighlightDesc{{Pattern: "o"}, {Pattern: `l+`, Regex: true}},
		Events:     []rules.EventDesc{{Name: "Hello", Pattern: "hello"}},
		Filters:    []rules.FilterDesc{{Pattern: "world", Enabled: true}},
	})
	first := Classify("hello world", rs)
	for i := 0; i < 5; i++ {
		if got := Classify("hello world", rs); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestFilterHitsWithExpr(t *testing.T) {
	rs := compile(t, rules.Descriptions{
		Events: []rules.EventDesc{{Name: "Error", Pattern: "ERROR", Critical: true}},
		Filters: []rules.FilterDesc{
			{Pattern: "DEBUG", Mode: filter.Exclude, Enabled: true},
			{Expr: "critical && source == 'api.log'", Mode: filter.Include, Enabled: true},
		},
	})
	c := ClassifyLine(model.Line{Text: "boom ERROR", Source: "api.log"}, rs)
	if !reflect.DeepEqual(c.FilterHits, []bool{false, true}) {
		t.Errorf("hits = %v", c.FilterHits)
	}
	c = ClassifyLine(model.Line{Text: "boom ERROR", Source: "db.log"}, rs)
	if !reflect.DeepEqual(c.FilterHits, []bool{false, false}) {
		t.Errorf("hits = %v", c.FilterHits)
	}
}

func TestExcludeFilterVisibility(t *testing.T) {
	rs := compile(t, rules.Descriptions{Filters: []rules.FilterDesc{{Pattern: "DEBUG", Mode: filter.Exclude, Enabled: true, CaseSensitive: true}}})
	var got []bool
	for _, text := range []string{"DEBUG x", "INFO y"} {
		c := Classify(text, rs)
		got = append(got, filter.Visible(c.FilterHits, rs.FilterModes(), rs.InitialEnabled()))
	}
	if !reflect.DeepEqual(got, []bool{false, true}) {
		t.Fatalf("visibility = %v", got)
	}
}

func TestEventsHelper(t *testing.T) {
	rs := compile(t, rules.Descriptions{Events: []rules.EventDesc{
		{Name: "A", Pattern: "a"}, {Name: "A", Pattern: "b"}, {Name: "C", Pattern: "c"},
	}})
	if got := Events("abc", rs); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Fatalf("Events() = %v", got)
	}
	if got := Events("zzz", rs); got != nil {
		t.Fatalf("Events() = %v, want nil", got)
	}
}
