// Package match applies a compiled RuleSet to a single line.
package match

import (
	"sort"

	"logscope/internal/filter"
	"logscope/internal/model"
	"logscope/internal/rules"
)

// Classify matches text against rs. It is pure: the same text and RuleSet
// always yield the same Classification.
func Classify(text string, rs *rules.RuleSet) model.Classification {
	return ClassifyLine(model.Line{Text: text}, rs)
}

// ClassifyLine is Classify with the line attributes that filter expressions
// can refer to.
func ClassifyLine(l model.Line, rs *rules.RuleSet) model.Classification {
	c := model.Classification{Version: rs.Version}
	c.Spans = Highlights(l.Text, rs)
	for _, ev := range rs.Events {
		if !ev.Matcher.Match(l.Text) {
			continue
		}
		if ev.Critical {
			c.Critical = true
		}
		if c.HasEvent(ev.Name) {
			continue
		}
		c.Events = append(c.Events, ev.Name)
		if c.LineStyle == nil {
			st := ev.Style
			c.LineStyle = &st
		}
	}
	c.FilterHits = FilterHits(l, len(c.Events), c.Critical, rs)
	return c
}

// Events returns only the triggered event names, for index rebuilds that do
// not need spans.
func Events(text string, rs *rules.RuleSet) []string {
	var out []string
	for _, ev := range rs.Events {
		if !ev.Matcher.Match(text) {
			continue
		}
		dup := false
		for _, n := range out {
			if n == ev.Name {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, ev.Name)
		}
	}
	return out
}

// FilterHits evaluates every filter rule, enabled or not.
func FilterHits(l model.Line, events int, critical bool, rs *rules.RuleSet) []bool {
	if len(rs.Filters) == 0 {
		return nil
	}
	hits := make([]bool, len(rs.Filters))
	var params *filter.Params
	for i, f := range rs.Filters {
		hit := f.Matcher.Match(l.Text)
		if hit && f.Expr != nil {
			if params == nil {
				params = &filter.Params{Line: l.Text, Source: l.Source, Critical: critical, Events: events, Timestamp: l.Timestamp}
			}
			hit = f.Expr.Match(*params)
		}
		hits[i] = hit
	}
	return hits
}

// Highlights computes highlight spans. Rules are applied in declaration
// order and an earlier rule keeps any region it already covers; a later
// rule only fills the gaps. The result is sorted by start offset.
func Highlights(text string, rs *rules.RuleSet) []model.Span {
	var spans []model.Span
	for ri, h := range rs.Highlights {
		for _, loc := range h.Matcher.FindAll(text) {
			spans = insertUncovered(spans, loc[0], loc[1], ri, h.Style)
		}
	}
	return spans
}

// insertUncovered adds the parts of [start, end) not covered by spans.
// spans is kept sorted and non-overlapping.
func insertUncovered(spans []model.Span, start, end, rule int, st model.Style) []model.Span {
	var add []model.Span
	cur := start
	for _, s := range spans {
		if s.End <= cur {
			continue
		}
		if s.Start >= end {
			break
		}
		if s.Start > cur {
			add = append(add, model.Span{Start: cur, End: s.Start, Rule: rule, Style: st})
		}
		if s.End > cur {
			cur = s.End
		}
		if cur >= end {
			break
		}
	}
	if cur < end {
		add = append(add, model.Span{Start: cur, End: end, Rule: rule, Style: st})
	}
	if len(add) == 0 {
		return spans
	}
	spans = append(spans, add...)
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}
