package rules

import (
	"strings"

	"logscope/internal/model"
)

// Palette is the ordered set of colours handed to highlight rules that do
// not name one.
var Palette = []model.Color{
	"lightred",
	"lightgreen",
	"lightyellow",
	"lightblue",
	"lightmagenta",
	"lightcyan",
	"red",
	"green",
	"yellow",
	"blue",
	"magenta",
	"cyan",
}

// assignColors walks highlight rules in order and gives each rule without an
// explicit foreground the next palette colour not claimed explicitly by
// another rule, cycling when the palette runs out. The result depends only
// on the rule list. Rules with an explicit colour get "".
func assignColors(hs []HighlightDesc) ([]model.Color, error) {
	claimed := map[model.Color]bool{}
	for i, h := range hs {
		if h.Style == nil {
			continue
		}
		c, err := model.ParseColor(h.Style.Fg)
		if err != nil {
			return nil, &RuleError{Kind: KindHighlight, Index: i, Pattern: h.Pattern, Err: err}
		}
		if !c.IsZero() {
			claimed[c] = true
		}
	}

	avail := make([]model.Color, 0, len(Palette))
	for _, c := range Palette {
		if !claimed[c] {
			avail = append(avail, c)
		}
	}
	if len(avail) == 0 {
		avail = Palette
	}

	out := make([]model.Color, len(hs))
	next := 0
	for i, h := range hs {
		if h.Style != nil && strings.TrimSpace(h.Style.Fg) != "" {
			continue
		}
		out[i] = avail[next%len(avail)]
		next++
	}
	return out, nil
}
