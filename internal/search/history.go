package search

const maxHistory = 50

// History is a de-duplicated list of submitted queries with a navigation
// cursor that rests past the newest entry.
type History struct {
	items []Query
	pos   int
}

// Add records q as the newest entry, removing an earlier copy, and resets
// the cursor.
func (h *History) Add(q Query) {
	for i, it := range h.items {
		if it == q {
			h.items = append(h.items[:i], h.items[i+1:]...)
			break
		}
	}
	h.items = append(h.items, q)
	if len(h.items) > maxHistory {
		h.items = h.items[len(h.items)-maxHistory:]
	}
	h.pos = len(h.items)
}

func (h *History) Items() []Query { return append([]Query(nil), h.items...) }

func (h *History) Older() (Query, bool) {
	if h.pos == 0 {
		if len(h.items) == 0 {
			return Query{}, false
		}
		return h.items[0], true
	}
	h.pos--
	return h.items[h.pos], true
}

func (h *History) Newer() (Query, bool) {
	if h.pos < len(h.items) {
		h.pos++
	}
	if h.pos == len(h.items) {
		return Query{}, false
	}
	return h.items[h.pos], true
}

func (h *History) Reset() { h.pos = len(h.items) }
