// Package events keeps the per-event occurrence log used by the timeline.
package events

import (
	"sort"
	"time"
)

// Occurrence is one triggered event on one line.
type Occurrence struct {
	Seq       uint64
	Timestamp *time.Time
}

// Index maps event names to occurrences ordered by sequence number. It is
// not safe for concurrent use; the store serializes access to it.
type Index struct {
	names  []string
	byName map[string][]Occurrence
}

func NewIndex(names []string) *Index {
	ix := &Index{byName: map[string][]Occurrence{}}
	ix.Reset(names)
	return ix
}

// Reset drops all occurrences and re-declares the tracked names, e.g. after
// a RuleSet install.
func (ix *Index) Reset(names []string) {
	ix.names = append([]string(nil), names...)
	ix.byName = make(map[string][]Occurrence, len(names))
	for _, n := range names {
		ix.byName[n] = nil
	}
}

// Add records the events triggered by line seq. Lines must be added in
// increasing seq order.
func (ix *Index) Add(seq uint64, ts *time.Time, names []string) {
	for _, n := range names {
		if _, ok := ix.byName[n]; !ok {
			ix.names = append(ix.names, n)
		}
		ix.byName[n] = append(ix.byName[n], Occurrence{Seq: seq, Timestamp: ts})
	}
}

// EvictBefore drops every occurrence with Seq < seq.
func (ix *Index) EvictBefore(seq uint64) int {
	dropped := 0
	for n, occ := range ix.byName {
		i := sort.Search(len(occ), func(i int) bool { return occ[i].Seq >= seq })
		if i == 0 {
			continue
		}
		dropped += i
		ix.byName[n] = occ[i:]
	}
	return dropped
}

// Names returns tracked event names in declaration order.
func (ix *Index) Names() []string {
	return append([]string(nil), ix.names...)
}

func (ix *Index) Occurrences(name string) []Occurrence {
	return append([]Occurrence(nil), ix.byName[name]...)
}

func (ix *Index) Count(name string) int { return len(ix.byName[name]) }

// Snapshot returns a deep copy that can be read without holding the store
// lock.
func (ix *Index) Snapshot() Snapshot {
	s := Snapshot{Names: ix.Names(), Occurrences: make(map[string][]Occurrence, len(ix.byName))}
	for n, occ := range ix.byName {
		s.Occurrences[n] = append([]Occurrence(nil), occ...)
	}
	return s
}

// Snapshot is an immutable copy of an Index.
type Snapshot struct {
	Names       []string
	Occurrences map[string][]Occurrence
}

// Merged returns all occurrences of all events ordered by sequence number,
// each tagged with its event name.
func (s Snapshot) Merged() []Named {
	var out []Named
	for _, n := range s.Names {
		for _, o := range s.Occurrences[n] {
			out = append(out, Named{Name: n, Occurrence: o})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

type Named struct {
	Name string
	Occurrence
}
