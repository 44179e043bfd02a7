// Package store holds the ingested lines, their cached classifications and
// the event index. It is the single shared mutable resource of a session:
// appends, evictions and RuleSet installs are serialized here, readers take
// consistent snapshots.
package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"logscope/internal/events"
	"logscope/internal/filter"
	"logscope/internal/match"
	"logscope/internal/model"
	"logscope/internal/rules"
	"logscope/internal/util/logx"
)

// Observer is notified of buffer changes while the store's write lock is
// held. Implementations must not call back into the Store.
type Observer interface {
	// LinesAppended receives newly stored lines in sequence order.
	LinesAppended(lines []model.Line)
	// LinesEvicted reports that every line with Seq < first was dropped.
	LinesEvicted(first uint64)
}

type entry struct {
	line model.Line
	cls  atomic.Pointer[model.Classification]
}

// Store is an append-only line buffer with optional oldest-first eviction.
type Store struct {
	mu       sync.RWMutex
	buf      []*entry
	start    int
	size     int
	capacity int // 0 = unbounded
	first    uint64
	next     uint64

	rules     atomic.Pointer[rules.RuleSet]
	filters   *filter.State
	index     *events.Index
	observers []Observer
}

// New returns an empty store. capacity <= 0 keeps every line.
func New(capacity int, rs *rules.RuleSet) *Store {
	if rs == nil {
		panic("store: nil RuleSet")
	}
	if capacity < 0 {
		capacity = 0
	}
	s := &Store{
		capacity: capacity,
		filters:  filter.NewState(rs.InitialEnabled()),
		index:    events.NewIndex(rs.EventNames()),
	}
	if capacity > 0 {
		s.buf = make([]*entry, capacity)
	}
	s.rules.Store(rs)
	return s
}

func (s *Store) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// RuleSet returns the currently installed rule set.
func (s *Store) RuleSet() *rules.RuleSet { return s.rules.Load() }

// Filters exposes the enabled flags of the current filter stack.
func (s *Store) Filters() *filter.State { return s.filters }

// Append stores l under the next sequence number and returns it with Seq set.
func (s *Store) Append(l model.Line) model.Line {
	return s.AppendBatch([]model.Line{l})[0]
}

// AppendBatch stores lines in order. Classification runs before the write
// lock is taken; a RuleSet swapped in meanwhile is picked up lazily on read.
func (s *Store) AppendBatch(lines []model.Line) []model.Line {
	if len(lines) == 0 {
		return nil
	}
	rs := s.rules.Load()
	entries := make([]*entry, len(lines))
	for i, l := range lines {
		e := &entry{line: l}
		c := match.ClassifyLine(l, rs)
		e.cls.Store(&c)
		entries[i] = e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.rules.Load()
	out := make([]model.Line, len(lines))
	evicted := false
	for i, e := range entries {
		e.line.Seq = s.next
		s.next++
		if s.push(e) {
			evicted = true
		}
		out[i] = e.line
		names := e.cls.Load().Events
		if cur != rs {
			names = match.Events(e.line.Text, cur)
		}
		if len(names) > 0 {
			s.index.Add(e.line.Seq, e.line.Timestamp, names)
		}
	}
	if evicted {
		s.index.EvictBefore(s.first)
		for _, o := range s.observers {
			o.LinesEvicted(s.first)
		}
	}
	// Lines evicted within this batch are never reported as appended.
	kept := out
	for len(kept) > 0 && kept[0].Seq < s.first {
		kept = kept[1:]
	}
	if len(kept) > 0 {
		for _, o := range s.observers {
			o.LinesAppended(kept)
		}
	}
	return out
}

// push inserts e and reports whether the oldest line was dropped.
func (s *Store) push(e *entry) bool {
	if s.capacity == 0 {
		s.buf = append(s.buf, e)
		s.size++
		return false
	}
	if s.size < s.capacity {
		s.buf[(s.start+s.size)%s.capacity] = e
		s.size++
		return false
	}
	s.buf[s.start] = e
	s.start = (s.start + 1) % s.capacity
	s.first++
	return true
}

func (s *Store) at(i int) *entry {
	if s.capacity == 0 {
		return s.buf[i]
	}
	return s.buf[(s.start+i)%s.capacity]
}

func (s *Store) lookup(seq uint64) *entry {
	if seq < s.first || seq >= s.next {
		return nil
	}
	return s.at(int(seq - s.first))
}

// Bounds returns the retained sequence range [first, next).
func (s *Store) Bounds() (first, next uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.first, s.next
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *Store) Get(seq uint64) (model.Line, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.lookup(seq)
	if e == nil {
		return model.Line{}, false
	}
	return e.line, true
}

// Classified returns the line and its classification under the current
// RuleSet, recomputing a stale cache entry.
func (s *Store) Classified(seq uint64) (model.Line, model.Classification, bool) {
	s.mu.RLock()
	e := s.lookup(seq)
	s.mu.RUnlock()
	if e == nil {
		return model.Line{}, model.Classification{}, false
	}
	return e.line, s.classify(e, s.rules.Load()), true
}

func (s *Store) classify(e *entry, rs *rules.RuleSet) model.Classification {
	c := e.cls.Load()
	if c != nil && c.Version == rs.Version {
		return *c
	}
	if c != nil && c.Version > rs.Version {
		if cur := s.rules.Load(); c.Version > cur.Version {
			panic(fmt.Sprintf("store: classification version %d ahead of installed rule set %d", c.Version, cur.Version))
		}
		// rs was replaced while the caller was still using it
		return match.ClassifyLine(e.line, rs)
	}
	nc := match.ClassifyLine(e.line, rs)
	e.cls.CompareAndSwap(c, &nc)
	return nc
}

const chunk = 4096

// Each visits retained lines in [lo, hi) in order until fn returns false.
// Lines are copied out in chunks so no lock is held across fn; lines evicted
// during the walk are skipped.
func (s *Store) Each(lo, hi uint64, fn func(model.Line, model.Classification) bool) {
	rs := s.rules.Load()
	var batch []*entry
	for lo < hi {
		batch = batch[:0]
		s.mu.RLock()
		if lo < s.first {
			lo = s.first
		}
		if hi > s.next {
			hi = s.next
		}
		for seq := lo; seq < hi && len(batch) < chunk; seq++ {
			batch = append(batch, s.at(int(seq-s.first)))
		}
		s.mu.RUnlock()
		if len(batch) == 0 {
			return
		}
		for _, e := range batch {
			if !fn(e.line, s.classify(e, rs)) {
				return
			}
		}
		lo += uint64(len(batch))
	}
}

// Visible reports whether line seq passes the enabled filter stack and the
// time range.
func (s *Store) Visible(seq uint64) bool {
	l, c, ok := s.Classified(seq)
	if !ok {
		return false
	}
	return s.filters.Range().Contains(l.Timestamp) &&
		filter.Visible(c.FilterHits, s.rules.Load().FilterModes(), s.filters.Snapshot())
}

// VisibleSeqs returns the sequence numbers of visible lines in [lo, hi).
// Filter hits are cached per line, so a toggle only costs this linear pass.
func (s *Store) VisibleSeqs(lo, hi uint64) []uint64 {
	modes := s.rules.Load().FilterModes()
	enabled := s.filters.Snapshot()
	rng := s.filters.Range()
	var out []uint64
	s.Each(lo, hi, func(l model.Line, c model.Classification) bool {
		if rng.Contains(l.Timestamp) && filter.Visible(c.FilterHits, modes, enabled) {
			out = append(out, l.Seq)
		}
		return true
	})
	return out
}

// Events returns a copy of the event index.
func (s *Store) Events() events.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Snapshot()
}

// Install swaps in rs. Cached classifications become stale and are
// recomputed on read; the event index is rebuilt before Install returns.
// Filters that survive unchanged keep their enabled flag.
func (s *Store) Install(rs *rules.RuleSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.rules.Load()
	if rs.Version <= prev.Version {
		panic(fmt.Sprintf("store: installing rule set version %d over %d", rs.Version, prev.Version))
	}
	enabled := carryEnabled(prev, s.filters.Snapshot(), rs)
	s.rules.Store(rs)
	s.filters.Reset(enabled)

	s.index.Reset(rs.EventNames())
	n := 0
	for i := 0; i < s.size; i++ {
		e := s.at(i)
		if names := match.Events(e.line.Text, rs); len(names) > 0 {
			s.index.Add(e.line.Seq, e.line.Timestamp, names)
			n++
		}
	}
	logx.Debugf("store: installed rules v%d, %d of %d lines trigger events", rs.Version, n, s.size)
}

func filterKey(f rules.Filter) string {
	expr := ""
	if f.Expr != nil {
		expr = f.Expr.String()
	}
	return fmt.Sprintf("%s\x00%t\x00%t\x00%s\x00%s\x00%t", f.Pattern, f.Regex, f.CaseSensitive, f.Mode, expr, f.Enabled)
}

func carryEnabled(prev *rules.RuleSet, prevEnabled []bool, next *rules.RuleSet) []bool {
	enabled := next.InitialEnabled()
	old := make(map[string][]bool, len(prev.Filters))
	for i, f := range prev.Filters {
		if i < len(prevEnabled) {
			k := filterKey(f)
			old[k] = append(old[k], prevEnabled[i])
		}
	}
	for i, f := range next.Filters {
		k := filterKey(f)
		if q := old[k]; len(q) > 0 {
			enabled[i] = q[0]
			old[k] = q[1:]
		}
	}
	return enabled
}
