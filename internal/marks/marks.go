// Package marks keeps user bookmarks on lines.
package marks

import (
	"sort"
	"sync"

	"logscope/internal/model"
)

type Mark struct {
	Seq  uint64
	Name string
}

// Set is an ordered set of marks. It observes the store so that marks on
// evicted lines disappear.
type Set struct {
	mu    sync.RWMutex
	marks []Mark
}

func New() *Set { return &Set{} }

func (s *Set) find(seq uint64) (int, bool) {
	i := sort.Search(len(s.marks), func(i int) bool { return s.marks[i].Seq >= seq })
	return i, i < len(s.marks) && s.marks[i].Seq == seq
}

// Toggle marks seq, or unmarks it if already marked. It reports whether the
// line is marked afterwards.
func (s *Set) Toggle(seq uint64, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(seq)
	if ok {
		s.marks = append(s.marks[:i], s.marks[i+1:]...)
		return false
	}
	s.marks = append(s.marks, Mark{})
	copy(s.marks[i+1:], s.marks[i:])
	s.marks[i] = Mark{Seq: seq, Name: name}
	return true
}

// Rename sets the name of an existing mark.
func (s *Set) Rename(seq uint64, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(seq)
	if ok {
		s.marks[i].Name = name
	}
	return ok
}

func (s *Set) Get(seq uint64) (Mark, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.find(seq); ok {
		return s.marks[i], true
	}
	return Mark{}, false
}

// Next returns the first mark after seq, wrapping to the first mark.
func (s *Set) Next(seq uint64) (Mark, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.marks) == 0 {
		return Mark{}, false
	}
	i := sort.Search(len(s.marks), func(i int) bool { return s.marks[i].Seq > seq })
	if i == len(s.marks) {
		i = 0
	}
	return s.marks[i], true
}

// Prev returns the last mark before seq, wrapping to the last mark.
func (s *Set) Prev(seq uint64) (Mark, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.marks) == 0 {
		return Mark{}, false
	}
	i := sort.Search(len(s.marks), func(i int) bool { return s.marks[i].Seq >= seq }) - 1
	if i < 0 {
		i = len(s.marks) - 1
	}
	return s.marks[i], true
}

func (s *Set) All() []Mark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Mark(nil), s.marks...)
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.marks)
}

func (s *Set) LinesAppended([]model.Line) {}

// LinesEvicted drops marks on lines below first.
func (s *Set) LinesEvicted(first uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, _ := s.find(first)
	s.marks = s.marks[i:]
}
