package marks

import (
	"reflect"
	"testing"
)

func seqs(ms []Mark) []uint64 {
	var out []uint64
	for _, m := range ms {
		out = append(out, m.Seq)
	}
	return out
}

func TestToggleKeepsOrder(t *testing.T) {
	s := New()
	for _, seq := range []uint64{7, 2, 9, 4} {
		if !s.Toggle(seq, "") {
			t.Fatalf("Toggle(%d) should mark", seq)
		}
	}
	if got := seqs(s.All()); !reflect.DeepEqual(got, []uint64{2, 4, 7, 9}) {
		t.Fatalf("marks = %v", got)
	}
	if s.Toggle(4, "") {
		t.Fatal("second Toggle(4) should unmark")
	}
	if got := seqs(s.All()); !reflect.DeepEqual(got, []uint64{2, 7, 9}) {
		t.Fatalf("marks = %v", got)
	}
}

func TestNamedMarks(t *testing.T) {
	s := New()
	s.Toggle(3, "deploy")
	if m, ok := s.Get(3); !ok || m.Name != "deploy" {
		t.Fatalf("Get(3) = %+v, %v", m, ok)
	}
	if !s.Rename(3, "rollback") {
		t.Fatal("Rename on existing mark failed")
	}
	if s.Rename(4, "x") {
		t.Fatal("Rename on missing mark should fail")
	}
	if m, _ := s.Get(3); m.Name != "rollback" {
		t.Fatalf("name = %q", m.Name)
	}
}

func TestNextPrevWrap(t *testing.T) {
	s := New()
	if _, ok := s.Next(0); ok {
		t.Fatal("Next on empty set")
	}
	for _, seq := range []uint64{10, 20, 30} {
		s.Toggle(seq, "")
	}
	tests := []struct {
		from       uint64
		next, prev uint64
	}{
		{0, 10, 30},
		{10, 20, 30},
		{15, 20, 10},
		{30, 10, 20},
		{99, 10, 30},
	}
	for _, tt := range tests {
		if m, _ := s.Next(tt.from); m.Seq != tt.next {
			t.Errorf("Next(%d) = %d, want %d", tt.from, m.Seq, tt.next)
		}
		if m, _ := s.Prev(tt.from); m.Seq != tt.prev {
			t.Errorf("Prev(%d) = %d, want %d", tt.from, m.Seq, tt.prev)
		}
	}
}

func TestEvictionDropsMarks(t *testing.T) {
	s := New()
	for _, seq := range []uint64{1, 5, 8} {
		s.Toggle(seq, "")
	}
	s.LinesEvicted(5)
	if got := seqs(s.All()); !reflect.DeepEqual(got, []uint64{5, 8}) {
		t.Fatalf("marks = %v", got)
	}
	s.LinesEvicted(100)
	if s.Len() != 0 {
		t.Fatalf("Len() = %d", s.Len())
	}
}
