package events

import (
	"reflect"
	"testing"
	"time"
)

func seqs(occ []Occurrence) []uint64 {
	out := make([]uint64, 0, len(occ))
	for _, o := range occ {
		out = append(out, o.Seq)
	}
	return out
}

func TestIndexAddAndEvict(t *testing.T) {
	ix := NewIndex([]string{"Error", "Warn"})
	ts := time.Now()
	ix.Add(0, &ts, []string{"Error"})
	ix.Add(1, nil, []string{"Warn"})
	ix.Add(2, nil, []string{"Error", "Warn"})
	ix.Add(5, nil, []string{"Error"})

	if got := seqs(ix.Occurrences("Error")); !reflect.DeepEqual(got, []uint64{0, 2, 5}) {
		t.Fatalf("Error occurrences = %v", got)
	}
	if dropped := ix.EvictBefore(3); dropped != 4 {
		t.Fatalf("dropped = %d, want 4", dropped)
	}
	for _, n := range ix.Names() {
		for _, o := range ix.Occurrences(n) {
			if o.Seq < 3 {
				t.Errorf("%s still references seq %d", n, o.Seq)
			}
		}
	}
	if ix.Count("Error") != 1 || ix.Count("Warn") != 0 {
		t.Fatalf("counts after eviction: Error=%d Warn=%d", ix.Count("Error"), ix.Count("Warn"))
	}
}

func TestIndexResetAndUnknownNames(t *testing.T) {
	ix := NewIndex([]string{"A"})
	ix.Add(0, nil, []string{"B"})
	if got := ix.Names(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("Names() = %v", got)
	}
	ix.Reset([]string{"C"})
	if got := ix.Names(); !reflect.DeepEqual(got, []string{"C"}) {
		t.Fatalf("Names() after reset = %v", got)
	}
	if ix.Count("B") != 0 {
		t.Fatal("reset should drop occurrences")
	}
}

func TestSnapshotMerged(t *testing.T) {
	ix := NewIndex([]string{"A", "B"})
	ix.Add(1, nil, []string{"B"})
	ix.Add(2, nil, []string{"A", "B"})
	snap := ix.Snapshot()
	ix.Add(3, nil, []string{"A"})

	merged := snap.Merged()
	var got []string
	for _, m := range merged {
		got = append(got, m.Name)
	}
	if !reflect.DeepEqual(got, []string{"B", "A", "B"}) {
		t.Fatalf("merged = %v", got)
	}
	if len(snap.Occurrences["A"]) != 1 {
		t.Fatal("snapshot must not see later additions")
	}
}
