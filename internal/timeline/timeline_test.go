package timeline

import (
	"errors"
	"testing"
	"time"

	"logscope/internal/events"
)

var base = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	ts := base.Add(d)
	return &ts
}

func TestIntensity(t *testing.T) {
	tests := []struct {
		c, m int
		want Level
	}{
		{0, 0, None},
		{3, 0, None},
		{0, 8, None},
		{1, 8, Low},
		{2, 8, Low},
		{3, 8, MediumLow},
		{4, 8, MediumLow},
		{5, 8, MediumHigh},
		{6, 8, MediumHigh},
		{7, 8, High},
		{8, 8, High},
		{1, 1, High},
		{1, 3, MediumLow},
	}
	for _, tt := range tests {
		if got := Intensity(tt.c, tt.m); got != tt.want {
			t.Errorf("Intensity(%d, %d) = %s, want %s", tt.c, tt.m, got, tt.want)
		}
	}
}

func TestBuildUniform(t *testing.T) {
	const total, n = 1000, 10
	ix := events.NewIndex([]string{"Tick"})
	for i := 0; i < total; i++ {
		ix.Add(uint64(i), at(time.Duration(i)*time.Second), []string{"Tick"})
	}
	tbl, err := Build(ix.Snapshot(), n)
	if err != nil {
		t.Fatal(err)
	}
	sum, busiest := 0, 0
	for _, c := range tbl.Counts[0] {
		if c < total/n-1 || c > total/n+1 {
			t.Errorf("bucket count %d outside %d±1", c, total/n)
		}
		sum += c
		if c > busiest {
			busiest = c
		}
	}
	if sum != total {
		t.Fatalf("sum = %d, want %d", sum, total)
	}
	if tbl.Max != busiest {
		t.Fatalf("Max = %d, busiest = %d", tbl.Max, busiest)
	}
	if !tbl.Start.Equal(base) || !tbl.End.Equal(base.Add(999*time.Second)) {
		t.Fatalf("range = %v..%v", tbl.Start, tbl.End)
	}
}

func TestBuildRowsAndMax(t *testing.T) {
	ix := events.NewIndex([]string{"Error", "Warn", "Idle"})
	ix.Add(0, at(0), []string{"Error"})
	ix.Add(1, at(10*time.Second), []string{"Warn"})
	ix.Add(2, at(11*time.Second), []string{"Warn"})
	ix.Add(3, nil, []string{"Error"})
	ix.Add(4, at(20*time.Second), []string{"Error", "Warn"})

	tbl, err := Build(ix.Snapshot(), 2)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]int{{1, 1}, {0, 3}, {0, 0}}
	for row := range want {
		for col := range want[row] {
			if tbl.Counts[row][col] != want[row][col] {
				t.Fatalf("counts = %v, want %v", tbl.Counts, want)
			}
		}
	}
	if tbl.Max != 3 {
		t.Fatalf("Max = %d", tbl.Max)
	}
	if tbl.Level(1, 1) != High || tbl.Level(0, 0) != MediumLow || tbl.Level(2, 0) != None {
		t.Fatal("unexpected levels")
	}
	if !tbl.BucketStart(1).Equal(base.Add(10 * time.Second)) {
		t.Fatalf("BucketStart(1) = %v", tbl.BucketStart(1))
	}
}

func TestBuildInsufficientRange(t *testing.T) {
	ix := events.NewIndex([]string{"A"})
	if _, err := Build(ix.Snapshot(), 5); !errors.Is(err, ErrInsufficientRange) {
		t.Fatalf("empty index: %v", err)
	}
	ix.Add(0, at(time.Minute), []string{"A"})
	ix.Add(1, at(time.Minute), []string{"A"})
	ix.Add(2, nil, []string{"A"})
	if _, err := Build(ix.Snapshot(), 5); !errors.Is(err, ErrInsufficientRange) {
		t.Fatalf("single timestamp: %v", err)
	}
	if _, err := Build(ix.Snapshot(), 0); err == nil {
		t.Fatal("expected error for zero buckets")
	}
}
