// Package timeline buckets event occurrences over time for the intensity
// view.
package timeline

import (
	"errors"
	"fmt"
	"time"

	"logscope/internal/events"
)

// ErrInsufficientRange is returned when fewer than two distinct event
// timestamps are known.
var ErrInsufficientRange = errors.New("timeline: need at least two distinct event timestamps")

type Level int

const (
	None Level = iota
	Low
	MediumLow
	MediumHigh
	High
)

func (l Level) String() string {
	switch l {
	case Low:
		return "low"
	case MediumLow:
		return "medium-low"
	case MediumHigh:
		return "medium-high"
	case High:
		return "high"
	}
	return "none"
}

// Intensity maps count c against the table maximum m onto quarter bands
// with inclusive upper bounds. Integer comparisons keep band edges exact.
func Intensity(c, m int) Level {
	switch {
	case m <= 0 || c <= 0:
		return None
	case 4*c <= m:
		return Low
	case 2*c <= m:
		return MediumLow
	case 4*c <= 3*m:
		return MediumHigh
	default:
		return High
	}
}

// Table is the bucketed view. Rows follow event declaration order.
type Table struct {
	Names   []string
	Counts  [][]int
	Max     int
	Start   time.Time
	End     time.Time
	Buckets int
}

func (t *Table) Level(row, col int) Level { return Intensity(t.Counts[row][col], t.Max) }

// Width is the time span covered by one bucket.
func (t *Table) Width() time.Duration { return t.End.Sub(t.Start) / time.Duration(t.Buckets) }

// BucketStart returns the lower bound of bucket i.
func (t *Table) BucketStart(i int) time.Time {
	return t.Start.Add(time.Duration(float64(t.End.Sub(t.Start)) * float64(i) / float64(t.Buckets)))
}

// Build buckets every timestamped occurrence in snap into n equal-width
// intervals spanning the earliest to the latest one. The latest timestamp
// falls into the last bucket.
func Build(snap events.Snapshot, n int) (*Table, error) {
	if n <= 0 {
		return nil, fmt.Errorf("timeline: bucket count must be positive, got %d", n)
	}
	var start, end time.Time
	seen := false
	for _, name := range snap.Names {
		for _, o := range snap.Occurrences[name] {
			if o.Timestamp == nil {
				continue
			}
			ts := *o.Timestamp
			if !seen {
				start, end, seen = ts, ts, true
				continue
			}
			if ts.Before(start) {
				start = ts
			}
			if ts.After(end) {
				end = ts
			}
		}
	}
	if !seen || !end.After(start) {
		return nil, ErrInsufficientRange
	}

	span := float64(end.Sub(start))
	t := &Table{
		Names:   append([]string(nil), snap.Names...),
		Counts:  make([][]int, len(snap.Names)),
		Start:   start,
		End:     end,
		Buckets: n,
	}
	for row, name := range snap.Names {
		counts := make([]int, n)
		for _, o := range snap.Occurrences[name] {
			if o.Timestamp == nil {
				continue
			}
			i := int(float64(o.Timestamp.Sub(start)) / span * float64(n))
			if i >= n {
				i = n - 1
			}
			counts[i]++
			if counts[i] > t.Max {
				t.Max = counts[i]
			}
		}
		t.Counts[row] = counts
	}
	return t, nil
}
