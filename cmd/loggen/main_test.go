package main

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"logscope/internal/parse"
)

func TestGeneratorLines(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	gen := newGenerator(rand.New(rand.NewSource(1)), func() time.Time { return at }, 0.5)
	p := parse.NewTimestampParser("")
	levels := map[string]int{}
	for i := 0; i < 200; i++ {
		line := gen()
		ts := p.Parse(line)
		if ts == nil || !ts.Equal(at) {
			t.Fatalf("line %q: timestamp %v", line, ts)
		}
		levels[strings.Fields(line)[1]]++
	}
	for _, l := range []string{"ERROR", "INFO"} {
		if levels[l] == 0 {
			t.Fatalf("no %s lines in %v", l, levels)
		}
	}
}

func TestWriteLinesCount(t *testing.T) {
	var buf bytes.Buffer
	n, err := writeLines(context.Background(), &buf, func() string { return "x" }, 0, 5)
	if err != nil || n != 5 {
		t.Fatalf("writeLines = %d, %v", n, err)
	}
	if buf.String() != "x\nx\nx\nx\nx\n" {
		t.Fatalf("output %q", buf.String())
	}
}

func TestWriteLinesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var buf bytes.Buffer
	n, err := writeLines(ctx, &buf, func() string { return "x" }, 1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 || strings.Count(buf.String(), "\n") != n {
		t.Fatalf("wrote %d lines, buffer %d bytes", n, buf.Len())
	}
}
