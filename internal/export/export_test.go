package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"logscope/internal/model"
)

func sample() []Entry {
	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return []Entry{
		{Line: model.Line{Seq: 4, Text: "a ERROR x", Source: "app.log", Timestamp: &ts}, Class: model.Classification{Events: []string{"Error"}, Critical: true}},
		{Line: model.Line{Seq: 9, Text: "b INFO y", Source: "app.log"}},
	}
}

func TestWriteText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	if err := Write(path, sample()); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "a ERROR x\nb INFO y\n" {
		t.Fatalf("content = %q", b)
	}
}

func TestWriteNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson")
	if err := Write(path, sample()); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var recs []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		recs = append(recs, m)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0]["seq"] != float64(4) || recs[0]["critical"] != true || recs[0]["ts"] != "2025-01-01T12:00:00Z" {
		t.Fatalf("record 0 = %v", recs[0])
	}
	if _, ok := recs[1]["ts"]; ok {
		t.Fatalf("record 1 should omit ts: %v", recs[1])
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := Write(path, sample()); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[1][3] != "Error" || rows[1][4] != "true" || rows[2][1] != "" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestWriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	if err := Write(path, nil); !errors.Is(err, ErrNoLines) {
		t.Fatalf("expected ErrNoLines, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("no file should be created for an empty selection")
	}
}
