// Package export writes a selection of lines to disk.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"logscope/internal/model"
)

var ErrNoLines = errors.New("export: no lines to write")

// Entry is one exported line with the classification it was shown with.
type Entry struct {
	Line  model.Line
	Class model.Classification
}

type record struct {
	Seq      uint64     `json:"seq"`
	Source   string     `json:"source,omitempty"`
	TS       *time.Time `json:"ts,omitempty"`
	Events   []string   `json:"events,omitempty"`
	Critical bool       `json:"critical,omitempty"`
	Text     string     `json:"text"`
}

// Write picks the format from the file extension: .ndjson/.jsonl, .csv, or
// plain text otherwise.
func Write(path string, entries []Entry) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ndjson", ".jsonl":
		return WriteNDJSON(path, entries)
	case ".csv":
		return WriteCSV(path, entries)
	}
	return WriteText(path, entries)
}

// WriteText writes raw line text, one per line.
func WriteText(path string, entries []Entry) error {
	return writeFile(path, entries, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, e := range entries {
			if _, err := bw.WriteString(e.Line.Text); err != nil {
				return err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
		return bw.Flush()
	})
}

func WriteNDJSON(path string, entries []Entry) error {
	return writeFile(path, entries, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		enc := json.NewEncoder(bw)
		for _, e := range entries {
			if err := enc.Encode(toRecord(e)); err != nil {
				return err
			}
		}
		return bw.Flush()
	})
}

func WriteCSV(path string, entries []Entry) error {
	return writeFile(path, entries, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"seq", "ts", "source", "events", "critical", "text"}); err != nil {
			return err
		}
		for _, e := range entries {
			ts := ""
			if e.Line.Timestamp != nil {
				ts = e.Line.Timestamp.Format(time.RFC3339Nano)
			}
			row := []string{
				strconv.FormatUint(e.Line.Seq, 10),
				ts,
				e.Line.Source,
				strings.Join(e.Class.Events, "|"),
				strconv.FormatBool(e.Class.Critical),
				e.Line.Text,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func toRecord(e Entry) record {
	return record{
		Seq:      e.Line.Seq,
		Source:   e.Line.Source,
		TS:       e.Line.Timestamp,
		Events:   e.Class.Events,
		Critical: e.Class.Critical,
		Text:     e.Line.Text,
	}
}

func writeFile(path string, entries []Entry, body func(io.Writer) error) error {
	if len(entries) == 0 {
		return ErrNoLines
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := body(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
