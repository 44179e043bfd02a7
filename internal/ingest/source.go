package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nxadm/tail"
)

type Kind string

const (
	KindFile   Kind = "file"
	KindStream Kind = "stream"
	KindFollow Kind = "follow"
)

// Sink receives what a source reads. Calls come from the source's own
// goroutine.
type Sink interface {
	// Emit delivers complete lines in arrival order.
	Emit(lines []string)
	// Consumed counts raw bytes read.
	Consumed(n int)
	// Warn reports a problem that does not stop the source.
	Warn(err error)
}

// Source is one ingestion input. Read blocks until the input is exhausted,
// ctx is cancelled or a fatal error occurs; reaching the end of input is not
// an error.
type Source interface {
	ID() string
	Kind() Kind
	Read(ctx context.Context, sink Sink) error
}

const readChunk = 64 << 10

// FileSource reads a static file up to EOF.
type FileSource struct {
	Path string
}

func (s *FileSource) ID() string { return s.Path }
func (s *FileSource) Kind() Kind { return KindFile }

func (s *FileSource) Read(ctx context.Context, sink Sink) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	var sp splitter
	buf := make([]byte, readChunk)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := f.Read(buf)
		if n > 0 {
			sink.Consumed(n)
			if lines := sp.feed(buf[:n]); len(lines) > 0 {
				sink.Emit(lines)
			}
		}
		if errors.Is(err, io.EOF) {
			if line, ok := sp.flush(); ok {
				sink.Emit([]string{line})
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// StreamSource reads a live byte stream such as piped stdin. It reaches the
// end only when the writer closes the stream. With SavePath set, every raw
// byte is also appended to that file by a separate goroutine.
type StreamSource struct {
	Name     string
	Reader   io.Reader
	SavePath string
}

func (s *StreamSource) ID() string {
	if s.Name == "" {
		return "stdin"
	}
	return s.Name
}

func (s *StreamSource) Kind() Kind { return KindStream }

func (s *StreamSource) Read(ctx context.Context, sink Sink) error {
	var m *mirror
	if s.SavePath != "" {
		var err error
		if m, err = openMirror(s.SavePath, sink.Warn); err != nil {
			sink.Warn(fmt.Errorf("save %s: %w", s.SavePath, err))
		} else {
			defer m.close()
		}
	}

	chunks := make(chan []byte)
	done := make(chan error, 1)
	go func() {
		buf := make([]byte, readChunk)
		for {
			n, err := s.Reader.Read(buf)
			if n > 0 {
				select {
				case chunks <- append([]byte(nil), buf[:n]...):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				done <- err
				return
			}
		}
	}()

	var sp splitter
	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-chunks:
			if m != nil {
				m.write(b)
			}
			sink.Consumed(len(b))
			if lines := sp.feed(b); len(lines) > 0 {
				sink.Emit(lines)
			}
		case err := <-done:
			if line, ok := sp.flush(); ok {
				sink.Emit([]string{line})
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// FollowSource tails a file that keeps growing, like tail -F. It survives
// truncation and rotation and only ends when ctx is cancelled.
type FollowSource struct {
	Path string
	// FromEnd skips the existing content.
	FromEnd bool
	// Poll uses stat polling instead of inotify.
	Poll bool
}

func (s *FollowSource) ID() string { return s.Path }
func (s *FollowSource) Kind() Kind { return KindFollow }

const followBatch = 512

func (s *FollowSource) Read(ctx context.Context, sink Sink) error {
	cfg := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      s.Poll,
		Logger:    tail.DiscardingLogger,
	}
	if s.FromEnd {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}
	t, err := tail.TailFile(s.Path, cfg)
	if err != nil {
		return err
	}
	defer t.Cleanup()

	batch := make([]string, 0, followBatch)
	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return nil
		case l, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			batch = s.collect(batch[:0], l, sink)
		drain:
			for len(batch) < followBatch {
				select {
				case l, ok := <-t.Lines:
					if !ok {
						break drain
					}
					batch = s.collect(batch, l, sink)
				default:
					break drain
				}
			}
			if len(batch) > 0 {
				sink.Emit(append([]string(nil), batch...))
			}
		}
	}
}

func (s *FollowSource) collect(batch []string, l *tail.Line, sink Sink) []string {
	if l.Err != nil {
		sink.Warn(fmt.Errorf("follow %s: %w", s.Path, l.Err))
		return batch
	}
	sink.Consumed(len(l.Text) + 1)
	return append(batch, l.Text)
}
