// Package ingest reads files and live streams into the log store.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"logscope/internal/model"
	"logscope/internal/parse"
	"logscope/internal/util/logx"
)

type State int

const (
	Idle State = iota
	Reading
	EOF
	Failed
)

func (s State) String() string {
	switch s {
	case Reading:
		return "reading"
	case EOF:
		return "eof"
	case Failed:
		return "error"
	}
	return "idle"
}

// SourceError is a fatal error of one source. Other sources keep running.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string { return fmt.Sprintf("source %s: %v", e.Source, e.Err) }
func (e *SourceError) Unwrap() error { return e.Err }

// Status is a point-in-time view of one source.
type Status struct {
	ID    string
	Kind  Kind
	State State
	Lines uint64
	Bytes uint64
	Err   error
}

// Appender is the write side of the log store.
type Appender interface {
	AppendBatch(lines []model.Line) []model.Line
}

// Controller runs sources concurrently and appends their lines to a single
// store. Arrival order defines sequence numbers.
type Controller struct {
	dst    Appender
	parser *parse.TimestampParser

	mu     sync.Mutex
	status []*Status
}

func NewController(dst Appender, parser *parse.TimestampParser) *Controller {
	if parser == nil {
		parser = parse.NewTimestampParser("")
	}
	return &Controller{dst: dst, parser: parser}
}

// Start launches one goroutine per source. The returned channel carries
// SourceErrors and warnings and is closed once every source has stopped.
// It is buffered so that an unread channel never stalls ingestion.
func (c *Controller) Start(ctx context.Context, srcs ...Source) <-chan error {
	reports := make(chan error, 2*len(srcs)+8)
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range srcs {
		src := src
		idx := c.register(src)
		g.Go(func() error {
			c.run(gctx, idx, src, reports)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(reports)
	}()
	return reports
}

func (c *Controller) register(src Source) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = append(c.status, &Status{ID: src.ID(), Kind: src.Kind(), State: Idle})
	return len(c.status) - 1
}

func (c *Controller) setState(idx int, st State, err error) {
	c.mu.Lock()
	s := c.status[idx]
	s.State = st
	s.Err = err
	id := s.ID
	c.mu.Unlock()
	if err != nil {
		logx.Errorf("ingest: %s -> %s: %v", id, st, err)
		return
	}
	logx.Infof("ingest: %s -> %s", id, st)
}

func (c *Controller) run(ctx context.Context, idx int, src Source, reports chan<- error) {
	c.setState(idx, Reading, nil)
	sk := &sink{c: c, idx: idx, id: src.ID(), reports: reports}
	if err := src.Read(ctx, sk); err != nil {
		serr := &SourceError{Source: src.ID(), Err: err}
		c.setState(idx, Failed, serr)
		sk.report(serr)
		return
	}
	c.setState(idx, EOF, nil)
}

// Statuses returns the state of every source in start order.
func (c *Controller) Statuses() []Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Status, len(c.status))
	for i, s := range c.status {
		out[i] = *s
	}
	return out
}

// Active reports whether any source is still idle or reading.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.status {
		if s.State == Idle || s.State == Reading {
			return true
		}
	}
	return false
}

type sink struct {
	c       *Controller
	idx     int
	id      string
	reports chan<- error
}

func (s *sink) Emit(texts []string) {
	lines := make([]model.Line, len(texts))
	for i, t := range texts {
		lines[i] = model.Line{Text: t, Source: s.id, Timestamp: s.c.parser.Parse(t)}
	}
	s.c.dst.AppendBatch(lines)
	s.c.mu.Lock()
	s.c.status[s.idx].Lines += uint64(len(lines))
	s.c.mu.Unlock()
}

func (s *sink) Consumed(n int) {
	s.c.mu.Lock()
	s.c.status[s.idx].Bytes += uint64(n)
	s.c.mu.Unlock()
}

func (s *sink) Warn(err error) {
	logx.Warnf("ingest: %s: %v", s.id, err)
	s.report(err)
}

func (s *sink) report(err error) {
	select {
	case s.reports <- err:
	default:
		logx.Debugf("ingest: report channel full, dropped: %v", err)
	}
}
