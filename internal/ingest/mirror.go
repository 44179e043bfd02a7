package ingest

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// mirror appends raw stream bytes to a save file from its own goroutine.
// write never blocks on the file; after the first write error the mirror
// reports once and discards everything else.
type mirror struct {
	path string
	w    io.WriteCloser
	warn func(error)

	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]byte
	closed bool
	failed bool
	done   chan struct{}
}

func openMirror(path string, warn func(error)) (*mirror, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return newMirror(path, f, warn), nil
}

func newMirror(path string, w io.WriteCloser, warn func(error)) *mirror {
	m := &mirror{path: path, w: w, warn: warn, done: make(chan struct{})}
	m.cond = sync.NewCond(&m.mu)
	go m.loop()
	return m
}

func (m *mirror) write(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed || m.closed {
		return
	}
	m.queue = append(m.queue, b)
	m.cond.Signal()
}

func (m *mirror) loop() {
	defer close(m.done)
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.cond.Wait()
		}
		q := m.queue
		m.queue = nil
		closed := m.closed
		m.mu.Unlock()

		for _, b := range q {
			if _, err := m.w.Write(b); err != nil {
				m.mu.Lock()
				m.failed = true
				m.queue = nil
				m.mu.Unlock()
				m.warn(fmt.Errorf("save %s: %w", m.path, err))
				return
			}
		}
		if closed {
			return
		}
	}
}

// close flushes queued bytes and closes the file.
func (m *mirror) close() {
	m.mu.Lock()
	m.closed = true
	m.cond.Signal()
	m.mu.Unlock()
	<-m.done
	if err := m.w.Close(); err != nil && !m.failed {
		m.warn(fmt.Errorf("save %s: %w", m.path, err))
	}
}
