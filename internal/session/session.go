// Package session wires the store, search, marks, ingestion and rule
// reloading together behind the commands the viewer issues.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"logscope/internal/config"
	"logscope/internal/events"
	"logscope/internal/export"
	"logscope/internal/filter"
	"logscope/internal/ingest"
	"logscope/internal/marks"
	"logscope/internal/model"
	"logscope/internal/parse"
	"logscope/internal/rules"
	"logscope/internal/search"
	"logscope/internal/store"
	"logscope/internal/timeline"
	"logscope/internal/util/logx"
)

type Options struct {
	Capacity   int
	RulesPath  string
	TimeLayout string
	Buckets    int
}

// Row is one line prepared for display.
type Row struct {
	Line   model.Line
	Class  model.Classification
	Marked bool
	// Current is set on the line under the search cursor.
	Current bool
}

// FilterState describes one filter rule for the filter list.
type FilterState struct {
	Index   int
	Pattern string
	Expr    string
	Mode    filter.Mode
	Enabled bool
}

// EventState describes one event rule for the event list.
type EventState struct {
	Name    string
	Count   int
	Enabled bool
}

type visibleCache struct {
	version uint64
	gen     uint64
	next    uint64
	seqs    []uint64
}

type Session struct {
	opts     Options
	compiler *rules.Compiler
	store    *store.Store
	search   *search.Engine
	marks    *marks.Set
	ingest   *ingest.Controller
	parser   *parse.TimestampParser

	reloadMu sync.Mutex

	// Event names hidden from the timeline and event navigation. Kept by
	// name so the choice survives rule reloads.
	evMu     sync.Mutex
	evHidden map[string]bool

	visMu sync.Mutex
	vis   visibleCache
}

// New compiles d and builds an empty session. A bad rule is returned as a
// *rules.RuleError.
func New(opts Options, d rules.Descriptions) (*Session, error) {
	if opts.Buckets <= 0 {
		opts.Buckets = config.DefaultBuckets
	}
	c := rules.NewCompiler()
	rs, err := c.Compile(d)
	if err != nil {
		return nil, err
	}
	st := store.New(opts.Capacity, rs)
	s := &Session{
		opts:     opts,
		compiler: c,
		store:    st,
		search:   search.NewEngine(st),
		marks:    marks.New(),
		parser:   parse.NewTimestampParser(opts.TimeLayout),
		evHidden: map[string]bool{},
	}
	st.AddObserver(s.search)
	st.AddObserver(s.marks)
	s.ingest = ingest.NewController(st, s.parser)
	logx.Infof("session: rules v%d (%d highlights, %d events, %d filters), capacity=%d",
		rs.Version, len(rs.Highlights), len(rs.Events), len(rs.Filters), opts.Capacity)
	return s, nil
}

// Open loads the rule file named in opts and builds a session from it.
func Open(opts Options) (*Session, error) {
	d, err := config.LoadRules(opts.RulesPath)
	if err != nil {
		return nil, err
	}
	return New(opts, d)
}

func (s *Session) Store() *store.Store     { return s.store }
func (s *Session) Search() *search.Engine  { return s.search }
func (s *Session) Marks() *marks.Set       { return s.marks }
func (s *Session) RuleSet() *rules.RuleSet { return s.store.RuleSet() }
func (s *Session) Buckets() int            { return s.opts.Buckets }

// Ingest starts reading srcs. See ingest.Controller.Start.
func (s *Session) Ingest(ctx context.Context, srcs ...ingest.Source) <-chan error {
	return s.ingest.Start(ctx, srcs...)
}

func (s *Session) Sources() []ingest.Status { return s.ingest.Statuses() }

// Ingesting reports whether any source is still being read.
func (s *Session) Ingesting() bool { return s.ingest.Active() }

// Append adds a line directly, bypassing the ingestion controller. The
// timestamp is parsed the same way ingestion does.
func (s *Session) Append(text, source string) model.Line {
	return s.store.Append(model.Line{Text: text, Source: source, Timestamp: s.parser.Parse(text)})
}

// InstallRules compiles d and installs it. On failure the previous rules
// stay active.
func (s *Session) InstallRules(d rules.Descriptions) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	rs, err := s.compiler.Compile(d)
	if err != nil {
		logx.Warnf("session: rules rejected, keeping v%d: %v", s.store.RuleSet().Version, err)
		return err
	}
	s.store.Install(rs)
	logx.Infof("session: installed rules v%d (%d highlights, %d events, %d filters)",
		rs.Version, len(rs.Highlights), len(rs.Events), len(rs.Filters))
	return nil
}

// ReloadRules re-reads the rule file and installs it.
func (s *Session) ReloadRules() error {
	d, err := config.LoadRules(s.opts.RulesPath)
	if err != nil {
		logx.Warnf("session: reload %s: %v", s.opts.RulesPath, err)
		return err
	}
	return s.InstallRules(d)
}

// WatchRules reloads the rule file whenever it changes. onReload, if set,
// receives the outcome of each reload.
func (s *Session) WatchRules(ctx context.Context, onReload func(error)) error {
	if s.opts.RulesPath == "" {
		return errors.New("no rule file to watch")
	}
	return config.Watch(ctx, s.opts.RulesPath, func() {
		err := s.ReloadRules()
		if onReload != nil {
			onReload(err)
		}
	})
}

func (s *Session) ToggleFilter(i int) (bool, error) {
	on, err := s.store.Filters().Toggle(i)
	if err == nil {
		logx.Debugf("session: filter %d enabled=%v", i, on)
	}
	return on, err
}

func (s *Session) SetFilter(i int, on bool) error { return s.store.Filters().Set(i, on) }

// SetTimeRange hides timestamped lines outside r. Lines without a timestamp
// stay visible.
func (s *Session) SetTimeRange(r filter.TimeRange) {
	s.store.Filters().SetRange(r)
	if r.IsZero() {
		logx.Debugf("session: time range cleared")
		return
	}
	logx.Debugf("session: time range %s", r)
}

func (s *Session) TimeRange() filter.TimeRange { return s.store.Filters().Range() }

func (s *Session) Filters() []FilterState {
	rs := s.store.RuleSet()
	enabled := s.store.Filters().Snapshot()
	out := make([]FilterState, len(rs.Filters))
	for i, f := range rs.Filters {
		fs := FilterState{Index: i, Pattern: f.Pattern, Mode: f.Mode}
		if f.Expr != nil {
			fs.Expr = f.Expr.String()
		}
		if i < len(enabled) {
			fs.Enabled = enabled[i]
		}
		out[i] = fs
	}
	return out
}

// VisibleSeqs returns the sequence numbers of lines passing the filters and
// the time range.
// The list is extended incrementally while neither the rules nor the filter
// toggles change. Callers must not modify it.
func (s *Session) VisibleSeqs() []uint64 {
	s.visMu.Lock()
	defer s.visMu.Unlock()
	rs := s.store.RuleSet()
	gen := s.store.Filters().Generation()
	first, next := s.store.Bounds()
	if s.vis.version != rs.Version || s.vis.gen != gen {
		s.vis = visibleCache{version: rs.Version, gen: gen, next: first}
	}
	if s.vis.next < first {
		s.vis.next = first
	}
	i := 0
	for i < len(s.vis.seqs) && s.vis.seqs[i] < first {
		i++
	}
	s.vis.seqs = s.vis.seqs[i:]
	if s.vis.next < next {
		s.vis.seqs = append(s.vis.seqs, s.store.VisibleSeqs(s.vis.next, next)...)
		s.vis.next = next
	}
	return s.vis.seqs
}

// Rows resolves seqs into display rows. Evicted lines are skipped.
func (s *Session) Rows(seqs []uint64) []Row {
	cur, hasCur := s.search.Current()
	out := make([]Row, 0, len(seqs))
	for _, seq := range seqs {
		l, c, ok := s.store.Classified(seq)
		if !ok {
			continue
		}
		_, marked := s.marks.Get(seq)
		out = append(out, Row{Line: l, Class: c, Marked: marked, Current: hasCur && cur == seq})
	}
	return out
}

// SetQuery runs a search and returns the number of matches.
func (s *Session) SetQuery(q search.Query) (int, error) {
	matches, err := s.search.Search(q)
	if err != nil {
		var qe *search.QueryError
		if errors.As(err, &qe) {
			logx.Warnf("session: %v", err)
		}
		return 0, err
	}
	return len(matches), nil
}

func (s *Session) ClearQuery() { s.search.Clear() }

func (s *Session) NextMatch() (uint64, bool) { return s.search.Next() }
func (s *Session) PrevMatch() (uint64, bool) { return s.search.Previous() }

// SeekMatch moves the search cursor to the first match at or after seq.
func (s *Session) SeekMatch(seq uint64) (uint64, bool) { return s.search.Seek(seq) }

// SearchStatus returns the cursor position (-1 when none) and match count.
func (s *Session) SearchStatus() (pos, count int) { return s.search.Cursor() }

// Timeline buckets the current event occurrences into n columns; n <= 0
// uses the configured bucket count.
func (s *Session) Timeline(n int) (*timeline.Table, error) {
	if n <= 0 {
		n = s.opts.Buckets
	}
	return timeline.Build(s.eventSnapshot(), n)
}

// ToggleEvent shows or hides event name in the timeline and event
// navigation and returns whether it is now shown.
func (s *Session) ToggleEvent(name string) (bool, error) {
	if !s.knownEvent(name) {
		return false, fmt.Errorf("no event named %q", name)
	}
	s.evMu.Lock()
	defer s.evMu.Unlock()
	if s.evHidden[name] {
		delete(s.evHidden, name)
	} else {
		s.evHidden[name] = true
	}
	logx.Debugf("session: event %q enabled=%v", name, !s.evHidden[name])
	return !s.evHidden[name], nil
}

// SetAllEvents shows or hides every event of the current rules.
func (s *Session) SetAllEvents(on bool) {
	names := s.store.RuleSet().EventNames()
	s.evMu.Lock()
	defer s.evMu.Unlock()
	for _, n := range names {
		if on {
			delete(s.evHidden, n)
		} else {
			s.evHidden[n] = true
		}
	}
}

func (s *Session) knownEvent(name string) bool {
	for _, n := range s.store.RuleSet().EventNames() {
		if n == name {
			return true
		}
	}
	return false
}

// EventStates lists the events of the current rules with their retained
// occurrence counts.
func (s *Session) EventStates() []EventState {
	snap := s.store.Events()
	s.evMu.Lock()
	defer s.evMu.Unlock()
	out := make([]EventState, len(snap.Names))
	for i, n := range snap.Names {
		out[i] = EventState{Name: n, Count: len(snap.Occurrences[n]), Enabled: !s.evHidden[n]}
	}
	return out
}

// eventSnapshot is the event index restricted to enabled events.
func (s *Session) eventSnapshot() events.Snapshot {
	snap := s.store.Events()
	s.evMu.Lock()
	defer s.evMu.Unlock()
	if len(s.evHidden) == 0 {
		return snap
	}
	names := make([]string, 0, len(snap.Names))
	for _, n := range snap.Names {
		if s.evHidden[n] {
			delete(snap.Occurrences, n)
			continue
		}
		names = append(names, n)
	}
	snap.Names = names
	return snap
}

// EventOccurrences returns the occurrences of enabled events in line order.
func (s *Session) EventOccurrences() []events.Named { return s.eventSnapshot().Merged() }

// NextEvent returns the first enabled event occurrence after line from.
func (s *Session) NextEvent(from uint64) (events.Named, bool) {
	for _, o := range s.EventOccurrences() {
		if o.Seq > from {
			return o, true
		}
	}
	return events.Named{}, false
}

// PrevEvent returns the last enabled event occurrence before line from.
func (s *Session) PrevEvent(from uint64) (events.Named, bool) {
	occ := s.EventOccurrences()
	for i := len(occ) - 1; i >= 0; i-- {
		if occ[i].Seq < from {
			return occ[i], true
		}
	}
	return events.Named{}, false
}

func (s *Session) ToggleMark(seq uint64, name string) bool { return s.marks.Toggle(seq, name) }
func (s *Session) RenameMark(seq uint64, name string) bool { return s.marks.Rename(seq, name) }
func (s *Session) NextMark(from uint64) (marks.Mark, bool) { return s.marks.Next(from) }
func (s *Session) PrevMark(from uint64) (marks.Mark, bool) { return s.marks.Prev(from) }

// Save writes the currently visible lines to path and returns how many were
// written.
func (s *Session) Save(path string) (int, error) {
	rows := s.Rows(s.VisibleSeqs())
	entries := make([]export.Entry, len(rows))
	for i, r := range rows {
		entries[i] = export.Entry{Line: r.Line, Class: r.Class}
	}
	if err := export.Write(path, entries); err != nil {
		return 0, fmt.Errorf("save %s: %w", path, err)
	}
	logx.Infof("session: saved %d lines to %s", len(entries), path)
	return len(entries), nil
}
