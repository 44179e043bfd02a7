package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"logscope/internal/events"
	"logscope/internal/filter"
	"logscope/internal/util/logx"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termW, m.termH = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.input.Width = msg.Width - 20
		m.refresh()
		if m.modalActive {
			m.resizeModal()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tickMsg:
		m.refresh()
		if m.modalActive {
			m.syncModal()
		}
		return m, tick()
	case reportMsg:
		if msg.done {
			m.setMessage("ingestion finished")
			return m, nil
		}
		m.setError(msg.err.Error())
		return m, waitReport(m.reports)
	case reloadMsg:
		m.handleReload(msg.err)
		if msg.manual {
			return m, nil
		}
		return m, m.waitReload()
	case searchMsg:
		m.handleSearchResult(msg)
		return m, nil
	case saveMsg:
		if msg.err != nil {
			m.setError(msg.err.Error())
		} else {
			m.setMessage(fmt.Sprintf("saved %d lines to %s", msg.n, msg.path))
		}
		return m, nil
	case tea.KeyMsg:
		if m.inlineMode != inlineNone {
			return m, m.updateInline(msg)
		}
		if m.modalActive {
			return m, m.updateModal(msg)
		}
		return m, m.updateKeys(msg)
	}
	return m, nil
}

func (m *Model) updateKeys(msg tea.KeyMsg) tea.Cmd {
	km := m.keymap
	switch {
	case key.Matches(msg, km.Quit):
		return tea.Quit
	case key.Matches(msg, km.Up):
		m.moveCursor(-1)
	case key.Matches(msg, km.Down):
		m.moveCursor(1)
	case key.Matches(msg, km.PageUp):
		m.moveCursor(-m.bodyHeight())
	case key.Matches(msg, km.PageDown):
		m.moveCursor(m.bodyHeight())
	case key.Matches(msg, km.Top):
		m.moveCursor(-len(m.vis))
	case key.Matches(msg, km.Bottom):
		m.moveCursor(len(m.vis))
	case key.Matches(msg, km.Search):
		m.openSearch()
	case key.Matches(msg, km.SearchNext):
		m.searchNext()
	case key.Matches(msg, km.SearchPrev):
		m.searchPrev()
	case key.Matches(msg, km.ToggleRegex):
		m.query.Regex = !m.query.Regex
		m.setMessage(fmt.Sprintf("regex search: %v", m.query.Regex))
		return m.rerunSearch()
	case key.Matches(msg, km.ToggleCase):
		m.query.CaseSensitive = !m.query.CaseSensitive
		m.setMessage(fmt.Sprintf("case-sensitive search: %v", m.query.CaseSensitive))
		return m.rerunSearch()
	case key.Matches(msg, km.Close):
		if _, ok := m.sess.Search().Query(); ok {
			m.sess.ClearQuery()
			m.setMessage("search cleared")
		}
	case key.Matches(msg, km.Filters):
		m.openModal(modalFilters, "Filters")
	case key.Matches(msg, km.Timeline):
		m.openModal(modalTimeline, "Event timeline")
	case key.Matches(msg, km.Events):
		m.openModal(modalEvents, "Events")
	case key.Matches(msg, km.NextEvent):
		o, ok := m.sess.NextEvent(m.curSeq)
		m.jumpToEvent(o, ok)
	case key.Matches(msg, km.PrevEvent):
		o, ok := m.sess.PrevEvent(m.curSeq)
		m.jumpToEvent(o, ok)
	case key.Matches(msg, km.TimeRange):
		value := ""
		if r := m.sess.TimeRange(); !r.IsZero() {
			value = r.String()
		}
		m.openInline(inlineTimeRange, "time range (start..end, empty clears): ", value)
	case key.Matches(msg, km.AppLogs):
		m.openModal(modalLogs, "Application logs")
	case key.Matches(msg, km.Help):
		m.openModal(modalHelp, "Help")
	case key.Matches(msg, km.Mark):
		m.toggleMark()
	case key.Matches(msg, km.RenameMark):
		m.renameMark()
	case key.Matches(msg, km.NextMark):
		if mk, ok := m.sess.NextMark(m.curSeq); ok {
			m.jumpTo(mk.Seq)
		} else {
			m.setMessage("no marks")
		}
	case key.Matches(msg, km.PrevMark):
		if mk, ok := m.sess.PrevMark(m.curSeq); ok {
			m.jumpTo(mk.Seq)
		} else {
			m.setMessage("no marks")
		}
	case key.Matches(msg, km.Save):
		m.openInline(inlineSave, "save to: ", fmt.Sprintf("logscope-%s.log", time.Now().Format("20060102-150405")))
	case key.Matches(msg, km.Reload):
		sess := m.sess
		return func() tea.Msg { return reloadMsg{err: sess.ReloadRules(), manual: true} }
	case key.Matches(msg, km.Follow):
		m.follow = !m.follow
		m.refresh()
		m.setMessage(fmt.Sprintf("follow: %v", m.follow))
	}
	return nil
}

func (m *Model) updateModal(msg tea.KeyMsg) tea.Cmd {
	km := m.keymap
	switch {
	case key.Matches(msg, km.Close), key.Matches(msg, km.Quit):
		m.modalActive = false
		return nil
	case m.modalKind == modalFilters && key.Matches(msg, km.Filters):
		m.modalActive = false
		return nil
	case m.modalKind == modalFilters && key.Matches(msg, km.Up):
		if m.filterSel > 0 {
			m.filterSel--
		}
	case m.modalKind == modalFilters && key.Matches(msg, km.Down):
		if m.filterSel < len(m.sess.Filters())-1 {
			m.filterSel++
		}
	case m.modalKind == modalFilters && (key.Matches(msg, km.ToggleItem) || msg.Type == tea.KeyEnter):
		on, err := m.sess.ToggleFilter(m.filterSel)
		if err != nil {
			m.setError(err.Error())
		} else {
			m.setMessage(fmt.Sprintf("filter %d enabled: %v", m.filterSel+1, on))
			m.refresh()
		}
	case m.modalKind == modalFilters && key.Matches(msg, km.ToggleAll):
		m.toggleAllFilters()
	case m.modalKind == modalEvents && key.Matches(msg, km.Events):
		m.modalActive = false
		return nil
	case m.modalKind == modalEvents && key.Matches(msg, km.Up):
		if m.eventSel > 0 {
			m.eventSel--
		}
	case m.modalKind == modalEvents && key.Matches(msg, km.Down):
		if m.eventSel < len(m.sess.EventStates())-1 {
			m.eventSel++
		}
	case m.modalKind == modalEvents && (key.Matches(msg, km.ToggleItem) || msg.Type == tea.KeyEnter):
		if states := m.sess.EventStates(); m.eventSel < len(states) {
			name := states[m.eventSel].Name
			if on, err := m.sess.ToggleEvent(name); err != nil {
				m.setError(err.Error())
			} else {
				m.setMessage(fmt.Sprintf("event %s shown: %v", name, on))
			}
		}
	case m.modalKind == modalEvents && key.Matches(msg, km.ToggleAll):
		on := false
		for _, e := range m.sess.EventStates() {
			if !e.Enabled {
				on = true
				break
			}
		}
		m.sess.SetAllEvents(on)
		m.setMessage(fmt.Sprintf("all events shown: %v", on))
	default:
		var cmd tea.Cmd
		m.modalVP, cmd = m.modalVP.Update(msg)
		return cmd
	}
	m.syncModal()
	return nil
}

func (m *Model) openInline(mode inlineMode, prompt, value string) {
	m.inlineMode = mode
	m.input.Reset()
	m.input.Prompt = prompt
	m.input.Placeholder = ""
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) updateInline(msg tea.KeyMsg) tea.Cmd {
	if m.inlineMode == inlineSearch {
		return m.updateSearchInput(msg)
	}
	switch msg.Type {
	case tea.KeyEsc:
		m.inlineMode = inlineNone
		m.input.Blur()
		return nil
	case tea.KeyEnter:
		mode := m.inlineMode
		m.inlineMode = inlineNone
		m.input.Blur()
		value := strings.TrimSpace(m.input.Value())
		switch mode {
		case inlineSave:
			if value == "" {
				return nil
			}
			sess := m.sess
			return func() tea.Msg {
				n, err := sess.Save(value)
				return saveMsg{path: value, n: n, err: err}
			}
		case inlineMarkName:
			if m.hasCur {
				m.sess.ToggleMark(m.curSeq, value)
				m.setMessage(fmt.Sprintf("marked line %d", m.curSeq+1))
			}
		case inlineMarkRename:
			if m.hasCur && m.sess.RenameMark(m.curSeq, value) {
				m.setMessage(fmt.Sprintf("renamed mark on line %d", m.curSeq+1))
			}
		case inlineTimeRange:
			m.applyTimeRange(value)
		}
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) toggleMark() {
	if !m.hasCur {
		return
	}
	if _, ok := m.sess.Marks().Get(m.curSeq); ok {
		m.sess.ToggleMark(m.curSeq, "")
		m.setMessage(fmt.Sprintf("unmarked line %d", m.curSeq+1))
		return
	}
	m.openInline(inlineMarkName, "mark name (optional): ", "")
}

func (m *Model) renameMark() {
	if !m.hasCur {
		return
	}
	mk, ok := m.sess.Marks().Get(m.curSeq)
	if !ok {
		m.setMessage(fmt.Sprintf("line %d is not marked", m.curSeq+1))
		return
	}
	m.openInline(inlineMarkRename, "mark name: ", mk.Name)
}

// toggleAllFilters enables every filter unless all are already enabled, in
// which case it disables them.
func (m *Model) toggleAllFilters() {
	filters := m.sess.Filters()
	on := false
	for _, f := range filters {
		if !f.Enabled {
			on = true
			break
		}
	}
	for _, f := range filters {
		if err := m.sess.SetFilter(f.Index, on); err != nil {
			m.setError(err.Error())
			return
		}
	}
	m.setMessage(fmt.Sprintf("all filters enabled: %v", on))
	m.refresh()
}

// applyTimeRange parses value as start..end; zone-less bounds are UTC like
// the parsed log timestamps. An empty value clears the range.
func (m *Model) applyTimeRange(value string) {
	var r filter.TimeRange
	if value != "" {
		var err error
		if r, err = filter.ParseTimeRange(value, time.UTC); err != nil {
			m.setError(err.Error())
			return
		}
	}
	m.sess.SetTimeRange(r)
	m.refresh()
	if r.IsZero() {
		m.setMessage("time range cleared")
		return
	}
	m.setMessage("time range " + r.String())
}

func (m *Model) jumpToEvent(o events.Named, ok bool) {
	if !ok {
		m.setMessage("no more events")
		return
	}
	m.jumpTo(o.Seq)
	if m.curSeq == o.Seq {
		m.setMessage(fmt.Sprintf("%s at line %d", o.Name, o.Seq+1))
	}
}

func (m *Model) handleReload(err error) {
	if err != nil {
		m.setError("rules not reloaded: " + err.Error())
		return
	}
	rs := m.sess.RuleSet()
	m.filterSel, m.eventSel = 0, 0
	m.refresh()
	m.setMessage(fmt.Sprintf("rules v%d loaded (%d highlights, %d events, %d filters)",
		rs.Version, len(rs.Highlights), len(rs.Events), len(rs.Filters)))
}

// refresh re-reads the visible lines and keeps the cursor on the same line,
// or the nearest later one when it was filtered out or evicted.
func (m *Model) refresh() {
	m.vis = m.sess.VisibleSeqs()
	n := len(m.vis)
	if n == 0 {
		m.cursor, m.top, m.hasCur = 0, 0, false
		return
	}
	switch {
	case m.follow:
		m.curSeq = m.vis[n-1]
	case !m.hasCur:
		m.curSeq = m.vis[0]
	}
	m.hasCur = true
	m.cursor = sort.Search(n, func(i int) bool { return m.vis[i] >= m.curSeq })
	if m.cursor == n {
		m.cursor = n - 1
	}
	m.curSeq = m.vis[m.cursor]
	m.scrollToCursor()
}

func (m *Model) scrollToCursor() {
	h := m.bodyHeight()
	if m.cursor < m.top {
		m.top = m.cursor
	}
	if m.cursor >= m.top+h {
		m.top = m.cursor - h + 1
	}
	if last := len(m.vis) - h; m.top > last {
		m.top = last
	}
	if m.top < 0 {
		m.top = 0
	}
}

func (m *Model) moveCursor(delta int) {
	if len(m.vis) == 0 {
		return
	}
	i := m.cursor + delta
	if i < 0 {
		i = 0
	}
	if i >= len(m.vis) {
		i = len(m.vis) - 1
	}
	m.cursor = i
	m.curSeq = m.vis[i]
	m.hasCur = true
	m.follow = m.follow && i == len(m.vis)-1
	m.scrollToCursor()
}

// jumpTo moves the cursor to seq, stopping follow mode.
func (m *Model) jumpTo(seq uint64) {
	m.follow = false
	m.curSeq, m.hasCur = seq, true
	m.refresh()
	if m.hasCur && m.curSeq != seq {
		m.setMessage(fmt.Sprintf("line %d is hidden by filters", seq+1))
	}
}

func (m *Model) bodyHeight() int {
	h := m.termH - 2
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) setMessage(s string) {
	m.lastMsg, m.lastErr = s, false
	logx.Debugf("ui: %s", s)
}

func (m *Model) setError(s string) {
	m.lastMsg, m.lastErr = s, true
	logx.Warnf("ui: %s", s)
}
