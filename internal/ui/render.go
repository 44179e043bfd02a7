package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"logscope/internal/session"
	"logscope/internal/util/logx"
)

func (m *Model) View() string {
	v := m.renderStream()
	if m.modalActive {
		// Dim the background content while keeping it visible
		dimmed := lipgloss.NewStyle().Faint(true).Render(v)
		v = overlay(dimmed, m.renderModal())
	}
	return v
}

func (m *Model) renderStream() string {
	h := m.bodyHeight()
	lines := make([]string, 0, h)
	if len(m.vis) > 0 {
		end := m.top + h
		if end > len(m.vis) {
			end = len(m.vis)
		}
		for _, r := range m.sess.Rows(m.vis[m.top:end]) {
			lines = append(lines, m.renderRow(r))
		}
	} else if m.sess.Store().Len() > 0 {
		lines = append(lines, m.styles.Help.Render("all lines are hidden by filters (f to edit)"))
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		strings.Join(lines, "\n"),
		m.renderBottom(),
		m.renderStatus(),
	)
}

// gutterWidth is the cursor, mark and critical columns plus a space.
const gutterWidth = 4

func (m *Model) renderRow(r session.Row) string {
	g := []string{" ", " ", " "}
	if m.hasCur && r.Line.Seq == m.curSeq {
		g[0] = m.styles.Prompt.Render("▶")
	} else if r.Current {
		g[0] = m.styles.Prompt.Render("›")
	}
	if r.Marked {
		g[1] = m.styles.Mark.Render("*")
	}
	if r.Class.Critical {
		g[2] = m.styles.Critical.Render("!")
	}
	text := clip(sanitize(r.Line.Text), m.termW-gutterWidth)
	var hits [][2]int
	if mt := m.sess.Search().Matcher(); mt != nil {
		hits = mt.FindAll(text)
	}
	return strings.Join(g, "") + " " + paintLine(text, r.Class.Spans, hits, lineStyle(m.styles.Base, r.Class), m.styles.Match)
}

func (m *Model) renderBottom() string {
	switch m.inlineMode {
	case inlineSearch:
		return m.input.View() + m.styles.Help.Render("  [enter]=search [esc]=cancel [↑/↓]=history [ctrl+r]=regex [ctrl+s]=case")
	case inlineSave, inlineMarkName, inlineMarkRename, inlineTimeRange:
		return m.input.View() + m.styles.Help.Render("  [enter]=ok [esc]=cancel")
	}
	if q, ok := m.sess.Search().Query(); ok {
		pos, count := m.sess.SearchStatus()
		s := fmt.Sprintf("search %s  %d/%d", q, pos+1, count)
		if m.searching {
			s += " (searching)"
		}
		return m.styles.Prompt.Render(s) + m.styles.Help.Render("  [n/N]=next/prev [esc]=clear")
	}
	return m.help.ShortHelpView(m.keymap.ShortHelp())
}

func (m *Model) renderStatus() string {
	cur := 0
	if m.hasCur {
		cur = m.cursor + 1
	}
	var parts []string
	if m.sess.Ingesting() || m.searching {
		parts = append(parts, m.spin.View())
	}
	if m.follow {
		parts = append(parts, "[follow]")
	}
	parts = append(parts, fmt.Sprintf("line %d/%d", cur, len(m.vis)))
	if hidden := m.sess.Store().Len() - len(m.vis); hidden > 0 {
		parts = append(parts, fmt.Sprintf("hidden %d", hidden))
	}
	if r := m.sess.TimeRange(); !r.IsZero() {
		parts = append(parts, "time "+r.String())
	}
	enabled := 0
	filters := m.sess.Filters()
	for _, f := range filters {
		if f.Enabled {
			enabled++
		}
	}
	if len(filters) > 0 {
		parts = append(parts, fmt.Sprintf("filters %d/%d", enabled, len(filters)))
	}
	if n := m.sess.Marks().Len(); n > 0 {
		parts = append(parts, fmt.Sprintf("marks %d", n))
	}
	parts = append(parts, fmt.Sprintf("rules v%d", m.sess.RuleSet().Version))
	if src := sourceSummary(m.sess.Sources()); src != "" {
		parts = append(parts, src)
	}
	status := m.styles.Status.Render(strings.Join(parts, " | "))
	if m.lastMsg != "" {
		msgStyle := m.styles.Status
		if m.lastErr {
			msgStyle = m.styles.Error
		}
		status += m.styles.Status.Render(" | ") + msgStyle.Render(m.lastMsg)
	}
	return status
}

func (m *Model) openModal(kind modalKind, title string) {
	m.modalActive = true
	m.modalKind = kind
	m.modalTitle = title
	m.resizeModal()
	if kind == modalLogs {
		m.modalVP.GotoBottom()
	}
}

func (m *Model) resizeModal() {
	w := m.termW - 6
	h := m.termH - 6
	if w < 20 {
		w = 20
	}
	if h < 5 {
		h = 5
	}
	m.modalVP = viewport.New(w-6, h-5)
	m.syncModal()
}

// syncModal re-renders the modal body from the session.
func (m *Model) syncModal() {
	var body string
	switch m.modalKind {
	case modalHelp:
		body = m.help.FullHelpView(m.keymap.FullHelp())
	case modalFilters:
		filters := m.sess.Filters()
		if m.filterSel >= len(filters) {
			m.filterSel = len(filters) - 1
		}
		if m.filterSel < 0 {
			m.filterSel = 0
		}
		body = renderFilterList(filters, m.filterSel, m.styles)
	case modalEvents:
		states := m.sess.EventStates()
		if m.eventSel >= len(states) {
			m.eventSel = len(states) - 1
		}
		if m.eventSel < 0 {
			m.eventSel = 0
		}
		body = renderEventList(states, m.eventSel, m.sess.EventOccurrences(), m.styles)
	case modalTimeline:
		tbl, err := m.sess.Timeline(m.timelineBuckets())
		if err != nil {
			body = timelineError(err)
		} else {
			body = renderTimeline(tbl, m.styles)
		}
	case modalLogs:
		atBottom := m.modalVP.AtBottom()
		m.modalVP.SetContent(strings.Join(logx.Lines(), "\n"))
		if atBottom {
			m.modalVP.GotoBottom()
		}
		return
	}
	m.modalVP.SetContent(body)
}

// timelineBuckets is the configured bucket count, narrowed to fit the modal.
func (m *Model) timelineBuckets() int {
	n := m.sess.Buckets()
	label := 0
	for _, name := range m.sess.RuleSet().EventNames() {
		if l := len([]rune(name)); l > label {
			label = l
		}
	}
	if room := m.modalVP.Width - label - 12; room > 0 && n > room {
		n = room
	}
	return n
}

func (m *Model) renderModal() string {
	var hint string
	switch m.modalKind {
	case modalFilters, modalEvents:
		hint = "[↑/↓]=select  [space]=toggle  [a]=all  [esc]=close"
	case modalTimeline:
		hint = "[esc]=close"
	default:
		hint = "[↑/↓]=scroll  [esc]=close"
	}
	content := m.modalVP.View() + "\n" + m.styles.Help.Render(hint)
	boxW := m.termW - 6
	if boxW < 20 {
		boxW = 20
	}
	title := m.styles.PopupTitle.Render(m.modalTitle)
	body := m.styles.PopupBox.Width(boxW).Render(title + "\n" + content)
	return lipgloss.Place(m.termW, m.termH, lipgloss.Center, lipgloss.Center, body)
}
