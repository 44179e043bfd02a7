package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"logscope/internal/search"
)

func (m *Model) openSearch() {
	m.inlineMode = inlineSearch
	m.input.Reset()
	if q, ok := m.sess.Search().Query(); ok {
		m.input.SetValue(q.Text)
		m.input.CursorEnd()
	}
	m.input.Placeholder = "text or pattern"
	m.updateSearchPrompt()
	m.input.Focus()
}

func (m *Model) updateSearchPrompt() {
	var flags []string
	if m.query.Regex {
		flags = append(flags, "regex")
	}
	if m.query.CaseSensitive {
		flags = append(flags, "case")
	}
	p := "/"
	if len(flags) > 0 {
		p = "(" + strings.Join(flags, ",") + ") /"
	}
	m.input.Prompt = p
}

// submitSearch runs q off the update loop; the engine supersedes any scan
// still in flight.
func (m *Model) submitSearch(q search.Query) tea.Cmd {
	m.searching = true
	sess := m.sess
	return func() tea.Msg {
		n, err := sess.SetQuery(q)
		return searchMsg{q: q, count: n, err: err}
	}
}

// rerunSearch resubmits the active query with the current options.
func (m *Model) rerunSearch() tea.Cmd {
	q, ok := m.sess.Search().Query()
	if !ok {
		return nil
	}
	q.Regex, q.CaseSensitive = m.query.Regex, m.query.CaseSensitive
	return m.submitSearch(q)
}

func (m *Model) handleSearchResult(msg searchMsg) {
	if errors.Is(msg.err, search.ErrSuperseded) {
		return
	}
	m.searching = false
	if msg.err != nil {
		m.setError(msg.err.Error())
		return
	}
	if msg.count == 0 {
		m.setMessage(fmt.Sprintf("no matches for %s", msg.q))
		return
	}
	if seq, ok := m.sess.SeekMatch(m.curSeq); ok {
		m.jumpTo(seq)
	}
	m.setMessage(fmt.Sprintf("%d matches for %s", msg.count, msg.q))
}

func (m *Model) searchNext() {
	seq, ok := m.sess.NextMatch()
	if !ok {
		m.setMessage("no matches")
		return
	}
	m.jumpTo(seq)
}

func (m *Model) searchPrev() {
	seq, ok := m.sess.PrevMatch()
	if !ok {
		m.setMessage("no matches")
		return
	}
	m.jumpTo(seq)
}

func (m *Model) updateSearchInput(msg tea.KeyMsg) tea.Cmd {
	km := m.keymap
	switch {
	case msg.Type == tea.KeyEnter:
		m.inlineMode = inlineNone
		m.input.Blur()
		text := m.input.Value()
		if text == "" {
			m.sess.ClearQuery()
			m.setMessage("search cleared")
			return nil
		}
		return m.submitSearch(search.Query{Text: text, Regex: m.query.Regex, CaseSensitive: m.query.CaseSensitive})
	case msg.Type == tea.KeyEsc:
		m.inlineMode = inlineNone
		m.input.Blur()
		return nil
	case msg.Type == tea.KeyUp:
		if q, ok := m.sess.Search().HistoryOlder(); ok {
			m.setQueryInput(q)
		}
		return nil
	case msg.Type == tea.KeyDown:
		if q, ok := m.sess.Search().HistoryNewer(); ok {
			m.setQueryInput(q)
		} else {
			m.input.Reset()
		}
		return nil
	case key.Matches(msg, km.ToggleRegex):
		m.query.Regex = !m.query.Regex
		m.updateSearchPrompt()
		return nil
	case key.Matches(msg, km.ToggleCase):
		m.query.CaseSensitive = !m.query.CaseSensitive
		m.updateSearchPrompt()
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) setQueryInput(q search.Query) {
	m.input.SetValue(q.Text)
	m.input.CursorEnd()
	m.query.Regex, m.query.CaseSensitive = q.Regex, q.CaseSensitive
	m.updateSearchPrompt()
}
