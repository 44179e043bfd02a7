package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"logscope/internal/config"
	"logscope/internal/search"
	"logscope/internal/session"
)

type modalKind int

const (
	modalNone modalKind = iota
	modalHelp
	modalFilters
	modalTimeline
	modalEvents
	modalLogs
)

type inlineMode int

const (
	inlineNone inlineMode = iota
	inlineSearch
	inlineSave
	inlineMarkName
	inlineMarkRename
	inlineTimeRange
)

type Model struct {
	ctx  context.Context
	cfg  *config.Config
	sess *session.Session

	reports <-chan error
	reloads chan error

	// Visible lines as of the last refresh, and the cursor over them. The
	// cursor is tracked by sequence number so it survives filtering and
	// eviction.
	vis    []uint64
	curSeq uint64
	hasCur bool
	cursor int
	top    int
	follow bool

	styles  Styles
	keymap  KeyMap
	help    help.Model
	input   textinput.Model
	modalVP viewport.Model
	spin    spinner.Model
	termW   int
	termH   int
	lastMsg string
	lastErr bool

	// Search options applied to the next submitted query.
	query     search.Query
	searching bool

	inlineMode inlineMode

	modalActive bool
	modalKind   modalKind
	modalTitle  string
	filterSel   int
	eventSel    int
}

type tickMsg struct{}

// reportMsg carries one ingestion report; done is set once the report
// channel closes.
type reportMsg struct {
	err  error
	done bool
}

// reloadMsg reports a rules reload; manual is set for reloads the user
// requested rather than the file watcher.
type reloadMsg struct {
	err    error
	manual bool
}

type searchMsg struct {
	q     search.Query
	count int
	err   error
}

type saveMsg struct {
	path string
	n    int
	err  error
}
