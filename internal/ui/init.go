package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"logscope/internal/config"
	"logscope/internal/ingest"
	"logscope/internal/session"
	"logscope/internal/util/logx"
)

const refreshInterval = 200 * time.Millisecond

func initialModel(ctx context.Context, cfg *config.Config, sess *session.Session) *Model {
	m := &Model{
		ctx:     ctx,
		cfg:     cfg,
		sess:    sess,
		reloads: make(chan error, 4),
		styles:  NewStyles(cfg.Theme != config.ThemeLight),
		keymap:  DefaultKeyMap(),
		help:    help.New(),
		input:   textinput.New(),
		modalVP: viewport.New(80, 20),
		spin:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		follow:  cfg.Follow || cfg.UseStdin,
	}
	m.input.CharLimit = 256
	return m
}

// Run starts ingesting srcs into sess and blocks until the viewer exits.
func Run(ctx context.Context, cfg *config.Config, sess *session.Session, srcs []ingest.Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := initialModel(ctx, cfg, sess)
	m.reports = sess.Ingest(ctx, srcs...)
	if cfg.WatchRules {
		err := sess.WatchRules(ctx, func(err error) {
			select {
			case m.reloads <- err:
			default:
			}
		})
		if err != nil {
			logx.Warnf("ui: rule watching disabled: %v", err)
		}
	}
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.spin.Tick, waitReport(m.reports), m.waitReload())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func waitReport(ch <-chan error) tea.Cmd {
	return func() tea.Msg {
		err, ok := <-ch
		if !ok {
			return reportMsg{done: true}
		}
		return reportMsg{err: err}
	}
}

func (m *Model) waitReload() tea.Cmd {
	ctx, ch := m.ctx, m.reloads
	return func() tea.Msg {
		select {
		case err := <-ch:
			return reloadMsg{err: err}
		case <-ctx.Done():
			return nil
		}
	}
}
