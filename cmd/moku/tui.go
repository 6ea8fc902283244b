package main

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ideamans/go-l10n"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	pageStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#888888")).
			Padding(1, 2).
			Width(26).
			Align(lipgloss.Center)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	busyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))
)

// navigatedMsg is sent when a navigation started from the update loop ends.
type navigatedMsg struct {
	err     error
	forward bool
}

// readerModel is the terminal reader. Update is the only place that starts
// navigations; each runs as a command so the loop never blocks on the network.
type readerModel struct {
	session *session.Session
	start   pipeline.ChapterID
	page    int

	state    pipeline.NavigationState
	busy     bool
	err      error
	notice   string
	jumping  bool
	input    string
	width    int
	height   int
	quitting bool
}

func newReaderModel(s *session.Session, start pipeline.ChapterID, page int) readerModel {
	if page < 1 {
		page = 1
	}
	return readerModel{
		session: s,
		start:   start,
		page:    page,
		busy:    true,
		width:   80,
		height:  24,
	}
}

func (m readerModel) Init() tea.Cmd {
	s, start, page := m.session, m.start, m.page
	return navigate(s.Context(), true, func(ctx context.Context) error {
		return s.Start(ctx, start, page)
	})
}

func (m readerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case navigatedMsg:
		m.busy = false
		m.state = m.session.Navigator().State()
		switch {
		case msg.err == nil:
			m.err = nil
			m.notice = ""
		case pipeline.IsCancellation(msg.err):
			// superseded by a newer navigation
		case isEndOfSeries(msg.err):
			if msg.forward {
				m.err = msg.err
				m.quitting = true
				return m, tea.Quit
			}
			m.notice = l10n.T("Already at the first chapter")
		default:
			m.err = msg.err
		}
		return m, nil

	case tea.KeyMsg:
		if m.jumping {
			return m.updateJump(msg)
		}
		return m.updateKey(msg)
	}

	return m, nil
}

func (m readerModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session
	nav := s.Navigator()
	cfg := nav.Config()

	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "left", "h":
		return m.run(cfg.Direction.Forward(pipeline.SideLeft), func(ctx context.Context) error {
			return nav.Step(ctx, pipeline.SideLeft)
		})

	case "right", "l":
		return m.run(cfg.Direction.Forward(pipeline.SideRight), func(ctx context.Context) error {
			return nav.Step(ctx, pipeline.SideRight)
		})

	case " ", "pgdown", "j":
		return m.run(true, func(ctx context.Context) error {
			return nav.Advance(ctx, true)
		})

	case "backspace", "pgup", "k":
		return m.run(false, func(ctx context.Context) error {
			return nav.Advance(ctx, false)
		})

	case "home":
		return m.run(false, func(ctx context.Context) error {
			return nav.JumpToPage(ctx, 1)
		})

	case "end":
		last := m.state.PageCount
		return m.run(true, func(ctx context.Context) error {
			return nav.JumpToPage(ctx, last)
		})

	case "]", "n":
		return m.openAdjacent(1)

	case "[", "p":
		return m.openAdjacent(-1)

	case "g":
		m.jumping = true
		m.input = ""
		return m, nil

	case "s":
		style := pipeline.StyleSpread
		if cfg.Style == pipeline.StyleSpread {
			style = pipeline.StyleSingle
		}
		return m.run(true, func(ctx context.Context) error {
			return s.SetStyle(ctx, style)
		})

	case "d":
		direction := pipeline.RightToLeft
		if cfg.Direction == pipeline.RightToLeft {
			direction = pipeline.LeftToRight
		}
		return m.run(true, func(ctx context.Context) error {
			return s.SetDirection(ctx, direction)
		})

	case "o":
		offset := !cfg.OffsetFirstSpread
		return m.run(true, func(ctx context.Context) error {
			return nav.SetOffsetFirstSpread(ctx, offset)
		})
	}

	return m, nil
}

func (m readerModel) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.jumping = false
		return m, nil
	case tea.KeyBackspace:
		if m.input != "" {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	case tea.KeyEnter:
		m.jumping = false
		page, err := strconv.Atoi(m.input)
		if err != nil {
			return m, nil
		}
		nav := m.session.Navigator()
		return m.run(page >= m.state.Page, func(ctx context.Context) error {
			return nav.JumpToPage(ctx, page)
		})
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if r >= '0' && r <= '9' && len(m.input) < 5 {
				m.input += string(r)
			}
		}
	}
	return m, nil
}

// openAdjacent opens the first page of the chapter delta positions away.
func (m readerModel) openAdjacent(delta int) (tea.Model, tea.Cmd) {
	chapters := m.session.Chapters()
	idx := pipeline.IndexOf(chapters, m.state.Chapter.ID) + delta
	if idx < 0 || idx >= len(chapters) {
		m.notice = l10n.T("No more chapters")
		return m, nil
	}
	nav := m.session.Navigator()
	id := chapters[idx].ID
	return m.run(delta > 0, func(ctx context.Context) error {
		return nav.Open(ctx, id, 1)
	})
}

func (m readerModel) run(forward bool, op func(context.Context) error) (tea.Model, tea.Cmd) {
	m.busy = true
	m.notice = ""
	return m, navigate(m.session.Context(), forward, op)
}

func (m readerModel) View() string {
	if m.quitting {
		if isEndOfSeries(m.err) {
			return "\n  " + l10n.T("End of series.") + "\n"
		}
		return ""
	}

	var sb strings.Builder

	sb.WriteString(m.header())
	sb.WriteString("\n")

	// Reserve 4 lines: header, status, message and controls
	avail := m.height - 4
	if avail < 1 {
		avail = 1
	}
	sb.WriteString(lipgloss.Place(m.width, avail, lipgloss.Center, lipgloss.Center, m.pages()))
	sb.WriteString("\n")

	sb.WriteString(m.status())
	sb.WriteString("\n")

	switch {
	case m.err != nil:
		sb.WriteString(errorStyle.Render(m.err.Error()))
	case m.notice != "":
		sb.WriteString(statusStyle.Render(m.notice))
	}
	sb.WriteString("\n")

	if m.jumping {
		sb.WriteString(l10n.F("Go to page: %s", m.input))
	} else {
		sb.WriteString(controlsStyle.Render(l10n.T("←/→: page  SPACE/BS: next/prev  [/]: chapter  G: jump  S: style  D: direction  O: offset  Q: quit")))
	}

	return sb.String()
}

func (m readerModel) header() string {
	if m.state.Chapter.ID == "" {
		return titleStyle.Render("moku")
	}
	chapters := m.session.Chapters()
	idx := pipeline.IndexOf(chapters, m.state.Chapter.ID)
	return titleStyle.Render(m.state.Chapter.Name) +
		statusStyle.Render(fmt.Sprintf("(%d/%d)", idx+1, len(chapters)))
}

// pages draws one box per page on screen, in display order.
func (m readerModel) pages() string {
	group := m.state.Group
	if len(group) == 0 {
		if m.state.Page == 0 {
			return ""
		}
		group = pipeline.Group{m.state.Page}
	}
	chapter, _ := m.session.Cache().Peek(m.state.Chapter.ID)

	boxes := make([]string, len(group))
	for i, page := range group {
		name := path.Base(chapter.Locator(page))
		boxes[i] = pageStyle.Render(fmt.Sprintf("%d\n\n%s", page, name))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (m readerModel) status() string {
	parts := []string{
		l10n.F("Page %d/%d", m.state.Page, m.state.PageCount),
		m.state.Style.String(),
		m.state.Direction.String(),
	}
	if m.session.Navigator().Config().OffsetFirstSpread {
		parts = append(parts, l10n.T("offset"))
	}
	line := statusStyle.Render(strings.Join(parts, " | "))
	if m.busy {
		line += busyStyle.Render(" " + l10n.T("loading..."))
	}
	return line
}

func isEndOfSeries(err error) bool {
	return errors.Is(err, pipeline.ErrEndOfSeries)
}
