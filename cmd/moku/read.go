package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/session"
)

func readCommand() *cli.Command {
	flags := append(sourceFlags(),
		&cli.IntFlag{Name: "page", Value: 1, Usage: l10n.T("Page to start at")},
		&cli.PathFlag{Name: "log-file", Usage: l10n.T("Write log output to file while reading")},
		summaryFlag(),
	)
	return &cli.Command{
		Name:   "read",
		Usage:  l10n.T("Read in the terminal, one page or spread at a time."),
		Flags:  flags,
		Action: runRead,
	}
}

func runRead(c *cli.Context) error {
	var logOut io.Writer = io.Discard
	if path := c.Path("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}

	e, err := newEnv(c, logOut)
	if err != nil {
		return err
	}
	// The terminal has no scroll surface.
	if e.session.Style == pipeline.StyleScroll {
		e.session.Style = pipeline.StyleSingle
	}

	ctx, cancel := e.signalContext(c.Context)
	defer cancel()

	src, err := e.openSource(ctx, c)
	if err != nil {
		return err
	}
	start, err := src.startChapter(c)
	if err != nil {
		return err
	}
	sink, err := e.newSink()
	if err != nil {
		return err
	}

	s, err := session.New(ctx, src.chapters, session.Deps{
		Fetcher: src.fetcher,
		Decoder: e.newDecoder(),
		Sink:    sink,
		Logger:  e.log,
	}, e.session)
	if err != nil {
		return err
	}
	defer s.Close()

	program := tea.NewProgram(newReaderModel(s, start.ID, c.Int("page")), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil && ctx.Err() == nil {
		return err
	}

	e.writeSummary(c, s, src)
	if m, ok := final.(readerModel); ok && m.err != nil && !isEndOfSeries(m.err) {
		return m.err
	}
	return nil
}

// navigate runs a navigation off the update loop and reports its outcome.
func navigate(ctx context.Context, forward bool, op func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return navigatedMsg{err: op(ctx), forward: forward}
	}
}
