package main

import (
	"encoding/base64"
	"sync/atomic"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/moku/pkg/adapters/chromesurface"
	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/session"
)

func browseCommand() *cli.Command {
	flags := append(sourceFlags(),
		&cli.IntFlag{Name: "page", Value: 1, Usage: l10n.T("Page to start at")},
		&cli.IntFlag{Name: "width", Usage: l10n.T("Strip width in pixels")},
		summaryFlag(),
	)
	return &cli.Command{
		Name:   "browse",
		Usage:  l10n.T("Read as a continuous vertical strip in a Chrome window."),
		Flags:  flags,
		Action: runBrowse,
	}
}

// sessionAspects lets the surface look up aspects from a session created after it.
type sessionAspects struct {
	session atomic.Pointer[session.Session]
}

func (a *sessionAspects) Cached(locator string) (float64, bool) {
	s := a.session.Load()
	if s == nil {
		return 0, false
	}
	return s.Oracle().Cached(locator)
}

func runBrowse(c *cli.Context) error {
	e, err := newEnv(c, nil)
	if err != nil {
		return err
	}
	e.session.Style = pipeline.StyleScroll

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

	width := e.cfg.ViewportWidth
	if c.IsSet("width") {
		width = c.Int("width")
	}
	headers := map[string]string{}
	if e.cfg.Username != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(e.cfg.Username + ":" + e.cfg.Password))
		headers["Authorization"] = "Basic " + credentials
	}

	aspects := &sessionAspects{}
	e.log.Info("Launching browser")
	surface, err := chromesurface.Launch(ctx, chromesurface.Options{
		ChromePath: e.cfg.ChromePath,
		Headless:   e.cfg.Headless,
		Width:      width,
		ChapterGap: e.cfg.ChapterGap,
		Background: e.cfg.Background,
		Headers:    headers,
	}, aspects, e.log)
	if err != nil {
		return err
	}
	defer func() {
		surface.Close()
		e.log.Info("Browser closed")
	}()

	s, err := session.New(ctx, src.chapters, session.Deps{
		Fetcher:  src.fetcher,
		Decoder:  e.newDecoder(),
		Surface:  surface,
		Observer: surface,
		Sink:     sink,
		Logger:   e.log,
	}, e.session)
	if err != nil {
		return err
	}
	aspects.session.Store(s)

	if err := s.Start(ctx, start.ID, c.Int("page")); err != nil {
		s.Close()
		if pipeline.IsCancellation(err) {
			return nil
		}
		return err
	}

	select {
	case <-ctx.Done():
	case <-surface.Done():
	}

	s.Close()
	e.writeSummary(c, s, src)
	return nil
}
