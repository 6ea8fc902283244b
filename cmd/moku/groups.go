package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/moku/pkg/adapters/filesink"
	"github.com/user/moku/pkg/adapters/ggrenderer"
	"github.com/user/moku/pkg/aspect"
	"github.com/user/moku/pkg/config"
	"github.com/user/moku/pkg/orchestrator"
	"github.com/user/moku/pkg/pagecache"
	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
	"github.com/user/moku/pkg/stages/composite"
	"github.com/user/moku/pkg/stages/spread"
)

func groupsCommand() *cli.Command {
	return &cli.Command{
		Name:   "groups",
		Usage:  l10n.T("Print the two-page spreads of a chapter."),
		Flags:  sourceFlags(),
		Action: runGroups,
	}
}

func exportCommand() *cli.Command {
	flags := append(sourceFlags(),
		&cli.PathFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output directory")},
		&cli.BoolFlag{Name: "all", Usage: l10n.T("Export every chapter")},
		&cli.IntFlag{Name: "height", Usage: l10n.T("Spread height in pixels (default: 1200)")},
		&cli.IntFlag{Name: "gap", Usage: l10n.T("Gap between paired pages in pixels")},
		&cli.StringFlag{Name: "background", Usage: l10n.T("Background color (hex, e.g., #141414)")},
	)
	return &cli.Command{
		Name:   "export",
		Usage:  l10n.T("Compose the spreads of a chapter into PNG files."),
		Flags:  flags,
		Action: runExport,
	}
}

// newOrchestrator wires the export pipeline over a source. Groups are
// computed from the session settings.
func (e *env) newOrchestrator(ctx context.Context, src *source, decoder ports.ImageDecoder, compositeStage pipeline.Stage[pipeline.CompositeInput, pipeline.CompositeResult]) (*orchestrator.Orchestrator, orchestrator.Config) {
	orch := orchestrator.New(
		pagecache.New(ctx, src.fetcher, e.session.MaxCached, e.log),
		aspect.New(ctx, decoder, e.session.DecodeWorkers, e.log),
		spread.NewStage(),
		compositeStage,
		e.log,
	)

	plan := orchestrator.DefaultConfig()
	plan.Direction = e.session.Direction
	plan.OffsetFirstSpread = e.session.OffsetFirstSpread
	plan.WideThreshold = e.session.WideThreshold
	return orch, plan
}

func runGroups(c *cli.Context) error {
	e, err := newEnv(c, nil)
	if err != nil {
		return err
	}
	ctx, cancel := e.signalContext(c.Context)
	defer cancel()

	src, err := e.openSource(ctx, c)
	if err != nil {
		return err
	}
	chapter, err := src.startChapter(c)
	if err != nil {
		return err
	}

	orch, plan := e.newOrchestrator(ctx, src, e.newDecoder(), nil)
	pages, groups, err := orch.Groups(ctx, chapter, plan)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintln(out, l10n.F("%s: %d pages, %d groups (%s)", chapter.Name, pages.PageCount(), len(groups), plan.Direction))
	for i, group := range groups {
		fmt.Fprintf(out, "%4d  %s\n", i+1, formatGroup(group))
	}
	return nil
}

// formatGroup lists the pages of a group left to right, e.g. "[3 | 2]".
func formatGroup(group pipeline.Group) string {
	pages := make([]string, len(group))
	for i, page := range group {
		pages[i] = strconv.Itoa(page)
	}
	return "[" + strings.Join(pages, " | ") + "]"
}

func runExport(c *cli.Context) error {
	e, err := newEnv(c, nil)
	if err != nil {
		return err
	}
	ctx, cancel := e.signalContext(c.Context)
	defer cancel()

	src, err := e.openSource(ctx, c)
	if err != nil {
		return err
	}
	chapters := src.chapters
	if !c.Bool("all") {
		chapter, err := src.startChapter(c)
		if err != nil {
			return err
		}
		chapters = []pipeline.Chapter{chapter}
	}

	output := c.Path("output")
	if err := e.fs.MkdirAll(output); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	decoder := e.newDecoder()
	renderer := ggrenderer.New()
	sink := filesink.New(output, e.fs, renderer)
	orch, plan := e.newOrchestrator(ctx, src, decoder, composite.NewStage(decoder, renderer, sink, e.log, e.cfg.Workers))

	plan.Chapters = chapters
	plan.Height = e.cfg.ExportHeight
	plan.Gap = e.cfg.ExportGap
	background := e.cfg.Background
	if c.IsSet("height") {
		plan.Height = c.Int("height")
	}
	if c.IsSet("gap") {
		plan.Gap = c.Int("gap")
	}
	if c.IsSet("background") {
		background = c.String("background")
	}
	plan.Background = config.ParseColor(background)

	result, err := orch.Run(ctx, plan)
	if err != nil {
		return err
	}
	e.log.Info("Exported %d spreads to %s", result.Spreads(), filepath.Join(output, "spreads"))
	return nil
}
