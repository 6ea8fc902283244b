// Package orchestrator runs the export pipeline: fetch a chapter, measure its
// pages, group them into spreads and compose the spreads as images.
package orchestrator

import (
	"context"
	"fmt"
	"image/color"

	"github.com/ideamans/go-l10n"
	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
)

// ChapterSource provides chapter page lists.
type ChapterSource interface {
	Fetch(ctx context.Context, chapter pipeline.Chapter) (pipeline.ChapterPages, error)
}

// AspectSource provides page aspect ratios.
type AspectSource interface {
	Aspects(ctx context.Context, locators []string) ([]float64, error)
}

// Config contains all configuration for an export run.
type Config struct {
	Chapters []pipeline.Chapter

	// Grouping
	Direction         pipeline.Direction
	OffsetFirstSpread bool
	WideThreshold     float64

	// Composition
	Height     int
	Gap        int
	Background color.Color
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	composite := pipeline.DefaultCompositeInput()
	return Config{
		Direction:     pipeline.LeftToRight,
		WideThreshold: pipeline.DefaultWideThreshold,
		Height:        composite.Height,
		Gap:           composite.Gap,
		Background:    composite.Background,
	}
}

// Orchestrator coordinates the execution of the export stages.
type Orchestrator struct {
	chapters       ChapterSource
	aspects        AspectSource
	spreadStage    pipeline.Stage[pipeline.SpreadInput, pipeline.SpreadResult]
	compositeStage pipeline.Stage[pipeline.CompositeInput, pipeline.CompositeResult]
	logger         ports.Logger
}

// New creates a new Orchestrator.
func New(
	chapters ChapterSource,
	aspects AspectSource,
	spreadStage pipeline.Stage[pipeline.SpreadInput, pipeline.SpreadResult],
	compositeStage pipeline.Stage[pipeline.CompositeInput, pipeline.CompositeResult],
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		chapters:       chapters,
		aspects:        aspects,
		spreadStage:    spreadStage,
		compositeStage: compositeStage,
		logger:         logger.WithComponent("orchestrator"),
	}
}

// Groups fetches a chapter and computes its presentation groups.
func (o *Orchestrator) Groups(ctx context.Context, chapter pipeline.Chapter, config Config) (pipeline.ChapterPages, []pipeline.Group, error) {
	pages, err := o.chapters.Fetch(ctx, chapter)
	if err != nil {
		return pipeline.ChapterPages{}, nil, fmt.Errorf("fetch stage: %w", err)
	}

	aspects, err := o.aspects.Aspects(ctx, pages.Pages)
	if err != nil {
		return pipeline.ChapterPages{}, nil, fmt.Errorf("aspect stage: %w", err)
	}

	result, err := o.spreadStage.Execute(ctx, pipeline.SpreadInput{
		PageCount:         pages.PageCount(),
		Aspects:           aspects,
		RightToLeft:       config.Direction == pipeline.RightToLeft,
		OffsetFirstSpread: config.OffsetFirstSpread,
		WideThreshold:     config.WideThreshold,
	})
	if err != nil {
		return pipeline.ChapterPages{}, nil, fmt.Errorf("spread stage: %w", err)
	}
	return pages, result.Groups, nil
}

// Run exports every chapter in config.Chapters, in order. The composite
// stage's sink receives the images.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	o.logger.Info(l10n.F("Exporting %d chapters", len(config.Chapters)))

	var result RunResult
	for _, chapter := range config.Chapters {
		pages, groups, err := o.Groups(ctx, chapter, config)
		if err != nil {
			o.logger.Error(l10n.F("Failed to export chapter %s: %s", chapter.ID, err))
			return result, err
		}

		composite, err := o.compositeStage.Execute(ctx, pipeline.CompositeInput{
			Chapter:    pages,
			Groups:     groups,
			Height:     config.Height,
			Gap:        config.Gap,
			Background: config.Background,
		})
		if err != nil {
			o.logger.Error(l10n.F("Failed to export chapter %s: %s", chapter.ID, err))
			return result, fmt.Errorf("composite stage: %w", err)
		}

		result.Chapters = append(result.Chapters, ChapterResult{
			Chapter: chapter,
			Pages:   pages.PageCount(),
			Spreads: len(composite.Spreads),
		})
		o.logger.Info(l10n.F("Exported chapter %s: %d pages in %d spreads", chapter.Name, pages.PageCount(), len(composite.Spreads)))
	}

	o.logger.Info(l10n.T("Export completed successfully"))
	return result, nil
}

// RunResult contains the results of an export run.
type RunResult struct {
	Chapters []ChapterResult
}

// ChapterResult describes one exported chapter.
type ChapterResult struct {
	Chapter pipeline.Chapter
	Pages   int
	Spreads int
}

// Spreads returns the number of spreads written across all chapters.
func (r RunResult) Spreads() int {
	total := 0
	for _, c := range r.Chapters {
		total += c.Spreads
	}
	return total
}
