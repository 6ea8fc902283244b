// Package spread implements the page grouping stage for two-page spreads.
package spread

import (
	"context"

	"github.com/user/moku/pkg/pipeline"
)

// Stage partitions a chapter's pages into presentation groups.
// This is a pure function with no external dependencies.
type Stage struct{}

// NewStage creates a new spread stage.
func NewStage() *Stage {
	return &Stage{}
}

// Execute computes the presentation groups for the input.
func (s *Stage) Execute(ctx context.Context, input pipeline.SpreadInput) (pipeline.SpreadResult, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.SpreadResult{}, err
	}
	return ComputeGroups(input), nil
}

// ComputeGroups performs the grouping.
//
// Page 1 is always alone, and so is page 2 when OffsetFirstSpread is set.
// From there pages pair up left to right, except that a page stays alone when
// it is the last page, when it is wide, or when the page after it is wide.
// Pairs hold display order: [n, n+1] left to right, [n+1, n] right to left.
func ComputeGroups(input pipeline.SpreadInput) pipeline.SpreadResult {
	n := input.PageCount
	if n <= 0 {
		return pipeline.SpreadResult{Groups: []pipeline.Group{}}
	}

	threshold := input.WideThreshold
	if threshold <= 0 {
		threshold = pipeline.DefaultWideThreshold
	}
	wide := func(page int) bool {
		if page < 1 || page > len(input.Aspects) {
			return false
		}
		return input.Aspects[page-1] > threshold
	}

	groups := make([]pipeline.Group, 0, n/2+2)
	groups = append(groups, pipeline.Group{1})
	page := 2
	if input.OffsetFirstSpread && n >= 2 {
		groups = append(groups, pipeline.Group{2})
		page = 3
	}

	for page <= n {
		if page == n || wide(page) || wide(page+1) {
			groups = append(groups, pipeline.Group{page})
			page++
			continue
		}
		if input.RightToLeft {
			groups = append(groups, pipeline.Group{page + 1, page})
		} else {
			groups = append(groups, pipeline.Group{page, page + 1})
		}
		page += 2
	}

	return pipeline.SpreadResult{Groups: groups}
}

// Singles returns one group per page, the grouping of single-page mode.
func Singles(pageCount int) []pipeline.Group {
	groups := make([]pipeline.Group, pageCount)
	for i := range groups {
		groups[i] = pipeline.Group{i + 1}
	}
	return groups
}

// FindGroup returns the index of the group showing page, or -1.
func FindGroup(groups []pipeline.Group, page int) int {
	for i, g := range groups {
		if g.Contains(page) {
			return i
		}
	}
	return -1
}
