// Package composite implements the spread composition stage.
package composite

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sort"
	"sync"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
)

// placeholderAspect sizes the slot of a page that failed to decode.
const placeholderAspect = 0.7

var placeholderColor = color.RGBA{R: 60, G: 60, B: 60, A: 255}

// Stage composes presentation groups into spread images.
type Stage struct {
	decoder    ports.ImageDecoder
	renderer   ports.Renderer
	sink       ports.DebugSink
	logger     ports.Logger
	numWorkers int
}

// NewStage creates a new composite stage.
func NewStage(decoder ports.ImageDecoder, renderer ports.Renderer, sink ports.DebugSink, logger ports.Logger, numWorkers int) *Stage {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Stage{
		decoder:    decoder,
		renderer:   renderer,
		sink:       sink,
		logger:     logger.WithComponent("composite"),
		numWorkers: numWorkers,
	}
}

// Execute composes every group of the chapter.
func (s *Stage) Execute(ctx context.Context, input pipeline.CompositeInput) (pipeline.CompositeResult, error) {
	if len(input.Groups) == 0 {
		return pipeline.CompositeResult{Spreads: []pipeline.ComposedSpread{}}, nil
	}
	defaults := pipeline.DefaultCompositeInput()
	if input.Height <= 0 {
		input.Height = defaults.Height
	}
	if input.Background == nil {
		input.Background = defaults.Background
	}

	s.logger.Debug("Compositing %d spreads with %d workers", len(input.Groups), s.numWorkers)

	result, err := s.executeParallel(ctx, input)
	if err != nil {
		return result, err
	}

	s.logger.Debug("Composition completed")
	return result, nil
}

func (s *Stage) executeParallel(ctx context.Context, input pipeline.CompositeInput) (pipeline.CompositeResult, error) {
	numGroups := len(input.Groups)
	jobs := make(chan int, numGroups)
	results := make(chan pipeline.ComposedSpread, numGroups)
	errChan := make(chan error, s.numWorkers)

	var wg sync.WaitGroup
	for w := 0; w < s.numWorkers; w++ {
		wg.Add(1)
		go s.worker(ctx, &wg, input, jobs, results, errChan)
	}

	for i := 0; i < numGroups; i++ {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
		close(errChan)
	}()

	spreads := make([]pipeline.ComposedSpread, 0, numGroups)
	for spread := range results {
		spreads = append(spreads, spread)

		if s.sink.Enabled() {
			if err := s.sink.SaveSpread(string(input.Chapter.ID), spread.Index, spread.Image); err != nil {
				s.logger.Warn("Failed to save spread %d: %v", spread.Index, err)
			}
		}
	}

	if err := <-errChan; err != nil {
		return pipeline.CompositeResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return pipeline.CompositeResult{}, err
	}

	sort.Slice(spreads, func(i, j int) bool {
		return spreads[i].Index < spreads[j].Index
	})

	return pipeline.CompositeResult{Spreads: spreads}, nil
}

func (s *Stage) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	input pipeline.CompositeInput,
	jobs <-chan int,
	results chan<- pipeline.ComposedSpread,
	errChan chan<- error,
) {
	defer wg.Done()

	for idx := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		spread, err := s.composeSpread(ctx, input, idx)
		if err != nil {
			select {
			case errChan <- fmt.Errorf("compose spread %d: %w", idx, err):
			default:
			}
			return
		}

		results <- spread
	}
}

// slot is one page of a group scaled to the output height.
type slot struct {
	img   image.Image // nil for a page that failed to decode
	width int
}

// composeSpread draws the pages of one group left to right at a common height.
// Pages that fail to decode become placeholder slots.
func (s *Stage) composeSpread(ctx context.Context, input pipeline.CompositeInput, index int) (pipeline.ComposedSpread, error) {
	group := input.Groups[index]
	slots := make([]slot, len(group))
	totalWidth := input.Gap * (len(group) - 1)

	for i, page := range group {
		locator := input.Chapter.Locator(page)
		if locator == "" {
			return pipeline.ComposedSpread{}, fmt.Errorf("page %d out of range", page)
		}
		img, err := s.decoder.Decode(ctx, locator)
		if err != nil {
			if pipeline.IsCancellation(err) {
				return pipeline.ComposedSpread{}, err
			}
			var decodeErr *pipeline.DecodeError
			if !errors.As(err, &decodeErr) {
				err = &pipeline.DecodeError{Locator: locator, Err: err}
			}
			s.logger.Warn("Drawing placeholder for page %d: %v", page, err)
			slots[i] = slot{width: scaledWidth(placeholderAspect, input.Height)}
		} else {
			b := img.Bounds()
			aspect := placeholderAspect
			if b.Dy() > 0 {
				aspect = float64(b.Dx()) / float64(b.Dy())
			}
			slots[i] = slot{img: img, width: scaledWidth(aspect, input.Height)}
		}
		totalWidth += slots[i].width
	}

	canvas := s.renderer.CreateCanvas(totalWidth, input.Height, input.Background)
	x := 0
	for i, sl := range slots {
		if sl.img != nil {
			canvas.DrawImageScaled(sl.img, x, 0, sl.width, input.Height)
		} else {
			canvas.DrawRect(x, 0, sl.width, input.Height, placeholderColor)
		}
		x += sl.width
		if i < len(slots)-1 {
			x += input.Gap
		}
	}

	return pipeline.ComposedSpread{
		Index: index,
		Group: group,
		Image: canvas.ToImage(),
	}, nil
}

func scaledWidth(aspect float64, height int) int {
	w := int(aspect*float64(height) + 0.5)
	if w < 1 {
		w = 1
	}
	return w
}
