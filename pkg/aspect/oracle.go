// Package aspect implements the memoizing page aspect-ratio oracle used for
// spread pairing decisions.
package aspect

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
)

// Fallback is the aspect ratio reported for pages that cannot be measured.
// It is a typical portrait page, so a broken page never forms a solo wide group.
const Fallback = 0.7

// Oracle maps page locators to width/height ratios. Values are measured once
// and remembered for the life of the Oracle. It is safe for concurrent use.
type Oracle struct {
	base       context.Context
	decoder    ports.ImageDecoder
	logger     ports.Logger
	numWorkers int

	flight singleflight.Group

	mu       sync.Mutex
	memo     map[string]float64
	failures int
}

// New creates an Oracle. Shared measurements run under base.
func New(base context.Context, decoder ports.ImageDecoder, numWorkers int, logger ports.Logger) *Oracle {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Oracle{
		base:       base,
		decoder:    decoder,
		logger:     logger.WithComponent("aspect"),
		numWorkers: numWorkers,
		memo:       make(map[string]float64),
	}
}

// Measure returns the aspect ratio of the page at locator.
//
// A failed measurement yields Fallback and is remembered, so the page is not
// measured again. If ctx ends first, Fallback is returned and nothing is
// remembered.
func (o *Oracle) Measure(ctx context.Context, locator string) float64 {
	if v, ok := o.Cached(locator); ok {
		return v
	}

	ch := o.flight.DoChan(locator, func() (interface{}, error) {
		return o.measure(locator), nil
	})

	select {
	case <-ctx.Done():
		return Fallback
	case res := <-ch:
		return res.Val.(float64)
	}
}

func (o *Oracle) measure(locator string) float64 {
	if v, ok := o.Cached(locator); ok {
		return v
	}

	info, err := o.decoder.Measure(o.base, locator)
	if err != nil {
		if pipeline.IsCancellation(err) {
			return Fallback
		}
		o.logger.Warn("Failed to measure %s: %s", locator, &pipeline.DecodeError{Locator: locator, Err: err})
		o.store(locator, Fallback, true)
		return Fallback
	}

	ratio := info.Aspect()
	if ratio <= 0 {
		o.logger.Warn("Image %s has no usable size", locator)
		o.store(locator, Fallback, true)
		return Fallback
	}
	o.store(locator, ratio, false)
	return ratio
}

func (o *Oracle) store(locator string, ratio float64, failed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.memo[locator] = ratio
	if failed {
		o.failures++
	}
}

// Cached returns a remembered aspect ratio without measuring.
func (o *Oracle) Cached(locator string) (float64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.memo[locator]
	return v, ok
}

type indexedAspect struct {
	index int
	ratio float64
}

// Aspects measures every locator with a worker pool and returns the ratios
// in locator order. It returns ctx.Err() if ctx ends before all are known.
func (o *Oracle) Aspects(ctx context.Context, locators []string) ([]float64, error) {
	out := make([]float64, len(locators))
	if len(locators) == 0 {
		return out, nil
	}

	jobs := make(chan int, len(locators))
	results := make(chan indexedAspect, len(locators))

	var wg sync.WaitGroup
	for w := 0; w < o.numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					return
				}
				results <- indexedAspect{index: idx, ratio: o.Measure(ctx, locators[idx])}
			}
		}()
	}

	for i := range locators {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		out[r.index] = r.ratio
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Prewarm measures locators in the background under the base context.
// The returned channel is closed when every locator is known.
func (o *Oracle) Prewarm(locators []string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := o.Aspects(o.base, locators); err != nil {
			o.logger.Debug("Prewarm stopped: %s", err)
		}
	}()
	return done
}

// Len returns the number of remembered measurements.
func (o *Oracle) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.memo)
}

// Failures returns how many pages fell back to the default ratio.
func (o *Oracle) Failures() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failures
}

// Reset forgets every measurement.
func (o *Oracle) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.memo = make(map[string]float64)
	o.failures = 0
}
