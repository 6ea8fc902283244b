package aspect

import (
	"context"
	"errors"
	"testing"

	"github.com/user/moku/pkg/adapters/logger"
	"github.com/user/moku/pkg/mocks"
	"github.com/user/moku/pkg/ports"
)

func TestMeasure_Memoizes(t *testing.T) {
	decoder := &mocks.ImageDecoder{
		Sizes: map[string]ports.ImageInfo{
			"wide.jpg": {Width: 2000, Height: 1000},
		},
	}
	o := New(context.Background(), decoder, 2, logger.NewNoop())

	for i := 0; i < 3; i++ {
		if got := o.Measure(context.Background(), "wide.jpg"); got != 2.0 {
			t.Errorf("expected 2.0, got %f", got)
		}
	}
	if got := decoder.MeasureCalls("wide.jpg"); got != 1 {
		t.Errorf("expected 1 measurement, got %d", got)
	}
	if v, ok := o.Cached("wide.jpg"); !ok || v != 2.0 {
		t.Errorf("expected cached 2.0, got %f (%v)", v, ok)
	}
}

func TestMeasure_FailureFallsBackToPortrait(t *testing.T) {
	decoder := &mocks.ImageDecoder{
		MeasureFunc: func(ctx context.Context, locator string) (ports.ImageInfo, error) {
			return ports.ImageInfo{}, errors.New("corrupt header")
		},
	}
	o := New(context.Background(), decoder, 2, logger.NewNoop())

	if got := o.Measure(context.Background(), "broken.jpg"); got != Fallback {
		t.Errorf("expected fallback %f, got %f", Fallback, got)
	}
	if got := o.Measure(context.Background(), "broken.jpg"); got != Fallback {
		t.Errorf("expected fallback %f, got %f", Fallback, got)
	}
	if got := decoder.MeasureCalls("broken.jpg"); got != 1 {
		t.Errorf("expected failed measurement to be remembered, got %d calls", got)
	}
	if o.Failures() != 1 {
		t.Errorf("expected 1 failure, got %d", o.Failures())
	}
}

func TestMeasure_ZeroHeightFallsBack(t *testing.T) {
	decoder := &mocks.ImageDecoder{
		Sizes: map[string]ports.ImageInfo{"empty.png": {Width: 10, Height: 0}},
	}
	o := New(context.Background(), decoder, 1, logger.NewNoop())
	if got := o.Measure(context.Background(), "empty.png"); got != Fallback {
		t.Errorf("expected fallback, got %f", got)
	}
}

func TestMeasure_CancelledWaitIsNotRemembered(t *testing.T) {
	release := make(chan struct{})
	decoder := &mocks.ImageDecoder{
		MeasureFunc: func(ctx context.Context, locator string) (ports.ImageInfo, error) {
			<-release
			return ports.ImageInfo{Width: 1500, Height: 1000}, nil
		},
	}
	o := New(context.Background(), decoder, 1, logger.NewNoop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := o.Measure(ctx, "page.jpg"); got != Fallback {
		t.Errorf("expected fallback for cancelled wait, got %f", got)
	}
	if _, ok := o.Cached("page.jpg"); ok {
		t.Error("expected nothing remembered before the measurement finishes")
	}

	close(release)
	if got := o.Measure(context.Background(), "page.jpg"); got != 1.5 {
		t.Errorf("expected 1.5, got %f", got)
	}
}

func TestAspects_KeepsOrder(t *testing.T) {
	decoder := &mocks.ImageDecoder{
		Sizes: map[string]ports.ImageInfo{
			"1.jpg": {Width: 700, Height: 1000},
			"2.jpg": {Width: 1400, Height: 1000},
			"3.jpg": {Width: 500, Height: 1000},
		},
	}
	o := New(context.Background(), decoder, 3, logger.NewNoop())

	got, err := o.Aspects(context.Background(), []string{"1.jpg", "2.jpg", "3.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0.7, 1.4, 0.5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("aspects[%d]: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestAspects_CancelledContext(t *testing.T) {
	o := New(context.Background(), &mocks.ImageDecoder{}, 2, logger.NewNoop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := o.Aspects(ctx, []string{"1.jpg", "2.jpg"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPrewarmAndReset(t *testing.T) {
	decoder := &mocks.ImageDecoder{}
	o := New(context.Background(), decoder, 2, logger.NewNoop())

	<-o.Prewarm([]string{"a.jpg", "b.jpg", "c.jpg"})
	if o.Len() != 3 {
		t.Errorf("expected 3 measurements, got %d", o.Len())
	}

	o.Reset()
	if o.Len() != 0 {
		t.Errorf("expected empty memo after reset, got %d", o.Len())
	}
}
