package ports

import (
	"context"
	"image"
)

// ImageInfo describes an image without its pixels.
type ImageInfo struct {
	Width  int
	Height int
	Format string
}

// Aspect returns width/height, or 0 when the height is unknown.
func (i ImageInfo) Aspect() float64 {
	if i.Height <= 0 {
		return 0
	}
	return float64(i.Width) / float64(i.Height)
}

// ImageDecoder abstracts the host's image loading and decoding facility.
type ImageDecoder interface {
	// Measure loads just enough of the image to report its dimensions.
	Measure(ctx context.Context, locator string) (ImageInfo, error)

	// Decode returns once the image is fully decoded and ready to paint.
	Decode(ctx context.Context, locator string) (image.Image, error)

	// Preload warms the loader's cache without waiting for the result.
	Preload(locator string)
}
