package navigator

import "errors"

// ErrNotOpen is returned by operations that need an open chapter.
var ErrNotOpen = errors.New("navigator: no chapter open")
