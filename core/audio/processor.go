package audio

import (
	"context"
	"time"
)

// Prober reports media durations.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}
