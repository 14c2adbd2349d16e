package scraper

import (
	"context"
	"time"
)

// SliceIntoChunks splits urls into consecutive chunks of size, the last
// one possibly shorter. The chunks share urls' backing array.
func SliceIntoChunks(urls []string, size int) [][]string {
	if size <= 0 || len(urls) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(urls)+size-1)/size)
	for i := 0; i < len(urls); i += size {
		end := min(i+size, len(urls))
		chunks = append(chunks, urls[i:end:end])
	}
	return chunks
}

// DelayFunc pauses for d or until ctx is done.
type DelayFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the wall-clock DelayFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
