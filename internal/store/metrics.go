package store

import (
	"context"
	"time"

	"github.com/jw6ventures/fitverse/internal/metrics"
)

// observeDB starts timing a query; call the returned func when it returns.
// Operations are named "<table>.<verb>", e.g. "sessions.get".
func observeDB(ctx context.Context, operation string) func() {
	start := time.Now()
	return func() {
		metrics.ObserveDBLatency(ctx, operation, start)
	}
}
