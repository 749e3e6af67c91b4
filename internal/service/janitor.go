package service

import (
	"context"
	"time"
)

// UsageJanitor periodically prunes idempotency keys older than the retention
// window. It runs as a background loop owned by the process lifecycle.
type UsageJanitor struct {
	ServiceParams
	usage UsageService
	stop  chan struct{}
	done  chan struct{}
}

func NewUsageJanitor(params ServiceParams, usageSvc UsageService) *UsageJanitor {
	return &UsageJanitor{
		ServiceParams: params,
		usage:         usageSvc,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the prune loop. It returns immediately.
func (j *UsageJanitor) Start(ctx context.Context) {
	go j.run(ctx)
}

// Stop signals the loop to exit and waits for it to drain
func (j *UsageJanitor) Stop() {
	close(j.stop)
	<-j.done
}

func (j *UsageJanitor) run(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.Config.Usage.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.prune(ctx)
		case <-j.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (j *UsageJanitor) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.Config.Usage.IdempotencyRetention)
	pruned, err := j.usage.PruneIdempotencyKeys(ctx, cutoff)
	if err != nil {
		j.Logger.Errorw("failed to prune idempotency keys", "error", err)
		return
	}
	if pruned > 0 {
		j.Logger.Infow("pruned idempotency keys", "count", pruned, "cutoff", cutoff)
	}
}
