package metrics

import (
	"context"
	"time"
)

// ObserveJob runs one background job and records how long it took and
// whether it failed, labelled by job name.
func ObserveJob(ctx context.Context, job string, run func(ctx context.Context) error) error {
	started := time.Now()
	err := run(ctx)
	jobDurationHistogram.
		WithLabelValues(job, outcome(err != nil).String()).
		Observe(time.Since(started).Seconds())
	return err
}
