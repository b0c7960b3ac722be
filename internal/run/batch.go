package run

import (
	"context"
	"sync"
)

// Batch runs independent kinetic requests in parallel, one goroutine
// per request. Requests share the runner's engine but nothing else;
// each gets its own memo cache, so runs cannot observe each other.
type Batch struct {
	runner *Runner
}

func NewBatch(r *Runner) *Batch {
	return &Batch{runner: r}
}

func (b *Batch) Kinetic(ctx context.Context, reqs []KineticRequest) ([]*KineticOutcome, error) {
	outs := make([]*KineticOutcome, len(reqs))
	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			outs[idx], errs[idx] = b.runner.Kinetic(ctx, reqs[idx])
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return outs, err
		}
	}
	return outs, nil
}

func (b *Batch) Dose(ctx context.Context, reqs []DoseRequest) ([]*DoseOutcome, error) {
	outs := make([]*DoseOutcome, len(reqs))
	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			outs[idx], errs[idx] = b.runner.Dose(ctx, reqs[idx])
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return outs, err
		}
	}
	return outs, nil
}
