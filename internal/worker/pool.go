package worker

import (
	"context"
	"sync"
)

// Job is one unit of labeling work
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one job
type Result interface {
	GetError() error
}

// Pool fans a batch of jobs over a fixed number of workers. It is built for
// the batch shape of a labeling run: the whole job set is known up front,
// and the result buffer is sized to it, so workers never block publishing
// no matter how far the batch outruns the worker count.
type Pool struct {
	workers int
}

// NewPool creates a pool of the given width
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Run executes every job and returns one result per job, in completion
// order. The context is handed to each job; cancellation is the job's to
// honor, so a cancelled batch still yields a result per job.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	if len(jobs) == 0 {
		return []Result{}
	}

	workers := p.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobCh := make(chan Job)
	resultCh := make(chan Result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				resultCh <- job.Execute(ctx)
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()
	close(resultCh)

	results := make([]Result, 0, len(jobs))
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}
