package pool

import (
	"context"
	"runtime"
	"sync/atomic"
)

// searchAlone runs f, which may return nil, until count elements are found.
func searchAlone(ctx context.Context, f func() (interface{}, error), count int) ([]interface{}, error) {
	results := make([]interface{}, count)
	for i := 0; i < len(results); i++ {
		for results[i] == nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res, err := f()
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
	}
	return results, nil
}

// command is used to trigger our latent workers to do something.
//
// A worker keeps calculating f until it returns a non nil result, and stops
// once enough results have been found, f fails, or ctx is done.
type command struct {
	ctx context.Context
	// This counter indicates the number of results that still need to be produced.
	ctr *int64
	f   func() (interface{}, error)
	// This is the array where we put results
	results []interface{}
	// found receives one value per result stored; it has capacity len(results)
	found chan<- struct{}
	// failed receives the errors returned by f; it has capacity workerCount
	failed chan<- error
}

// workerSearch is the subroutine called for a search command.
//
// We need to keep searching for successful queries of f while *ctr > 0.
// When we find a successful result, we decrement *ctr.
func workerSearch(c command) {
	for atomic.LoadInt64(c.ctr) > 0 {
		if c.ctx.Err() != nil {
			return
		}
		res, err := c.f()
		if err != nil {
			c.failed <- err
			return
		}
		if res == nil {
			continue
		}
		i := atomic.AddInt64(c.ctr, -1)
		if i < 0 {
			return
		}
		c.results[i] = res
		c.found <- struct{}{}
	}
}

// worker starts up a new worker, listening to commands.
func worker(commands <-chan command) {
	for c := range commands {
		workerSearch(c)
	}
}

// Pool represents a pool of workers, used for parallelizing searches.
//
// Functions needing a *Pool will work with a nil receiver, doing the equivalent
// work on the current goroutine instead.
//
// By creating a pool, you avoid the overhead of spinning up goroutines for
// each new operation.
type Pool struct {
	// The common channel used to send commands to the workers.
	//
	// This effectively makes a work stealing pool.
	commands chan command
	// This holds the number of workers we've created
	workerCount int
}

// NewPool creates a new pool, with a certain number of workers.
//
// If count <= 0, this will use the number of available CPUs instead.
func NewPool(count int) *Pool {
	var p Pool

	if count <= 0 {
		count = runtime.NumCPU()
	}

	p.commands = make(chan command)
	p.workerCount = count

	for i := 0; i < count; i++ {
		go worker(p.commands)
	}

	return &p
}

// TearDown cleanly tears down a pool, closing channels, etc.
// It is safe to call on a nil pool.
func (p *Pool) TearDown() {
	if p == nil {
		return
	}
	close(p.commands)
}

// Size returns the number of workers, or 1 for a nil pool.
func (p *Pool) Size() int {
	if p == nil {
		return 1
	}
	return p.workerCount
}

// Search queries the function f, until count successes are found.
//
// f is supposed to try a single candidate, returning nil if that candidate isn't
// successful. An error returned by f aborts the search.
//
// The result will be an array containing the first count successes.
// If ctx is done before that, ctx.Err() is returned.
func (p *Pool) Search(ctx context.Context, count int, f func() (interface{}, error)) ([]interface{}, error) {
	if p == nil {
		return searchAlone(ctx, f, count)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]interface{}, count)
	found := make(chan struct{}, count)
	failed := make(chan error, p.workerCount)

	ctr := int64(count)
	cmd := command{
		ctx:     ctx,
		ctr:     &ctr,
		f:       f,
		results: results,
		found:   found,
		failed:  failed,
	}
	for i := 0; i < p.workerCount; i++ {
		select {
		case p.commands <- cmd:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	for remaining := count; remaining > 0; {
		select {
		case <-found:
			remaining--
		case err := <-failed:
			return nil, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return results, nil
}
