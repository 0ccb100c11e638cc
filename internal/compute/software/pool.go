package software

import (
	"context"
	"sync"
)

// groupJob is one work group of a dispatch.
type groupJob struct {
	group  [3]int
	kernel func(group [3]int)
	done   *sync.WaitGroup
}

// workerPool runs work groups on a fixed set of goroutines, standing in for
// the compute units of a GPU.
type workerPool struct {
	jobQueue chan groupJob
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func newWorkerPool(workers int, queueSize int) *workerPool {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &workerPool{
		jobQueue: make(chan groupJob, queueSize),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := range workers {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	return pool
}

func (p *workerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			job.kernel(job.group)
			job.done.Done()
		case <-p.ctx.Done():
			return
		}
	}
}

// dispatch queues every group in the grid and blocks until all have run.
// Once started a dispatch always completes.
func (p *workerPool) dispatch(groups [3]int, kernel func(group [3]int)) {
	var done sync.WaitGroup
	for gz := 0; gz < groups[2]; gz++ {
		for gy := 0; gy < groups[1]; gy++ {
			for gx := 0; gx < groups[0]; gx++ {
				done.Add(1)
				p.jobQueue <- groupJob{group: [3]int{gx, gy, gz}, kernel: kernel, done: &done}
			}
		}
	}
	done.Wait()
}

// shutdown stops the workers after in-flight groups finish.
func (p *workerPool) shutdown() {
	close(p.jobQueue)
	p.wg.Wait()
	p.cancel()
}

// groupsFor returns ceil(size/local) per axis.
func groupsFor(size, local [3]int) [3]int {
	var g [3]int
	for i := range g {
		g[i] = (size[i] + local[i] - 1) / local[i]
	}
	return g
}
