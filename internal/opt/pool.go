package opt

import "sync"

// pool is a fixed set of worker goroutines fed from one job channel. It is
// created once per search run and closed when the run ends.
type pool struct {
	jobs chan func()
	wg   sync.WaitGroup
	once sync.Once
}

func newPool(workers int) *pool {
	if workers <= 0 {
		workers = 1
	}
	p := &pool{jobs: make(chan func(), workers)}
	p.wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
			}
		}()
	}
	return p
}

func (p *pool) submit(job func()) { p.jobs <- job }

// Close stops accepting work and waits for in-flight jobs.
func (p *pool) Close() {
	p.once.Do(func() {
		close(p.jobs)
		p.wg.Wait()
	})
}
