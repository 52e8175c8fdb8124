package workpool

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var ErrSaturated = errors.New("worker pool saturated")

type Config struct {
	Workers      int
	QueueTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:      runtime.NumCPU(),
		QueueTimeout: 5 * time.Second,
	}
}

type Stats struct {
	Workers   int    `json:"workers"`
	InFlight  int64  `json:"in_flight"`
	Completed uint64 `json:"completed"`
	Rejected  uint64 `json:"rejected"`
}

// Pool bounds how many blocking calls run at once across all connections.
type Pool struct {
	cfg Config
	sem *semaphore.Weighted

	inFlight  atomic.Int64
	completed atomic.Uint64
	rejected  atomic.Uint64
}

func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Pool{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.Workers)),
	}
}

// Do runs fn once a worker slot frees up. If none frees up within the queue
// timeout it returns ErrSaturated without running fn.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if !p.sem.TryAcquire(1) {
		waitCtx := ctx
		if p.cfg.QueueTimeout > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, p.cfg.QueueTimeout)
			defer cancel()
		}
		if err := p.sem.Acquire(waitCtx, 1); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.rejected.Add(1)
			return ErrSaturated
		}
	}
	defer p.sem.Release(1)

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	err := fn(ctx)
	p.completed.Add(1)
	return err
}

func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.cfg.Workers,
		InFlight:  p.inFlight.Load(),
		Completed: p.completed.Load(),
		Rejected:  p.rejected.Load(),
	}
}
