package docker

import (
	"context"
	"sync"
	"time"

	"github.com/PabloPavan/swiftsnip/internal/telemetry"
)

// Pool keeps a number of started sandbox containers ready for use.
// Containers are single use: the executor removes each one after a run.
type Pool struct {
	create func(ctx context.Context) (string, error)
	remove func(id string)

	containers chan string
	done       chan struct{}
	wg         sync.WaitGroup
	start      sync.Once
	stop       sync.Once
	backoff    time.Duration
}

func NewPool(size int, create func(ctx context.Context) (string, error), remove func(id string)) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		create:     create,
		remove:     remove,
		containers: make(chan string, size),
		done:       make(chan struct{}),
		backoff:    time.Second,
	}
}

func (p *Pool) Start() {
	p.start.Do(func() {
		telemetry.LogInfo(context.Background(), "sandbox pool starting",
			telemetry.LogInt("pool.size", cap(p.containers)),
		)
		p.wg.Add(1)
		go p.fill()
	})
}

// Stop ends the filler and removes every idle container.
func (p *Pool) Stop() {
	p.stop.Do(func() {
		close(p.done)
		p.wg.Wait()
		for {
			select {
			case id := <-p.containers:
				p.remove(id)
			default:
				return
			}
		}
	})
}

// Get blocks until a container is ready or ctx ends.
func (p *Pool) Get(ctx context.Context) (string, error) {
	select {
	case id := <-p.containers:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *Pool) fill() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		id, err := p.create(ctx)
		cancel()
		if err != nil {
			telemetry.LogError(context.Background(), "sandbox container create failed",
				telemetry.LogErr(err),
			)
			select {
			case <-p.done:
				return
			case <-time.After(p.backoff):
			}
			continue
		}

		select {
		case p.containers <- id:
		case <-p.done:
			p.remove(id)
			return
		}
	}
}
