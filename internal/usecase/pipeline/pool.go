package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

// Pool fans incoming articles out to a fixed number of pipeline workers.
// A configuration error from any article aborts the whole run: every article
// would fail the same way, so continuing only burns provider quota.
type Pool struct {
	service     *Service
	concurrency int
	logger      *zap.Logger
}

// NewPool creates a worker pool over the pipeline service.
func NewPool(service *Service, concurrency int, logger *zap.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pool{service: service, concurrency: concurrency, logger: logger}
}

// Run processes articles from in until the channel closes or ctx is
// canceled. It returns the configuration error that aborted the run, or nil.
func (p *Pool) Run(ctx context.Context, in <-chan domain.Article) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		confErr error
	)

	abort := func(err error) {
		mu.Lock()
		if confErr == nil {
			confErr = err
		}
		mu.Unlock()
		cancel()
	}

	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case art, ok := <-in:
					if !ok {
						return
					}
					outcome := p.service.Process(ctx, art)
					if outcome.Err != nil && domain.IsConfiguration(outcome.Err) {
						p.logger.Error("Configuration error, aborting run",
							zap.String("article_id", outcome.ArticleID),
							zap.Error(outcome.Err))
						abort(outcome.Err)
						return
					}
				}
			}
		}()
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return confErr
}
