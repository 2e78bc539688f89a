// Package newsflow is the embedded read client for a newsflow store. It
// connects straight to the database the pipeline writes to and exposes the
// stored summaries, per-article stage events, and queue depth without going
// through the HTTP API.
package newsflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbRedis "github.com/kailas-cloud/newsflow/internal/db/redis"
	"github.com/kailas-cloud/newsflow/internal/domain"
	eventsrepo "github.com/kailas-cloud/newsflow/internal/repository/events"
	requeuerepo "github.com/kailas-cloud/newsflow/internal/repository/requeue"
	summaryrepo "github.com/kailas-cloud/newsflow/internal/repository/summary"
)

const defaultReadinessTimeout = 10 * time.Second

// ErrNotFound is returned when no summary exists for the requested article.
var ErrNotFound = errors.New("newsflow: not found")

// Client is the newsflow read SDK entry point.
type Client struct {
	store     *dbRedis.Store
	summaries *summaryrepo.Repo
	events    *eventsrepo.Repo
	requeue   *requeuerepo.Repo
}

// New creates a Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("newsflow: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("newsflow: create store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("newsflow: database not ready: %w", err)
	}

	return &Client{
		store:     store,
		summaries: summaryrepo.New(store, 0),
		events:    eventsrepo.New(store, 0),
		requeue:   requeuerepo.New(store),
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Summary returns the stored summary for one article.
func (c *Client) Summary(ctx context.Context, articleID string) (Summary, error) {
	sum, err := c.summaries.Get(ctx, articleID)
	if err != nil {
		if errors.Is(err, domain.ErrSummaryNotFound) {
			return Summary{}, fmt.Errorf("summary %s: %w", articleID, ErrNotFound)
		}
		return Summary{}, fmt.Errorf("get summary: %w", err)
	}
	return summaryFromDomain(&sum), nil
}

// Summaries returns the most recently produced summaries, newest last.
func (c *Client) Summaries(ctx context.Context) ([]Summary, error) {
	sums, err := c.summaries.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	out := make([]Summary, 0, len(sums))
	for i := range sums {
		out = append(out, summaryFromDomain(&sums[i]))
	}
	return out, nil
}

// Events returns the recorded stage events for one article in order.
func (c *Client) Events(ctx context.Context, articleID string) ([]StageEvent, error) {
	evs, err := c.events.List(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]StageEvent, 0, len(evs))
	for _, ev := range evs {
		out = append(out, stageEventFromDomain(ev))
	}
	return out, nil
}

// QueueDepth returns how many articles currently wait in the requeue list.
func (c *Client) QueueDepth(ctx context.Context) (int64, error) {
	n, err := c.requeue.Len(ctx)
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return n, nil
}
