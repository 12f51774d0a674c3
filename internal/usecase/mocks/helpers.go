package mocks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// SequenceIDGenerator returns prefix-1, prefix-2, ...
type SequenceIDGenerator struct {
	Prefix string
	n      atomic.Int64
}

// NewSequenceIDGenerator creates a generator with the given prefix.
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	return &SequenceIDGenerator{Prefix: prefix}
}

func (g *SequenceIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.Prefix, g.n.Add(1))
}

// RetrierFunc adapts a function to usecase.Retrier.
type RetrierFunc func(ctx context.Context, operation func() error) error

func (f RetrierFunc) Retry(ctx context.Context, operation func() error) error {
	return f(ctx, operation)
}

// RetryN retries the operation up to n extra times while retryable reports
// true for the returned error.
func RetryN(n int, retryable func(error) bool) RetrierFunc {
	return func(ctx context.Context, operation func() error) error {
		var err error
		for i := 0; i <= n; i++ {
			if err = operation(); err == nil || !retryable(err) {
				return err
			}
		}
		return err
	}
}

// MemoryCache is a map-backed usecase.Cache that ignores TTLs.
type MemoryCache struct {
	mu     sync.Mutex
	values map[string]string
	Hits   int
	Sets   int
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{values: make(map[string]string)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.values[key]
	if ok {
		c.Hits++
	}
	return v, ok, nil
}

func (c *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[key] = value
	c.Sets++
	return nil
}
