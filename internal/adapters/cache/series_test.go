package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/pewinrate/internal/adapters/cache"
	"github.com/alejandrodnm/pewinrate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider cuenta las descargas y devuelve una serie fija o un error.
type stubProvider struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (p *stubProvider) FetchSeries(ctx context.Context) (domain.Series, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return domain.Series{domain.NewObservation(d, 15.5)}, nil
}

// fakeClock es un reloj manual.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestSeriesCache_HitWithinTTL(t *testing.T) {
	src := &stubProvider{}
	clk := newClock()
	c := cache.NewSeriesCache(src, time.Hour).WithClock(clk.Now)

	_, err := c.FetchSeries(context.Background())
	require.NoError(t, err)

	clk.Advance(59 * time.Minute)
	s, err := c.FetchSeries(context.Background())
	require.NoError(t, err)
	require.Len(t, s, 1)

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 59*time.Minute, c.Age())
}

func TestSeriesCache_RefreshAfterTTL(t *testing.T) {
	src := &stubProvider{}
	clk := newClock()
	c := cache.NewSeriesCache(src, time.Hour).WithClock(clk.Now)

	_, err := c.FetchSeries(context.Background())
	require.NoError(t, err)

	clk.Advance(time.Hour)
	_, err = c.FetchSeries(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.calls.Load())
	assert.Equal(t, clk.Now(), c.FetchedAt())
}

func TestSeriesCache_ZeroTTLDisables(t *testing.T) {
	src := &stubProvider{}
	c := cache.NewSeriesCache(src, 0)

	for i := 0; i < 3; i++ {
		_, err := c.FetchSeries(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestSeriesCache_ErrorsNotCached(t *testing.T) {
	src := &stubProvider{err: errors.New("provider down")}
	c := cache.NewSeriesCache(src, time.Hour)

	_, err := c.FetchSeries(context.Background())
	require.Error(t, err)

	src.err = nil
	s, err := c.FetchSeries(context.Background())
	require.NoError(t, err)
	assert.Len(t, s, 1)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestSeriesCache_Invalidate(t *testing.T) {
	src := &stubProvider{}
	c := cache.NewSeriesCache(src, time.Hour)

	_, err := c.FetchSeries(context.Background())
	require.NoError(t, err)
	c.Invalidate()
	assert.True(t, c.FetchedAt().IsZero())

	_, err = c.FetchSeries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestSeriesCache_ReturnsCopies(t *testing.T) {
	c := cache.NewSeriesCache(&stubProvider{}, time.Hour)

	a, err := c.FetchSeries(context.Background())
	require.NoError(t, err)
	a[0].Ratio = -1

	b, err := c.FetchSeries(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 15.5, b[0].Ratio, 1e-9)
}

func TestSeriesCache_ConcurrentRefreshCollapsed(t *testing.T) {
	src := &stubProvider{delay: 50 * time.Millisecond}
	c := cache.NewSeriesCache(src, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.FetchSeries(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestSeriesCache_SharedFetchSurvivesFirstCallerCancel(t *testing.T) {
	src := &stubProvider{delay: 200 * time.Millisecond}
	c := cache.NewSeriesCache(src, time.Hour)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.FetchSeries(ctxA)
		errA <- err
	}()

	// B se une al flight de A con un contexto vivo
	time.Sleep(10 * time.Millisecond)
	type result struct {
		s   domain.Series
		err error
	}
	resB := make(chan result, 1)
	go func() {
		s, err := c.FetchSeries(context.Background())
		resB <- result{s, err}
	}()

	time.Sleep(10 * time.Millisecond)
	cancelA()

	assert.ErrorIs(t, <-errA, context.Canceled)

	b := <-resB
	require.NoError(t, b.err)
	assert.Len(t, b.s, 1)
	assert.Equal(t, int32(1), src.calls.Load())

	// El resultado quedó en caché
	_, err := c.FetchSeries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())
}
