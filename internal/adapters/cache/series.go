package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/pewinrate/internal/domain"
	"github.com/alejandrodnm/pewinrate/internal/ports"
	"golang.org/x/sync/singleflight"
)

const flightKey = "series"

// SeriesCache memoriza la última serie descargada durante ttl.
// Envuelve cualquier ports.SeriesProvider y lo implementa a su vez,
// así que el dominio nunca sabe si la serie viene de caché.
//
// Refrescos concurrentes con la caché vencida se colapsan en una sola
// descarga. Los errores no se cachean.
type SeriesCache struct {
	src   ports.SeriesProvider
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu        sync.RWMutex
	series    domain.Series
	fetchedAt time.Time
}

// NewSeriesCache crea una caché con el TTL dado. ttl <= 0 desactiva la caché.
func NewSeriesCache(src ports.SeriesProvider, ttl time.Duration) *SeriesCache {
	return &SeriesCache{src: src, ttl: ttl, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (c *SeriesCache) WithClock(now func() time.Time) *SeriesCache {
	c.now = now
	return c
}

// FetchSeries devuelve la serie cacheada si no está vencida; si no, descarga.
// Cada llamada recibe su propia copia del slice.
func (c *SeriesCache) FetchSeries(ctx context.Context) (domain.Series, error) {
	if s, ok := c.fresh(); ok {
		slog.Debug("series cache hit", "age", c.Age().Round(time.Second))
		return s, nil
	}

	// La descarga compartida no depende del contexto de quien la inició:
	// si ese caller se rinde, los demás siguen esperando el resultado.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey, func() (any, error) {
		// Otro flight pudo haber llenado la caché mientras esperábamos
		if s, ok := c.fresh(); ok {
			return s, nil
		}

		s, err := c.src.FetchSeries(flightCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.series = s
		c.fetchedAt = c.now()
		c.mu.Unlock()

		slog.Debug("series cache refreshed", "observations", len(s))
		return s, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		slog.Debug("series fetch shared between callers")
	}

	v := res.Val
	return clone(v.(domain.Series)), nil
}

// Invalidate fuerza una descarga en el próximo FetchSeries.
func (c *SeriesCache) Invalidate() {
	c.mu.Lock()
	c.series = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

// FetchedAt devuelve el instante de la última descarga (zero si nunca).
func (c *SeriesCache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Age devuelve la antigüedad de la serie cacheada.
func (c *SeriesCache) Age() time.Duration {
	at := c.FetchedAt()
	if at.IsZero() {
		return 0
	}
	return c.now().Sub(at)
}

func (c *SeriesCache) fresh() (domain.Series, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ttl <= 0 || c.series == nil {
		return nil, false
	}
	if c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return clone(c.series), true
}

func clone(s domain.Series) domain.Series {
	out := make(domain.Series, len(s))
	copy(out, s)
	return out
}
