package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/alejandrodnm/pewinrate/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://legulegu.com"
	defaultPath    = "/api/stock-a/ttm-lyr"
	defaultTimeout = 15 * time.Second

	// El endpoint devuelve toda la historia en una sola respuesta;
	// un refresco por hora no necesita más de 1 req/s.
	defaultRatePerSec = 1

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// ClientConfig contiene los parámetros del cliente HTTP.
// Los campos vacíos toman los valores por defecto.
type ClientConfig struct {
	BaseURL    string
	Path       string
	Timeout    time.Duration
	RatePerSec float64
}

// Client es el HTTP client del proveedor de datos de mercado,
// con rate limiting y retries. Implementa ports.SeriesProvider.
type Client struct {
	http    *http.Client
	url     string
	limiter *rate.Limiter
	// retryWait permite acortar el backoff en tests.
	retryWait time.Duration
}

// NewClient crea un Client con la configuración dada.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Path == "" {
		cfg.Path = defaultPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		url:       cfg.BaseURL + cfg.Path,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		retryWait: baseRetryWait,
	}
}

// FetchSeries descarga la historia completa del PE-TTM y la convierte a la
// forma canónica.
func (c *Client) FetchSeries(ctx context.Context) (domain.Series, error) {
	start := time.Now()

	var resp seriesResponse
	if err := c.get(ctx, c.url, &resp); err != nil {
		return nil, fmt.Errorf("marketdata.FetchSeries: %w", err)
	}

	series, err := mapRecords(resp)
	if err != nil {
		return nil, fmt.Errorf("marketdata.FetchSeries: %w", err)
	}

	slog.Debug("market data fetched",
		"records", len(resp),
		"observations", len(series),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return series, nil
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by market data provider", "attempt", attempt+1)
			if attempt == maxRetries {
				return fmt.Errorf("rate limited (429) after %d retries", maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
