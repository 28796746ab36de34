package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/pewinrate/internal/domain"
	"github.com/alejandrodnm/pewinrate/internal/ports"
	"github.com/google/uuid"
)

// maxLoggedExclusions limita cuántas fechas excluidas se listan en el log.
const maxLoggedExclusions = 5

// Config contiene la configuración del monitor.
type Config struct {
	RefreshInterval time.Duration
	WinRateLevels   []float64 // niveles de umbral, p.ej. [90, 80]
	Once            bool      // un solo ciclo y salir
}

// DefaultConfig devuelve la configuración por defecto: refresco horario
// y umbrales de 90% y 80% de win rate.
func DefaultConfig() Config {
	return Config{
		RefreshInterval: time.Hour,
		WinRateLevels:   []float64{90, 80},
	}
}

// Monitor orquesta cada refresco: fetch → rank → umbrales → notificar.
type Monitor struct {
	cfg      Config
	series   ports.SeriesProvider
	notifier ports.Notifier
	ranker   *domain.Ranker
	now      func() time.Time

	previousStatus domain.StatusLabel
	hasPrevious    bool
}

// New crea un Monitor con todas las dependencias inyectadas.
func New(cfg Config, series ports.SeriesProvider, notifier ports.Notifier, ranker *domain.Ranker) *Monitor {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultConfig().RefreshInterval
	}
	if len(cfg.WinRateLevels) == 0 {
		cfg.WinRateLevels = DefaultConfig().WinRateLevels
	}
	return &Monitor{
		cfg:      cfg,
		series:   series,
		notifier: notifier,
		ranker:   ranker,
		now:      time.Now,
	}
}

// Run ejecuta el loop de refresco hasta que el contexto se cancele.
// Si cfg.Once está activo, ejecuta un solo ciclo y devuelve su error.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("monitor starting",
		"interval", m.cfg.RefreshInterval,
		"levels", m.cfg.WinRateLevels,
		"once", m.cfg.Once,
	)

	if err := m.runCycle(ctx); err != nil {
		slog.Error("refresh cycle failed", "err", err)
		if m.cfg.Once {
			return err
		}
	}

	if m.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor stopped")
			return nil
		case <-ticker.C:
			if err := m.runCycle(ctx); err != nil {
				slog.Error("refresh cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta exactamente un refresco y devuelve el reporte, sin notificar.
func (m *Monitor) RunOnce(ctx context.Context) (domain.Report, error) {
	return m.refresh(ctx)
}

// runCycle ejecuta un refresco y notifica el resultado, incluso si falló:
// el notifier muestra entonces un mensaje explicativo.
func (m *Monitor) runCycle(ctx context.Context) error {
	start := time.Now()

	report, err := m.refresh(ctx)

	if nerr := m.notifier.Notify(ctx, report); nerr != nil {
		slog.Warn("notifier error", "err", nerr)
	}
	if err != nil {
		return err
	}

	m.emitStatusAlert(report)

	slog.Info("refresh cycle complete",
		"id", report.ID,
		"date", report.Latest.Date.Format(domain.DateLayout),
		"pe", fmt.Sprintf("%.2f", report.Latest.Ratio),
		"win_rate", fmt.Sprintf("%.2f", report.Latest.WinRate),
		"status", report.Status,
		"population", report.Series.Population,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// refresh construye el reporte completo de un ciclo. Nunca devuelve un
// ranking parcial: o todo el reporte es válido o Err está seteado.
func (m *Monitor) refresh(ctx context.Context) (domain.Report, error) {
	report := domain.Report{
		ID:          uuid.NewString(),
		GeneratedAt: m.now(),
	}

	fail := func(err error) (domain.Report, error) {
		report.Err = err
		return report, err
	}

	series, err := m.series.FetchSeries(ctx)
	if err != nil {
		return fail(fmt.Errorf("monitor.refresh: fetch series: %w", err))
	}

	ranked, thresholds, err := m.ranker.Evaluate(series, m.cfg.WinRateLevels...)
	if err != nil {
		return fail(fmt.Errorf("monitor.refresh: %w", err))
	}
	logExclusions(report.ID, ranked.Excluded)

	latest, _ := ranked.Latest()
	report.Series = ranked
	report.Latest = latest
	report.Status = domain.Classify(latest.WinRate)
	report.Thresholds = thresholds
	return report, nil
}

// emitStatusAlert registra una alerta cuando el mercado entra en la banda de
// win rate alto (no lo estaba en el ciclo anterior). Devuelve true si alertó.
func (m *Monitor) emitStatusAlert(r domain.Report) bool {
	entered := r.Status == domain.HighWinRate &&
		(!m.hasPrevious || m.previousStatus != domain.HighWinRate)

	if m.hasPrevious && m.previousStatus != r.Status {
		slog.Info("status changed", "from", m.previousStatus, "to", r.Status)
	}
	m.previousStatus = r.Status
	m.hasPrevious = true

	if !entered {
		return false
	}

	attrs := []any{
		"date", r.Latest.Date.Format(domain.DateLayout),
		"pe", fmt.Sprintf("%.2f", r.Latest.Ratio),
		"win_rate", fmt.Sprintf("%.2f%%", r.Latest.WinRate),
		"status", r.Status.Description(),
	}
	for _, th := range r.Thresholds {
		attrs = append(attrs, fmt.Sprintf("pe_at_%.0f", th.WinRate), fmt.Sprintf("%.2f", th.Ratio))
	}
	slog.Warn("ENTERED HIGH WIN RATE", attrs...)
	return true
}

// logExclusions deja constancia de las observaciones fuera de la población.
func logExclusions(id string, excluded []domain.Exclusion) {
	if len(excluded) == 0 {
		return
	}

	invalid := 0
	dates := make([]string, 0, maxLoggedExclusions)
	for _, e := range excluded {
		if errors.Is(e.Reason, domain.ErrInvalidRatio) {
			invalid++
		}
		if len(dates) < maxLoggedExclusions {
			dates = append(dates, e.Date.Format(domain.DateLayout))
		}
	}

	slog.Warn("observations excluded from ranking",
		"id", id,
		"excluded", len(excluded),
		"invalid", invalid,
		"missing", len(excluded)-invalid,
		"first_dates", dates,
	)
}
