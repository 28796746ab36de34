package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/pewinrate/internal/domain"
	"github.com/olekukonko/tablewriter"
)

const (
	progressWidth = 20
	// Umbral a partir del cual se resalta la fila (mismo corte que HighWinRate).
	highlightWinRate = 80.0
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
	rows  int // filas de la tabla; 0 = todas
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool, rows int) *Console {
	return &Console{out: os.Stdout, table: table, rows: rows}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool, rows int) *Console {
	return &Console{out: w, table: table, rows: rows}
}

// Notify imprime el reporte en el modo configurado.
func (c *Console) Notify(_ context.Context, report domain.Report) error {
	if !report.OK() {
		c.printUnavailable(report)
		return nil
	}

	if c.table {
		return c.printFull(report)
	}
	c.printCompact(report)
	return nil
}

// printUnavailable explica por qué no hay ranking en lugar de mostrar nada.
func (c *Console) printUnavailable(r domain.Report) {
	now := clock(r.GeneratedAt)
	switch {
	case errors.Is(r.Err, domain.ErrEmptyPopulation), r.Err == nil:
		fmt.Fprintf(c.out, "[%s] no valid PE observations to rank against — nothing to chart this cycle\n", now)
	default:
		fmt.Fprintf(c.out, "[%s] win-rate refresh failed: %v\n", now, r.Err)
	}
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(r domain.Report) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s PE %.2f win %.2f%% (%+.1f) %s %s",
		clock(r.GeneratedAt),
		r.Latest.Date.Format(domain.DateLayout),
		r.Latest.Ratio,
		r.Latest.WinRate,
		r.WinRateDelta(),
		r.Status.Icon(),
		r.Status,
	)

	for i, th := range r.Thresholds {
		sep := " | "
		if i > 0 {
			sep = " "
		}
		fmt.Fprintf(&sb, "%s%.0f%%≤%.2f", sep, th.WinRate, th.Ratio)
	}

	fmt.Fprintf(&sb, " | n=%d excl=%d", r.Series.Population, len(r.Series.Excluded))
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime métricas, líneas de umbral y la tabla de monitoreo.
func (c *Console) printFull(r domain.Report) error {
	fmt.Fprintf(c.out, "\n[%s] whole-market PE win rate — %d observations\n",
		clock(r.GeneratedAt), r.Series.Population)

	fmt.Fprintf(c.out, "  Date:      %s\n", r.Latest.Date.Format(domain.DateLayout))
	fmt.Fprintf(c.out, "  PE (TTM):  %.2f\n", r.Latest.Ratio)
	fmt.Fprintf(c.out, "  Win rate:  %.2f%% (%+.1f%% vs 50)\n", r.Latest.WinRate, r.WinRateDelta())
	fmt.Fprintf(c.out, "  Status:    %s %s\n", r.Status.Icon(), r.Status.Description())

	for _, th := range r.Thresholds {
		fmt.Fprintf(c.out, "  ── %.0f%% win-rate line (PE=%.2f)\n", th.WinRate, th.Ratio)
	}
	fmt.Fprintln(c.out)

	if err := c.printTable(r); err != nil {
		return fmt.Errorf("notify.Console: render table: %w", err)
	}

	fmt.Fprintf(c.out, "  * = win rate >= %.0f%% | ◀ = current reading\n", highlightWinRate)
	if n := len(r.Series.Excluded); n > 0 {
		fmt.Fprintf(c.out, "  %d observations excluded (%d invalid ratio, %d missing)\n",
			n, r.Series.InvalidCount(), n-r.Series.InvalidCount())
	}
	fmt.Fprintln(c.out)
	return nil
}

// printTable imprime la tabla diaria, más reciente primero.
func (c *Console) printTable(r domain.Report) error {
	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "PE", "Percentile", "Win rate", "")

	rows := descending(r.Series.Observations, c.rows)
	for i, ro := range rows {
		mark := ""
		if ro.WinRate >= highlightWinRate {
			mark = "*"
		}
		if i == 0 {
			mark += " ◀"
		}

		if err := table.Append(
			ro.Date.Format(domain.DateLayout),
			fmt.Sprintf("%.2f", ro.Ratio),
			fmt.Sprintf("%.2f%%", ro.Percentile),
			progressBar(ro.WinRate, progressWidth),
			strings.TrimSpace(mark),
		); err != nil {
			return err
		}
	}

	return table.Render()
}

// descending devuelve hasta limit observaciones en orden de fecha descendente.
func descending(obs []domain.RankedObservation, limit int) []domain.RankedObservation {
	n := len(obs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.RankedObservation, 0, n)
	for i := len(obs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, obs[i])
	}
	return out
}

// progressBar dibuja un win rate acotado a [0,100].
func progressBar(winRate float64, width int) string {
	w := math.Max(0, math.Min(100, winRate))
	filled := int(math.Round(w / 100 * float64(width)))
	return fmt.Sprintf("%s%s %6.2f%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", width-filled),
		w,
	)
}

func clock(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("15:04:05")
}
