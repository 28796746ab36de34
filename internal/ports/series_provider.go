package ports

import (
	"context"

	"github.com/alejandrodnm/pewinrate/internal/domain"
)

// SeriesProvider obtiene la serie histórica de PE-TTM del mercado completo.
type SeriesProvider interface {
	// FetchSeries devuelve la serie ya normalizada: orden ascendente por fecha,
	// sin fechas repetidas, con el ratio en la forma canónica.
	FetchSeries(ctx context.Context) (domain.Series, error)
}
