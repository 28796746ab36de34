package ports

import (
	"context"

	"github.com/alejandrodnm/pewinrate/internal/domain"
)

// Notifier presenta el resultado de cada refresco al usuario.
type Notifier interface {
	// Notify muestra el reporte. Si report.Err != nil debe mostrar un mensaje
	// explicativo en lugar de una tabla vacía.
	Notify(ctx context.Context, report domain.Report) error
}
