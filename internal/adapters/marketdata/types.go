package marketdata

import "encoding/json"

// DTOs raw del proveedor. Solo se usan dentro de este paquete.
// La conversión a domain.Series se hace en mapping.go.

// seriesResponse es la respuesta de GET /api/stock-a/ttm-lyr: un array de
// registros diarios. El nombre de la columna del PE ha cambiado con el
// tiempo, así que cada registro se decodifica como mapa.
type seriesResponse []rawRecord

// rawRecord es un registro diario con columnas heterogéneas.
type rawRecord map[string]json.RawMessage

// Columnas conocidas.
const (
	dateColumn = "date"
)

// ratioColumns son los nombres que ha usado el proveedor para el PE-TTM
// promedio, en orden de preferencia.
var ratioColumns = []string{
	"averagePETTM",
	"averagePeTtm",
	"平均市盈率",
	"pe",
}
