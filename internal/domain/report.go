package domain

import "time"

// Report es el resultado de un ciclo de refresco, listo para presentar.
// Si Err != nil el resto de campos puede estar vacío y la presentación
// debe mostrar un mensaje explicativo en lugar de un gráfico/tabla vacíos.
type Report struct {
	ID          string
	GeneratedAt time.Time
	Series      RankedSeries
	Latest      RankedObservation
	Status      StatusLabel
	Thresholds  []Threshold // en el orden de los niveles configurados
	Err         error
}

// OK devuelve true si el ciclo produjo un ranking utilizable.
func (r Report) OK() bool {
	return r.Err == nil && len(r.Series.Observations) > 0
}

// WinRateDelta devuelve la distancia del win rate actual al 50%.
func (r Report) WinRateDelta() float64 {
	return r.Latest.WinRate - 50
}
