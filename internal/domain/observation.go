package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// DateLayout es el formato de fecha de calendario usado en logs y tablas.
const DateLayout = "2006-01-02"

// Observation es una lectura diaria del PE-TTM de todo el mercado.
type Observation struct {
	Date     time.Time // día de calendario, UTC a medianoche
	Ratio    float64   // PE-TTM; solo tiene sentido si HasRatio
	HasRatio bool      // false = el proveedor no trajo valor para ese día
}

// NewObservation crea una observación con ratio presente.
func NewObservation(date time.Time, ratio float64) Observation {
	return Observation{Date: truncateDay(date), Ratio: ratio, HasRatio: true}
}

// Validate devuelve nil si el ratio puede entrar en la población a rankear.
func (o Observation) Validate() error {
	if !o.HasRatio {
		return ErrAbsentRatio
	}
	if math.IsNaN(o.Ratio) || math.IsInf(o.Ratio, 0) || o.Ratio <= 0 {
		return fmt.Errorf("%w: %v on %s", ErrInvalidRatio, o.Ratio, o.Date.Format(DateLayout))
	}
	return nil
}

// Series es una secuencia de observaciones ordenada ascendentemente por fecha
// y sin fechas repetidas. Usar NormalizeSeries para construirla desde datos crudos.
type Series []Observation

// NormalizeSeries ordena por fecha ascendente y elimina duplicados.
// Ante fechas repetidas gana el último registro recibido.
func NormalizeSeries(raw []Observation) Series {
	if len(raw) == 0 {
		return Series{}
	}

	byDay := make(map[time.Time]int, len(raw))
	out := make(Series, 0, len(raw))
	for _, o := range raw {
		o.Date = truncateDay(o.Date)
		if idx, ok := byDay[o.Date]; ok {
			out[idx] = o
			continue
		}
		byDay[o.Date] = len(out)
		out = append(out, o)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Latest devuelve la última observación de la serie.
func (s Series) Latest() (Observation, bool) {
	if len(s) == 0 {
		return Observation{}, false
	}
	return s[len(s)-1], true
}

// truncateDay normaliza un instante al día de calendario en UTC.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
