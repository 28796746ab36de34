package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// RankedObservation es una observación con su percentil histórico y su win rate.
type RankedObservation struct {
	Observation
	Percentile float64 // % de la población por debajo (empates contados a la mitad)
	WinRate    float64 // 100 - Percentile
}

// Exclusion es una observación que no entró en la población y el motivo.
type Exclusion struct {
	Observation
	Reason error // ErrAbsentRatio o un error que envuelve ErrInvalidRatio
}

// RankedSeries es el resultado completo de un Rank.
type RankedSeries struct {
	Observations []RankedObservation // solo las rankeadas, orden ascendente por fecha
	Excluded     []Exclusion         // todo lo que quedó fuera, nunca en silencio
	Population   int                 // tamaño de la población válida
}

// Latest devuelve la última observación rankeada.
func (r RankedSeries) Latest() (RankedObservation, bool) {
	if len(r.Observations) == 0 {
		return RankedObservation{}, false
	}
	return r.Observations[len(r.Observations)-1], true
}

// InvalidCount cuenta las exclusiones por ratio inválido (no las ausentes).
func (r RankedSeries) InvalidCount() int {
	n := 0
	for _, e := range r.Excluded {
		if errors.Is(e.Reason, ErrInvalidRatio) {
			n++
		}
	}
	return n
}

// Threshold es el ratio que corresponde a un nivel de win rate.
type Threshold struct {
	WinRate float64 // nivel pedido, p.ej. 90
	Ratio   float64 // PE en el cuantil 1 - WinRate/100
}

// RankerConfig controla cómo se tratan los ratios inválidos.
type RankerConfig struct {
	// RejectInvalid hace fallar Rank/Threshold ante cualquier ratio presente
	// pero inválido. Por defecto se excluyen y se reportan en Excluded.
	RejectInvalid bool
}

// Ranker calcula percentiles y umbrales sobre la población válida de una serie.
// No tiene estado mutable: mismas entradas, mismas salidas.
type Ranker struct {
	cfg RankerConfig
}

// NewRanker crea un Ranker.
func NewRanker(cfg RankerConfig) *Ranker {
	return &Ranker{cfg: cfg}
}

// Rank asigna a cada observación válida su percentil (mid-rank) y su win rate.
//
// Fórmula, con N = tamaño de la población:
//
//	percentile = 100 × (menores + 0.5 × iguales) / N
//	winRate    = 100 - percentile
//
// Equivale a 100 × (rango promedio - 0.5) / N con rangos 1-based y empates
// promediados: [10,20,30,40,50] → 10, 30, 50, 70, 90.
func (r *Ranker) Rank(series Series) (RankedSeries, error) {
	valid, excluded, err := r.partition(series)
	if err != nil {
		return RankedSeries{}, fmt.Errorf("domain.Rank: %w", err)
	}
	return rankSorted(valid, excluded, sortedRatios(valid)), nil
}

// ThresholdForWinRate devuelve el PE por debajo del cual queda el
// (100 - winRatePercent)% de la historia. Ej: win rate 90 → cuantil 0.10.
//
// Usa interpolación lineal entre estadísticos de orden (tipo 7 de
// Hyndman-Fan): h = (N-1)·q, x[⌊h⌋] + (h-⌊h⌋)·(x[⌈h⌉] - x[⌊h⌋]).
func (r *Ranker) ThresholdForWinRate(series Series, winRatePercent float64) (float64, error) {
	if err := validateWinRate(winRatePercent); err != nil {
		return 0, fmt.Errorf("domain.ThresholdForWinRate: %w", err)
	}

	valid, _, err := r.partition(series)
	if err != nil {
		return 0, fmt.Errorf("domain.ThresholdForWinRate: %w", err)
	}

	return quantile(sortedRatios(valid), 1-winRatePercent/100), nil
}

// Thresholds calcula varios niveles de win rate sobre una única ordenación.
// Devuelve los umbrales en el mismo orden que levels.
func (r *Ranker) Thresholds(series Series, levels ...float64) ([]Threshold, error) {
	for _, lvl := range levels {
		if err := validateWinRate(lvl); err != nil {
			return nil, fmt.Errorf("domain.Thresholds: %w", err)
		}
	}

	valid, _, err := r.partition(series)
	if err != nil {
		return nil, fmt.Errorf("domain.Thresholds: %w", err)
	}

	return thresholdsSorted(sortedRatios(valid), levels), nil
}

// Evaluate hace Rank y Thresholds en una sola pasada: una partición y una
// ordenación de la población.
func (r *Ranker) Evaluate(series Series, levels ...float64) (RankedSeries, []Threshold, error) {
	for _, lvl := range levels {
		if err := validateWinRate(lvl); err != nil {
			return RankedSeries{}, nil, fmt.Errorf("domain.Evaluate: %w", err)
		}
	}

	valid, excluded, err := r.partition(series)
	if err != nil {
		return RankedSeries{}, nil, fmt.Errorf("domain.Evaluate: %w", err)
	}

	sorted := sortedRatios(valid)
	return rankSorted(valid, excluded, sorted), thresholdsSorted(sorted, levels), nil
}

// rankSorted asigna percentiles a valid usando la población ya ordenada.
func rankSorted(valid []Observation, excluded []Exclusion, sorted []float64) RankedSeries {
	n := float64(len(sorted))

	out := make([]RankedObservation, len(valid))
	for i, o := range valid {
		below := sort.SearchFloat64s(sorted, o.Ratio)
		upTo := sort.Search(len(sorted), func(k int) bool { return sorted[k] > o.Ratio })
		equal := upTo - below

		pct := 100 * (float64(below) + 0.5*float64(equal)) / n
		out[i] = RankedObservation{
			Observation: o,
			Percentile:  pct,
			WinRate:     100 - pct,
		}
	}

	return RankedSeries{
		Observations: out,
		Excluded:     excluded,
		Population:   len(sorted),
	}
}

func thresholdsSorted(sorted []float64, levels []float64) []Threshold {
	out := make([]Threshold, len(levels))
	for i, lvl := range levels {
		out[i] = Threshold{WinRate: lvl, Ratio: quantile(sorted, 1-lvl/100)}
	}
	return out
}

// partition separa la población válida de las exclusiones.
func (r *Ranker) partition(series Series) (valid []Observation, excluded []Exclusion, err error) {
	valid = make([]Observation, 0, len(series))
	for _, o := range series {
		verr := o.Validate()
		if verr == nil {
			valid = append(valid, o)
			continue
		}
		if r.cfg.RejectInvalid && errors.Is(verr, ErrInvalidRatio) {
			return nil, nil, verr
		}
		excluded = append(excluded, Exclusion{Observation: o, Reason: verr})
	}

	if len(valid) == 0 {
		return nil, nil, ErrEmptyPopulation
	}
	return valid, excluded, nil
}

// sortedRatios devuelve una copia ordenada de los ratios.
func sortedRatios(obs []Observation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.Ratio
	}
	sort.Float64s(out)
	return out
}

// quantile asume sorted no vacío y q en [0,1].
func quantile(sorted []float64, q float64) float64 {
	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

func validateWinRate(w float64) error {
	if math.IsNaN(w) || w < 0 || w > 100 {
		return fmt.Errorf("%w: got %v", ErrInvalidWinRate, w)
	}
	return nil
}
