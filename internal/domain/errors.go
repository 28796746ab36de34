package domain

import "errors"

var (
	// ErrEmptyPopulation indica que no hay ninguna observación con ratio válido
	// contra la cual rankear. Es fatal para el ciclo de refresco.
	ErrEmptyPopulation = errors.New("empty population: no valid ratios to rank")

	// ErrInvalidRatio marca un ratio presente pero no utilizable (<= 0, NaN o Inf).
	ErrInvalidRatio = errors.New("invalid ratio")

	// ErrAbsentRatio marca una observación sin ratio.
	ErrAbsentRatio = errors.New("absent ratio")

	// ErrInvalidWinRate indica un win rate pedido fuera de [0,100].
	ErrInvalidWinRate = errors.New("win rate must be within [0,100]")
)
