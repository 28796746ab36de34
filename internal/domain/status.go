package domain

// StatusLabel clasifica un win rate en tres bandas.
type StatusLabel int

const (
	HighWinRate     StatusLabel = iota // >= 80: mercado muy barato respecto a su historia
	ModerateWinRate                    // >= 50: zona de DCA
	LowWinRate                         // < 50: zona de riesgo
)

const (
	highWinRateFloor     = 80.0
	moderateWinRateFloor = 50.0
)

// Classify mapea un win rate a su banda. Límites inferiores inclusivos,
// evaluados de mayor a menor.
func Classify(winRate float64) StatusLabel {
	switch {
	case winRate >= highWinRateFloor:
		return HighWinRate
	case winRate >= moderateWinRateFloor:
		return ModerateWinRate
	default:
		return LowWinRate
	}
}

// String devuelve el nombre corto de la banda.
func (s StatusLabel) String() string {
	switch s {
	case HighWinRate:
		return "HIGH"
	case ModerateWinRate:
		return "MODERATE"
	default:
		return "LOW"
	}
}

// Description devuelve el texto de estado para el usuario.
func (s StatusLabel) Description() string {
	switch s {
	case HighWinRate:
		return "very high win rate (golden pit)"
	case ModerateWinRate:
		return "fair win rate (DCA zone)"
	default:
		return "low win rate (risk zone)"
	}
}

// Icon devuelve el emoji para output de consola.
func (s StatusLabel) Icon() string {
	switch s {
	case HighWinRate:
		return "🔴"
	case ModerateWinRate:
		return "🟡"
	default:
		return "🔵"
	}
}
