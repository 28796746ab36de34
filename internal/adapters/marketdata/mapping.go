package marketdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/pewinrate/internal/domain"
)

// ErrUnknownSchema indica que ningún registro trae una columna de PE conocida.
var ErrUnknownSchema = errors.New("unknown schema: no PE column found")

// marketZone es la zona horaria del mercado A-share (sin horario de verano).
// Los timestamps en milisegundos del proveedor son medianoche en esta zona.
var marketZone = time.FixedZone("CST", 8*60*60)

const (
	compactDateLayout = "20060102"
	// 1990-01-01 UTC: la historia del A-share no empieza antes.
	minEpochMillis = 631152000000
)

// mapRecords convierte los registros crudos a la serie canónica.
// Es el único lugar que conoce las variantes de nombre de columna.
func mapRecords(raw []rawRecord) (domain.Series, error) {
	obs := make([]domain.Observation, 0, len(raw))
	seenColumns := make(map[string]bool)
	matchedColumn := false
	badDates := 0

	for _, rec := range raw {
		for k := range rec {
			seenColumns[k] = true
		}

		date, ok := parseDate(rec[dateColumn])
		if !ok {
			badDates++
			continue
		}

		o := domain.Observation{Date: date}
		if col, value, found := findRatio(rec); found {
			matchedColumn = true
			o.Ratio, o.HasRatio = parseRatio(value)
			if o.HasRatio && math.IsNaN(o.Ratio) {
				slog.Debug("non-numeric ratio", "date", date.Format(domain.DateLayout), "column", col)
			}
		}
		obs = append(obs, o)
	}

	if len(raw) > 0 && !matchedColumn {
		return nil, fmt.Errorf("%w, columns: %s", ErrUnknownSchema, strings.Join(sortedKeys(seenColumns), ", "))
	}
	if badDates > 0 {
		slog.Warn("records with unparseable date skipped", "count", badDates)
	}

	return domain.NormalizeSeries(obs), nil
}

// findRatio busca la primera columna de PE conocida presente en el registro.
func findRatio(rec rawRecord) (string, json.RawMessage, bool) {
	for _, col := range ratioColumns {
		if v, ok := rec[col]; ok {
			return col, v, true
		}
	}
	return "", nil, false
}

// parseRatio interpreta el valor del PE.
//   - null o string vacío → ausente
//   - número o string numérico → presente
//   - cualquier otra cosa → presente pero NaN (el dominio lo marcará inválido)
func parseRatio(v json.RawMessage) (float64, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return 0, false
	}

	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		f, err := n.Float64()
		if err != nil {
			return math.NaN(), true
		}
		return f, true
	}

	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), true
		}
		return f, true
	}

	return math.NaN(), true
}

// parseDate acepta epoch en milisegundos (número o string) o fechas ISO.
func parseDate(v json.RawMessage) (time.Time, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return time.Time{}, false
	}

	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		// No es string: probamos número
		s = string(v)
	}
	s = strings.TrimSpace(s)

	// yyyymmdd escrito como entero
	if len(s) == len(compactDateLayout) {
		if t, err := time.Parse(compactDateLayout, s); err == nil {
			return t, true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return epochMillis(ms)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return epochMillis(int64(f))
	}

	// El proveedor ha usado varios formatos; intentamos los más comunes
	for _, layout := range []string{
		domain.DateLayout,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02 15:04:05",
		"2006/01/02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// epochMillis rechaza valores anteriores a minEpochMillis: no son timestamps
// del proveedor sino otra cosa mal interpretada.
func epochMillis(ms int64) (time.Time, bool) {
	if ms < minEpochMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).In(marketZone), true
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
