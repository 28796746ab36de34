package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alejandrodnm/pewinrate/internal/domain"
)

// FileSource lee la serie desde un fixture JSON local con el mismo formato
// que la respuesta del proveedor. Se usa en modo dry-run.
type FileSource struct {
	path string
}

// NewFileSource crea un FileSource para la ruta dada.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// FetchSeries implementa ports.SeriesProvider.
func (f *FileSource) FetchSeries(_ context.Context) (domain.Series, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("marketdata.FileSource: read %q: %w", f.path, err)
	}

	var resp seriesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("marketdata.FileSource: parse %q: %w", f.path, err)
	}

	series, err := mapRecords(resp)
	if err != nil {
		return nil, fmt.Errorf("marketdata.FileSource: %w", err)
	}
	return series, nil
}
