package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del monitor de win rate.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Cache   CacheConfig   `yaml:"cache"`
	Ranking RankingConfig `yaml:"ranking"`
	Monitor MonitorConfig `yaml:"monitor"`
	Report  ReportConfig  `yaml:"report"`
	Log     LogConfig     `yaml:"log"`
}

// SourceConfig apunta al proveedor de la serie histórica de PE.
type SourceConfig struct {
	BaseURL        string  `yaml:"base_url"`
	Path           string  `yaml:"path"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSec     float64 `yaml:"rate_per_sec"`
	Fixture        string  `yaml:"fixture"` // JSON local para --dry-run
}

// CacheConfig controla cuánto tiempo se reutiliza la serie descargada.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"` // 0 = usar default, <0 = sin caché
}

// RankingConfig controla el cálculo de percentiles y umbrales.
type RankingConfig struct {
	RejectInvalid bool      `yaml:"reject_invalid"`  // fallar ante ratios <= 0 en vez de excluirlos
	WinRateLevels []float64 `yaml:"win_rate_levels"` // umbrales a calcular, p.ej. [90, 80]
}

// MonitorConfig controla el loop de refresco.
type MonitorConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// ReportConfig controla el output de consola.
type ReportConfig struct {
	Rows  int  `yaml:"rows"`  // filas de la tabla; 0 = todas
	Table bool `yaml:"table"` // tabla completa en vez de una línea
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// RefreshInterval devuelve el intervalo de refresco como time.Duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// CacheTTL devuelve el TTL de la caché de la serie; 0 = sin caché.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLSeconds < 0 {
		return 0
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// SourceTimeout devuelve el timeout HTTP del proveedor.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("PEWINRATE_SOURCE_URL"); v != "" {
		cfg.Source.BaseURL = v
	}
	if v := os.Getenv("PEWINRATE_CACHE_TTL_SECONDS"); v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PEWINRATE_CACHE_TTL_SECONDS=%q: %w", v, err)
		}
		cfg.Cache.TTLSeconds = ttl
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = "https://legulegu.com"
	}
	if cfg.Source.Path == "" {
		cfg.Source.Path = "/api/stock-a/ttm-lyr"
	}
	if cfg.Source.TimeoutSeconds <= 0 {
		cfg.Source.TimeoutSeconds = 15
	}
	if cfg.Source.RatePerSec <= 0 {
		cfg.Source.RatePerSec = 1
	}
	if cfg.Source.Fixture == "" {
		cfg.Source.Fixture = "testdata/fixtures/stock_a_ttm_lyr.json"
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 3600
	}
	if len(cfg.Ranking.WinRateLevels) == 0 {
		cfg.Ranking.WinRateLevels = []float64{90, 80}
	}
	if cfg.Monitor.IntervalSeconds <= 0 {
		cfg.Monitor.IntervalSeconds = 3600
	}
	if cfg.Report.Rows < 0 {
		cfg.Report.Rows = 0
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate rechaza niveles de win rate NaN o fuera de [0,100].
func (c *Config) validate() error {
	for _, lvl := range c.Ranking.WinRateLevels {
		if math.IsNaN(lvl) || lvl < 0 || lvl > 100 {
			return fmt.Errorf("ranking.win_rate_levels: %v out of [0,100]", lvl)
		}
	}
	return nil
}
