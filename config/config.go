package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de ethcast.
type Config struct {
	Market    MarketConfig     `yaml:"market"`
	Horizons  []domain.Horizon `yaml:"horizons" validate:"min=1,dive"`
	Models    []string         `yaml:"models" validate:"min=1,unique,dive,oneof=linear polynomial ema_drift"`
	Weighting WeightingConfig  `yaml:"weighting"`
	Storage   StorageConfig    `yaml:"storage"`
	Lock      LockConfig       `yaml:"lock"`
	API       APIConfig        `yaml:"api"`
	Notify    NotifyConfig     `yaml:"notify"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Log       LogConfig        `yaml:"log"`
}

// MarketConfig define qué se descarga de Binance y cada cuánto se corre.
type MarketConfig struct {
	Symbol          string `yaml:"symbol" validate:"required"`
	CandleInterval  string `yaml:"candle_interval" validate:"required"`
	CandleLimit     int    `yaml:"candle_limit" validate:"gt=0,lte=1000"` // Binance admite hasta 1000
	TrainWindow     int    `yaml:"train_window" validate:"gt=2"`          // cierres usados por cada modelo
	IntervalSeconds int    `yaml:"interval_seconds" validate:"gt=0"`      // solo con --loop
	FitWorkers      int    `yaml:"fit_workers" validate:"gte=0"`
}

// WeightingConfig controla el WeightSolver.
type WeightingConfig struct {
	RecentWindow      int     `yaml:"recent_window" validate:"gt=0"`
	Decay             float64 `yaml:"decay" validate:"gt=0,lte=1"`
	MinSamples        int     `yaml:"min_samples" validate:"gte=0"`
	ColdStartFallback string  `yaml:"cold_start_fallback" validate:"oneof=uniform fit_score"`
	AlertMinSamples   int     `yaml:"alert_min_samples" validate:"gte=0"` // validaciones antes de alertar por precisión
}

// StorageConfig controla dónde se persisten los documentos.
type StorageConfig struct {
	Backend string `yaml:"backend" validate:"oneof=json sqlite postgres"`
	Dir     string `yaml:"dir"` // directorio de los JSON (backend json)
	DSN     string `yaml:"dsn"` // ruta SQLite o DSN de Postgres
}

// LockConfig controla el lock file que evita runs solapados.
type LockConfig struct {
	Path              string `yaml:"path"`
	StaleAfterMinutes int    `yaml:"stale_after_minutes" validate:"gte=0"`
}

// APIConfig contiene el base URL de Binance.
type APIConfig struct {
	BinanceBase string  `yaml:"binance_base" validate:"url"`
	RatePerSec  float64 `yaml:"rate_per_sec" validate:"gte=0"`
	MaxRetries  uint64  `yaml:"max_retries"`
}

// NotifyConfig controla los canales de notificación.
type NotifyConfig struct {
	Console         bool   `yaml:"console"`
	Verbose         bool   `yaml:"verbose"` // incluye las últimas validaciones en consola
	SlackWebhookURL string `yaml:"slack_webhook_url" validate:"omitempty,url"`
	TelegramToken   string `yaml:"telegram_token"`
	TelegramChatID  int64  `yaml:"telegram_chat_id"`
}

// MetricsConfig controla el push a Prometheus.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
	Job            string `yaml:"job"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta el YAML, aplica overrides y defaults, y valida.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: invalid config: %w", err)
	}
	return &cfg, nil
}

// LoopInterval devuelve el intervalo del modo --loop como time.Duration.
func (c *Config) LoopInterval() time.Duration {
	return time.Duration(c.Market.IntervalSeconds) * time.Second
}

// LockStaleAfter devuelve la antigüedad a partir de la cual un lock se rompe.
func (c *Config) LockStaleAfter() time.Duration {
	return time.Duration(c.Lock.StaleAfterMinutes) * time.Minute
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ETHCAST_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("ETHCAST_DATA_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("ETHCAST_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Notify.SlackWebhookURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Notify.TelegramChatID = id
		}
	}
	if v := os.Getenv("PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Market.Symbol == "" {
		cfg.Market.Symbol = "ETHUSDT"
	}
	if cfg.Market.CandleInterval == "" {
		cfg.Market.CandleInterval = "1m"
	}
	if cfg.Market.CandleLimit <= 0 {
		cfg.Market.CandleLimit = 500
	}
	if cfg.Market.TrainWindow <= 0 {
		cfg.Market.TrainWindow = 100
	}
	if cfg.Market.IntervalSeconds <= 0 {
		cfg.Market.IntervalSeconds = 900 // 15 min, el horizonte más corto
	}
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = []domain.Horizon{
			{Name: "15min", Minutes: 15},
			{Name: "30min", Minutes: 30},
			{Name: "60min", Minutes: 60},
			{Name: "120min", Minutes: 120},
		}
	}
	if len(cfg.Models) == 0 {
		cfg.Models = []string{"linear", "polynomial", "ema_drift"}
	}
	if cfg.Weighting.RecentWindow <= 0 {
		cfg.Weighting.RecentWindow = 20
	}
	if cfg.Weighting.Decay <= 0 {
		cfg.Weighting.Decay = 0.95
	}
	if cfg.Weighting.MinSamples <= 0 {
		cfg.Weighting.MinSamples = 5
	}
	if cfg.Weighting.ColdStartFallback == "" {
		cfg.Weighting.ColdStartFallback = "uniform"
	}
	if cfg.Weighting.AlertMinSamples <= 0 {
		cfg.Weighting.AlertMinSamples = 10
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "json"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "data"
	}
	if cfg.Storage.DSN == "" && cfg.Storage.Backend == "sqlite" {
		cfg.Storage.DSN = "ethcast.db"
	}
	if cfg.Lock.Path == "" {
		cfg.Lock.Path = cfg.Storage.Dir + "/ethcast.lock"
	}
	if cfg.Lock.StaleAfterMinutes <= 0 {
		cfg.Lock.StaleAfterMinutes = 30
	}
	if cfg.API.BinanceBase == "" {
		cfg.API.BinanceBase = "https://api.binance.com"
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "ethcast"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
