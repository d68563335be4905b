package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the TripSmith control plane.
type Config struct {
	Port      int
	Version   string
	DataDir   string
	Database  DatabaseConfig
	Telemetry TelemetryConfig
	Gemini    GeminiConfig
	Providers ProviderConfig
	Pipeline  PipelineConfig
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

type GeminiConfig struct {
	APIKey         string
	Model          string
	FallbackModels []string
	BaseURL        string
	Timeout        time.Duration
}

// Models returns the ranked model list: the primary model followed by
// the fallbacks, with duplicates removed.
func (g GeminiConfig) Models() []string {
	seen := map[string]bool{}
	var models []string
	for _, m := range append([]string{g.Model}, g.FallbackModels...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		models = append(models, m)
	}
	return models
}

type ProviderConfig struct {
	OpenWeatherKey    string
	GooglePlacesKey   string
	DistanceMatrixKey string
	CurrencyKey       string

	WeatherTTL  time.Duration
	PlacesTTL   time.Duration
	TravelTTL   time.Duration
	CurrencyTTL time.Duration
}

type PipelineConfig struct {
	BufferMinutes int
	ResearchPause time.Duration
	PlannerPause  time.Duration
	DetailPause   time.Duration
	FinalPause    time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("TRIPSMITH_PORT", 8080),
		Version: envStr("TRIPSMITH_VERSION", "0.4.0"),
		DataDir: envStr("TRIPSMITH_DATA_DIR", ""),
		Database: DatabaseConfig{
			URL:            envStr("DATABASE_URL", ""),
			MaxConnections: envInt("DATABASE_MAX_CONNECTIONS", 25),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", true),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "tripsmith"),
		},
		Gemini: GeminiConfig{
			APIKey:         envStr("GEMINI_API_KEY", ""),
			Model:          envStr("GEMINI_MODEL", "gemini-1.5-flash"),
			FallbackModels: envList("GEMINI_FALLBACK_MODELS", []string{"gemini-1.5-flash-8b", "gemini-1.5-pro"}),
			BaseURL:        envStr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Timeout:        envDuration("GEMINI_TIMEOUT", 60*time.Second),
		},
		Providers: ProviderConfig{
			OpenWeatherKey:    envStr("OPENWEATHER_API_KEY", ""),
			GooglePlacesKey:   envStr("GOOGLE_PLACES_API_KEY", ""),
			DistanceMatrixKey: envStr("DISTANCE_MATRIX_API_KEY", ""),
			CurrencyKey:       envStr("CURRENCY_API_KEY", ""),
			WeatherTTL:        envDuration("CACHE_TTL_WEATHER", time.Hour),
			PlacesTTL:         envDuration("CACHE_TTL_PLACES", 24*time.Hour),
			TravelTTL:         envDuration("CACHE_TTL_TRAVEL", time.Hour),
			CurrencyTTL:       envDuration("CACHE_TTL_CURRENCY", 12*time.Hour),
		},
		Pipeline: PipelineConfig{
			BufferMinutes: envInt("PLANNER_BUFFER_MINUTES", 20),
			ResearchPause: envDuration("PIPELINE_RESEARCH_PAUSE", 2*time.Second),
			PlannerPause:  envDuration("PIPELINE_PLANNER_PAUSE", 2*time.Second),
			DetailPause:   envDuration("PIPELINE_DETAIL_PAUSE", 2*time.Second),
			FinalPause:    envDuration("PIPELINE_FINAL_PAUSE", time.Second),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go duration strings and bare integers (seconds).
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * time.Second
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
