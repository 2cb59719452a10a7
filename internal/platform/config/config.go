// Package config loads application configuration from the environment.
// A .env file is honored when present; every value has a working default
// except credentials and the database DSN.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`
	BuilderPort int    `env:"BUILDER_PORT" envDefault:"8081"`

	// Database pool
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"30s"`

	// LLM
	LLMAPIKey           string        `env:"LLM_API_KEY,required"`
	LLMModel            string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMRateLimitRPS     int           `env:"LLM_RATE_LIMIT_RPS" envDefault:"2"`
	LLMCircuitThreshold int           `env:"LLM_CIRCUIT_THRESHOLD" envDefault:"5"`
	LLMCircuitTimeout   time.Duration `env:"LLM_CIRCUIT_TIMEOUT" envDefault:"1m"`

	// Embeddings
	EmbeddingModel      string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions int    `env:"EMBEDDING_DIMENSIONS" envDefault:"768"`
	EmbeddingRateLimit  int    `env:"EMBEDDING_RATE_LIMIT_RPS" envDefault:"5"`

	// Clustering
	SimilarityThreshold float64 `env:"SIMILARITY_THRESHOLD" envDefault:"0.85"`
	NeighborLimit       int     `env:"NEIGHBOR_LIMIT" envDefault:"10"`
	JudgeNeighborLimit  int     `env:"JUDGE_NEIGHBOR_LIMIT" envDefault:"5"`

	// Ingestion
	FeedPollInterval time.Duration `env:"FEED_POLL_INTERVAL" envDefault:"15m"`
	FeedURLs         []string      `env:"FEED_URLS" envSeparator:","`

	// Selection
	FreshnessWindowHours int     `env:"FRESHNESS_WINDOW_HOURS" envDefault:"120"`
	MinImportance        float64 `env:"MIN_IMPORTANCE" envDefault:"40"`
	CoverageBoost        float64 `env:"COVERAGE_BOOST" envDefault:"17"`
	TargetArticleCount   int     `env:"TARGET_ARTICLE_COUNT" envDefault:"8"`
	MinWorldNewsCount    int     `env:"MIN_WORLD_NEWS_COUNT" envDefault:"2"`
	ClusterBackupLimit   int     `env:"CLUSTER_BACKUP_LIMIT" envDefault:"3"`
	DecayRateOverrides   string  `env:"DECAY_RATE_OVERRIDES"`

	// Content extraction
	WebFetchTimeout  time.Duration `env:"WEB_FETCH_TIMEOUT" envDefault:"15s"`
	WebFetchRPS      float64       `env:"WEB_FETCH_RPS" envDefault:"2"`
	MinContentLength int           `env:"MIN_CONTENT_LENGTH" envDefault:"100"`
	MaxContentLength int           `env:"MAX_CONTENT_LENGTH" envDefault:"5000"`

	// Script drafting
	WordsPerMinute        int `env:"WORDS_PER_MINUTE" envDefault:"120"`
	TargetDurationMinutes int `env:"TARGET_DURATION_MINUTES" envDefault:"10"`

	// Text to speech
	TTSBaseURL        string        `env:"TTS_BASE_URL" envDefault:"https://api.deepinfra.com/v1/inference/hexgrad/Kokoro-82M"`
	TTSAPIKey         string        `env:"TTS_API_KEY"`
	TTSVoice          string        `env:"TTS_VOICE" envDefault:"af_heart"`
	TTSBatchSize      int           `env:"TTS_BATCH_SIZE" envDefault:"8"`
	TTSRateLimitRPS   int           `env:"TTS_RATE_LIMIT_RPS" envDefault:"4"`
	TTSRequestTimeout time.Duration `env:"TTS_REQUEST_TIMEOUT" envDefault:"2m"`
	TTSSampleRate     int           `env:"TTS_SAMPLE_RATE" envDefault:"24000"`

	// Audio assembly
	CrossfadeMillis        int    `env:"CROSSFADE_MILLIS" envDefault:"50"`
	SilenceFallbackSeconds int    `env:"SILENCE_FALLBACK_SECONDS" envDefault:"2"`
	MP3Bitrate             string `env:"MP3_BITRATE" envDefault:"128k"`
	FFmpegPath             string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	// Artifact storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"local"`
	GCSBucket      string `env:"GCS_BUCKET"`
	LocalStoreDir  string `env:"LOCAL_STORE_DIR" envDefault:"./artifacts"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}

// DecayOverrides parses DECAY_RATE_OVERRIDES, a comma-separated list of
// "Category=rate" pairs. Malformed pairs are skipped.
func (c *Config) DecayOverrides() map[string]float64 {
	overrides := make(map[string]float64)

	for _, pair := range strings.Split(c.DecayRateOverrides, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		rate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || rate < 0 {
			continue
		}

		overrides[strings.TrimSpace(key)] = rate
	}

	return overrides
}

// FreshnessWindow returns the candidate freshness window as a duration.
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessWindowHours) * time.Hour
}

// TargetWords returns the episode word budget at the configured pace.
func (c *Config) TargetWords() int {
	return c.TargetDurationMinutes * c.WordsPerMinute
}
