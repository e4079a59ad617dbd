// Package config loads and validates watcher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Board    BoardConfig    `mapstructure:"board"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Render   RenderConfig   `mapstructure:"render"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Events   EventsConfig   `mapstructure:"events"`
	Kakao    KakaoConfig    `mapstructure:"kakao"`
	Imgbb    ImgbbConfig    `mapstructure:"imgbb"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// BoardConfig describes the listing source and the keyword filter.
type BoardConfig struct {
	BaseURL            string   `mapstructure:"base_url"`
	StartPage          int      `mapstructure:"start_page"`
	EndPage            int      `mapstructure:"end_page"`
	Keywords           []string `mapstructure:"keywords"`
	PageTimeoutSeconds int      `mapstructure:"page_timeout_seconds"`
	UserAgent          string   `mapstructure:"user_agent"`
}

// FetchConfig controls attachment download retry behavior.
type FetchConfig struct {
	RetryAttempts        int `mapstructure:"retry_attempts"`
	RetryBackoffSeconds  int `mapstructure:"retry_backoff_seconds"`
	RequestTimeoutSecond int `mapstructure:"request_timeout_seconds"`
}

// RenderConfig sets the two rasterization profiles.
type RenderConfig struct {
	PresentationDPI int `mapstructure:"presentation_dpi"`
	OCRDPI          int `mapstructure:"ocr_dpi"`
}

// OCRConfig governs the recognition pass and the quality gate.
type OCRConfig struct {
	MinChars int    `mapstructure:"min_chars"`
	MaxPages int    `mapstructure:"max_pages"`
	Langs    string `mapstructure:"langs"`
}

// PipelineConfig tunes orchestrator pacing and delivery limits.
type PipelineConfig struct {
	ItemPauseSeconds int `mapstructure:"item_pause_seconds"`
	MaxImages        int `mapstructure:"max_images"`
}

// LedgerConfig selects and parameterizes the fingerprint store.
type LedgerConfig struct {
	Provider string `mapstructure:"provider"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// ArchiveConfig selects the blob store for downloaded PDFs and images.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// EventsConfig holds metadata for the post-delivery event fan-out.
type EventsConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// KakaoConfig carries the chat credentials, normally set via GOSI_KAKAO_* env.
type KakaoConfig struct {
	RESTAPIKey   string `mapstructure:"rest_api_key"`
	AccessToken  string `mapstructure:"access_token"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// ImgbbConfig carries the image host credential.
type ImgbbConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ServerConfig enables the optional health/metrics endpoint in watch mode.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GOSI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/gosiwatch/")
		v.AddConfigPath("$HOME/.gosiwatch")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("board.base_url", "https://www.busan.go.kr/news/gosiboard?articlNo=2")
	v.SetDefault("board.start_page", 1)
	v.SetDefault("board.end_page", 1)
	v.SetDefault("board.keywords", []string{"재개발", "재건축"})
	v.SetDefault("board.page_timeout_seconds", 15)
	v.SetDefault("board.user_agent", "gosi-watcher/1.0")
	v.SetDefault("fetch.retry_attempts", 3)
	v.SetDefault("fetch.retry_backoff_seconds", 2)
	v.SetDefault("fetch.request_timeout_seconds", 30)
	v.SetDefault("render.presentation_dpi", 200)
	v.SetDefault("render.ocr_dpi", 150)
	v.SetDefault("ocr.min_chars", 300)
	v.SetDefault("ocr.max_pages", 5)
	v.SetDefault("ocr.langs", "kor+eng")
	v.SetDefault("pipeline.item_pause_seconds", 2)
	v.SetDefault("pipeline.max_images", 5)
	v.SetDefault("ledger.provider", "file")
	v.SetDefault("ledger.path", "gosi_state.json")
	v.SetDefault("ledger.table", "processed_announcements")
	v.SetDefault("archive.provider", "local")
	v.SetDefault("archive.dir", "downloaded_files")
	v.SetDefault("archive.prefix", "announcements")
	v.SetDefault("events.topic", "gosi-processed")
	v.SetDefault("logging.development", false)
	// Credentials default to empty so AutomaticEnv can fill them; they
	// are normally provided as GOSI_KAKAO_* / GOSI_IMGBB_* variables.
	v.SetDefault("kakao.rest_api_key", "")
	v.SetDefault("kakao.access_token", "")
	v.SetDefault("kakao.refresh_token", "")
	v.SetDefault("imgbb.api_key", "")
	v.SetDefault("ledger.dsn", "")
	v.SetDefault("events.project_id", "")
	v.SetDefault("server.addr", "")
	v.SetDefault("archive.gcs_bucket", "")
}

// Validate enforces required values and reasonable limits. Credential
// validation is deliberately fatal: the run must never start with
// degraded credentials and deliver partially.
func (c Config) Validate() error {
	if c.Board.BaseURL == "" {
		return fmt.Errorf("board.base_url is required")
	}
	if c.Board.StartPage <= 0 || c.Board.EndPage < c.Board.StartPage {
		return fmt.Errorf("board page range %d..%d is invalid", c.Board.StartPage, c.Board.EndPage)
	}
	if len(c.Board.Keywords) == 0 {
		return fmt.Errorf("board.keywords must not be empty")
	}
	if c.Fetch.RetryAttempts <= 0 {
		return fmt.Errorf("fetch.retry_attempts must be > 0")
	}
	if c.OCR.MinChars < 0 {
		return fmt.Errorf("ocr.min_chars must be >= 0")
	}
	if c.OCR.MaxPages <= 0 {
		return fmt.Errorf("ocr.max_pages must be > 0")
	}
	switch c.Ledger.Provider {
	case "file":
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger.path is required for the file provider")
		}
	case "postgres":
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn is required for the postgres provider")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown ledger.provider %q", c.Ledger.Provider)
	}
	switch c.Archive.Provider {
	case "local":
		if c.Archive.Dir == "" {
			return fmt.Errorf("archive.dir is required for the local provider")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket is required for the gcs provider")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("unknown archive.provider %q", c.Archive.Provider)
	}
	return nil
}

// ValidateCredentials checks the outbound delivery credentials. Kept
// separate from Validate so tests and dry runs can construct a Config
// without secrets.
func (c Config) ValidateCredentials() error {
	missing := make([]string, 0, 4)
	if c.Kakao.RESTAPIKey == "" {
		missing = append(missing, "kakao.rest_api_key")
	}
	if c.Kakao.AccessToken == "" {
		missing = append(missing, "kakao.access_token")
	}
	if c.Kakao.RefreshToken == "" {
		missing = append(missing, "kakao.refresh_token")
	}
	if c.Imgbb.APIKey == "" {
		missing = append(missing, "imgbb.api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// PageTimeout converts the board wait budget into a duration.
func (c Config) PageTimeout() time.Duration {
	return time.Duration(c.Board.PageTimeoutSeconds) * time.Second
}

// RetryBackoff converts the fetch backoff into a duration.
func (c Config) RetryBackoff() time.Duration {
	return time.Duration(c.Fetch.RetryBackoffSeconds) * time.Second
}

// RequestTimeout converts the fetch timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Fetch.RequestTimeoutSecond) * time.Second
}

// ItemPause converts the inter-item pause into a duration.
func (c Config) ItemPause() time.Duration {
	return time.Duration(c.Pipeline.ItemPauseSeconds) * time.Second
}
