package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "logging:\n  development: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://www.busan.go.kr/news/gosiboard?articlNo=2", cfg.Board.BaseURL)
	require.Equal(t, []string{"재개발", "재건축"}, cfg.Board.Keywords)
	require.Equal(t, 1, cfg.Board.StartPage)
	require.Equal(t, 3, cfg.Fetch.RetryAttempts)
	require.Equal(t, 2*time.Second, cfg.RetryBackoff())
	require.Equal(t, 300, cfg.OCR.MinChars)
	require.Equal(t, 5, cfg.OCR.MaxPages)
	require.Equal(t, "kor+eng", cfg.OCR.Langs)
	require.Equal(t, 200, cfg.Render.PresentationDPI)
	require.Equal(t, 150, cfg.Render.OCRDPI)
	require.Equal(t, 5, cfg.Pipeline.MaxImages)
	require.Equal(t, 2*time.Second, cfg.ItemPause())
	require.Equal(t, "file", cfg.Ledger.Provider)
	require.Equal(t, "gosi_state.json", cfg.Ledger.Path)
	require.Equal(t, "local", cfg.Archive.Provider)
	require.True(t, cfg.Logging.Development)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GOSI_OCR_MIN_CHARS", "500")
	t.Setenv("GOSI_KAKAO_REST_API_KEY", "from-env")

	path := writeConfig(t, "board:\n  end_page: 2\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 500, cfg.OCR.MinChars)
	require.Equal(t, "from-env", cfg.Kakao.RESTAPIKey)
	require.Equal(t, 2, cfg.Board.EndPage)
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			Board: BoardConfig{
				BaseURL:   "https://www.busan.go.kr/news/gosiboard",
				StartPage: 1,
				EndPage:   1,
				Keywords:  []string{"재개발"},
			},
			Fetch:   FetchConfig{RetryAttempts: 3},
			OCR:     OCRConfig{MinChars: 300, MaxPages: 5},
			Ledger:  LedgerConfig{Provider: "file", Path: "state.json"},
			Archive: ArchiveConfig{Provider: "none"},
		}
	}

	require.NoError(t, base().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base url", func(c *Config) { c.Board.BaseURL = "" }},
		{"inverted page range", func(c *Config) { c.Board.StartPage = 3; c.Board.EndPage = 1 }},
		{"no keywords", func(c *Config) { c.Board.Keywords = nil }},
		{"zero retries", func(c *Config) { c.Fetch.RetryAttempts = 0 }},
		{"zero ocr pages", func(c *Config) { c.OCR.MaxPages = 0 }},
		{"file ledger without path", func(c *Config) { c.Ledger.Path = "" }},
		{"postgres ledger without dsn", func(c *Config) { c.Ledger = LedgerConfig{Provider: "postgres"} }},
		{"unknown ledger provider", func(c *Config) { c.Ledger.Provider = "redis" }},
		{"gcs archive without bucket", func(c *Config) { c.Archive = ArchiveConfig{Provider: "gcs"} }},
		{"unknown archive provider", func(c *Config) { c.Archive.Provider = "s3" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Kakao: KakaoConfig{RESTAPIKey: "k", AccessToken: "a", RefreshToken: "r"},
		Imgbb: ImgbbConfig{APIKey: "i"},
	}
	require.NoError(t, cfg.ValidateCredentials())

	cfg.Kakao.RefreshToken = ""
	err := cfg.ValidateCredentials()
	require.Error(t, err)
	require.Contains(t, err.Error(), "kakao.refresh_token")
}
