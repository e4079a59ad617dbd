// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/choksense/gosi-watcher/internal/archive"
	"github.com/choksense/gosi-watcher/internal/board"
	systemclock "github.com/choksense/gosi-watcher/internal/clock/system"
	"github.com/choksense/gosi-watcher/internal/config"
	"github.com/choksense/gosi-watcher/internal/document"
	"github.com/choksense/gosi-watcher/internal/events"
	"github.com/choksense/gosi-watcher/internal/fetch"
	"github.com/choksense/gosi-watcher/internal/gosi"
	"github.com/choksense/gosi-watcher/internal/ledger"
	"github.com/choksense/gosi-watcher/internal/notify"
	"github.com/choksense/gosi-watcher/internal/pipeline"
)

// App wires the configured providers into a ready-to-run pipeline. It
// is initialized once at startup and torn down via Close.
type App struct {
	Pipeline *pipeline.Pipeline
	logger   *zap.Logger
	closers  []func()
}

// New builds every service from cfg, failing fast when any critical
// dependency cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	led, err := a.buildLedger(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := a.buildArchive(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var publisher gosi.Publisher
	if cfg.Events.ProjectID != "" {
		pub, err := events.NewPubsub(ctx, cfg.Events.ProjectID)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init events: %w", err)
		}
		a.closers = append(a.closers, func() { pub.Close() })
		publisher = pub
		logger.Info("event fan-out enabled", zap.String("topic", cfg.Events.Topic))
	}

	session, err := board.NewSession(board.SessionConfig{
		UserAgent:  cfg.Board.UserAgent,
		NavTimeout: cfg.PageTimeout(),
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init browser session: %w", err)
	}
	a.closers = append(a.closers, session.Close)

	scanner := board.NewScanner(session, board.ScannerConfig{
		BaseURL:   cfg.Board.BaseURL,
		StartPage: cfg.Board.StartPage,
		EndPage:   cfg.Board.EndPage,
		Keywords:  cfg.Board.Keywords,
	}, logger)
	resolver := board.NewResolver(session, logger)

	fetcher := fetch.New(
		fetch.Config{UserAgent: cfg.Board.UserAgent, Timeout: cfg.RequestTimeout()},
		fetch.NewFixedRetryPolicy(cfg.Fetch.RetryAttempts, cfg.RetryBackoff()),
		logger,
	)

	clk := systemclock.New()

	a.Pipeline = pipeline.New(
		pipeline.Config{
			MinChars:        cfg.OCR.MinChars,
			MaxOCRPages:     cfg.OCR.MaxPages,
			OCRLangs:        cfg.OCR.Langs,
			OCRDPI:          cfg.Render.OCRDPI,
			PresentationDPI: cfg.Render.PresentationDPI,
			MaxImages:       cfg.Pipeline.MaxImages,
			ItemPause:       cfg.ItemPause(),
			EventTopic:      cfg.Events.Topic,
			ArchivePrefix:   cfg.Archive.Prefix,
		},
		pipeline.Deps{
			Ledger:     led,
			Scanner:    scanner,
			Resolver:   resolver,
			Cookies:    session,
			Fetcher:    fetcher,
			Rasterizer: document.NewPopplerRasterizer("", logger),
			Recognizer: document.NewTesseractRecognizer("", logger),
			Uploader:   notify.NewImgbbUploader(cfg.Imgbb.APIKey, "", logger),
			Messenger: notify.NewKakaoMessenger(notify.KakaoConfig{
				RESTAPIKey:   cfg.Kakao.RESTAPIKey,
				AccessToken:  cfg.Kakao.AccessToken,
				RefreshToken: cfg.Kakao.RefreshToken,
			}, clk, logger),
			Archive:   store,
			Publisher: publisher,
			Clock:     clk,
			Logger:    logger,
		},
	)

	return a, nil
}

func (a *App) buildLedger(ctx context.Context, cfg config.Config) (gosi.Ledger, error) {
	switch cfg.Ledger.Provider {
	case "file":
		a.logger.Info("using file ledger", zap.String("path", cfg.Ledger.Path))
		return ledger.OpenFile(cfg.Ledger.Path)
	case "postgres":
		a.logger.Info("using postgres ledger", zap.String("table", cfg.Ledger.Table))
		l, err := ledger.OpenPostgres(ctx, cfg.Ledger.DSN, cfg.Ledger.Table)
		if err != nil {
			return nil, fmt.Errorf("init ledger: %w", err)
		}
		a.closers = append(a.closers, l.Close)
		return l, nil
	case "memory":
		a.logger.Info("using memory ledger; state is lost on exit")
		return ledger.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown ledger provider %q", cfg.Ledger.Provider)
	}
}

func (a *App) buildArchive(ctx context.Context, cfg config.Config) (gosi.BlobStore, error) {
	switch cfg.Archive.Provider {
	case "local":
		a.logger.Info("using local archive", zap.String("dir", cfg.Archive.Dir))
		return archive.NewLocal(cfg.Archive.Dir)
	case "gcs":
		a.logger.Info("using gcs archive", zap.String("bucket", cfg.Archive.GCSBucket))
		s, err := archive.NewGCS(ctx, cfg.Archive.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("init archive: %w", err)
		}
		a.closers = append(a.closers, func() { s.Close() })
		return s, nil
	case "memory":
		return archive.NewMemory(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown archive provider %q", cfg.Archive.Provider)
	}
}

// Close tears services down in reverse initialization order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
