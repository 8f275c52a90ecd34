package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"FilingsMonitor/internal/classifier"
	"FilingsMonitor/internal/config"
	"FilingsMonitor/internal/domain"
	"FilingsMonitor/internal/downloader"
	"FilingsMonitor/internal/infrastructure/bse"
	"FilingsMonitor/internal/infrastructure/fetch"
	"FilingsMonitor/internal/infrastructure/scheduler"
	"FilingsMonitor/internal/infrastructure/storage"
	"FilingsMonitor/internal/infrastructure/telegram"
	"FilingsMonitor/internal/links"
	"FilingsMonitor/internal/logging"
	"FilingsMonitor/internal/monitor"
	"FilingsMonitor/internal/ports"
	"FilingsMonitor/internal/server"
	"FilingsMonitor/internal/snapshot"
	"FilingsMonitor/internal/usecase"
)

// Application wires configuration to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	log      *slog.Logger
	pipeline *usecase.Pipeline
	server   *server.Server
	monitor  ports.Scheduler
	download ports.Scheduler
	db       *sql.DB
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	httpClient := &http.Client{Timeout: 25 * time.Second}

	var (
		db      *sql.DB
		archive ports.Archive
	)
	if cfg.Database.DSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		pg := storage.NewPostgresArchive(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		archive = pg
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	store := snapshot.NewStore(cfg.Storage.SnapshotsDir)
	dl := downloader.New(httpClient, cfg.Storage.DownloadsDir, cfg.Portal.AttachmentBaseURL,
		baseLogger.With("component", "downloader"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     bse.NewClient(cfg.Portal.AnnouncementsURL, httpClient),
		Classifier: classifier.New(cfg.KeywordLists()),
		Extractor:  links.NewExtractor(fetch.NewFetcher(httpClient)),
		Detector:   monitor.NewDetector(store),
		Downloader: dl,
		Archive:    archive,
		Notifier:   notifier,
		Companies:  toCompanies(cfg.Companies),
		FromDate:   cfg.FromDate(),
		Logger:     baseLogger.With("component", "pipeline"),
	})

	srv := server.New(server.Options{
		BindAddr:          cfg.Server.BindAddr,
		Pipeline:          pipeline,
		Store:             store,
		Archive:           archive,
		DownloadsRoot:     cfg.Storage.DownloadsDir,
		AttachmentBaseURL: cfg.Portal.AttachmentBaseURL,
		Logger:            baseLogger.With("component", "server"),
	})

	return &Application{
		cfg:      cfg,
		log:      baseLogger,
		pipeline: pipeline,
		server:   srv,
		monitor:  scheduler.NewIntervalScheduler(cfg.Scheduler.MonitorInterval()),
		download: scheduler.NewIntervalScheduler(cfg.Scheduler.DownloadInterval()),
		db:       db,
	}, nil
}

// Run starts the schedulers and serves HTTP until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.monitor.Start(ctx, func(t time.Time) {
		batch := a.pipeline.RunMonitor(ctx, 0)
		a.log.Info("monitor run finished", "run_id", batch.RunID, "entities", len(batch.Changes))
	}); err != nil {
		return fmt.Errorf("start monitor scheduler: %w", err)
	}

	if err := a.download.Start(ctx, func(t time.Time) {
		batch := a.pipeline.RunDownload(ctx, 0)
		a.log.Info("download run finished", "run_id", batch.RunID, "entities", len(batch.Results))
	}); err != nil {
		return fmt.Errorf("start download scheduler: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.Start()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = a.monitor.Stop(shutdownCtx)
	_ = a.download.Stop(shutdownCtx)

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server shutdown", "error", err)
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("close database", "error", err)
		}
	}

	return nil
}

func toCompanies(cfg []config.CompanyConfig) []domain.Company {
	companies := make([]domain.Company, 0, len(cfg))
	for _, c := range cfg {
		companies = append(companies, domain.Company{Name: c.Name, Code: c.Code})
	}
	return companies
}
