package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/yungbote/casehall-backend/internal/data/db"
	"github.com/yungbote/casehall-backend/internal/data/repos"
	casehttp "github.com/yungbote/casehall-backend/internal/http"
	"github.com/yungbote/casehall-backend/internal/observability"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
	"github.com/yungbote/casehall-backend/internal/realtime"
)

const serviceName = "casehall-api"

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Metrics  *observability.Metrics
	Repos    repos.Set
	Clients  Clients
	Services Services
	Server   *casehttp.Server

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// NewLogger honours LOG_MODE (development|production).
func NewLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// New wires storage, clients, services and HTTP. Background loops start in Start.
func New(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()
	if cfg.AutoMigrate {
		if err := db.AutoMigrateAll(theDB); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	reposet := repos.NewSet(theDB, log)
	serviceset := wireServices(theDB, log, cfg, metrics, reposet, clients)
	handlerset := wireHandlers(log, theDB, serviceset)
	middleware := wireMiddleware(log, cfg, metrics)
	server := casehttp.NewServer(log, routerConfig(log, cfg, metrics, handlerset, middleware))

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Metrics:      metrics,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Server:       server,
		pg:           pg,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches metrics export, pool collectors, the SLO evaluator and the
// event forwarder.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
		a.Metrics.StartSLOEvaluator(ctx, a.Log)
	}
	if a.Clients.Bus != nil {
		flog := a.Log.With("component", "EventForwarder")
		if err := a.Clients.Bus.StartForwarder(ctx, func(ev realtime.Event) {
			flog.Debug("event delivered", "event", ev.Event, "channel", ev.Channel)
		}); err != nil {
			return fmt.Errorf("start event forwarder: %w", err)
		}
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, ":"+a.Cfg.Port)
}

// CheckSelectionConsistency reports cases whose selection disagrees with bid
// state and returns how many were found.
func (a *App) CheckSelectionConsistency(ctx context.Context, limit int) (int, error) {
	drift, err := a.Repos.Cases.FindSelectionDrift(dbctx.Background(ctx), limit)
	if err != nil {
		return 0, err
	}
	counts := map[string]int{}
	sample := make([]string, 0, 10)
	for _, d := range drift {
		counts[d.Problem]++
		if len(sample) < cap(sample) {
			sample = append(sample, d.CaseID.String())
		}
		a.Log.Warn("selection drift", "case_id", d.CaseID, "problem", d.Problem)
	}
	observability.ReportSelectionDrift(ctx, a.Log, a.Metrics, counts, sample)
	return len(drift), nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
