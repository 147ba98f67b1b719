package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"rosterflow/internal/bootstrap/config"
	"rosterflow/internal/bootstrap/database"
	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/domain/validate"
	"rosterflow/internal/extract"
	openaiassist "rosterflow/internal/infrastructure/assist/openai"
	"rosterflow/internal/infrastructure/events"
	sqliterepo "rosterflow/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "rosterflow/internal/infrastructure/persistence/sqlite/uow"
	"rosterflow/internal/ingest"
	"rosterflow/internal/ports"
	"rosterflow/internal/server"
	"rosterflow/internal/usecase/pipeline"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewRosterRepository,
			fx.As(new(ports.RosterRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideAssist),
	fx.Provide(providePublisher),
	fx.Provide(provideExtractor),
	fx.Provide(providePolicies),
	fx.Provide(provideService),
	fx.Provide(provideRunner),
	fx.Provide(provideWatcher),
	fx.Provide(provideServer),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideAssist(cfg config.Config) ports.Assist {
	return openaiassist.New(openaiassist.Config{
		APIKey:      cfg.Assist.APIKey,
		BaseURL:     cfg.Assist.BaseURL,
		Model:       cfg.Assist.Model,
		Temperature: cfg.Assist.Temperature,
	})
}

func providePublisher(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.Publisher, error) {
	if !cfg.Events.Enabled {
		return events.Noop{}, nil
	}

	pub, err := events.NewNATS(cfg.Events.URL, cfg.Events.SubjectPrefix)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return pub.Close()
		},
	})
	logging.Info(ctx, "event publisher connected", slog.String("url", cfg.Events.URL))
	return pub, nil
}

func provideExtractor(cfg config.Config, assist ports.Assist) *extract.Extractor {
	return extract.New(extract.NewRegistry(), assist, extract.Options{
		ConfidenceGate: cfg.Pipeline.ConfidenceGate,
		AssistTimeout:  cfg.Pipeline.AssistTimeout,
	})
}

func providePolicies(cfg config.Config) (*pipeline.SenderPolicies, error) {
	return pipeline.LoadSenderPolicies(cfg.Pipeline.PolicyFile)
}

func provideService(
	repo ports.RosterRepository,
	uow ports.UnitOfWork,
	extractor *extract.Extractor,
	publisher ports.Publisher,
	policies *pipeline.SenderPolicies,
	cfg config.Config,
) *pipeline.Service {
	winner := validate.WinnerFirst
	if cfg.Pipeline.DuplicateWinner == "last" {
		winner = validate.WinnerLast
	}
	return pipeline.NewService(repo, uow, extractor, publisher, policies, pipeline.Options{
		ConfidenceGate:  cfg.Pipeline.ConfidenceGate,
		AssistTimeout:   cfg.Pipeline.AssistTimeout,
		StuckAfter:      cfg.Pipeline.StuckAfter,
		DuplicateWinner: winner,
		ExportDir:       cfg.Pipeline.ExportDir,
	})
}

func provideRunner(svc *pipeline.Service, cfg config.Config) *pipeline.Runner {
	return pipeline.NewRunner(svc, cfg.Pipeline.Workers, cfg.Pipeline.QueueDepth)
}

func provideWatcher(svc *pipeline.Service, runner *pipeline.Runner, cfg config.Config) *ingest.Watcher {
	return ingest.NewWatcher(svc, runner, cfg.Ingest.InboxDir, cfg.Ingest.Settle)
}

func provideServer(svc *pipeline.Service, runner *pipeline.Runner, cfg config.Config) *server.Server {
	return server.New(cfg.Server.Addr, svc, runner)
}
