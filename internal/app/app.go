package app

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/footyverse/prediction-league/external/footballdata"
	"github.com/footyverse/prediction-league/external/jobqueue"
	"github.com/footyverse/prediction-league/internal/config"
	"github.com/footyverse/prediction-league/internal/domain/standings"
	"github.com/footyverse/prediction-league/internal/domain/team"
	repocache "github.com/footyverse/prediction-league/internal/infrastructure/repository/cache"
	"github.com/footyverse/prediction-league/internal/infrastructure/repository/postgres"
	"github.com/footyverse/prediction-league/internal/interfaces/httpapi"
	basecache "github.com/footyverse/prediction-league/internal/platform/cache"
	"github.com/footyverse/prediction-league/internal/platform/logging"
	"github.com/footyverse/prediction-league/internal/platform/resilience"
	"github.com/footyverse/prediction-league/internal/usecase"
)

// App owns the wired service graph and the long-lived resources
// behind it: the database pool and the provider gateway.
type App struct {
	Server       *http.Server
	Recovery     *usecase.RecoveryService
	Orchestrator *usecase.JobOrchestratorService

	db      *sqlx.DB
	gateway *footballdata.Gateway
	logger  *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, errors.New("http server addr cannot be empty")
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	fixtureRepo := postgres.NewFixtureRepository(db)
	predictionRepo := postgres.NewPredictionRepository(db)
	teamRepoPg := postgres.NewTeamRepository(db)
	standingsRepoPg := postgres.NewStandingsRepository(db)
	dispatchRepo := postgres.NewJobDispatchRepository(db)

	var teamRepo team.Repository = teamRepoPg
	var standingsRepo standings.Repository = standingsRepoPg
	if cfg.CacheEnabled {
		store := basecache.NewStore(cfg.CacheTTL)
		teamRepo = repocache.NewTeamRepository(teamRepoPg, store)
		standingsRepo = repocache.NewStandingsRepository(standingsRepoPg, store)
	}

	var (
		gateway  *footballdata.Gateway
		provider usecase.MatchProvider
	)
	if cfg.FootballDataEnabled {
		gateway = footballdata.NewGateway(footballdata.GatewayConfig{
			BaseURL:        cfg.FootballDataBaseURL,
			Token:          cfg.FootballDataToken,
			CallsPerMinute: cfg.FootballDataCallsPerMinute,
			CacheTTL:       cfg.FootballDataCacheTTL,
			RequestTimeout: cfg.FootballDataRequestTimeout,
			MaxRequeues:    cfg.FootballDataMaxRequeues,
			MaxQueueDepth:  cfg.FootballDataMaxQueueDepth,
			Logger:         logger,
			CircuitBreaker: footballDataCircuitConfig(cfg),
		})
		provider = footballdata.NewClient(footballdata.ClientConfig{
			Gateway:     gateway,
			Competition: cfg.FootballDataCompetition,
		})
	} else {
		logger.Warn("football-data provider disabled", "reason", "FOOTBALL_DATA_ENABLED=false")
		provider = disabledProvider{}
	}

	var queue usecase.JobQueue
	if cfg.QStashEnabled {
		queue = jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			Timeout:          cfg.QStashTimeout,
			CircuitBreaker:   qstashCircuitConfig(cfg),
		}, logger)
	}

	teamSvc := usecase.NewTeamService(teamRepo)
	fixtureSvc := usecase.NewFixtureService(fixtureRepo)
	advisorSvc := usecase.NewAdvisorService(fixtureRepo)
	leaderboardSvc := usecase.NewLeaderboardService(standingsRepo, predictionRepo, fixtureRepo, logger)
	predictionSvc := usecase.NewPredictionService(fixtureRepo, predictionRepo, leaderboardSvc, nil, logger)
	scoringSvc := usecase.NewScoringService(fixtureRepo, predictionRepo, leaderboardSvc, logger)
	reconcilerSvc := usecase.NewReconcilerService(fixtureRepo, provider, scoringSvc, logger)
	recoverySvc := usecase.NewRecoveryService(fixtureRepo, predictionRepo, reconcilerSvc, scoringSvc, logger)
	seedSvc := usecase.NewSeedService(fixtureRepo, teamRepo, predictionRepo, provider, leaderboardSvc, scoringSvc, nil, logger)
	orchestrator := usecase.NewJobOrchestratorService(
		fixtureRepo,
		reconcilerSvc,
		recoverySvc,
		leaderboardSvc,
		queue,
		dispatchRepo,
		usecase.JobOrchestratorConfig{
			ReconcileInterval: cfg.JobReconcileInterval,
			LiveInterval:      cfg.JobLiveInterval,
			PreKickoffLead:    cfg.JobPreKickoffLead,
			Season:            cfg.JobSeason,
		},
		logger,
	)

	handler := httpapi.NewHandler(httpapi.HandlerDeps{
		TeamService:        teamSvc,
		FixtureService:     fixtureSvc,
		AdvisorService:     advisorSvc,
		PredictionService:  predictionSvc,
		LeaderboardService: leaderboardSvc,
		ScoringService:     scoringSvc,
		ReconcilerService:  reconcilerSvc,
		RecoveryService:    recoverySvc,
		SeedService:        seedSvc,
		JobOrchestrator:    orchestrator,
		JobDispatchRepo:    dispatchRepo,
		Logger:             logger,
	})
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &App{
		Server:       server,
		Recovery:     recoverySvc,
		Orchestrator: orchestrator,
		db:           db,
		gateway:      gateway,
		logger:       logger,
	}, nil
}

// Close releases the provider gateway and the database pool. The HTTP
// server must already be shut down.
func (a *App) Close() error {
	if a.gateway != nil {
		a.gateway.Close()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Connect("postgres", dsn,
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func footballDataCircuitConfig(cfg config.Config) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Enabled:          cfg.FootballDataCircuitEnabled,
		FailureThreshold: cfg.FootballDataCircuitFailureCount,
		OpenTimeout:      cfg.FootballDataCircuitOpenTimeout,
		HalfOpenMaxReq:   cfg.FootballDataCircuitHalfOpenMaxReq,
	}
}

func qstashCircuitConfig(cfg config.Config) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Enabled:          cfg.QStashCircuitEnabled,
		FailureThreshold: cfg.QStashCircuitFailureCount,
		OpenTimeout:      cfg.QStashCircuitOpenTimeout,
		HalfOpenMaxReq:   cfg.QStashCircuitHalfOpenMaxReq,
	}
}

// disabledProvider fails every provider call so reconcile and seed
// operations surface a 503 instead of hanging when the upstream is
// switched off.
type disabledProvider struct{}

func (disabledProvider) MatchesByIDs(context.Context, []int64) ([]usecase.ExternalMatch, error) {
	return nil, errors.Wrap(usecase.ErrDependencyUnavailable, "football-data provider disabled")
}

func (disabledProvider) SeasonMatches(context.Context, string) ([]usecase.ExternalMatch, error) {
	return nil, errors.Wrap(usecase.ErrDependencyUnavailable, "football-data provider disabled")
}

func (disabledProvider) CompetitionTeams(context.Context, string) ([]usecase.ExternalTeam, error) {
	return nil, errors.Wrap(usecase.ErrDependencyUnavailable, "football-data provider disabled")
}
