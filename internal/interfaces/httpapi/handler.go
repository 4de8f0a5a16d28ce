package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/footyverse/prediction-league/internal/domain/jobscheduler"
	"github.com/footyverse/prediction-league/internal/platform/logging"
	"github.com/footyverse/prediction-league/internal/usecase"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	teamService        *usecase.TeamService
	fixtureService     *usecase.FixtureService
	advisorService     *usecase.AdvisorService
	predictionService  *usecase.PredictionService
	leaderboardService *usecase.LeaderboardService
	scoringService     *usecase.ScoringService
	reconcilerService  *usecase.ReconcilerService
	recoveryService    *usecase.RecoveryService
	seedService        *usecase.SeedService
	jobOrchestrator    *usecase.JobOrchestratorService
	jobDispatchRepo    jobscheduler.Repository
	logger             *logging.Logger
	validator          *validator.Validate
}

// HandlerDeps collects the services the router exposes. JobDispatchRepo
// may be nil; dispatch auditing is then skipped.
type HandlerDeps struct {
	TeamService        *usecase.TeamService
	FixtureService     *usecase.FixtureService
	AdvisorService     *usecase.AdvisorService
	PredictionService  *usecase.PredictionService
	LeaderboardService *usecase.LeaderboardService
	ScoringService     *usecase.ScoringService
	ReconcilerService  *usecase.ReconcilerService
	RecoveryService    *usecase.RecoveryService
	SeedService        *usecase.SeedService
	JobOrchestrator    *usecase.JobOrchestratorService
	JobDispatchRepo    jobscheduler.Repository
	Logger             *logging.Logger
}

func NewHandler(deps HandlerDeps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		teamService:        deps.TeamService,
		fixtureService:     deps.FixtureService,
		advisorService:     deps.AdvisorService,
		predictionService:  deps.PredictionService,
		leaderboardService: deps.LeaderboardService,
		scoringService:     deps.ScoringService,
		reconcilerService:  deps.ReconcilerService,
		recoveryService:    deps.RecoveryService,
		seedService:        deps.SeedService,
		jobOrchestrator:    deps.JobOrchestrator,
		jobDispatchRepo:    deps.JobDispatchRepo,
		logger:             logger,
		validator:          validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTeams")
	defer span.End()

	teams, err := h.teamService.ListTeams(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list teams failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]teamDTO, 0, len(teams))
	for _, t := range teams {
		items = append(items, teamDTO{
			ID:        t.ID,
			Name:      t.Name,
			ShortName: t.ShortName,
			Tla:       t.Tla,
			CrestURL:  t.CrestURL,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type teamDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	Tla       string `json:"tla"`
	CrestURL  string `json:"crestUrl"`
}
