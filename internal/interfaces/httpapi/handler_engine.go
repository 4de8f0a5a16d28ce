package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/footyverse/prediction-league/internal/usecase"
)

// Engine endpoints are operator tooling behind the internal job token.
// They run synchronously and return the pass summary.

func (h *Handler) RunReconcile(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunReconcile")
	defer span.End()

	var req reconcileRequest
	if err := decodeOptionalJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.reconcilerService.Reconcile(ctx, usecase.ReconcileInput{
		FixtureIDs: req.FixtureIDs,
		LiveOnly:   req.LiveOnly,
		Force:      req.Force,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "reconcile failed", "live_only", req.LiveOnly, "force", req.Force, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunRecover(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRecover")
	defer span.End()

	var req recoverRequest
	if err := decodeOptionalJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.recoveryService.Recover(ctx, usecase.RecoveryInput{
		LookbackDays: req.LookbackDays,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "recovery failed", "lookback_days", req.LookbackDays, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) ScoreFixture(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ScoreFixture")
	defer span.End()

	fixtureID := strings.TrimSpace(r.PathValue("fixtureID"))
	result, err := h.scoringService.ScoreFixture(ctx, fixtureID)
	if err != nil {
		h.logger.WarnContext(ctx, "score fixture failed", "fixture_id", fixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) ImportSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ImportSeason")
	defer span.End()

	var req importSeasonRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.seedService.ImportSeason(ctx, req.Season)
	if err != nil {
		h.logger.WarnContext(ctx, "import season failed", "season", req.Season, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "season imported", "season", req.Season, "teams", result.Teams, "fixtures", result.Fixtures)
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) SetGameweekMultiplier(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetGameweekMultiplier")
	defer span.End()

	var req multiplierRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.seedService.SetGameweekMultiplier(ctx, usecase.MultiplierInput{
		Season:     req.Season,
		Gameweek:   req.Gameweek,
		Multiplier: req.Multiplier,
		Rescore:    req.Rescore,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "set gameweek multiplier failed",
			"season", req.Season,
			"gameweek", req.Gameweek,
			"multiplier", req.Multiplier,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) WipeGameweek(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.WipeGameweek")
	defer span.End()

	var req wipeGameweekRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.seedService.WipeGameweek(ctx, req.Season, req.Gameweek)
	if err != nil {
		h.logger.WarnContext(ctx, "wipe gameweek failed", "season", req.Season, "gameweek", req.Gameweek, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "gameweek wiped",
		"season", req.Season,
		"gameweek", req.Gameweek,
		"fixtures", result.Fixtures,
		"predictions", result.Predictions,
	)
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) ListDispatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListDispatches")
	defer span.End()

	if h.jobDispatchRepo == nil {
		writeError(ctx, w, fmt.Errorf("%w: job dispatch store is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	limit, err := optionalIntQuery(r, "limit")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	events, err := h.jobDispatchRepo.ListRecent(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list dispatches failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]dispatchEventDTO, 0, len(events))
	for _, e := range events {
		items = append(items, dispatchEventDTO{
			DispatchID:   e.DispatchID,
			JobName:      e.JobName,
			JobPath:      e.JobPath,
			Target:       e.Target,
			Status:       string(e.Status),
			ErrorMessage: e.ErrorMessage,
			OccurredAt:   e.OccurredAt.UTC().Format(time.RFC3339),
			TraceID:      e.TraceID,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

// decodeOptionalJSONBody is for endpoints whose body is entirely
// optional: an empty body leaves target at its zero value.
func decodeOptionalJSONBody(r *http.Request, target any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

type reconcileRequest struct {
	FixtureIDs []string `json:"fixtureIds"`
	LiveOnly   bool     `json:"liveOnly"`
	Force      bool     `json:"force"`
}

type recoverRequest struct {
	LookbackDays int `json:"lookbackDays"`
}

type importSeasonRequest struct {
	Season string `json:"season" validate:"required"`
}

type multiplierRequest struct {
	Season     string `json:"season" validate:"required"`
	Gameweek   int    `json:"gameweek" validate:"min=1"`
	Multiplier int    `json:"multiplier" validate:"min=1,max=10"`
	Rescore    bool   `json:"rescore"`
}

type wipeGameweekRequest struct {
	Season   string `json:"season" validate:"required"`
	Gameweek int    `json:"gameweek" validate:"min=1"`
}

type dispatchEventDTO struct {
	DispatchID   string `json:"dispatchId"`
	JobName      string `json:"jobName"`
	JobPath      string `json:"jobPath"`
	Target       string `json:"target"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	OccurredAt   string `json:"occurredAt"`
	TraceID      string `json:"traceId,omitempty"`
}
