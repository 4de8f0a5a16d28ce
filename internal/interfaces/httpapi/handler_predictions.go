package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/footyverse/prediction-league/internal/domain/prediction"
	"github.com/footyverse/prediction-league/internal/usecase"
)

type submitPredictionRequest struct {
	UserID    string `json:"userId" validate:"required"`
	FixtureID string `json:"fixtureId" validate:"required"`
	HomeGoals int    `json:"homeGoals" validate:"min=0,max=99"`
	AwayGoals int    `json:"awayGoals" validate:"min=0,max=99"`
}

func (h *Handler) SubmitPrediction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitPrediction")
	defer span.End()

	orgID := strings.TrimSpace(r.PathValue("orgID"))

	var req submitPredictionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.predictionService.Submit(ctx, usecase.SubmitPredictionInput{
		OrgID:     orgID,
		UserID:    req.UserID,
		FixtureID: req.FixtureID,
		HomeGoals: req.HomeGoals,
		AwayGoals: req.AwayGoals,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit prediction failed", "org_id", orgID, "fixture_id", req.FixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, predictionToDTO(ctx, item))
}

func (h *Handler) ListFixturePredictions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFixturePredictions")
	defer span.End()

	fixtureID := strings.TrimSpace(r.PathValue("fixtureID"))
	predictions, err := h.predictionService.ListForFixture(ctx, fixtureID)
	if err != nil {
		h.logger.WarnContext(ctx, "list fixture predictions failed", "fixture_id", fixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]predictionDTO, 0, len(predictions))
	for _, p := range predictions {
		items = append(items, predictionToDTO(ctx, p))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func decodeJSONBody(r *http.Request, target any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

type predictionDTO struct {
	ID        string `json:"id"`
	OrgID     string `json:"orgId"`
	Season    string `json:"season"`
	UserID    string `json:"userId"`
	FixtureID string `json:"fixtureId"`
	Gameweek  int    `json:"gameweek"`
	HomeGoals int    `json:"homeGoals"`
	AwayGoals int    `json:"awayGoals"`
	Points    *int   `json:"points"`
	ScoredAt  string `json:"scoredAt,omitempty"`
	UpdatedAt string `json:"updatedAt"`
}

func predictionToDTO(ctx context.Context, v prediction.Prediction) predictionDTO {
	ctx, span := startSpan(ctx, "httpapi.predictionToDTO")
	defer span.End()

	dto := predictionDTO{
		ID:        v.ID,
		OrgID:     v.OrgID,
		Season:    v.Season,
		UserID:    v.UserID,
		FixtureID: v.FixtureID,
		Gameweek:  v.Gameweek,
		HomeGoals: v.HomeGoals,
		AwayGoals: v.AwayGoals,
		Points:    v.Points,
		UpdatedAt: v.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if v.ScoredAt != nil {
		dto.ScoredAt = v.ScoredAt.UTC().Format(time.RFC3339)
	}
	return dto
}
