package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/standings"
	"github.com/footyverse/prediction-league/internal/usecase"
)

func (h *Handler) GetOrgTable(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetOrgTable")
	defer span.End()

	orgID := strings.TrimSpace(r.PathValue("orgID"))
	season, err := requiredSeasonQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	entries, err := h.leaderboardService.Table(ctx, orgID, season)
	if err != nil {
		h.logger.WarnContext(ctx, "get table failed", "org_id", orgID, "season", season, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]standingsEntryDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, standingsEntryToDTO(ctx, e))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetOrgRankingHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetOrgRankingHistory")
	defer span.End()

	orgID := strings.TrimSpace(r.PathValue("orgID"))
	season, err := requiredSeasonQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	snapshots, err := h.leaderboardService.RankingHistory(ctx, orgID, season)
	if err != nil {
		h.logger.WarnContext(ctx, "get ranking history failed", "org_id", orgID, "season", season, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]rankingSnapshotDTO, 0, len(snapshots))
	for _, s := range snapshots {
		items = append(items, rankingSnapshotDTO{
			UserID:     s.UserID,
			Gameweek:   s.Gameweek,
			Rank:       s.Rank,
			Points:     s.Points,
			RecordedAt: s.RecordedAt.UTC().Format(time.RFC3339),
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func requiredSeasonQuery(r *http.Request) (string, error) {
	season := strings.TrimSpace(r.URL.Query().Get("season"))
	if season == "" {
		return "", fmt.Errorf("%w: season query parameter is required", usecase.ErrInvalidInput)
	}
	return season, nil
}

type standingsEntryDTO struct {
	UserID            string `json:"userId"`
	Rank              int    `json:"rank"`
	Points            int    `json:"points"`
	CorrectScorelines int    `json:"correctScorelines"`
	CorrectOutcomes   int    `json:"correctOutcomes"`
	PredictedFixtures int    `json:"predictedFixtures"`
	CompletedFixtures int    `json:"completedFixtures"`
	UpdatedAt         string `json:"updatedAt"`
}

func standingsEntryToDTO(ctx context.Context, v standings.Entry) standingsEntryDTO {
	ctx, span := startSpan(ctx, "httpapi.standingsEntryToDTO")
	defer span.End()

	return standingsEntryDTO{
		UserID:            v.UserID,
		Rank:              v.Rank,
		Points:            v.Points,
		CorrectScorelines: v.CorrectScorelines,
		CorrectOutcomes:   v.CorrectOutcomes,
		PredictedFixtures: v.PredictedFixtures,
		CompletedFixtures: v.CompletedFixtures,
		UpdatedAt:         v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type rankingSnapshotDTO struct {
	UserID     string `json:"userId"`
	Gameweek   int    `json:"gameweek"`
	Rank       int    `json:"rank"`
	Points     int    `json:"points"`
	RecordedAt string `json:"recordedAt"`
}
