package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
	"github.com/footyverse/prediction-league/internal/usecase"
)

func (h *Handler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFixtures")
	defer span.End()

	season := strings.TrimSpace(r.URL.Query().Get("season"))
	gameweek, err := optionalIntQuery(r, "gameweek")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	fixtures, err := h.fixtureService.List(ctx, season, gameweek)
	if err != nil {
		h.logger.WarnContext(ctx, "list fixtures failed", "season", season, "gameweek", gameweek, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]fixtureDTO, 0, len(fixtures))
	for _, f := range fixtures {
		items = append(items, fixtureToDTO(ctx, f))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetFixture(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFixture")
	defer span.End()

	fixtureID := strings.TrimSpace(r.PathValue("fixtureID"))
	fx, err := h.fixtureService.Get(ctx, fixtureID)
	if err != nil {
		h.logger.WarnContext(ctx, "get fixture failed", "fixture_id", fixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, fixtureToDTO(ctx, fx))
}

func (h *Handler) GetFixturePollHint(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFixturePollHint")
	defer span.End()

	fixtureID := strings.TrimSpace(r.PathValue("fixtureID"))
	hint, err := h.advisorService.PollHint(ctx, fixtureID)
	if err != nil {
		h.logger.WarnContext(ctx, "poll hint failed", "fixture_id", fixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, hint)
}

func optionalIntQuery(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", usecase.ErrInvalidInput, key)
	}
	return value, nil
}

type fixtureDTO struct {
	ID           string `json:"id"`
	Season       string `json:"season"`
	Gameweek     int    `json:"gameweek"`
	HomeTeamID   string `json:"homeTeamId"`
	AwayTeamID   string `json:"awayTeamId"`
	HomeTeamName string `json:"homeTeamName"`
	AwayTeamName string `json:"awayTeamName"`
	KickoffAt    string `json:"kickoffAt"`
	HomeScore    *int   `json:"homeScore"`
	AwayScore    *int   `json:"awayScore"`
	Status       string `json:"status"`
	Multiplier   int    `json:"multiplier"`
}

func fixtureToDTO(ctx context.Context, v fixture.Fixture) fixtureDTO {
	ctx, span := startSpan(ctx, "httpapi.fixtureToDTO")
	defer span.End()

	return fixtureDTO{
		ID:           v.ID,
		Season:       v.Season,
		Gameweek:     v.Gameweek,
		HomeTeamID:   v.HomeTeamID,
		AwayTeamID:   v.AwayTeamID,
		HomeTeamName: v.HomeTeamName,
		AwayTeamName: v.AwayTeamName,
		KickoffAt:    v.KickoffAt.UTC().Format(time.RFC3339),
		HomeScore:    v.HomeScore,
		AwayScore:    v.AwayScore,
		Status:       string(v.Status),
		Multiplier:   v.Multiplier,
	}
}
