package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/footyverse/prediction-league/internal/domain/fixture"
	"github.com/footyverse/prediction-league/internal/domain/team"
	"github.com/footyverse/prediction-league/internal/infrastructure/repository/memory"
	"github.com/footyverse/prediction-league/internal/platform/logging"
	"github.com/footyverse/prediction-league/internal/usecase"
)

const testJobToken = "test-job-token"

func intPtr(v int) *int { return &v }

func testFixtures(now time.Time) []fixture.Fixture {
	return []fixture.Fixture{
		{
			ID:           "fx-upcoming",
			ExternalRef:  101,
			Season:       "2025/2026",
			Gameweek:     3,
			HomeTeamID:   "team-ars",
			AwayTeamID:   "team-liv",
			HomeTeamName: "Arsenal FC",
			AwayTeamName: "Liverpool FC",
			KickoffAt:    now.Add(48 * time.Hour),
			Status:       fixture.StatusTimed,
			Multiplier:   1,
			UpdatedAt:    now,
		},
		{
			ID:           "fx-finished",
			ExternalRef:  102,
			Season:       "2025/2026",
			Gameweek:     2,
			HomeTeamID:   "team-mci",
			AwayTeamID:   "team-che",
			HomeTeamName: "Manchester City FC",
			AwayTeamName: "Chelsea FC",
			KickoffAt:    now.Add(-72 * time.Hour),
			HomeScore:    intPtr(2),
			AwayScore:    intPtr(1),
			Status:       fixture.StatusFinished,
			Multiplier:   1,
			UpdatedAt:    now,
		},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	now := time.Now().UTC()
	logger := logging.NewNop()

	fixtureRepo := memory.NewFixtureRepository(testFixtures(now))
	predictionRepo := memory.NewPredictionRepository()
	standingsRepo := memory.NewStandingsRepository()
	teamRepo := memory.NewTeamRepository([]team.Team{
		{ID: "team-ars", ExternalRef: 57, Name: "Arsenal FC", ShortName: "Arsenal", Tla: "ARS"},
		{ID: "team-liv", ExternalRef: 64, Name: "Liverpool FC", ShortName: "Liverpool", Tla: "LIV"},
	})
	dispatchRepo := memory.NewJobDispatchRepository()

	leaderboard := usecase.NewLeaderboardService(standingsRepo, predictionRepo, fixtureRepo, logger)
	scoring := usecase.NewScoringService(fixtureRepo, predictionRepo, leaderboard, logger)

	handler := NewHandler(HandlerDeps{
		TeamService:        usecase.NewTeamService(teamRepo),
		FixtureService:     usecase.NewFixtureService(fixtureRepo),
		AdvisorService:     usecase.NewAdvisorService(fixtureRepo),
		PredictionService:  usecase.NewPredictionService(fixtureRepo, predictionRepo, leaderboard, nil, logger),
		LeaderboardService: leaderboard,
		ScoringService:     scoring,
		JobDispatchRepo:    dispatchRepo,
		Logger:             logger,
	})

	return NewRouter(handler, logger, []string{"*"}, testJobToken)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestRouter_ListFixturesBySeason(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/fixtures?season=2025%2F2026", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decodeEnvelope(t, rec)
	items, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected data array, got %T", body["data"])
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 fixtures, got=%d", len(items))
	}
}

func TestRouter_ListFixturesGameweekFilter(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/fixtures?season=2025%2F2026&gameweek=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decodeEnvelope(t, rec)
	items, _ := body["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 fixture, got=%d", len(items))
	}
	first, _ := items[0].(map[string]any)
	if got, _ := first["id"].(string); got != "fx-finished" {
		t.Fatalf("expected fx-finished, got=%v", first["id"])
	}
	if got, _ := first["homeScore"].(float64); got != 2 {
		t.Fatalf("expected homeScore=2, got=%v", first["homeScore"])
	}
}

func TestRouter_ListFixturesMissingSeason(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/fixtures", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_GetFixtureNotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/fixtures/fx-missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestRouter_GetFixturePollHint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/fixtures/fx-finished/poll-hint", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if got, _ := data["pollSeconds"].(float64); got != 0 {
		t.Fatalf("expected pollSeconds=0 for finished fixture, got=%v", data["pollSeconds"])
	}
}

func TestRouter_SubmitPrediction(t *testing.T) {
	router := newTestRouter(t)

	payload := `{"userId":"user-1","fixtureId":"fx-upcoming","homeGoals":2,"awayGoals":1}`
	req := httptest.NewRequest(http.MethodPost, "/v1/orgs/acme/predictions", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if got, _ := data["orgId"].(string); got != "acme" {
		t.Fatalf("expected orgId=acme, got=%v", data["orgId"])
	}
	if got, _ := data["season"].(string); got != "2025/2026" {
		t.Fatalf("expected season from fixture, got=%v", data["season"])
	}
}

func TestRouter_SubmitPredictionLockedFixture(t *testing.T) {
	router := newTestRouter(t)

	payload := `{"userId":"user-1","fixtureId":"fx-finished","homeGoals":1,"awayGoals":0}`
	req := httptest.NewRequest(http.MethodPost, "/v1/orgs/acme/predictions", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_SubmitPredictionMissingFields(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/orgs/acme/predictions", strings.NewReader(`{"userId":"user-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_OrgTableAfterPrediction(t *testing.T) {
	router := newTestRouter(t)

	payload := `{"userId":"user-1","fixtureId":"fx-upcoming","homeGoals":1,"awayGoals":1}`
	req := httptest.NewRequest(http.MethodPost, "/v1/orgs/acme/predictions", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("seed prediction failed: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/orgs/acme/table?season=2025%2F2026", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decodeEnvelope(t, rec)
	items, _ := body["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 table entry, got=%d", len(items))
	}
	entry, _ := items[0].(map[string]any)
	if got, _ := entry["userId"].(string); got != "user-1" {
		t.Fatalf("expected userId=user-1, got=%v", entry["userId"])
	}
	if got, _ := entry["rank"].(float64); got != 1 {
		t.Fatalf("expected rank=1, got=%v", entry["rank"])
	}
}

func TestRouter_OrgTableRequiresSeason(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/orgs/acme/table", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_ListTeams(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/teams", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decodeEnvelope(t, rec)
	items, _ := body["data"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 teams, got=%d", len(items))
	}
}

func TestRouter_InternalEngineRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/engine/fixtures/fx-finished/score", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestRouter_ScoreFixtureWithToken(t *testing.T) {
	router := newTestRouter(t)

	// Seed a prediction, then score the finished fixture directly.
	payload := `{"userId":"user-1","fixtureId":"fx-upcoming","homeGoals":2,"awayGoals":1}`
	req := httptest.NewRequest(http.MethodPost, "/v1/orgs/acme/predictions", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("seed prediction failed: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/internal/engine/fixtures/fx-finished/score", nil)
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if got, _ := data["fixtureId"].(string); got != "fx-finished" {
		t.Fatalf("expected fixtureId=fx-finished, got=%v", data["fixtureId"])
	}
}

func TestRouter_ListDispatchesWithToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/internal/engine/dispatches", nil)
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}
