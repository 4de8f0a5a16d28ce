package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/teams", handler.ListTeams)
	mux.HandleFunc("GET /v1/fixtures", handler.ListFixtures)
	mux.HandleFunc("GET /v1/fixtures/{fixtureID}", handler.GetFixture)
	mux.HandleFunc("GET /v1/fixtures/{fixtureID}/poll-hint", handler.GetFixturePollHint)
	mux.HandleFunc("GET /v1/fixtures/{fixtureID}/predictions", handler.ListFixturePredictions)
	mux.HandleFunc("POST /v1/orgs/{orgID}/predictions", handler.SubmitPrediction)
	mux.HandleFunc("GET /v1/orgs/{orgID}/table", handler.GetOrgTable)
	mux.HandleFunc("GET /v1/orgs/{orgID}/ranking-history", handler.GetOrgRankingHistory)
}

func registerInternalEngineRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/engine/reconcile", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunReconcile)))
	mux.Handle("POST /v1/internal/engine/recover", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRecover)))
	mux.Handle("POST /v1/internal/engine/fixtures/{fixtureID}/score", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ScoreFixture)))
	mux.Handle("POST /v1/internal/engine/seasons/import", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ImportSeason)))
	mux.Handle("POST /v1/internal/engine/gameweeks/multiplier", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.SetGameweekMultiplier)))
	mux.Handle("POST /v1/internal/engine/gameweeks/wipe", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.WipeGameweek)))
	mux.Handle("GET /v1/internal/engine/dispatches", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ListDispatches)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/bootstrap", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunBootstrapJob)))
	mux.Handle("POST /v1/internal/jobs/reconcile", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunReconcileJob)))
	mux.Handle("POST /v1/internal/jobs/reconcile-live", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunLiveReconcileJob)))
	mux.Handle("POST /v1/internal/jobs/recover", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRecoveryJob)))
}
