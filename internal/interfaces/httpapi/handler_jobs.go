package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/jobscheduler"
	"github.com/footyverse/prediction-league/internal/usecase"
	"go.opentelemetry.io/otel/trace"
)

var internalJobDispatchUnsafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// internalJobRequest is the callback body the queue posts back. All
// fields are optional; an empty body runs the job with defaults.
type internalJobRequest struct {
	DispatchID   string `json:"dispatch_id"`
	Target       string `json:"target"`
	Force        bool   `json:"force"`
	LookbackDays int    `json:"lookbackDays"`
}

func (h *Handler) RunReconcileJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunReconcileJob")
	defer span.End()

	if h.jobOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: job orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req internalJobRequest
	if err := decodeOptionalJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.jobOrchestrator.RunReconcile(ctx, req.Force)
	if err != nil {
		h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
			JobName:      "reconcile",
			JobPath:      "/v1/internal/jobs/reconcile",
			Target:       req.Target,
			Status:       jobscheduler.StatusFailed,
			Payload:      buildInternalJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run reconcile job failed", "force", req.Force, "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
		JobName:    "reconcile",
		JobPath:    "/v1/internal/jobs/reconcile",
		Target:     req.Target,
		Status:     jobscheduler.StatusCompleted,
		Payload:    buildInternalJobPayload(req),
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunLiveReconcileJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunLiveReconcileJob")
	defer span.End()

	if h.jobOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: job orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req internalJobRequest
	if err := decodeOptionalJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.jobOrchestrator.RunLiveReconcile(ctx, req.Force)
	if err != nil {
		h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
			JobName:      "reconcile-live",
			JobPath:      "/v1/internal/jobs/reconcile-live",
			Target:       req.Target,
			Status:       jobscheduler.StatusFailed,
			Payload:      buildInternalJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run live reconcile job failed", "force", req.Force, "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
		JobName:    "reconcile-live",
		JobPath:    "/v1/internal/jobs/reconcile-live",
		Target:     req.Target,
		Status:     jobscheduler.StatusCompleted,
		Payload:    buildInternalJobPayload(req),
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunRecoveryJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRecoveryJob")
	defer span.End()

	if h.jobOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: job orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req internalJobRequest
	if err := decodeOptionalJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.jobOrchestrator.RunRecovery(ctx, usecase.RecoveryInput{
		LookbackDays: req.LookbackDays,
	})
	if err != nil {
		h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
			JobName:      "recover",
			JobPath:      "/v1/internal/jobs/recover",
			Target:       req.Target,
			Status:       jobscheduler.StatusFailed,
			Payload:      buildInternalJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run recovery job failed", "lookback_days", req.LookbackDays, "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
		JobName:    "recover",
		JobPath:    "/v1/internal/jobs/recover",
		Target:     req.Target,
		Status:     jobscheduler.StatusCompleted,
		Payload:    buildInternalJobPayload(req),
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunBootstrapJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunBootstrapJob")
	defer span.End()

	if h.jobOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: job orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req internalJobRequest
	if err := decodeOptionalJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.jobOrchestrator.Bootstrap(ctx)
	if err != nil {
		h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
			JobName:      "bootstrap",
			JobPath:      "/v1/internal/jobs/bootstrap",
			Target:       req.Target,
			Status:       jobscheduler.StatusFailed,
			Payload:      buildInternalJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run bootstrap job failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
		JobName:    "bootstrap",
		JobPath:    "/v1/internal/jobs/bootstrap",
		Target:     req.Target,
		Status:     jobscheduler.StatusCompleted,
		Payload:    buildInternalJobPayload(req),
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) recordInternalJobDispatch(ctx context.Context, req internalJobRequest, event jobscheduler.DispatchEvent) {
	if h.jobDispatchRepo == nil {
		return
	}

	dispatchID := strings.TrimSpace(req.DispatchID)
	if dispatchID == "" {
		dispatchID = buildManualDispatchID(event.JobName, req.Target, event.OccurredAt)
	}
	event.DispatchID = dispatchID

	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID

	if err := h.jobDispatchRepo.UpsertEvent(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "record internal job dispatch failed",
			"dispatch_id", event.DispatchID,
			"job_name", event.JobName,
			"status", event.Status,
			"error", err,
		)
	}
}

func buildInternalJobPayload(req internalJobRequest) map[string]any {
	payload := map[string]any{
		"force": req.Force,
	}
	if strings.TrimSpace(req.Target) != "" {
		payload["target"] = req.Target
	}
	if req.LookbackDays > 0 {
		payload["lookback_days"] = req.LookbackDays
	}
	if strings.TrimSpace(req.DispatchID) != "" {
		payload["dispatch_id"] = req.DispatchID
	}
	return payload
}

func buildManualDispatchID(jobName, target string, now time.Time) string {
	jobName = sanitizeDispatchPart(jobName)
	target = sanitizeDispatchPart(target)
	ts := now.UTC().Format("20060102T150405.000000000Z")
	return "manual-" + jobName + "-" + target + "-" + ts
}

func sanitizeDispatchPart(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return internalJobDispatchUnsafeRegex.ReplaceAllString(value, "-")
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
