package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nemanja-m/gomr/internal/shared/config"
	"github.com/nemanja-m/gomr/internal/shared/logging"
	"github.com/nemanja-m/gomr/internal/tracker"
	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// killTimeout bounds how long a kill request waits for the job to finish
// draining; Kill itself is cooperative and has no hard deadline (spec §5),
// so this is purely an HTTP-layer request budget.
const killTimeout = 30 * time.Second

type API struct {
	tracker *tracker.JobTracker
	logger  logging.Logger
}

func NewAPI(t *tracker.JobTracker, logger logging.Logger) *API {
	return &API{tracker: t, logger: logger}
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/jobs", a.submitJob)
	mux.HandleFunc("GET /api/jobs", a.listJobs)
	mux.HandleFunc("GET /api/jobs/{id}", a.getJob)
	mux.HandleFunc("GET /api/jobs/{id}/counters", a.getCounters)
	mux.HandleFunc("POST /api/jobs/{id}/kill", a.killJob)
}

func (a *API) submitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validateSubmitJobRequest(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	jobId := core.NewJobId()
	if _, err := a.tracker.Submit(jobId, toJobInfo(req)); err != nil {
		a.respondTrackerError(w, err)
		return
	}

	a.respondJSON(w, http.StatusCreated, toSubmitJobResponse(jobId.String()))
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	jobId, err := a.parseJobId(w, r)
	if err != nil {
		return
	}

	phase, err := a.tracker.Status(jobId)
	if err != nil {
		a.respondTrackerError(w, err)
		return
	}
	pendingSplits, pendingReducers, err := a.tracker.Progress(jobId)
	if err != nil {
		a.respondTrackerError(w, err)
		return
	}
	failCause, err := a.tracker.FailCause(jobId)
	if err != nil {
		a.respondTrackerError(w, err)
		return
	}

	a.respondJSON(w, http.StatusOK, toGetJobResponse(jobId.String(), phase, failCause, pendingSplits, pendingReducers))
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	phase := core.Phase(q.Get("status"))

	offset, err := parseNonNegativeQueryInt(q, "offset", 0)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid offset", err.Error())
		return
	}
	limit, err := parseNonNegativeQueryInt(q, "limit", 0)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid limit", err.Error())
		return
	}

	summaries, err := a.tracker.ListJobs(phase, offset, limit)
	if err != nil {
		a.respondTrackerError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, toListJobsResponse(summaries, offset, limit))
}

func parseNonNegativeQueryInt(q url.Values, key string, def int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}

func (a *API) getCounters(w http.ResponseWriter, r *http.Request) {
	jobId, err := a.parseJobId(w, r)
	if err != nil {
		return
	}
	counters, err := a.tracker.Counters(jobId)
	if err != nil {
		a.respondTrackerError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, toGetCountersResponse(jobId.String(), counters))
}

func (a *API) killJob(w http.ResponseWriter, r *http.Request) {
	jobId, err := a.parseJobId(w, r)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), killTimeout)
	defer cancel()

	cancelled, err := a.tracker.Kill(ctx, jobId)
	if err != nil {
		a.respondTrackerError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, toKillJobResponse(jobId.String(), cancelled, nil))
}

func (a *API) parseJobId(w http.ResponseWriter, r *http.Request) (core.JobId, error) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid job id", err.Error())
		return core.JobId{}, err
	}
	return core.JobId(id), nil
}

func (a *API) respondTrackerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrUnknownJob):
		a.respondError(w, http.StatusNotFound, "job not found", err.Error())
	case errors.Is(err, core.ErrDuplicateJob):
		a.respondError(w, http.StatusConflict, "duplicate job", err.Error())
	case errors.Is(err, core.ErrTrackerStopping):
		a.respondError(w, http.StatusServiceUnavailable, "tracker stopping", err.Error())
	case errors.Is(err, core.ErrPlanningFailure):
		a.respondError(w, http.StatusUnprocessableEntity, "planning failed", err.Error())
	default:
		a.respondError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

func (a *API) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

func (a *API) respondError(w http.ResponseWriter, statusCode int, errMsg string, message string) {
	a.respondJSON(w, statusCode, ErrorResponse{Error: errMsg, Message: message, Code: statusCode})
}

func NewServer(cfg config.RESTConfig, t *tracker.JobTracker, logger logging.Logger) *http.Server {
	api := NewAPI(t, logger)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	handler := ChainMiddleware(
		mux,
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
