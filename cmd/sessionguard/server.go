package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MrEthical07/sessionguard"
	promexport "github.com/MrEthical07/sessionguard/metrics/export/prometheus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type adminHandler struct {
	engine *sessionguard.Engine
	logger *slog.Logger
}

// newRouter mounts the admin API, health check and Prometheus endpoint.
func newRouter(engine *sessionguard.Engine, logger *slog.Logger) http.Handler {
	h := &adminHandler{engine: engine, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", promexport.NewCollector(engine).Handler())

	r.Route("/accounts/{account}", func(r chi.Router) {
		r.Get("/sessions", h.listSessions)
		r.Delete("/sessions", h.revokeAll)
		r.Delete("/sessions/{sid}", h.revokeSession)
		r.Get("/lockout", h.lockoutStatus)
		r.Delete("/lockout", h.resetLockout)
	})
	return r
}

func (h *adminHandler) health(w http.ResponseWriter, r *http.Request) {
	latency, err := h.engine.Ping(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"latency_ms": latency.Milliseconds(),
	})
}

// GET /accounts/{account}/sessions?current=&limit=
func (h *adminHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	account, ok := accountParam(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSONResponse(w, http.StatusBadRequest, apiError{Code: "invalid-limit", Message: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	views, err := h.engine.ListSessionsLimit(r.Context(), account, r.URL.Query().Get("current"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if views == nil {
		views = []sessionguard.SessionView{}
	}
	writeJSONResponse(w, http.StatusOK, views)
}

// DELETE /accounts/{account}/sessions?except=
func (h *adminHandler) revokeAll(w http.ResponseWriter, r *http.Request) {
	account, ok := accountParam(w, r)
	if !ok {
		return
	}
	if err := h.engine.RevokeAllSessions(r.Context(), []int64{account}, r.URL.Query().Get("except")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /accounts/{account}/sessions/{sid}
func (h *adminHandler) revokeSession(w http.ResponseWriter, r *http.Request) {
	account, ok := accountParam(w, r)
	if !ok {
		return
	}
	if err := h.engine.RevokeSession(r.Context(), account, chi.URLParam(r, "sid")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /accounts/{account}/lockout
func (h *adminHandler) lockoutStatus(w http.ResponseWriter, r *http.Request) {
	account, ok := accountParam(w, r)
	if !ok {
		return
	}
	status, err := h.engine.LockoutStatus(r.Context(), account)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view := lockoutStatusView{Account: account, Locked: status.Locked, Attempts: status.Attempts}
	if status.Locked {
		view.Remaining = status.Remaining.String()
	}
	writeJSONResponse(w, http.StatusOK, view)
}

// DELETE /accounts/{account}/lockout
func (h *adminHandler) resetLockout(w http.ResponseWriter, r *http.Request) {
	account, ok := accountParam(w, r)
	if !ok {
		return
	}
	if err := h.engine.ResetLockout(r.Context(), account); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func accountParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	account, err := parseAccount(chi.URLParam(r, "account"))
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, apiError{Code: "invalid-account", Message: err.Error()})
		return 0, false
	}
	return account, true
}

func (h *adminHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sessionguard.ErrStoreUnavailable), errors.Is(err, sessionguard.ErrEngineNotReady):
		status = http.StatusServiceUnavailable
	case errors.Is(err, sessionguard.ErrAccountLocked):
		status = http.StatusLocked
	}
	h.logger.Error("admin request failed", "status", status, "err", err)

	code := sessionguard.ErrorCode(err)
	if code == "" {
		code = "internal"
	}
	writeJSONResponse(w, status, apiError{Code: code, Message: err.Error()})
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
