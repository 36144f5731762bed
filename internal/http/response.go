package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fincoach/internal/agents"
	"fincoach/internal/auth"
	"fincoach/internal/core"
	"fincoach/internal/importer"
	applog "fincoach/internal/log"
	"fincoach/internal/middleware/trace"
	"fincoach/internal/services"
	"fincoach/internal/sheets/google"
	"fincoach/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusTable maps domain errors to HTTP statuses, first match wins.
var statusTable = []struct {
	err    error
	status int
}{
	{errBadRequest, http.StatusBadRequest},
	{core.ErrNotFound, http.StatusNotFound},
	{storage.ErrDuplicateEmail, http.StatusConflict},
	{services.ErrWorkflowCompleted, http.StatusConflict},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{services.ErrSheetsDisabled, http.StatusServiceUnavailable},
	{auth.ErrWeakPassword, http.StatusBadRequest},
	{services.ErrInvalidEmail, http.StatusBadRequest},
	{services.ErrInvalidProfile, http.StatusBadRequest},
	{services.ErrInvalidTask, http.StatusBadRequest},
	{services.ErrInvalidWorkflow, http.StatusBadRequest},
	{services.ErrUnknownGoal, http.StatusBadRequest},
	{agents.ErrUnknownAgent, http.StatusBadRequest},
	{agents.ErrUnknownMode, http.StatusBadRequest},
	{agents.ErrNoAgents, http.StatusBadRequest},
	{core.ErrInvalidAmount, http.StatusBadRequest},
	{core.ErrInvalidType, http.StatusBadRequest},
	{core.ErrInvalidDate, http.StatusBadRequest},
	{core.ErrEmptyDescription, http.StatusBadRequest},
	{core.ErrLongDescription, http.StatusBadRequest},
	{core.ErrInvalidCategory, http.StatusBadRequest},
	{importer.ErrNothingToImport, http.StatusBadRequest},
	{importer.ErrEmptyFile, http.StatusBadRequest},
	{importer.ErrUnsupportedFormat, http.StatusUnsupportedMediaType},
	{importer.ErrNoMapping, http.StatusUnprocessableEntity},
	{google.ErrInvalidSpreadsheetID, http.StatusBadRequest},
}

func statusFor(err error) int {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeServiceError hides internal failures behind a generic message and
// logs them; client errors are reported as-is.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		fields := applog.NewFields().WithUser(userID(r.Context())).WithRequestID(trace.GetRequestID(r.Context()))
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op, fields)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}
