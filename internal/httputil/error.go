package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/op-tournament/internal/bracket"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, errorBody{Error: msg, Code: code})
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "internal", "Internal Server Error")
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	writeError(w, http.StatusBadRequest, "bad_request", msg)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	writeError(w, http.StatusNotFound, "not_found", msg)
}

func Unauthorized(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("unauthorized", "message", msg, "error", err)
	} else {
		slog.Warn("unauthorized", "message", msg)
	}
	writeError(w, http.StatusUnauthorized, "unauthorized", msg)
}

var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{bracket.ErrNotFound, http.StatusNotFound, "not_found"},
	{bracket.ErrForbidden, http.StatusForbidden, "forbidden"},
	{bracket.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{bracket.ErrBracketAlreadyExists, http.StatusConflict, "bracket_already_exists"},
	{bracket.ErrMatchAlreadyCompleted, http.StatusConflict, "match_already_completed"},
	{bracket.ErrMatchNotReady, http.StatusConflict, "match_not_ready"},
	{bracket.ErrRegistrationClosed, http.StatusConflict, "registration_closed"},
	{bracket.ErrTournamentFull, http.StatusConflict, "tournament_full"},
	{bracket.ErrInsufficientEntrants, http.StatusUnprocessableEntity, "insufficient_entrants"},
	{bracket.ErrInvalidEntrantCount, http.StatusUnprocessableEntity, "invalid_entrant_count"},
	{bracket.ErrInvalidWinner, http.StatusUnprocessableEntity, "invalid_winner"},
	{bracket.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
}

// StatusFor maps a domain error to its HTTP status and error code.
func StatusFor(err error) (int, string) {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.err) {
			return kind.status, kind.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// Error writes err as a JSON error response. Unknown errors are logged and
// hidden behind a 500.
func Error(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	if status == http.StatusInternalServerError {
		InternalServerError(w, "request failed", err)
		return
	}
	slog.Warn("request rejected", "code", code, "error", err)
	writeError(w, status, code, err.Error())
}
