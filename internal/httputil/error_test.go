package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AdamBeresnev/op-tournament/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"Wrapped not found", fmt.Errorf("match x: %w", bracket.ErrNotFound), http.StatusNotFound, "not_found"},
		{"Forbidden", bracket.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"Transition error", &bracket.TransitionError{From: bracket.TournamentDraft, To: bracket.TournamentCompleted}, http.StatusConflict, "invalid_transition"},
		{"Already completed", bracket.ErrMatchAlreadyCompleted, http.StatusConflict, "match_already_completed"},
		{"Insufficient entrants", fmt.Errorf("%w: found 2", bracket.ErrInsufficientEntrants), http.StatusUnprocessableEntity, "insufficient_entrants"},
		{"Invalid input", bracket.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
		{"Unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := StatusFor(tc.err)
			assert.Equal(t, tc.expectedStatus, status)
			assert.Equal(t, tc.expectedCode, code)
		})
	}
}

func TestError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.New("connection refused on 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")

	rec = httptest.NewRecorder()
	Error(rec, bracket.ErrTournamentFull)

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "tournament_full", body.Code)
	assert.Equal(t, bracket.ErrTournamentFull.Error(), body.Error)
}
