package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oakledger/claimflow/internal/application/service"
	"github.com/oakledger/claimflow/internal/domain/approval"
	"github.com/oakledger/claimflow/internal/domain/claim"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"claim not found", service.ErrClaimNotFound, http.StatusNotFound},
		{"chain not found", service.ErrChainNotFound, http.StatusNotFound},
		{"step not found", approval.ErrStepNotFound, http.StatusNotFound},
		{"unauthorized approver", approval.ErrUnauthorized, http.StatusForbidden},
		{"not owner", service.ErrNotOwner, http.StatusForbidden},
		{"already resolved", approval.ErrAlreadyResolved, http.StatusConflict},
		{"not actionable", approval.ErrNotActionable, http.StatusConflict},
		{"not editable", service.ErrClaimNotEditable, http.StatusConflict},
		{"invalid transition", claim.ErrInvalidTransition, http.StatusConflict},
		{"invalid decision", approval.ErrInvalidDecision, http.StatusUnprocessableEntity},
		{"no applicable rule", approval.ErrNoApplicableRule, http.StatusUnprocessableEntity},
		{"invalid input", service.ErrInvalidInput, http.StatusBadRequest},
		{"empty claim", service.ErrEmptyClaim, http.StatusBadRequest},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatusFor_WrappedErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("step 2"), approval.ErrAlreadyResolved)
	if got := statusFor(wrapped); got != http.StatusConflict {
		t.Errorf("statusFor(wrapped) = %d, want %d", got, http.StatusConflict)
	}
}

func TestHealthCheck(t *testing.T) {
	server := NewServer(DefaultServerConfig(), nil, nil, nil, nil, nil, nil, nopLogger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", w.Code)
	}
}

func TestUnknownClaimIDIsBadRequest(t *testing.T) {
	server := NewServer(DefaultServerConfig(), nil, nil, nil, nil, nil, nil, nopLogger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/claims/not-a-uuid", nil)
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("GET /api/claims/not-a-uuid = %d, want 400", w.Code)
	}
}
