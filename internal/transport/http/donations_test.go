package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/manalBatta/MyHealthPalestine/internal/app"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

func TestHandleCreateDonation(t *testing.T) {
	t.Parallel()

	donor := app.Actor{ID: "don-1", Role: domain.RoleDonor}
	success := domain.Donation{
		ID:                 "d-1",
		TreatmentRequestID: "tr-1",
		DonorID:            "don-1",
		Amount:             100,
	}

	tests := []struct {
		name           string
		actor          *app.Actor
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			actor:          &donor,
			body:           `{"treatment_request_id":"tr-1","amount":100}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"id":"d-1"`,
		},
		{
			name:           "unauthenticated",
			body:           `{"treatment_request_id":"tr-1","amount":100}`,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "patient cannot donate",
			actor:          &app.Actor{ID: "pat-1", Role: domain.RolePatient},
			body:           `{"treatment_request_id":"tr-1","amount":100}`,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "exceeds remaining carries the amount",
			actor:          &donor,
			body:           `{"treatment_request_id":"tr-1","amount":150}`,
			serviceErr:     &domain.ExceedsRemainingError{Remaining: 100},
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: `"remaining_amount":100`,
		},
		{
			name:           "not sponsored",
			actor:          &donor,
			body:           `{"treatment_request_id":"tr-1","amount":100}`,
			serviceErr:     domain.ErrNotSponsored,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "donations not open",
			actor:          &donor,
			body:           `{"treatment_request_id":"tr-1","amount":100}`,
			serviceErr:     domain.ErrDonationsNotOpen,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "treatment not found",
			actor:          &donor,
			body:           `{"treatment_request_id":"tr-9","amount":100}`,
			serviceErr:     domain.ErrTreatmentNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "invalid amount",
			actor:          &donor,
			body:           `{"treatment_request_id":"tr-1","amount":0}`,
			serviceErr:     domain.ErrInvalidAmount,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing treatment_request_id",
			actor:          &donor,
			body:           `{"amount":100}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubDonationRecorder{donation: success, err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, "/donations", bytes.NewBufferString(tt.body))
			if tt.actor != nil {
				req = authed(req, *tt.actor)
			}
			rec := httptest.NewRecorder()

			HandleCreateDonation(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

type stubDonationRecorder struct {
	donation domain.Donation
	err      error
}

func (s *stubDonationRecorder) RecordDonation(_ context.Context, _ app.DonationInput) (domain.Donation, error) {
	return s.donation, s.err
}
