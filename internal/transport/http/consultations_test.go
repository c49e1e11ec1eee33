package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/manalBatta/MyHealthPalestine/internal/app"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

// authed injects an actor the way Authenticator.Wrap would.
func authed(r *http.Request, actor app.Actor) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), actorKey{}, actor))
}

func TestHandleCreateConsultation(t *testing.T) {
	t.Parallel()

	patient := app.Actor{ID: "pat-1", Role: domain.RolePatient}
	success := domain.Consultation{
		ID:        "c-1",
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		SlotID:    "slot-1",
		Mode:      "in_person",
		Status:    domain.ConsultationPending,
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
			actor:          &patient,
			body:           `{"doctor_id":"doc-1","slot_id":"slot-1"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"id":"c-1"`,
		},
		{
			name:           "unauthenticated",
			body:           `{"doctor_id":"doc-1","slot_id":"slot-1"}`,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "doctor cannot book",
			actor:          &app.Actor{ID: "doc-1", Role: domain.RoleDoctor},
			body:           `{"doctor_id":"doc-1","slot_id":"slot-1"}`,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "invalid json",
			actor:          &patient,
			body:           `{"doctor_id":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing slot_id",
			actor:          &patient,
			body:           `{"doctor_id":"doc-1"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "slot already booked",
			actor:          &patient,
			body:           `{"doctor_id":"doc-1","slot_id":"slot-1"}`,
			serviceErr:     domain.ErrSlotAlreadyBooked,
			expectedStatus: http.StatusConflict,
			expectedSubstr: "slot_already_booked",
		},
		{
			name:           "slot doctor mismatch",
			actor:          &patient,
			body:           `{"doctor_id":"doc-2","slot_id":"slot-1"}`,
			serviceErr:     domain.ErrSlotDoctorMismatch,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "slot not found",
			actor:          &patient,
			body:           `{"doctor_id":"doc-1","slot_id":"slot-9"}`,
			serviceErr:     domain.ErrSlotNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "internal error",
			actor:          &patient,
			body:           `{"doctor_id":"doc-1","slot_id":"slot-1"}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubConsultationService{consultation: success, err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, "/consultations", bytes.NewBufferString(tt.body))
			if tt.actor != nil {
				req = authed(req, *tt.actor)
			}
			rec := httptest.NewRecorder()

			HandleCreateConsultation(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleConsultationStatus(t *testing.T) {
	t.Parallel()

	doctor := app.Actor{ID: "doc-1", Role: domain.RoleDoctor}
	updated := domain.Consultation{ID: "c-1", Status: domain.ConsultationConfirmed}

	tests := []struct {
		name           string
		path           string
		method         string
		body           string
		serviceErr     error
		expectedStatus int
	}{
		{
			name:           "success",
			path:           "/consultations/c-1/status",
			method:         http.MethodPut,
			body:           `{"status":"confirmed"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong method",
			path:           "/consultations/c-1/status",
			method:         http.MethodPost,
			body:           `{"status":"confirmed"}`,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "malformed path",
			path:           "/consultations/c-1",
			method:         http.MethodPut,
			body:           `{"status":"confirmed"}`,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "missing status",
			path:           "/consultations/c-1/status",
			method:         http.MethodPut,
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid status",
			path:           "/consultations/c-1/status",
			method:         http.MethodPut,
			body:           `{"status":"bogus"}`,
			serviceErr:     domain.ErrInvalidStatus,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "terminal consultation",
			path:           "/consultations/c-1/status",
			method:         http.MethodPut,
			body:           `{"status":"cancelled"}`,
			serviceErr:     domain.ErrStatusNotAllowed,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "not the actor's consultation",
			path:           "/consultations/c-1/status",
			method:         http.MethodPut,
			body:           `{"status":"confirmed"}`,
			serviceErr:     domain.ErrNotAuthorized,
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubConsultationService{consultation: updated, err: tt.serviceErr}
			req := authed(httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body)), doctor)
			rec := httptest.NewRecorder()

			HandleConsultationStatus(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

type stubConsultationService struct {
	consultation domain.Consultation
	err          error
}

func (s *stubConsultationService) Book(_ context.Context, _ app.BookInput) (domain.Consultation, error) {
	return s.consultation, s.err
}

func (s *stubConsultationService) UpdateStatus(_ context.Context, _ string, _ domain.ConsultationStatus, _ app.Actor) (domain.Consultation, error) {
	return s.consultation, s.err
}
