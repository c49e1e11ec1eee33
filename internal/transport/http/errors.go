package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeUnauthorized         = "unauthorized"
	codeForbidden            = "forbidden"
	codeInvalidID            = "invalid_id"
	codeInvalidDatetime      = "invalid_datetime"
	codeInvalidRecurrence    = "invalid_recurrence"
	codeSlotNotFound         = "slot_not_found"
	codeSlotAlreadyBooked    = "slot_already_booked"
	codeSlotExists           = "slot_already_exists"
	codeSlotDoctorMismatch   = "slot_doctor_mismatch"
	codeDoctorNotFound       = "doctor_not_found"
	codeConsultationNotFound = "consultation_not_found"
	codeInvalidStatus        = "invalid_status"
	codeStatusNotAllowed     = "status_not_allowed"
	codeTreatmentNotFound    = "treatment_request_not_found"
	codeNotSponsored         = "not_sponsored"
	codeInvalidGoalAmount    = "invalid_goal_amount"
	codeInvalidAmount        = "invalid_amount"
	codeDonationsNotOpen     = "donations_not_open"
	codeExceedsRemaining     = "exceeds_remaining_amount"
	codeVerificationExists   = "verification_already_exists"
	codeVerificationNotFound = "verification_not_found"
	codeVerificationNotDue   = "verification_not_due"
	codeWebhookUnconfigured  = "webhook_secret_unconfigured"
	codeInvalidSignature     = "invalid_signature"
	codeItemNotFound         = "item_not_found"
	codeInvalidQuantity      = "invalid_quantity"
	codeRequestNotFound      = "medicine_request_not_found"
	codeRequestNotActionable = "request_not_actionable"
	codeRequestTerminal      = "request_terminal"
	codeSourceMismatch       = "source_mismatch"
	codeInsufficientStock    = "insufficient_inventory"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`

	// RemainingAmount is set only on donation rejections that exceed the
	// goal, so the client can retry with an acceptable amount.
	RemainingAmount *int64 `json:"remaining_amount,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
