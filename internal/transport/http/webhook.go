package http

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/manalBatta/MyHealthPalestine/internal/app"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

// maxWebhookBody bounds the payload read from the provider.
const maxWebhookBody = 64 << 10

// PaymentEventRecorder is the minimal interface needed for the payment
// webhook.
type PaymentEventRecorder interface {
	RecordPaymentEvent(ctx context.Context, in app.PaymentEventInput) (domain.Donation, bool, error)
}

// HandleStripeWebhook returns an HTTP handler for asynchronous payment
// confirmations. The signature is verified against the shared endpoint
// secret before anything is parsed; deliveries of an already recorded event
// id acknowledge with the original donation and change nothing.
func HandleStripeWebhook(svc PaymentEventRecorder, endpointSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if endpointSecret == "" {
			writeError(w, http.StatusInternalServerError, codeWebhookUnconfigured, "webhook secret not configured")
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "could not read payload")
			return
		}

		// Deliveries keep their endpoint's API version, which rarely matches
		// the one the SDK pins. Only the signature decides acceptance.
		event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), endpointSecret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidSignature, "signature verification failed")
			return
		}

		if event.Type != "checkout.session.completed" {
			// Other event types are subscribed but not acted on.
			writeJSON(w, http.StatusOK, webhookResponse{Received: true})
			return
		}

		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "malformed event payload")
			return
		}

		treatmentID := session.Metadata["treatment_request_id"]
		donorID := session.Metadata["donor_id"]
		if treatmentID == "" || donorID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "event metadata missing treatment_request_id or donor_id")
			return
		}

		donation, duplicate, err := svc.RecordPaymentEvent(r.Context(), app.PaymentEventInput{
			ProviderEventID:    event.ID,
			TreatmentRequestID: treatmentID,
			DonorID:            donorID,
			Amount:             session.AmountTotal,
		})
		if err != nil {
			log.Printf("stripe webhook: event %s rejected: %v", event.ID, err)
			writeDonationError(w, err)
			return
		}
		if duplicate {
			log.Printf("stripe webhook: event %s already recorded, donation %s", event.ID, donation.ID)
		}

		writeJSON(w, http.StatusOK, webhookResponse{Received: true, DonationID: donation.ID})
	}
}

type webhookResponse struct {
	Received   bool   `json:"received"`
	DonationID string `json:"donation_id,omitempty"`
}
