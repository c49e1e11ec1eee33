package domain

import "time"

// PaymentEvent records an applied payment-provider confirmation. The unique
// ProviderEventID is what makes webhook redelivery a no-op: the insert races
// with concurrent deliveries inside the donation transaction, and the loser
// returns the original donation instead of crediting the ledger twice.
type PaymentEvent struct {
	ProviderEventID string
	DonationID      string
	ReceivedAt      time.Time
}
