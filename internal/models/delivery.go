package models

import "time"

// ABVariant tags a delivery with the experiment arm it belongs to
type ABVariant string

const (
	VariantNone ABVariant = ""
	VariantA    ABVariant = "A"
	VariantB    ABVariant = "B"
)

// DeliveryStatus enumerates per-recipient delivery states
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryOpened  DeliveryStatus = "opened"
	DeliveryClicked DeliveryStatus = "clicked"
	DeliveryFailed  DeliveryStatus = "failed"
)

// DeliveryLog is one row per (campaign, subscriber) send attempt. At most
// one row exists per pair; its presence is the idempotency guard against
// duplicate sends on retried invocations.
type DeliveryLog struct {
	ID           string         `json:"id"`
	CampaignID   string         `json:"campaign_id"`
	SubscriberID string         `json:"subscriber_id"`
	Email        string         `json:"email,omitempty"` // joined field
	Status       DeliveryStatus `json:"status"`
	ABVariant    ABVariant      `json:"ab_variant"`
	ProviderID   string         `json:"provider_id"`
	Error        string         `json:"error"`
	SentAt       *time.Time     `json:"sent_at"`
	DeliveredAt  *time.Time     `json:"delivered_at"`
	OpenedAt     *time.Time     `json:"opened_at"`
	ClickedAt    *time.Time     `json:"clicked_at"`
	CreatedAt    time.Time      `json:"created_at"`
}

// VariantStats aggregates delivery outcomes for one experiment arm
type VariantStats struct {
	Sent      int     `json:"sent"`
	Opened    int     `json:"opened"`
	Clicked   int     `json:"clicked"`
	OpenRate  float64 `json:"open_rate"`
	ClickRate float64 `json:"click_rate"`
	Score     float64 `json:"score"`
}

// ABStats holds the per-variant aggregates for a campaign
type ABStats struct {
	VariantA VariantStats `json:"variant_a"`
	VariantB VariantStats `json:"variant_b"`
}

// VariantCounts is the raw per-variant tally read from delivery_logs
type VariantCounts struct {
	Sent    int
	Opened  int
	Clicked int
}
