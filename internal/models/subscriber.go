package models

import "time"

// SubscriberStatus enumerates subscriber states
type SubscriberStatus string

const (
	SubscriberPending      SubscriberStatus = "pending"
	SubscriberActive       SubscriberStatus = "active"
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
)

// Subscriber represents a single email recipient. Only active subscribers
// are eligible at the moment a campaign is processed.
type Subscriber struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Status    SubscriberStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// SubscriberListFilter for filtering subscribers
type SubscriberListFilter struct {
	Status SubscriberStatus
	Search string
	Limit  int
	Offset int
}
