package models

import "time"

// Session is the locally persisted proof of authentication: the bearer
// token issued by the API plus a client-computed expiry.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiry"`
}

// Package represents a laundry service tier with a unit price per
// kilogram. Packages are owned by the remote API; the client only
// caches them.
type Package struct {
	ID   string `json:"_id"`
	Name string `json:"packageName"`
	// Price is the unit price in rupiah per kilogram.
	Price float64 `json:"price"`
}

// Profile is the account record behind the current session.
type Profile struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Order is a submitted order as returned by the API. The received date
// is optional on older records.
type Order struct {
	ID             string     `json:"_id"`
	CustomerName   string     `json:"customerName"`
	CustomerPhone  string     `json:"customerPhone"`
	Weight         float64    `json:"weight"`
	TotalPrice     float64    `json:"totalPrice"`
	CompletionDate time.Time  `json:"completionDate"`
	ReceivedDate   *time.Time `json:"receivedDate,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	Packages       []Package  `json:"packages"`
}
