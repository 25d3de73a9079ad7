// Package model defines the records this service writes to the hosted
// data store. The store owns the schema; these structs only shape the
// JSON bodies of upsert calls.
package model

import "time"

// User is the user/subscription record, keyed by normalized email.
// Omitted fields are left untouched by the store's merge-on-conflict
// resolution, so each webhook branch sends only the fields it changes.
type User struct {
	Email                 string        `json:"email"`
	IsPro                 bool          `json:"is_pro"`
	Plan                  string        `json:"plan,omitempty"`
	ActivatedAt           *time.Time    `json:"activated_at,omitempty"`
	SubscriptionExpiresAt *time.Time    `json:"subscription_expires_at,omitempty"`
	PurchaseData          *PurchaseData `json:"purchase_data,omitempty"`
}

// PurchaseData records which external system and transaction produced an
// activation.
type PurchaseData struct {
	Source      string `json:"source"`
	SessionID   string `json:"session_id,omitempty"`
	SaleID      string `json:"sale_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	AddedBy     string `json:"added_by,omitempty"`
}

// WaitlistEntry is a newsletter/waitlist signup.
type WaitlistEntry struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// SupportRequest is a support-form submission, keyed by email so repeat
// submissions update the same row.
type SupportRequest struct {
	Email          string    `json:"email"`
	SupportMessage string    `json:"support_message"`
	LastSupportAt  time.Time `json:"last_support_at"`
	Source         string    `json:"source"`
	UserAgent      string    `json:"user_agent,omitempty"`
	PageURL        string    `json:"page_url,omitempty"`
}
