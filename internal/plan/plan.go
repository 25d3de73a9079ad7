// Package plan maps payment payload fields to subscription tier labels.
package plan

import "strings"

const (
	Pro      = "pro"
	Monthly  = "monthly"
	Yearly   = "yearly"
	Lifetime = "lifetime"
)

// Amounts are in minor units (cents).
const lifetimeThreshold = 4900

// FromStripe classifies a Stripe checkout payload by its total amount and
// recurrence interval. Rules apply in order, first match wins.
func FromStripe(amount int64, interval string) string {
	switch interval {
	case "month":
		return Monthly
	case "year":
		return Yearly
	}
	if amount >= lifetimeThreshold {
		return Lifetime
	}
	return Pro
}

// FromProduct classifies a legacy (non-Stripe) payload by product name and
// price. Used for flat webhook payloads that carry no recurrence data.
func FromProduct(productName string, price int64) string {
	name := strings.ToLower(productName)
	if strings.Contains(name, "lifetime") || price >= lifetimeThreshold {
		return Lifetime
	}
	if strings.Contains(name, "monthly") || price < 1000 {
		return Monthly
	}
	return Pro
}
