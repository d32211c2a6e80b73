// Package model defines the data structures used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Subscription is the user's billing tier.
//
// WHY A NAMED STRING TYPE (not bare string)?
// The wire format uses string values ("freeTier", "7daysTrial", ...) because
// that's what the mobile client stores and compares against. A named type with
// a closed set of constants plus ParseSubscription means arbitrary
// client-supplied strings never reach the database — we validate at the
// boundary instead of trusting input.
type Subscription string

const (
	SubscriptionFree    Subscription = "freeTier"
	SubscriptionTrial   Subscription = "7daysTrial"
	SubscriptionMonthly Subscription = "monthly"
	SubscriptionYearly  Subscription = "yearly"
)

// ParseSubscription validates a wire-format subscription value.
func ParseSubscription(s string) (Subscription, error) {
	switch Subscription(s) {
	case SubscriptionFree, SubscriptionTrial, SubscriptionMonthly, SubscriptionYearly:
		return Subscription(s), nil
	}
	return "", fmt.Errorf("model: unknown subscription %q", s)
}

// CoverChoice selects one of the four journal cover designs.
type CoverChoice int

const (
	CoverMin CoverChoice = 1
	CoverMax CoverChoice = 4
)

// ParseCoverChoice validates a cover choice. Valid values are 1 through 4.
func ParseCoverChoice(n int) (CoverChoice, error) {
	c := CoverChoice(n)
	if c < CoverMin || c > CoverMax {
		return 0, fmt.Errorf("model: cover choice %d out of range [1,4]", n)
	}
	return c, nil
}

// weekdays in calendar order, full English names — the stored representation.
var weekdays = []string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// ParseWeekday normalizes a weekday name to its full stored form.
//
// The client UI works in three-letter abbreviations ("Sun", "Mon", ...) while
// the server stores full names ("Sunday", ...). Both forms are accepted here,
// case-insensitively, so the representation choice stays server-side.
func ParseWeekday(s string) (string, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	for _, day := range weekdays {
		full := strings.ToLower(day)
		if in == full || (len(in) == 3 && in == full[:3]) {
			return day, nil
		}
	}
	return "", fmt.Errorf("model: unknown weekday %q", s)
}

// NormalizeWeekdays normalizes a list of weekday names, preserving the
// caller's order and dropping duplicates. The result is the form persisted in
// notification_days.
func NormalizeWeekdays(days []string) ([]string, error) {
	out := make([]string, 0, len(days))
	seen := make(map[string]bool, len(days))
	for _, d := range days {
		full, err := ParseWeekday(d)
		if err != nil {
			return nil, err
		}
		if seen[full] {
			continue
		}
		seen[full] = true
		out = append(out, full)
	}
	return out, nil
}

// User represents a registered account: identity, credential, and the profile
// fields the mobile client mirrors into its local session cache.
//
// PasswordHash is the bcrypt hash of the password. It is tagged `json:"-"` so
// it can never leak through any handler that serializes a User — the struct is
// safe to write to the response body wholesale.
type User struct {
	ID               string       `json:"user_id"`
	Email            string       `json:"email"`
	PasswordHash     string       `json:"-"`
	Name             string       `json:"name"`
	IsOnboarded      bool         `json:"is_onboarded"`
	NotificationTime string       `json:"notification_time"`
	NotificationDays []string     `json:"notification_days"`
	CoverChoice      CoverChoice  `json:"cover_choice"`
	Points           int          `json:"points"`
	Subscription     Subscription `json:"subscription"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Defaults applied when an account is created at OTP-verification time.
const (
	InitialPoints      = 15
	DefaultCoverChoice = CoverMin
)
