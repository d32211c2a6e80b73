package model

import "time"

// OTPChallenge is an ephemeral proof of email ownership: a 6-digit code bound
// to an email with an absolute expiry.
//
// At most one live challenge exists per email — issuing a new one replaces the
// old — and a challenge is single-use: successful verification deletes it.
type OTPChallenge struct {
	ID        string
	Email     string
	Code      string // 6 ASCII digits, leading zeros preserved
	ExpiresAt time.Time
	CreatedAt time.Time
}

// OTPTTL is how long an issued code stays valid.
const OTPTTL = 10 * time.Minute
