// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage provides the durable implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/mindgarden/internal/model"
)

// ProfilePatch is a merge-patch of client-settable profile fields. A nil
// pointer means "leave unchanged". Points and subscription are deliberately
// absent — they are mutable only through server-internal flows
// (UserRepository.AdjustPoints / SetSubscription).
type ProfilePatch struct {
	Name             *string
	IsOnboarded      *bool
	NotificationTime *string
	NotificationDays []string // normalized full weekday names; nil = unchanged
	CoverChoice      *model.CoverChoice
}

// IsEmpty reports whether the patch changes nothing. An empty patch is still
// applied — updated_at is stamped regardless.
func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.IsOnboarded == nil && p.NotificationTime == nil &&
		p.NotificationDays == nil && p.CoverChoice == nil
}

// UserRepository is the credential store: one row per user, unique email.
type UserRepository interface {
	// Create inserts a new user. Returns apperror.ErrConflict (wrapped) when
	// the email is already taken.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail returns (nil, nil) when no user has the email — absence is a
	// normal flow signal for sign-in, not an error.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// ApplyPatch merge-patches profile fields and stamps updated_at, even when
	// the patch is empty.
	ApplyPatch(ctx context.Context, id string, patch ProfilePatch) error
	// UpdateName sets only the name and returns the new name with the stamped
	// updated_at, read back from storage.
	UpdateName(ctx context.Context, id, name string) (string, time.Time, error)
	// AdjustPoints adds delta (possibly negative) to the user's balance. The
	// balance never goes below zero: a debit that would is rejected with
	// apperror.ErrConflict and leaves the row untouched.
	AdjustPoints(ctx context.Context, id string, delta int) (int, error)
	SetSubscription(ctx context.Context, id string, sub model.Subscription) error
}

// OTPRepository is the one-time-passcode ledger.
type OTPRepository interface {
	// Replace atomically removes any existing challenge for the email and
	// inserts the new one. A previously issued code is invalid afterwards,
	// expired or not.
	Replace(ctx context.Context, email, code string, expiresAt time.Time) error
	// Consume verifies and deletes in one step: it returns true only when a
	// challenge matches email and code and has strictly not expired
	// (now < expires_at; a code presented exactly at expires_at is rejected).
	// On a miss it returns false and leaves any live challenge in place so the
	// caller can retry with the right code.
	Consume(ctx context.Context, email, code string) (bool, error)
	// SweepExpired deletes expired challenges and reports how many went.
	// Housekeeping only — Consume already rejects expired rows.
	SweepExpired(ctx context.Context) (int64, error)
}

// RegistrationStore performs OTP consumption and user creation in a single
// transaction, so a crash cannot consume a code without creating the account.
type RegistrationStore interface {
	// RegisterVerified consumes the challenge for user.Email and inserts the
	// user atomically. Returns apperror.ErrUnauthorized (wrapped) when the
	// code is wrong or expired, apperror.ErrConflict when the email already
	// has an account.
	RegisterVerified(ctx context.Context, user *model.User, code string) error
}

// TaskRepository stores daily tasks.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	ListTasksByDate(ctx context.Context, userID, date string) ([]model.Task, error)
	// SetTaskCompleted flips completion state and returns the updated task.
	SetTaskCompleted(ctx context.Context, id string, completed bool, completedAt *time.Time) (*model.Task, error)
}
