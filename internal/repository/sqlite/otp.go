package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/mindgarden/internal/apperror"
	"github.com/sakif/mindgarden/internal/model"
	"github.com/sakif/mindgarden/internal/repository"
)

var (
	_ repository.OTPRepository     = (*DB)(nil)
	_ repository.RegistrationStore = (*DB)(nil)
)

// expires_at is stored as epoch milliseconds, so comparisons are plain
// integer arithmetic inside SQLite.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// Replace installs a fresh challenge for the email, invalidating any prior
// one. Delete-then-insert runs inside a single transaction: there is no
// window where two codes are live, and no window where none is.
func (db *DB) Replace(ctx context.Context, email, code string, expiresAt time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning otp replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM otps WHERE email = ?`, email); err != nil {
		return fmt.Errorf("sqlite: clearing otps for %s: %w", email, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO otps (id, email, code, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		xid.New().String(), email, code, toMillis(expiresAt), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("sqlite: inserting otp for %s: %w", email, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing otp replace: %w", err)
	}
	return nil
}

// Consume verifies and deletes in one conditional DELETE. RowsAffected tells
// us whether a live matching challenge existed — the statement is atomic, so
// two racing Consume calls for the same code cannot both win.
//
// Expiry is strict: a challenge is live only while now < expires_at. Exactly
// at expires_at the code is already dead.
func (db *DB) Consume(ctx context.Context, email, code string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM otps WHERE email = ? AND code = ? AND expires_at > ?`,
		email, code, toMillis(time.Now()),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: consuming otp for %s: %w", email, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: consuming otp for %s: %w", email, err)
	}
	return affected > 0, nil
}

// SweepExpired deletes challenges whose expiry has passed. Purely
// housekeeping — Consume never accepts an expired row, so correctness does
// not depend on this running at all.
func (db *DB) SweepExpired(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM otps WHERE expires_at < ?`, toMillis(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("sqlite: sweeping expired otps: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: sweeping expired otps: %w", err)
	}
	return affected, nil
}

// RegisterVerified consumes the OTP challenge and creates the user inside one
// transaction. Without the transaction there is a narrow window where a crash
// after the consume but before the insert burns a code with no account to
// show for it; wrapping both closes it.
func (db *DB) RegisterVerified(ctx context.Context, user *model.User, code string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning registration: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM otps WHERE email = ? AND code = ? AND expires_at > ?`,
		user.Email, code, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("sqlite: consuming otp for %s: %w", user.Email, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: consuming otp for %s: %w", user.Email, err)
	}
	if affected == 0 {
		return apperror.Unauthorized("Invalid or expired OTP")
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	// New accounts start with no notification days; kept general anyway.
	days := "[]"
	if len(user.NotificationDays) > 0 {
		encoded, err := json.Marshal(user.NotificationDays)
		if err != nil {
			return fmt.Errorf("sqlite: encoding notification days: %w", err)
		}
		days = string(encoded)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (user_id, email, password_hash, name, is_onboarded,
			notification_time, notification_days, cover_choice, points,
			subscription, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		boolToInt(user.IsOnboarded),
		user.NotificationTime,
		days,
		int(user.CoverChoice),
		user.Points,
		string(user.Subscription),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Race loser, or the account predates this sign-up attempt.
			// Rolling back also restores the unconsumed challenge.
			return apperror.Conflict("User already exists")
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing registration: %w", err)
	}
	return nil
}
