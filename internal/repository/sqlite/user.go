package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakif/mindgarden/internal/apperror"
	"github.com/sakif/mindgarden/internal/model"
	"github.com/sakif/mindgarden/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `user_id, email, password_hash, name, is_onboarded,
	notification_time, notification_days, cover_choice, points, subscription,
	created_at, updated_at`

// Create inserts a new user row. The caller supplies ID and PasswordHash;
// timestamps are set here so the stored values are authoritative.
//
// A duplicate email surfaces as apperror.ErrConflict. This is the designed
// resolution of concurrent sign-up races — the UNIQUE index picks the winner
// and the loser gets a clean, retry-safe failure instead of a second row.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	days, err := json.Marshal(user.NotificationDays)
	if err != nil {
		return fmt.Errorf("sqlite: encoding notification days: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
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
		string(days),
		int(user.CoverChoice),
		user.Points,
		string(user.Subscription),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User already exists")
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email. Absence is NOT an error here — the
// sign-in flow treats an unknown email as a normal "pivot to sign-up" signal,
// so this returns (nil, nil) when no row matches.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// ApplyPatch merge-patches the client-settable profile fields in one
// statement. COALESCE keeps the stored value wherever the patch carries NULL,
// which is exactly merge-patch semantics. updated_at is stamped
// unconditionally — even an empty patch bumps it.
func (db *DB) ApplyPatch(ctx context.Context, id string, patch repository.ProfilePatch) error {
	var days any // nil → keep stored value
	if patch.NotificationDays != nil {
		encoded, err := json.Marshal(patch.NotificationDays)
		if err != nil {
			return fmt.Errorf("sqlite: encoding notification days: %w", err)
		}
		days = string(encoded)
	}

	var onboarded any
	if patch.IsOnboarded != nil {
		onboarded = boolToInt(*patch.IsOnboarded)
	}

	var cover any
	if patch.CoverChoice != nil {
		cover = int(*patch.CoverChoice)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET name              = COALESCE(?, name),
		     is_onboarded      = COALESCE(?, is_onboarded),
		     notification_time = COALESCE(?, notification_time),
		     notification_days = COALESCE(?, notification_days),
		     cover_choice      = COALESCE(?, cover_choice),
		     updated_at        = ?
		 WHERE user_id = ?`,
		nullableString(patch.Name),
		onboarded,
		nullableString(patch.NotificationTime),
		days,
		cover,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: patching user %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: patching user %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// UpdateName sets only the name, then reads the row back so the returned
// timestamp is the stored one, not a client-side approximation.
func (db *DB) UpdateName(ctx context.Context, id, name string) (string, time.Time, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, updated_at = ? WHERE user_id = ?`,
		name, time.Now().UTC(), id,
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sqlite: updating name for user %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return "", time.Time{}, fmt.Errorf("sqlite: updating name for user %s: %w", id, err)
	} else if affected == 0 {
		return "", time.Time{}, apperror.NotFound("user", id)
	}

	var storedName string
	var updatedAt time.Time
	err = db.conn.QueryRowContext(ctx,
		`SELECT name, updated_at FROM users WHERE user_id = ?`, id,
	).Scan(&storedName, &updatedAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sqlite: reading back name for user %s: %w", id, err)
	}
	return storedName, updatedAt, nil
}

// AdjustPoints adds delta to the user's balance and returns the new balance.
// The WHERE clause refuses a debit that would drive the balance negative, so
// the points >= 0 invariant holds without tripping the CHECK constraint.
func (db *DB) AdjustPoints(ctx context.Context, id string, delta int) (int, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET points = points + ?, updated_at = ?
		 WHERE user_id = ? AND points + ? >= 0`,
		delta, time.Now().UTC(), id, delta,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: adjusting points for user %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: adjusting points for user %s: %w", id, err)
	}
	if affected == 0 {
		// Either the user doesn't exist or the debit was too large.
		var exists int
		err := db.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE user_id = ?`, id).Scan(&exists)
		if err != nil {
			return 0, fmt.Errorf("sqlite: adjusting points for user %s: %w", id, err)
		}
		if exists == 0 {
			return 0, apperror.NotFound("user", id)
		}
		return 0, apperror.Conflict("Insufficient points")
	}

	var points int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT points FROM users WHERE user_id = ?`, id).Scan(&points); err != nil {
		return 0, fmt.Errorf("sqlite: reading points for user %s: %w", id, err)
	}
	return points, nil
}

// SetSubscription changes the billing tier. Server-internal flows only.
func (db *DB) SetSubscription(ctx context.Context, id string, sub model.Subscription) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET subscription = ?, updated_at = ? WHERE user_id = ?`,
		string(sub), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting subscription for user %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite: setting subscription for user %s: %w", id, err)
	} else if affected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var onboarded int
	var days string
	var cover int
	var sub string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&onboarded,
		&u.NotificationTime,
		&days,
		&cover,
		&u.Points,
		&sub,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.IsOnboarded = onboarded != 0
	u.CoverChoice = model.CoverChoice(cover)
	u.Subscription = model.Subscription(sub)
	if err := json.Unmarshal([]byte(days), &u.NotificationDays); err != nil {
		return nil, fmt.Errorf("decoding notification days: %w", err)
	}
	if u.NotificationDays == nil {
		u.NotificationDays = []string{}
	}
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
