// Package service — business logic between the HTTP handlers and the stores.
//
// AuthService owns the account state machine:
//
//	Unregistered → OTPPending → Registered
//
// Initiate mints a one-time passcode for an email; VerifyAndRegister consumes
// the code and creates the account; SignIn checks a credential against the
// store. Everything the handlers surface — including the deliberate "User not
// found" sentinel on sign-in — is decided here, away from HTTP concerns.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/mindgarden/internal/apperror"
	"github.com/sakif/mindgarden/internal/auth"
	"github.com/sakif/mindgarden/internal/model"
	"github.com/sakif/mindgarden/internal/repository"
)

// AuthService handles identity, credentials and profile state.
type AuthService struct {
	users     repository.UserRepository
	otps      repository.OTPRepository
	reg       repository.RegistrationStore
	passwords *auth.PasswordService
	otpTTL    time.Duration
	logger    *slog.Logger
}

// NewAuthService wires the service. The three store interfaces are usually
// one sqlite.DB, but tests substitute fakes per interface.
func NewAuthService(
	users repository.UserRepository,
	otps repository.OTPRepository,
	reg repository.RegistrationStore,
	passwords *auth.PasswordService,
	otpTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if otpTTL <= 0 {
		otpTTL = model.OTPTTL
	}
	return &AuthService{
		users:     users,
		otps:      otps,
		reg:       reg,
		passwords: passwords,
		otpTTL:    otpTTL,
		logger:    logger,
	}
}

// InitiateSignUp mints a fresh OTP challenge for the email, replacing any
// prior one. It succeeds whether or not the email already has an account —
// this step must not leak account existence.
//
// The returned code is for out-of-band delivery (here: logged; an email
// integration would hang off this). It never appears in an HTTP response.
func (s *AuthService) InitiateSignUp(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", apperror.ValidationFailed("email", "Email is required")
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}

	expiresAt := time.Now().Add(s.otpTTL)
	if err := s.otps.Replace(ctx, email, code, expiresAt); err != nil {
		return "", fmt.Errorf("service/auth: storing otp: %w", err)
	}

	// Out-of-band delivery stand-in. The original printed the code to the
	// server console for testing; we log it the same way.
	s.logger.Info("otp issued",
		slog.String("email", email),
		slog.String("code", code),
		slog.Time("expiresAt", expiresAt),
	)

	return code, nil
}

// SignIn authenticates email+password.
//
// Three outcomes, two of them "successful" HTTP-wise:
//   - known email, right password  → the full user record
//   - unknown email                → (nil, nil): the handler answers 200 with
//     the "User not found" sentinel so the client pivots to sign-up. This is
//     a load-bearing API quirk, not a missing 404.
//   - known email, wrong password  → apperror.ErrUnauthorized
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
	if user == nil {
		return nil, nil
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if err == auth.ErrPasswordMismatch {
			return nil, apperror.Unauthorized("Invalid credentials")
		}
		return nil, fmt.Errorf("service/auth: verifying credential: %w", err)
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))
	return user, nil
}

// VerifyAndRegister completes sign-up: consume the OTP challenge and create
// the account in one transaction.
//
// Failure modes are all ordinary control flow: a wrong or expired code is
// Unauthorized (the caller restarts at InitiateSignUp), a duplicate email is
// Conflict (the race loser, or an account that already existed). The new
// account starts with 15 points on the free tier, not yet onboarded.
//
// The returned record is read back from the store so timestamps are
// authoritative.
func (s *AuthService) VerifyAndRegister(ctx context.Context, email, password, code string) (*model.User, error) {
	if email == "" || password == "" || code == "" {
		return nil, apperror.ValidationFailed("email", "Email, password, and OTP are required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		ID:               uuid.NewString(),
		Email:            email,
		PasswordHash:     hash,
		IsOnboarded:      false,
		NotificationDays: []string{},
		CoverChoice:      model.DefaultCoverChoice,
		Points:           model.InitialPoints,
		Subscription:     model.SubscriptionFree,
	}

	if err := s.reg.RegisterVerified(ctx, user, code); err != nil {
		return nil, fmt.Errorf("service/auth: registering %s: %w", email, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", email),
	)

	created, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: reading back user %s: %w", user.ID, err)
	}
	return created, nil
}

// GetUserByID fetches the full user record. This is also the client's
// designated resynchronization primitive: after any out-of-band mutation the
// device re-fetches and overwrites its local session cache wholesale.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("userId", "User ID is required")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ProfileUpdate carries the client-settable profile fields of the generic
// update endpoint. Nil means "leave unchanged". Points and subscription are
// not here on purpose — see AwardPoints / SpendPoints / ChangeSubscription.
type ProfileUpdate struct {
	Name             *string
	IsOnboarded      *bool
	NotificationTime *string
	NotificationDays []string
	CoverChoice      *int
}

// UpdateProfile merge-patches the profile. Unset fields keep their stored
// values; updated_at is bumped even when nothing changed. Enum-ish inputs
// (weekday names, cover choice) are validated here, on the way in.
func (s *AuthService) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error {
	if id == "" {
		return apperror.ValidationFailed("userId", "User ID is required")
	}

	patch := repository.ProfilePatch{
		Name:             upd.Name,
		IsOnboarded:      upd.IsOnboarded,
		NotificationTime: upd.NotificationTime,
	}

	if upd.NotificationDays != nil {
		days, err := model.NormalizeWeekdays(upd.NotificationDays)
		if err != nil {
			return apperror.ValidationFailed("notificationDays", "Invalid notification days")
		}
		patch.NotificationDays = days
	}

	if upd.CoverChoice != nil {
		cover, err := model.ParseCoverChoice(*upd.CoverChoice)
		if err != nil {
			return apperror.ValidationFailed("coverChoice", "Invalid cover choice")
		}
		patch.CoverChoice = &cover
	}

	if err := s.users.ApplyPatch(ctx, id, patch); err != nil {
		return fmt.Errorf("service/auth: patching user %s: %w", id, err)
	}
	return nil
}

// NameUpdate is what UpdateName reports back: the stored name and the stamped
// updated_at, for the client to patch into its cache without a full refetch.
type NameUpdate struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateName is the ergonomic "rename only" specialization of UpdateProfile.
func (s *AuthService) UpdateName(ctx context.Context, id, name string) (*NameUpdate, error) {
	if id == "" || name == "" {
		return nil, apperror.ValidationFailed("name", "User ID and name are required")
	}

	stored, updatedAt, err := s.users.UpdateName(ctx, id, name)
	if err != nil {
		return nil, fmt.Errorf("service/auth: renaming user %s: %w", id, err)
	}
	return &NameUpdate{Name: stored, UpdatedAt: updatedAt}, nil
}

// AwardPoints credits points to the balance. Server-internal: only flows like
// task completion call this — there is no HTTP route that sets points
// directly.
func (s *AuthService) AwardPoints(ctx context.Context, id string, points int) (int, error) {
	if points <= 0 {
		return 0, apperror.ValidationFailed("points", "Points must be positive")
	}
	balance, err := s.users.AdjustPoints(ctx, id, points)
	if err != nil {
		return 0, fmt.Errorf("service/auth: awarding points to user %s: %w", id, err)
	}
	s.logger.Info("points awarded",
		slog.String("userID", id),
		slog.Int("points", points),
		slog.Int("balance", balance),
	)
	return balance, nil
}

// SpendPoints debits points (therapy booking and the like). The balance never
// goes negative: an over-large debit fails with Conflict and changes nothing.
func (s *AuthService) SpendPoints(ctx context.Context, id string, points int) (int, error) {
	if points <= 0 {
		return 0, apperror.ValidationFailed("points", "Points must be positive")
	}
	balance, err := s.users.AdjustPoints(ctx, id, -points)
	if err != nil {
		return 0, fmt.Errorf("service/auth: spending points for user %s: %w", id, err)
	}
	return balance, nil
}

// ChangeSubscription moves the user to a new billing tier. Server-internal,
// driven by purchase flows; the tier string is validated against the closed
// set before it touches storage.
func (s *AuthService) ChangeSubscription(ctx context.Context, id, tier string) error {
	sub, err := model.ParseSubscription(tier)
	if err != nil {
		return apperror.ValidationFailed("subscription", "Invalid subscription tier")
	}
	if err := s.users.SetSubscription(ctx, id, sub); err != nil {
		return fmt.Errorf("service/auth: changing subscription for user %s: %w", id, err)
	}
	return nil
}
