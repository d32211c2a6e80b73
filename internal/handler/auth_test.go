package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/mindgarden/internal/auth"
	"github.com/sakif/mindgarden/internal/repository/sqlite"
	"github.com/sakif/mindgarden/internal/service"
)

// testEnv is a full stack over an in-memory database: real router, real
// services, real store. The db handle is exposed so tests can plant OTP
// challenges — codes travel out-of-band and never appear in a response.
type testEnv struct {
	router *chi.Mux
	db     *sqlite.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authService := service.NewAuthService(db, db, db,
		auth.NewPasswordServiceForTest(4), 10*time.Minute, logger)
	taskService := service.NewTaskService(db, authService, logger)

	authHandler := NewAuthHandler(authService, logger)
	taskHandler := NewTaskHandler(taskService, logger)

	router := chi.NewRouter()
	router.Route("/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/sign-up", authHandler.HandleSignUp)
			r.Post("/sign-in", authHandler.HandleSignIn)
			r.Post("/verify-otp", authHandler.HandleVerifyOTP)
			r.Post("/update", authHandler.HandleUpdate)
			r.Post("/update-name", authHandler.HandleUpdateName)
			r.Get("/{userId}", authHandler.HandleGetUser)
		})
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/create", taskHandler.HandleCreate)
			r.Patch("/complete/{taskId}", taskHandler.HandleComplete)
			r.Post("/today-tasks", taskHandler.HandleTodayTasks)
		})
	})

	return &testEnv{router: router, db: db}
}

// do sends a JSON request through the router and decodes the JSON response
// into a generic map for assertions.
func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded),
		"response body should be JSON: %s", rec.Body.String())
	return rec.Code, decoded
}

// plantOTP stores a known challenge for the email, standing in for the
// out-of-band delivery step.
func (e *testEnv) plantOTP(t *testing.T, email, code string) {
	t.Helper()
	require.NoError(t, e.db.Replace(context.Background(), email, code, time.Now().Add(10*time.Minute)))
}

// registerUser runs the HTTP registration flow and returns the new user's ID.
func (e *testEnv) registerUser(t *testing.T, email, password string) string {
	t.Helper()
	e.plantOTP(t, email, "482913")
	status, body := e.do(t, http.MethodPost, "/v1/users/verify-otp", map[string]any{
		"email": email, "password": password, "otp": "482913",
	})
	require.Equal(t, http.StatusOK, status, "registration failed: %v", body)
	user := body["user"].(map[string]any)
	return user["user_id"].(string)
}

func TestHandleSignUp(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/v1/users/sign-up", map[string]any{
		"email": "a@x.com",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "OTP sent successfully", body["message"])
}

func TestHandleSignUp_MissingEmail(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/v1/users/sign-up", map[string]any{})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Email is required", body["message"])
}

func TestHandleSignUp_ExistingAccountLooksIdentical(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "taken@x.com", "secret123")

	status, body := env.do(t, http.MethodPost, "/v1/users/sign-up", map[string]any{
		"email": "taken@x.com",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "OTP sent successfully", body["message"])
}

func TestRegistrationFlow_EndToEnd(t *testing.T) {
	env := newTestEnv(t)

	env.plantOTP(t, "new@x.com", "111222")
	status, body := env.do(t, http.MethodPost, "/v1/users/verify-otp", map[string]any{
		"email": "new@x.com", "password": "secret123", "otp": "111222",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "User created successfully", body["message"])

	user := body["user"].(map[string]any)
	require.Equal(t, "new@x.com", user["email"])
	require.EqualValues(t, 15, user["points"])
	require.Equal(t, "freeTier", user["subscription"])
	require.Equal(t, false, user["is_onboarded"])
	require.NotContains(t, user, "password_hash", "credential must never serialize")
	require.NotContains(t, user, "password")

	// The record is immediately fetchable — the client's resync primitive.
	userID := user["user_id"].(string)
	status, fetched := env.do(t, http.MethodGet, "/v1/users/"+userID, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "new@x.com", fetched["email"])
	require.EqualValues(t, 15, fetched["points"])

	// And the credential works.
	status, body = env.do(t, http.MethodPost, "/v1/users/sign-in", map[string]any{
		"email": "new@x.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Sign in successful", body["message"])
	require.Contains(t, body, "user")
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	env := newTestEnv(t)
	env.plantOTP(t, "a@x.com", "111111")

	status, body := env.do(t, http.MethodPost, "/v1/users/verify-otp", map[string]any{
		"email": "a@x.com", "password": "pw", "otp": "999999",
	})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Invalid or expired OTP", body["message"])
}

func TestVerifyOTP_CodeIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	env.plantOTP(t, "a@x.com", "111111")

	status, _ := env.do(t, http.MethodPost, "/v1/users/verify-otp", map[string]any{
		"email": "a@x.com", "password": "pw", "otp": "111111",
	})
	require.Equal(t, http.StatusOK, status)

	// The consumed code is dead, whatever else is true about the account.
	status, body := env.do(t, http.MethodPost, "/v1/users/verify-otp", map[string]any{
		"email": "a@x.com", "password": "pw", "otp": "111111",
	})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Invalid or expired OTP", body["message"])
}

func TestVerifyOTP_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "taken@x.com", "first-password")

	// A fresh valid code: the OTP check passes, the insert conflicts.
	env.plantOTP(t, "taken@x.com", "222333")
	status, body := env.do(t, http.MethodPost, "/v1/users/verify-otp", map[string]any{
		"email": "taken@x.com", "password": "other-password", "otp": "222333",
	})
	require.Equal(t, http.StatusBadRequest, status, "duplicate account is 400 by contract")
	require.Equal(t, "User already exists", body["message"])
}

func TestSignIn_UnknownEmailSentinel(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/v1/users/sign-in", map[string]any{
		"email": "nobody@x.com", "password": "whatever",
	})
	require.Equal(t, http.StatusOK, status, "unknown email is a 200, not a 404")
	require.Equal(t, "User not found", body["message"])
	require.NotContains(t, body, "user", "the sentinel response carries no user field")
}

func TestSignIn_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "a@x.com", "right-password")

	status, body := env.do(t, http.MethodPost, "/v1/users/sign-in", map[string]any{
		"email": "a@x.com", "password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Invalid credentials", body["message"])
}

func TestHandleGetUser_NotFound(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, http.MethodGet, "/v1/users/ghost", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestHandleUpdate_MergePatch(t *testing.T) {
	env := newTestEnv(t)
	userID := env.registerUser(t, "a@x.com", "pw")

	// Set several fields.
	status, body := env.do(t, http.MethodPost, "/v1/users/update", map[string]any{
		"userId":           userID,
		"name":             "Alice",
		"isOnboarded":      true,
		"notificationTime": "08:30",
		"notificationDays": []string{"Mon", "Fri"},
		"coverChoice":      3,
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "User updated successfully", body["message"])

	// Patch only the name. Every other field must survive, and weekday
	// abbreviations come back as full stored names.
	status, _ = env.do(t, http.MethodPost, "/v1/users/update", map[string]any{
		"userId": userID,
		"name":   "Alice B",
	})
	require.Equal(t, http.StatusOK, status)

	_, user := env.do(t, http.MethodGet, "/v1/users/"+userID, nil)
	require.Equal(t, "Alice B", user["name"])
	require.Equal(t, true, user["is_onboarded"])
	require.Equal(t, "08:30", user["notification_time"])
	require.Equal(t, []any{"Monday", "Friday"}, user["notification_days"])
	require.EqualValues(t, 3, user["cover_choice"])
}

func TestHandleUpdate_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	userID := env.registerUser(t, "a@x.com", "pw")

	patch := map[string]any{"userId": userID, "name": "Same Name"}

	status, _ := env.do(t, http.MethodPost, "/v1/users/update", patch)
	require.Equal(t, http.StatusOK, status)
	_, first := env.do(t, http.MethodGet, "/v1/users/"+userID, nil)

	time.Sleep(5 * time.Millisecond)
	status, _ = env.do(t, http.MethodPost, "/v1/users/update", patch)
	require.Equal(t, http.StatusOK, status)
	_, second := env.do(t, http.MethodGet, "/v1/users/"+userID, nil)

	// Replaying the patch changes nothing except updated_at, which bumps
	// on every accepted update.
	require.Equal(t, first["name"], second["name"])
	require.Equal(t, first["points"], second["points"])
	require.NotEqual(t, first["updated_at"], second["updated_at"])
}

func TestHandleUpdate_RejectsPointsAndSubscription(t *testing.T) {
	env := newTestEnv(t)
	userID := env.registerUser(t, "a@x.com", "pw")

	for _, payload := range []map[string]any{
		{"userId": userID, "points": 99999},
		{"userId": userID, "subscription": "yearly"},
		{"userId": userID, "name": "Sneaky", "points": 50},
	} {
		status, body := env.do(t, http.MethodPost, "/v1/users/update", payload)
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "Points and subscription cannot be updated directly", body["message"])
	}

	// Nothing stuck — the balance and tier are untouched.
	_, user := env.do(t, http.MethodGet, "/v1/users/"+userID, nil)
	require.EqualValues(t, 15, user["points"])
	require.Equal(t, "freeTier", user["subscription"])
	require.Equal(t, "", user["name"], "a rejected request must not partially apply")
}

func TestHandleUpdate_InvalidWeekday(t *testing.T) {
	env := newTestEnv(t)
	userID := env.registerUser(t, "a@x.com", "pw")

	status, body := env.do(t, http.MethodPost, "/v1/users/update", map[string]any{
		"userId":           userID,
		"notificationDays": []string{"Blursday"},
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid notification days", body["message"])
}

func TestHandleUpdateName(t *testing.T) {
	env := newTestEnv(t)
	userID := env.registerUser(t, "a@x.com", "pw")

	status, body := env.do(t, http.MethodPost, "/v1/users/update-name", map[string]any{
		"userId": userID,
		"name":   "Fresh Name",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Name updated successfully", body["message"])

	updates := body["updates"].(map[string]any)
	require.Equal(t, "Fresh Name", updates["name"])
	require.NotEmpty(t, updates["updated_at"])
}

func TestHandleUpdateName_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/v1/users/update-name", map[string]any{
		"userId": "u1",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "User ID and name are required", body["message"])
}
