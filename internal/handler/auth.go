package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/mindgarden/internal/model"
	"github.com/sakif/mindgarden/internal/service"
)

// AuthHandler exposes the account endpoints:
//
//	POST /v1/users/sign-up      → issue an OTP for an email
//	POST /v1/users/sign-in      → authenticate, or signal pivot-to-signup
//	POST /v1/users/verify-otp   → consume the OTP and create the account
//	GET  /v1/users/{userId}     → full user record (the cache resync primitive)
//	POST /v1/users/update       → merge-patch profile fields
//	POST /v1/users/update-name  → rename, returning {name, updated_at}
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// HandleSignUp issues an OTP. The response is identical whether or not the
// email already has an account — existence must not leak at this step. The
// code itself travels out-of-band, never in this response.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" {
		writeMessage(w, http.StatusBadRequest, "Email is required")
		return
	}

	if _, err := h.auth.InitiateSignUp(r.Context(), req.Email); err != nil {
		writeError(w, h.logger, err, "Failed to send OTP")
		return
	}

	writeMessage(w, http.StatusOK, "OTP sent successfully")
}

// signInResponse omits "user" entirely on the not-found path; the client
// checks for the field's absence, so omitempty is load-bearing.
type signInResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user,omitempty"`
}

// HandleSignIn authenticates email+password.
//
// An unknown email answers 200 {"message":"User not found"} with no user —
// the client pivots to the OTP sign-up flow on that sentinel. A wrong
// password is a plain 401.
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err, "Sign in failed")
		return
	}
	if user == nil {
		writeJSON(w, http.StatusOK, signInResponse{Message: "User not found"})
		return
	}

	writeJSON(w, http.StatusOK, signInResponse{
		Message: "Sign in successful",
		User:    user,
	})
}

// HandleVerifyOTP completes sign-up: code + credential in, fresh account out.
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		OTP      string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.OTP == "" {
		writeMessage(w, http.StatusBadRequest, "Email, password, and OTP are required")
		return
	}

	user, err := h.auth.VerifyAndRegister(r.Context(), req.Email, req.Password, req.OTP)
	if err != nil {
		writeError(w, h.logger, err, "OTP verification failed")
		return
	}

	writeJSON(w, http.StatusOK, signInResponse{
		Message: "User created successfully",
		User:    user,
	})
}

// HandleGetUser returns the full user record. Unlike sign-in, an unknown ID
// here is a real 404 — direct lookups have no pivot flow to feed.
func (h *AuthHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// updateRequest decodes the generic update body. Points and Subscription are
// decoded on purpose, only to be rejected: the original API silently let
// clients set them here, which made the balance client-controlled. They are
// now mutable solely through server-internal flows (task completion,
// purchases), and a request that tries gets an explicit 400 rather than a
// silent ignore.
type updateRequest struct {
	UserID           string   `json:"userId"`
	Name             *string  `json:"name"`
	IsOnboarded      *bool    `json:"isOnboarded"`
	NotificationTime *string  `json:"notificationTime"`
	NotificationDays []string `json:"notificationDays"`
	CoverChoice      *int     `json:"coverChoice"`
	Points           *int     `json:"points"`
	Subscription     *string  `json:"subscription"`
}

// HandleUpdate merge-patches profile fields. Omitted fields keep their stored
// values; updated_at bumps either way.
func (h *AuthHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		writeMessage(w, http.StatusBadRequest, "User ID is required")
		return
	}
	if req.Points != nil || req.Subscription != nil {
		writeMessage(w, http.StatusBadRequest, "Points and subscription cannot be updated directly")
		return
	}

	err := h.auth.UpdateProfile(r.Context(), req.UserID, service.ProfileUpdate{
		Name:             req.Name,
		IsOnboarded:      req.IsOnboarded,
		NotificationTime: req.NotificationTime,
		NotificationDays: req.NotificationDays,
		CoverChoice:      req.CoverChoice,
	})
	if err != nil {
		writeError(w, h.logger, err, "Failed to update user")
		return
	}

	writeMessage(w, http.StatusOK, "User updated successfully")
}

// HandleUpdateName renames the user and echoes the stored name plus the
// stamped updated_at so the client can patch its cache without a refetch.
func (h *AuthHandler) HandleUpdateName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Name   string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "User ID and name are required")
		return
	}

	update, err := h.auth.UpdateName(r.Context(), req.UserID, req.Name)
	if err != nil {
		writeError(w, h.logger, err, "Failed to update name")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Message string              `json:"message"`
		Updates *service.NameUpdate `json:"updates"`
	}{
		Message: "Name updated successfully",
		Updates: update,
	})
}
