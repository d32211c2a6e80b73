package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sakif/mindgarden/internal/model"
)

// Client talks to the mindgarden API. When constructed with a SessionCache,
// every call that returns a user record writes it into the cache wholesale,
// mirroring what the mobile app does after each auth or profile call.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *SessionCache // optional
}

// New creates a Client for the API at baseURL (e.g. "http://localhost:8080").
// cache may be nil for cache-less use.
func New(baseURL string, cache *SessionCache) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		cache:   cache,
	}
}

// APIError is a non-2xx response: the status code plus the server's message.
// Callers branch on StatusCode the way the mobile client does.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: api error %d: %s", e.StatusCode, e.Message)
}

// userEnvelope matches the {message, user?} responses of the auth endpoints.
type userEnvelope struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// SignUp initiates the OTP flow for an email. The code travels out-of-band;
// success here only means a challenge was issued.
func (c *Client) SignUp(ctx context.Context, email string) error {
	var resp userEnvelope
	return c.post(ctx, "/v1/users/sign-up", map[string]string{"email": email}, &resp)
}

// SignIn authenticates. Three outcomes:
//   - (user, nil):  signed in; the cache now holds the fresh record
//   - (nil, nil):   no account — the caller should pivot to the sign-up flow
//     (the server answers 200 with the "User not found" sentinel)
//   - (nil, error): wrong password (401 *APIError) or transport failure
func (c *Client) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	var resp userEnvelope
	err := c.post(ctx, "/v1/users/sign-in",
		map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, nil
	}
	if err := c.cachePut(resp.User); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// VerifyOTP completes sign-up with the out-of-band code and caches the new
// account record.
func (c *Client) VerifyOTP(ctx context.Context, email, password, otp string) (*model.User, error) {
	var resp userEnvelope
	err := c.post(ctx, "/v1/users/verify-otp",
		map[string]string{"email": email, "password": password, "otp": otp}, &resp)
	if err != nil {
		return nil, err
	}
	if err := c.cachePut(resp.User); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// FetchUser gets the full record by ID without touching the cache.
func (c *Client) FetchUser(ctx context.Context, userID string) (*model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/users/"+userID, nil)
	if err != nil {
		return nil, fmt.Errorf("client: building request: %w", err)
	}

	var user model.User
	if err := c.do(req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Refresh is the designated resynchronization primitive: re-fetch the
// authoritative record and overwrite the local mirror wholesale. Call after
// any out-of-band mutation (a task completed elsewhere, a purchase) to repair
// cache drift.
func (c *Client) Refresh(ctx context.Context, userID string) (*model.User, error) {
	user, err := c.FetchUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.cachePut(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ProfileUpdate mirrors the generic update endpoint's body. Nil fields are
// omitted from the request and keep their server-side values.
type ProfileUpdate struct {
	Name             *string  `json:"name,omitempty"`
	IsOnboarded      *bool    `json:"isOnboarded,omitempty"`
	NotificationTime *string  `json:"notificationTime,omitempty"`
	NotificationDays []string `json:"notificationDays,omitempty"`
	CoverChoice      *int     `json:"coverChoice,omitempty"`
}

// UpdateProfile merge-patches profile fields, then refreshes the cached
// record. The update endpoint returns no user, so the refetch keeps the
// mirror honest instead of patching it from client-side guesses.
func (c *Client) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) error {
	body := struct {
		UserID string `json:"userId"`
		ProfileUpdate
	}{UserID: userID, ProfileUpdate: upd}

	var resp userEnvelope
	if err := c.post(ctx, "/v1/users/update", body, &resp); err != nil {
		return err
	}
	if c.cache == nil {
		return nil
	}
	_, err := c.Refresh(ctx, userID)
	return err
}

// UpdateName renames the user. The response carries the stored name and
// timestamp, which are patched into the cache directly — one of the
// independent writers the last-writer-wins contract exists for.
func (c *Client) UpdateName(ctx context.Context, userID, name string) error {
	var resp struct {
		Message string `json:"message"`
		Updates struct {
			Name      string    `json:"name"`
			UpdatedAt time.Time `json:"updated_at"`
		} `json:"updates"`
	}
	err := c.post(ctx, "/v1/users/update-name",
		map[string]string{"userId": userID, "name": name}, &resp)
	if err != nil {
		return err
	}
	if c.cache == nil {
		return nil
	}
	return c.cache.Patch(func(snap *Snapshot) {
		snap.User.Name = resp.Updates.Name
		snap.User.UpdatedAt = resp.Updates.UpdatedAt
	})
}

// Logout clears the local session. Server state is untouched — accounts are
// never deleted through this client.
func (c *Client) Logout() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Clear()
}

func (c *Client) cachePut(user *model.User) error {
	if c.cache == nil || user == nil {
		return nil
	}
	return c.cache.Put(user)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("client: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &msg)
		if msg.Message == "" {
			msg.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("client: decoding response: %w", err)
		}
	}
	return nil
}
