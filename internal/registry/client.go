// Package registry talks to the external applications registered in the
// resource-app table. Each app exposes three endpoints: a profile lookup
// used to validate user ids, a verification check consulted before
// withdrawals, and a notification sink.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"coin-wallet-engine/internal/model"
)

var (
	// ErrUserNotFound means the app's profile endpoint does not know the user.
	ErrUserNotFound = errors.New("user not found in resource app")
	// ErrNotEligible means the app's verification endpoint denied the user.
	ErrNotEligible = errors.New("user not eligible for withdrawal")
	// ErrBadResponse means the app answered with a payload we cannot use.
	ErrBadResponse = errors.New("malformed resource app response")
	// ErrUnavailable means the app could not be reached or failed server-side.
	ErrUnavailable = errors.New("resource app unavailable")
)

// Client performs HTTP calls against registered resource apps.
type Client struct {
	httpClient   *http.Client
	notifyClient *http.Client
}

// NewClient creates a registry client. callTimeout bounds validation and
// eligibility calls, which sit on the request path; notifyTimeout bounds
// the fire-and-forget notification POSTs.
func NewClient(callTimeout, notifyTimeout time.Duration) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: callTimeout},
		notifyClient: &http.Client{Timeout: notifyTimeout},
	}
}

// endpointURL joins a registered endpoint with a user id path segment.
func endpointURL(endpoint, userID string) string {
	return strings.TrimRight(endpoint, "/") + "/" + url.PathEscape(userID)
}

// normalizeEnvelope unwraps the {"data": {...}} envelope some apps use
// and returns the inner object; bare objects pass through unchanged.
func normalizeEnvelope(body []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if data, ok := payload["data"].(map[string]any); ok {
		return data, nil
	}
	return payload, nil
}

// ValidateUser confirms the user exists in the app by fetching its profile.
// A 404 or a profile without an id field means the user is unknown.
func (c *Client) ValidateUser(ctx context.Context, app *model.ResourceApp, userID string) error {
	reqURL := endpointURL(app.ProfileEndpoint, userID)

	body, status, err := c.get(ctx, reqURL)
	if err != nil {
		log.Warn().Err(err).
			Str("app_name", app.AppName).
			Str("user_id", userID).
			Msg("Profile endpoint unreachable")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case status == http.StatusNotFound:
		return ErrUserNotFound
	case status < 200 || status >= 300:
		log.Warn().
			Str("app_name", app.AppName).
			Str("user_id", userID).
			Int("status_code", status).
			Msg("Profile endpoint returned error status")
		return fmt.Errorf("%w: profile endpoint returned status %d", ErrUnavailable, status)
	}

	profile, err := normalizeEnvelope(body)
	if err != nil {
		return err
	}

	id, ok := profile["id"]
	if !ok || id == nil || id == "" {
		return ErrUserNotFound
	}
	return nil
}

// CheckEligibility asks the app whether the user may withdraw. The response
// must carry a boolean isEligible field; anything else is treated as a
// malformed response rather than a denial.
func (c *Client) CheckEligibility(ctx context.Context, app *model.ResourceApp, userID string) error {
	reqURL := endpointURL(app.VerificationEndpoint, userID)

	body, status, err := c.get(ctx, reqURL)
	if err != nil {
		log.Warn().Err(err).
			Str("app_name", app.AppName).
			Str("user_id", userID).
			Msg("Verification endpoint unreachable")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: verification endpoint returned status %d", ErrUnavailable, status)
	}

	result, err := normalizeEnvelope(body)
	if err != nil {
		return err
	}

	eligible, ok := result["isEligible"].(bool)
	if !ok {
		return fmt.Errorf("%w: missing isEligible field", ErrBadResponse)
	}
	if !eligible {
		return ErrNotEligible
	}
	return nil
}

// Notify posts a user-facing message to the app's notification endpoint.
// Callers treat failures as non-fatal; the ledger never blocks on delivery.
func (c *Client) Notify(ctx context.Context, app *model.ResourceApp, userID, title, message string) error {
	reqURL := endpointURL(app.NotificationEndpoint, userID)

	payload, err := json.Marshal(map[string]string{
		"title":   title,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.notifyClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: notification endpoint returned status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// get performs a GET and returns the body and status. Transport errors are
// returned as-is; status handling is left to the caller since 404 carries
// meaning on the profile endpoint.
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
