package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin-wallet-engine/internal/model"
)

func newTestClient() *Client {
	return NewClient(2*time.Second, 2*time.Second)
}

func appFor(server *httptest.Server) *model.ResourceApp {
	return &model.ResourceApp{
		AppName:              "blog-app",
		ProfileEndpoint:      server.URL + "/api/users",
		VerificationEndpoint: server.URL + "/api/verify",
		NotificationEndpoint: server.URL + "/api/notify",
	}
}

func TestValidateUser(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:   "bare profile with id",
			status: http.StatusOK,
			body:   `{"id": "user-1", "name": "Alice"}`,
		},
		{
			name:   "enveloped profile",
			status: http.StatusOK,
			body:   `{"data": {"id": "user-1"}}`,
		},
		{
			name:    "not found status",
			status:  http.StatusNotFound,
			body:    `{"error": "no such user"}`,
			wantErr: ErrUserNotFound,
		},
		{
			name:    "profile without id",
			status:  http.StatusOK,
			body:    `{"name": "Alice"}`,
			wantErr: ErrUserNotFound,
		},
		{
			name:    "empty id",
			status:  http.StatusOK,
			body:    `{"id": ""}`,
			wantErr: ErrUserNotFound,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			wantErr: ErrUnavailable,
		},
		{
			name:    "invalid json",
			status:  http.StatusOK,
			body:    `{{{`,
			wantErr: ErrBadResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/users/user-1", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := newTestClient().ValidateUser(context.Background(), appFor(server), "user-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUser_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	err := newTestClient().ValidateUser(context.Background(), appFor(server), "user-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCheckEligibility(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:   "eligible",
			status: http.StatusOK,
			body:   `{"isEligible": true, "isVerified": false}`,
		},
		{
			name:   "eligible in envelope",
			status: http.StatusOK,
			body:   `{"data": {"isEligible": true}}`,
		},
		{
			name:    "denied",
			status:  http.StatusOK,
			body:    `{"isEligible": false}`,
			wantErr: ErrNotEligible,
		},
		{
			name:    "missing flag is malformed, not a denial",
			status:  http.StatusOK,
			body:    `{"isVerified": true}`,
			wantErr: ErrBadResponse,
		},
		{
			name:    "non-boolean flag",
			status:  http.StatusOK,
			body:    `{"isEligible": "yes"}`,
			wantErr: ErrBadResponse,
		},
		{
			name:    "server error",
			status:  http.StatusBadGateway,
			body:    ``,
			wantErr: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/verify/user-1", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := newTestClient().CheckEligibility(context.Background(), appFor(server), "user-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotify(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/notify/user-1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := newTestClient().Notify(context.Background(), appFor(server), "user-1", "Gift received", "You received a Red Rose")
	require.NoError(t, err)
	assert.Equal(t, "Gift received", got["title"])
	assert.Equal(t, "You received a Red Rose", got["message"])
}

func TestNotify_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := newTestClient().Notify(context.Background(), appFor(server), "user-1", "t", "m")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://x/api/users/u1", endpointURL("http://x/api/users", "u1"))
	assert.Equal(t, "http://x/api/users/u1", endpointURL("http://x/api/users/", "u1"))
	// Path-hostile ids are escaped
	assert.Equal(t, "http://x/api/users/a%2Fb", endpointURL("http://x/api/users", "a/b"))
}
