// Package handler exposes the wallet engine over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"coin-wallet-engine/internal/model"
	"coin-wallet-engine/internal/pkg/db"
	"coin-wallet-engine/internal/pkg/response"
	"coin-wallet-engine/internal/service"
)

// Handler carries the services behind the HTTP surface.
type Handler struct {
	ledger      *service.LedgerService
	withdrawals *service.WithdrawalService
	db          *db.Pool
}

// New creates a new Handler instance.
func New(ledger *service.LedgerService, withdrawals *service.WithdrawalService, pool *db.Pool) *Handler {
	return &Handler{
		ledger:      ledger,
		withdrawals: withdrawals,
		db:          pool,
	}
}

// decodeJSON parses a request body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// pageFrom reads page/limit query parameters; repositories clamp the
// values further.
func pageFrom(r *http.Request) model.Page {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return model.Page{Page: page, Limit: limit}
}

// requireAppName reads the appName query parameter.
func requireAppName(w http.ResponseWriter, r *http.Request) (string, bool) {
	appName := r.URL.Query().Get("appName")
	if appName == "" {
		response.Error(w, http.StatusBadRequest, "appName is required")
		return "", false
	}
	return appName, true
}
