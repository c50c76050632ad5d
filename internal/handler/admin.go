package handler

import (
	"net/http"

	"coin-wallet-engine/internal/pkg/response"
)

type freezeRequest struct {
	UserID  string `json:"userId"`
	AppName string `json:"appName"`
	Reason  string `json:"reason"`
}

// FreezeWallet blocks all balance mutations on a user's wallet.
func (h *Handler) FreezeWallet(w http.ResponseWriter, r *http.Request) {
	var req freezeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.AppName == "" || req.Reason == "" {
		response.Error(w, http.StatusBadRequest, "userId, appName and reason are required")
		return
	}

	wallet, err := h.ledger.FreezeWallet(r.Context(), req.UserID, req.AppName, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, wallet)
}

type unfreezeRequest struct {
	UserID  string `json:"userId"`
	AppName string `json:"appName"`
}

// UnfreezeWallet lifts a freeze.
func (h *Handler) UnfreezeWallet(w http.ResponseWriter, r *http.Request) {
	var req unfreezeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.AppName == "" {
		response.Error(w, http.StatusBadRequest, "userId and appName are required")
		return
	}

	wallet, err := h.ledger.UnfreezeWallet(r.Context(), req.UserID, req.AppName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, wallet)
}

// WalletStats returns the per-app wallet rollup plus the per-type
// transaction aggregate.
func (h *Handler) WalletStats(w http.ResponseWriter, r *http.Request) {
	appName, ok := requireAppName(w, r)
	if !ok {
		return
	}

	stats, byType, err := h.ledger.GetWalletStats(r.Context(), appName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"wallets":      stats,
		"transactions": byType,
	})
}
