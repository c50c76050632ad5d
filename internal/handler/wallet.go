package handler

import (
	"net/http"

	"coin-wallet-engine/internal/model"
	"coin-wallet-engine/internal/pkg/auth"
	"coin-wallet-engine/internal/pkg/response"
)

// GetBalance returns the caller's wallet for an app, provisioning it on
// first touch.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	appName, ok := requireAppName(w, r)
	if !ok {
		return
	}

	wallet, err := h.ledger.GetBalance(r.Context(), auth.UserIDFrom(r.Context()), appName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, wallet)
}

// GetWallets lists the caller's wallets across all apps.
func (h *Handler) GetWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.ledger.GetUserWallets(r.Context(), auth.UserIDFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if wallets == nil {
		wallets = []*model.Wallet{}
	}
	response.JSON(w, http.StatusOK, wallets)
}

type chargeRequest struct {
	AppName     string  `json:"appName"`
	Amount      int64   `json:"amount"`
	Description *string `json:"description,omitempty"`
}

// Charge credits coins into the caller's wallet.
func (h *Handler) Charge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AppName == "" {
		response.Error(w, http.StatusBadRequest, "appName is required")
		return
	}

	wallet, entry, err := h.ledger.Charge(r.Context(), auth.UserIDFrom(r.Context()), req.AppName, req.Amount, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"wallet":        wallet,
		"transactionId": entry.TransactionID,
	})
}

type giftRequest struct {
	AppName         string  `json:"appName"`
	RecipientUserID string  `json:"recipientUserId"`
	GiftID          string  `json:"giftId"`
	PostID          *string `json:"postId,omitempty"`
	Message         *string `json:"message,omitempty"`
}

// SendGift transfers a gift's coin value to another user in the same app.
func (h *Handler) SendGift(w http.ResponseWriter, r *http.Request) {
	var req giftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AppName == "" || req.RecipientUserID == "" || req.GiftID == "" {
		response.Error(w, http.StatusBadRequest, "appName, recipientUserId and giftId are required")
		return
	}

	result, err := h.ledger.SendGift(r.Context(), auth.UserIDFrom(r.Context()), req.RecipientUserID, req.AppName, req.GiftID, req.PostID, req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"gift":             result.Gift,
		"transactionId":    result.TransactionID,
		"senderBalance":    result.SenderBalance,
		"recipientBalance": result.RecipientBalance,
	})
}

// GetTransactions lists the caller's log entries for an app, newest first.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	appName, ok := requireAppName(w, r)
	if !ok {
		return
	}
	page := pageFrom(r).Normalize()

	items, total, err := h.ledger.GetTransactionHistory(r.Context(), auth.UserIDFrom(r.Context()), appName, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []*model.Transaction{}
	}
	response.JSON(w, http.StatusOK, response.Paginated(items, page.Page, page.Limit, total))
}

// GetTransactionStats returns the caller's per-type transaction rollup for
// an app.
func (h *Handler) GetTransactionStats(w http.ResponseWriter, r *http.Request) {
	appName, ok := requireAppName(w, r)
	if !ok {
		return
	}

	byType, err := h.ledger.GetUserTransactionStats(r.Context(), auth.UserIDFrom(r.Context()), appName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if byType == nil {
		byType = []model.TypeStat{}
	}
	response.JSON(w, http.StatusOK, byType)
}
