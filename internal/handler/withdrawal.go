package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"coin-wallet-engine/internal/model"
	"coin-wallet-engine/internal/pkg/auth"
	"coin-wallet-engine/internal/pkg/response"
)

type createWithdrawalRequest struct {
	AppName string `json:"appName"`
	Amount  int64  `json:"amount"`
}

// CreateWithdrawal opens a withdrawal request for the caller. The coins
// are held immediately, pending admin review.
func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req createWithdrawalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AppName == "" {
		response.Error(w, http.StatusBadRequest, "appName is required")
		return
	}

	withdrawal, err := h.withdrawals.Create(r.Context(), auth.UserIDFrom(r.Context()), req.AppName, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, withdrawal)
}

// ListWithdrawals lists the caller's withdrawal requests for an app.
func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	appName, ok := requireAppName(w, r)
	if !ok {
		return
	}
	page := pageFrom(r).Normalize()

	items, total, err := h.withdrawals.GetUserWithdrawals(r.Context(), auth.UserIDFrom(r.Context()), appName, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []*model.Withdrawal{}
	}
	response.JSON(w, http.StatusOK, response.Paginated(items, page.Page, page.Limit, total))
}

// ListPendingWithdrawals is the admin review queue, oldest first.
func (h *Handler) ListPendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	page := pageFrom(r).Normalize()

	items, total, err := h.withdrawals.GetPendingWithdrawals(r.Context(), page)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []*model.Withdrawal{}
	}
	response.JSON(w, http.StatusOK, response.Paginated(items, page.Page, page.Limit, total))
}

type approveRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// ApproveWithdrawal transitions a pending withdrawal to approved.
func (h *Handler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	withdrawal, err := h.withdrawals.Approve(r.Context(), chi.URLParam(r, "id"), auth.UserIDFrom(r.Context()), req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, withdrawal)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectWithdrawal transitions a pending withdrawal to rejected and
// credits the held coins back.
func (h *Handler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Reason == "" {
		response.Error(w, http.StatusBadRequest, "reason is required")
		return
	}

	withdrawal, err := h.withdrawals.Reject(r.Context(), chi.URLParam(r, "id"), auth.UserIDFrom(r.Context()), req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, withdrawal)
}

// WithdrawalStats returns the per-app withdrawal rollup for admins.
func (h *Handler) WithdrawalStats(w http.ResponseWriter, r *http.Request) {
	appName, ok := requireAppName(w, r)
	if !ok {
		return
	}

	stats, err := h.withdrawals.GetWithdrawalStats(r.Context(), appName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, stats)
}
