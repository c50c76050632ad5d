package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"coin-wallet-engine/internal/pkg/response"
	"coin-wallet-engine/internal/service"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// The kind field tells clients whether to retry, fix the request, or stop.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrAppNotFound),
		errors.Is(err, service.ErrWalletNotFound),
		errors.Is(err, service.ErrWithdrawalNotFound):
		response.ErrorKind(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, service.ErrPendingWithdrawalExists),
		errors.Is(err, service.ErrNotPending):
		response.ErrorKind(w, http.StatusConflict, "conflict", err.Error())

	case errors.Is(err, service.ErrInvalidAmount):
		response.ErrorKind(w, http.StatusBadRequest, "invalid_amount", err.Error())
	case errors.Is(err, service.ErrInvalidUser):
		response.ErrorKind(w, http.StatusBadRequest, "invalid_user", err.Error())
	case errors.Is(err, service.ErrSelfGift):
		response.ErrorKind(w, http.StatusBadRequest, "self_gift", err.Error())
	case errors.Is(err, service.ErrInvalidGift):
		response.ErrorKind(w, http.StatusBadRequest, "invalid_gift", err.Error())
	case errors.Is(err, service.ErrFrozenWallet):
		response.ErrorKind(w, http.StatusBadRequest, "frozen_wallet", err.Error())
	case errors.Is(err, service.ErrInsufficientBalance):
		response.ErrorKind(w, http.StatusBadRequest, "insufficient_balance", err.Error())
	case errors.Is(err, service.ErrEligibilityDenied):
		response.ErrorKind(w, http.StatusBadRequest, "eligibility_denied", err.Error())
	case errors.Is(err, service.ErrBelowMinimum):
		response.ErrorKind(w, http.StatusBadRequest, "below_minimum", err.Error())
	case errors.Is(err, service.ErrDailyLimitExceeded):
		response.ErrorKind(w, http.StatusBadRequest, "daily_limit_exceeded", err.Error())

	case errors.Is(err, service.ErrExternalService):
		response.ErrorKind(w, http.StatusBadGateway, "external_service", "Resource app is unavailable, retry later")

	default:
		log.Error().Err(err).Msg("Unhandled service error")
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
