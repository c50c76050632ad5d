// Package router wires the HTTP surface: public health check, JWT-gated
// wallet and withdrawal routes, and the admin surface behind the admin
// role.
package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"coin-wallet-engine/internal/handler"
	"coin-wallet-engine/internal/pkg/auth"
)

// New builds the route tree.
func New(h *handler.Handler, verifier *auth.Verifier) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)

	r.Group(func(r chi.Router) {
		r.Use(verifier.Middleware)

		r.Route("/api", func(r chi.Router) {
			r.Route("/wallet", func(r chi.Router) {
				r.Get("/balance", h.GetBalance)
				r.Get("/wallets", h.GetWallets)
				r.Post("/charge", h.Charge)
				r.Post("/gift", h.SendGift)
				r.Get("/transactions", h.GetTransactions)
				r.Get("/transactions/stats", h.GetTransactionStats)
			})

			r.Route("/withdrawals", func(r chi.Router) {
				r.Post("/", h.CreateWithdrawal)
				r.Get("/", h.ListWithdrawals)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Post("/wallets/freeze", h.FreezeWallet)
				r.Post("/wallets/unfreeze", h.UnfreezeWallet)
				r.Get("/wallets/stats", h.WalletStats)

				r.Get("/withdrawals/pending", h.ListPendingWithdrawals)
				r.Post("/withdrawals/{id}/approve", h.ApproveWithdrawal)
				r.Post("/withdrawals/{id}/reject", h.RejectWithdrawal)
				r.Get("/withdrawals/stats", h.WithdrawalStats)
			})
		})
	})

	return r
}
