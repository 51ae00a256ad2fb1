package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func newRouter(h *Handler, maxBodyBytes int64) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(tracingMiddleware)
	r.Use(metricsMiddleware)
	r.Use(middleware.RequestSize(maxBodyBytes))

	r.Get("/healthcheck", registerHandler(h.HealthCheck))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/contract", registerHandler(h.GetContract))
		r.Get("/stakes/{address}", registerHandler(h.GetStake))
		r.Get("/stakes/{address}/pending-roi", registerHandler(h.GetPendingROI))
		r.Get("/referrers/{address}", registerHandler(h.GetReferrer))
		r.Get("/balances/{address}", registerHandler(h.GetBalance))

		r.Post("/stake", registerHandler(h.Stake))
		r.Post("/claim", registerHandler(h.ClaimROI))
		r.Post("/unstake", registerHandler(h.Unstake))
		r.Post("/admin/withdraw", registerHandler(h.WithdrawTokens))
		if h.approver != nil {
			r.Post("/token/approve", registerHandler(h.Approve))
		}
	})

	return r
}
