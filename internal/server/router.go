package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"absstitch/internal/dashboard"
	designctrl "absstitch/internal/design/controller"
	invoicectrl "absstitch/internal/invoice/controller"
	orderctrl "absstitch/internal/order/controller"
)

func NewRouter(
	transitionCtrl *orderctrl.TransitionController,
	invoiceCtrl *invoicectrl.InvoiceController,
	designCtrl *designctrl.DesignController,
	dashboardCtrl *dashboard.Controller,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/orders/{orderId}/transition", transitionCtrl.HandleTransition)

		r.Get("/invoices/candidates", invoiceCtrl.HandleListCandidates)
		r.Post("/invoices", invoiceCtrl.HandleBuildInvoice)

		r.Patch("/designs/{designId}/active", designCtrl.HandleSetActive)

		r.Route("/sessions/{sessionId}", func(r chi.Router) {
			r.Get("/{section}", dashboardCtrl.HandleSnapshot)
			r.Patch("/{section}/params", dashboardCtrl.HandleUpdateParams)
			r.Post("/{section}/refetch", dashboardCtrl.HandleRefetch)
			r.Get("/badges/{section}", dashboardCtrl.HandleBadgeCount)
			r.Post("/badges/{section}/seen", dashboardCtrl.HandleMarkSeen)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}
