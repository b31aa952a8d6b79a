package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrJamesThe3rd/subledger/internal/http/api"
	"github.com/MrJamesThe3rd/subledger/internal/http/auth"
	"github.com/MrJamesThe3rd/subledger/internal/http/catalog"
	"github.com/MrJamesThe3rd/subledger/internal/http/dashboard"
	"github.com/MrJamesThe3rd/subledger/internal/http/reconcile"
	"github.com/MrJamesThe3rd/subledger/internal/http/subscription"
	"github.com/MrJamesThe3rd/subledger/internal/http/transaction"
	"github.com/MrJamesThe3rd/subledger/internal/http/wallet"
)

type Options struct {
	AllowedOrigins []string
	JWTSecret      []byte
	DevUserID      string                      // tenant used when JWTSecret is empty
	Ping           func(context.Context) error // optional readiness check for /healthz
}

func New(
	opts Options,
	transactionsV1 *transaction.Handler,
	walletsV1 *wallet.Handler,
	subscriptionsV1 *subscription.Handler,
	catalogV1 *catalog.Handler,
	dashboardV1 *dashboard.Handler,
	reconcileV1 *reconcile.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", health(opts.Ping))
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(opts.JWTSecret, opts.DevUserID))
		r.Use(middleware.AllowContentType("application/json"))

		r.Route("/data", dashboardV1.DataRoutes)
		r.Route("/dashboard", dashboardV1.Routes)
		r.Route("/transactions", transactionsV1.Routes)
		r.Route("/wallets", walletsV1.Routes)
		r.Route("/subscriptions", subscriptionsV1.Routes)
		r.Route("/departments", catalogV1.DepartmentRoutes)
		r.Route("/accounts", catalogV1.AccountRoutes)
		r.Route("/reconciliation", reconcileV1.Routes)
	})

	return router
}

func health(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				api.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}

		api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
