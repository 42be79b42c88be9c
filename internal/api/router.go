// Package api exposes the planner over an authenticated JSON HTTP API.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianstephens/lifeplan/internal/auth"
	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/planner"
)

type API struct {
	Planner *planner.Service
	Auth    *auth.Manager
	// HorizonDays is the default range for reads without start/end
	HorizonDays int
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(constants.RequestTimeout))
	r.Use(requestLogger)

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(a.authMiddleware)

		r.Get("/today", a.handleToday)
		r.Get("/profile", a.handleGetProfile)
		r.Put("/profile", a.handlePutProfile)
		r.Get("/check", a.handleCheck)

		r.Route("/instances", func(r chi.Router) {
			r.Get("/", a.handleListInstances)
			r.Post("/ensure", a.handleEnsure)
			r.Patch("/{id}", a.handleMarkInstance)
		})
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", a.handleListRules)
			r.Post("/", a.handleCreateRule)
			r.Put("/{id}", a.handleReplaceRule)
			r.Delete("/{id}", a.handleDeleteRule)
		})
		r.Route("/habits", func(r chi.Router) {
			r.Get("/", a.handleListHabits)
			r.Post("/", a.handleCreateHabit)
			r.Get("/streaks", a.handleStreaks)
			r.Delete("/{id}", a.handleDeleteHabit)
			r.Post("/{id}/restore", a.handleRestoreHabit)
			r.Get("/{id}/streak", a.handleStreak)
		})
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", a.handleListTransactions)
			r.Post("/", a.handleCreateTransaction)
			r.Delete("/{id}", a.handleDeleteTransaction)
			r.Post("/{id}/restore", a.handleRestoreTransaction)
		})
		r.Get("/ledger", a.handleLedger)
		r.Get("/calendar.ics", a.handleCalendar)
	})

	return r
}
