package app

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (c *Container) NewRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(c.logMW)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", c.opsHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/ops", func(r chi.Router) {
		r.Post("/restore-loops", c.opsHandler.RestoreLoops)
		r.Get("/queues", c.opsHandler.QueueDepths)
		r.Get("/monitors/{monitorID}/stats", c.opsHandler.MonitorStats)
		r.Get("/monitors/{monitorID}/failures", c.opsHandler.MonitorFailures)
	})

	return r
}
