package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	httpapi "github.com/yourorg/appraisal-api/http"
	httpv1 "github.com/yourorg/appraisal-api/http/v1"
	"github.com/yourorg/appraisal-api/internal/logger"
)

type RouterDeps struct {
	API       httpapi.Deps
	Valuation httpv1.ValuationDeps
	RateLimit int // requests per IP per minute
}

func BuildRouter(deps RouterDeps) http.Handler {
	limit := deps.RateLimit
	if limit <= 0 {
		limit = 100
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger(deps.API.Logger))
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(limit, 1*time.Minute)) // protect upstream quota
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })

	httpapi.Register(r, deps.API)
	httpv1.RegisterValuation(r, deps.Valuation)

	return r
}
