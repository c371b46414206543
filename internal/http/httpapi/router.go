package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/aahadr1/AdsCreator-sub003/internal/http/handlers"
	"github.com/aahadr1/AdsCreator-sub003/internal/middleware"
	"github.com/aahadr1/AdsCreator-sub003/internal/telemetry"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(app.Logger),
	)

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", telemetry.Handler())

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", app.SubmitJob)
		r.Get("/", app.ListJobs)
		r.Get("/{id}", app.GetJob)
		r.Post("/{id}/poll", app.PollJob)
	})
	r.Post("/v1/sequence", app.Sequence)
	r.Post("/v1/assemble", app.Assemble)

	return r
}
