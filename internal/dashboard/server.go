package dashboard

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (d *Dashboard) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(d.instrument)

	// Pages.
	r.Get("/", d.handlePage("home", "Home Page"))
	r.Get("/about", d.handlePage("about", "About"))
	r.With(rateLimitMiddleware(d.limiter)).Post("/dark_mode", d.handleDarkMode())

	// Public.
	r.Get("/health", d.handleHealth())
	r.Get("/ws", d.hub.ServeHTTP)
	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))
	if d.metrics != nil {
		r.Handle("/metrics", d.metrics.Handler())
	}

	// JSON API. Guarded when credentials are configured.
	r.Route("/api", func(r chi.Router) {
		if d.config.Auth.IsConfigured() {
			r.Use(authMiddleware(d.config.Auth, d.logger))
		}
		r.Get("/status", d.handleStatus())
		r.Get("/jobs", d.handleJobs())
		r.Get("/modules", d.handleModules())
	})

	return r
}
