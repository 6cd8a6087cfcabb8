package httpapi

import (
	"net/http"

	"github.com/PabloPavan/swiftsnip/internal/session"
	"github.com/PabloPavan/swiftsnip/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type App struct {
	ServiceName string
	Auth        Authenticator
	Cookie      session.CookieConfig
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool

	Health   *HealthHandler
	Sessions *AuthHandler
	Users    *UsersHandler
	Snippets *SnippetsHandler
	Theme    *ThemeHandler
	Markdown *MarkdownHandler
	Run      *RunHandler
}

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if app.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	if app.ServiceName != "" {
		r.Use(telemetry.ChiTraceMiddleware(app.ServiceName))
		r.Use(telemetry.ChiLogMiddleware(app.ServiceName))
		r.Use(telemetry.ChiMetricsMiddleware)
	}

	required := AuthMiddleware(app.Auth, AuthOptions{Cookie: app.Cookie})
	optional := AuthMiddleware(app.Auth, AuthOptions{Cookie: app.Cookie, Optional: true})

	r.Get("/health", app.Health.Get)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", app.Sessions.Login)
			r.Post("/logout", app.Sessions.Logout)
		})

		r.Route("/users", func(r chi.Router) {
			// Public
			r.Post("/", app.Users.Create)

			// Protected
			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Get("/me", app.Users.Me)
				r.Patch("/me", app.Users.UpdateMe)
				r.Delete("/me", app.Users.DeleteMe)
			})
		})

		r.Route("/snippets", func(r chi.Router) {
			// Anonymous callers see public snippets
			r.Group(func(r chi.Router) {
				r.Use(optional)
				r.Get("/", app.Snippets.List)
				r.Get("/facets", app.Snippets.Facets)
				r.Get("/{id}", app.Snippets.GetByID)
				r.Get("/{id}/raw", app.Snippets.Raw)
				r.Post("/{id}/run", app.Snippets.Run)
			})

			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/", app.Snippets.Create)
				r.Patch("/{id}", app.Snippets.Update)
				r.Put("/{id}/favorite", app.Snippets.Favorite)
				r.Delete("/{id}", app.Snippets.Delete)
			})
		})

		r.Route("/preferences/theme", func(r chi.Router) {
			r.With(optional).Get("/", app.Theme.Get)
			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Put("/", app.Theme.Put)
				r.Post("/toggle", app.Theme.Toggle)
				r.Get("/events", app.Theme.Events)
			})
		})

		r.Post("/markdown/preview", app.Markdown.Preview)
		r.With(optional).Post("/run", app.Run.Run)
	})
	return r
}
