// Package httpapi exposes the server over HTTP: routing, authentication
// middleware, rate limiting, and JSON handlers.
package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/server/config"
	"github.com/dmitrijs2005/credvault/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps bundles everything NewRouter needs.
type RouterDeps struct {
	DB          *sql.DB
	Config      *config.Config
	Logger      logging.Logger
	RateLimiter *IPRateLimiter

	Users       *services.UserService
	Reset       *services.ResetService
	Credentials *services.CredentialService
	Devices     *services.DeviceService
	Backup      BackupUploader
	Captcha     services.CaptchaVerifier
}

// NewRouter wires the full endpoint surface.
//
// Unauthenticated routes (register, login, reset) sit behind the per-IP rate
// limiter; everything under /api otherwise requires a bearer token.
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	userHandler := NewUserHandler(deps.Users, deps.Captcha, deps.Logger)
	resetHandler := NewResetHandler(deps.Reset, deps.Captcha, deps.Logger)
	credHandler := NewCredentialHandler(deps.Credentials, deps.Backup, deps.Logger)
	deviceHandler := NewDeviceHandler(deps.Devices, deps.Logger)

	r.Get("/health", healthHandler(deps.DB))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Pre-auth routes: no identity yet, throttled per client IP.
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.Middleware(deps.Logger))

		r.Post("/api/register", userHandler.Register)
		r.Post("/api/login", userHandler.Login)
		r.Post("/api/password-reset/request", resetHandler.Request)
		r.Post("/api/password-reset/confirm", resetHandler.Confirm)
	})

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware([]byte(deps.Config.SecretKey), deps.Logger))

		r.Route("/api/user/me", func(r chi.Router) {
			r.Get("/", userHandler.Me)
			r.Patch("/", userHandler.UpdateMe)
			r.Delete("/", userHandler.DeleteMe)
		})

		r.Route("/api/credentials", func(r chi.Router) {
			r.Get("/", credHandler.List)
			r.Post("/", credHandler.Create)
			r.Put("/", credHandler.UpdateSecret)
			r.Delete("/", credHandler.Delete)
			r.Get("/secret", credHandler.ReadSecret)
			r.Put("/all", credHandler.ReplaceAll)
			r.Get("/export", credHandler.Export)
			r.Post("/backup", credHandler.Backup)
		})

		r.Route("/api/devices", func(r chi.Router) {
			r.Get("/", deviceHandler.List)
			r.Put("/{deviceID}", deviceHandler.Upsert)
			r.Delete("/{deviceID}", deviceHandler.Delete)
		})
	})

	return r
}

// healthHandler reports liveness and database reachability.
func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
