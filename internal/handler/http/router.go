package http

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

// RouterOptions labels the access log.
type RouterOptions struct {
	AppName  string
	Version  string
	Env      string
	LogLevel slog.Level
}

func NewRouter(opts RouterOptions, opsHandler OpsHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", opts.AppName),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/ops", func(r chi.Router) {
		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/", opsHandler.SchedulerStatus)
			r.Post("/jobs/{name}/run", opsHandler.RunJob)
		})

		r.Post("/reconciliation", opsHandler.RunReconciliation)
		r.Post("/status-derivation", opsHandler.RunStatusDerivation)
		r.Get("/open-sessions", opsHandler.OpenSessions)

		r.Route("/employees/{employeeID}", func(r chi.Router) {
			r.Route("/attendance", func(r chi.Router) {
				r.Get("/", opsHandler.ListAttendance)
				r.Get("/stats", opsHandler.AttendanceStats)
			})
			r.Get("/status", opsHandler.DeriveStatus)
			r.Get("/current-session", opsHandler.CurrentSession)

			r.Group(func(r chi.Router) {
				r.Use(chiMiddleware.AllowContentType("application/json"))
				r.Post("/manual-sessions", opsHandler.AddManualSession)
			})
		})
	})
	return r
}
