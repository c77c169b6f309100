package http

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/hris-timepay-go/internal/config"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-timepay-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterDeps bundles what NewRouter wires together.
type RouterDeps struct {
	Logger              *slog.Logger
	App                 config.AppConfig
	RateLimit           config.RateLimitConfig
	JWTService          jwt.Service
	Employees           middleware.EmployeeProfiles
	AttendanceHandler   AttendanceHandler
	CompensationHandler CompensationHandler
	PayrollHandler      PayrollHandler
	NotificationHandler NotificationHandler
}

// NewRouter builds the API. ctx bounds background work owned by middleware.
func NewRouter(ctx context.Context, d RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.App.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(d.Logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(middleware.RealIP(d.App.TrustedProxies))
	r.Use(metrics.Instrument)
	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Handle("/metrics", metrics.Handler())

	a := d.AttendanceHandler
	c := d.CompensationHandler
	p := d.PayrollHandler
	n := d.NotificationHandler

	r.Route("/api/v1", func(r chi.Router) {
		// EventSource cannot send headers; the stream authenticates with ?token=
		r.Get("/notifications/stream", n.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(d.JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)
			if d.Employees != nil {
				r.Use(middleware.LinkEmployeeProfile(d.Employees))
			}

			r.Route("/attendances", func(r chi.Router) {
				r.Get("/", a.List)
				r.Get("/today", a.Today)
				r.Get("/network-status", a.NetworkStatus)
				r.Get("/my/summary", a.MySummary)
				r.Get("/team/summary", a.TeamSummary)
				r.Post("/clock-in", a.ClockIn)

				r.With(middleware.RateLimit(ctx, d.RateLimit.Burst, d.RateLimit.PerSecond)).
					Post("/check", a.Check)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireElevated)
					r.Post("/", a.Create)
					r.Post("/reconcile", a.Reconcile)
				})

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", a.Get)
					r.With(middleware.RequireElevated).Put("/", a.Update)
					r.With(middleware.RequireAdmin).Delete("/", a.Delete)
					r.Post("/clock-out", a.ClockOut)
					r.Get("/adjustments", a.ListAdjustments)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionAttendanceAdjust))
						r.Post("/adjust-paid-time", a.AdjustPaidTime)
					})
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionAttendanceApprove))
						r.Post("/approve", a.Approve)
						r.Post("/revoke-approval", a.RevokeApproval)
					})
				})
			})

			r.Route("/office-networks", func(r chi.Router) {
				r.Get("/", a.ListOfficeNetworks)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionNetworkManage))
					r.Post("/", a.CreateOfficeNetwork)
					r.Delete("/{id}", a.DeleteOfficeNetwork)
				})
			})

			r.Route("/compensations", func(r chi.Router) {
				r.Get("/", c.List)
				r.Get("/employee/{employeeID}", c.GetByEmployee)
				r.Get("/{id}", c.Get)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionCompensationManage))
					r.Post("/", c.Create)
					r.Delete("/{id}", c.Delete)
					r.Post("/{id}/components", c.AddComponent)
					r.Put("/{id}/components/{componentID}", c.UpdateComponent)
					r.Delete("/{id}/components/{componentID}", c.RemoveComponent)
					r.Post("/{id}/apply", c.ApplyToEmployee)
				})
			})

			r.Route("/payroll", func(r chi.Router) {
				r.Get("/records", p.ListRecords)
				r.Get("/records/{id}", p.GetRecord)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionPayrollManage))
					r.Get("/settings", p.GetSettings)
					r.Put("/settings", p.UpdateSettings)

					r.Get("/cycles", p.ListCycles)
					r.Post("/cycles", p.CreateCycle)
					r.Get("/cycles/{id}", p.GetCycle)
					r.Put("/cycles/{id}", p.UpdateCycle)
					r.Delete("/cycles/{id}", p.DeleteCycle)
				})

				r.With(middleware.RequirePermission(user.PermissionPayrollRun)).
					Post("/cycles/{id}/run", p.RunCycle)
				r.With(middleware.RequirePermission(user.PermissionReportsView)).
					Get("/report", p.Report)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", n.List)
				r.Get("/unread-count", n.UnreadCount)
				r.Post("/read", n.MarkAsRead)
				r.Post("/read-all", n.MarkAllAsRead)
				r.Post("/stream-token", n.GetStreamToken)
				r.Delete("/{id}", n.Delete)
			})
		})
	})
	return r
}
