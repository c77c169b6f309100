package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-timepay-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-timepay-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-timepay-go/internal/service/attendance"
	compensationService "github.com/cmlabs-hris/hris-timepay-go/internal/service/compensation"
	notificationService "github.com/cmlabs-hris/hris-timepay-go/internal/service/notification"
	payrollService "github.com/cmlabs-hris/hris-timepay-go/internal/service/payroll"
	"github.com/go-chi/httplog/v3"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolOptions{MaxConns: cfg.Database.MaxConns})
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	metrics.Init()
	clk := clock.New(cfg.App.Timezone)
	transactor := postgresql.NewTransactor(db)

	employeeRepo := postgresql.NewEmployeeRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	adjustmentRepo := postgresql.NewAdjustmentRepository(db)
	officeNetworkRepo := postgresql.NewOfficeNetworkRepository(db)
	compensationRepo := postgresql.NewCompensationRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)

	hub := sse.NewHub()
	notificationSvc := notificationService.NewNotificationService(notificationRepo, hub, clk, notificationService.Config{
		BatchSize:     cfg.Notification.BatchSize,
		FlushInterval: cfg.Notification.FlushInterval,
		WorkerCount:   cfg.Notification.WorkerCount,
		QueueSize:     cfg.Notification.QueueSize,
	})

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	attendanceSvc := attendanceService.NewAttendanceService(
		transactor,
		attendanceRepo,
		adjustmentRepo,
		officeNetworkRepo,
		employeeRepo,
		attendanceService.NewNetworkPolicy(officeNetworkRepo),
		notificationSvc,
		clk,
		attendanceService.Config{
			Scheme:                cfg.Attendance.Scheme,
			DefaultScheduledHours: cfg.Attendance.DefaultScheduledHours,
			ElevatedBypassNetwork: cfg.Attendance.ElevatedBypassNetwork,
		},
	)
	compensationSvc := compensationService.NewCompensationService(transactor, compensationRepo, employeeRepo)
	payrollSvc := payrollService.NewPayrollService(
		transactor,
		payrollRepo,
		compensationRepo,
		employeeRepo,
		notificationSvc,
		clk,
		payrollService.Config{
			ProrationPolicy:    cfg.Payroll.ProrationPolicy,
			StandardHours:      cfg.Payroll.StandardHours,
			OvertimeMultiplier: cfg.Payroll.OvertimeMultiplier,
			Currency:           cfg.Payroll.Currency,
		},
	)

	router := appHTTP.NewRouter(ctx, appHTTP.RouterDeps{
		Logger:              logger,
		App:                 cfg.App,
		RateLimit:           cfg.RateLimit,
		JWTService:          JWTService,
		Employees:           employeeRepo,
		AttendanceHandler:   appHTTP.NewAttendanceHandler(attendanceSvc),
		CompensationHandler: appHTTP.NewCompensationHandler(compensationSvc),
		PayrollHandler:      appHTTP.NewPayrollHandler(payrollSvc),
		NotificationHandler: appHTTP.NewNotificationHandler(notificationSvc, JWTService),
	})

	scheduler := cron.NewScheduler()
	if cfg.Cron.Enabled {
		cron.NewAttendanceJobs(attendanceSvc, clk).RegisterJobs(scheduler, cfg.Cron.ReconcileInterval)
		cron.NewNotificationJobs(notificationSvc, cfg.Notification.Retention).RegisterJobs(scheduler)
		scheduler.Start()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env, "timezone", clk.Location().String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server error", "error", err)
		}
	}

	// Streams hold their connections open; end them before draining the server.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}

	if cfg.Cron.Enabled {
		scheduler.Stop()
	}
	notificationSvc.Stop()
	slog.Info("Server stopped")
}

func newLogger(app config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(app.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	logFormat := httplog.SchemaECS.Concise(app.Env != "production")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-timepay"),
		slog.String("version", app.Version),
		slog.String("env", app.Env),
	)
}
