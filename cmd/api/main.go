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

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/leave"
	appHTTP "github.com/cmlabs-hris/attendance-engine/internal/handler/http"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/calendar"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-engine/internal/service/attendance"
)

const (
	appName    = "attendance-engine"
	appVersion = "v1.0.0"
)

// stores are the persistence ports the services depend on.
type stores struct {
	days      attendance.DayRepository
	directory employee.Directory
	requests  leave.RequestReader
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})).With(
		slog.String("app", appName),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()

	st, err := openStores(ctx, cfg, clk)
	if err != nil {
		slog.Error("Failed to initialize storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer st.close()

	guard, closeGuard, err := openRunGuard(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize run guard", "error", err)
		os.Exit(1)
	}
	defer closeGuard()

	policy := calendar.NewWeeklyPolicy(cfg.Attendance.RestDays, cfg.Attendance.Holidays)

	sessionService := attendanceService.NewSessionService(st.days, clk, cfg.Attendance)
	statusService := attendanceService.NewStatusService(st.days, st.directory, st.requests, policy, clk, cfg.Attendance)
	reconciliationService := attendanceService.NewReconciliationService(st.days, clk, cfg.Attendance)
	queryService := attendanceService.NewQueryService(st.days, st.requests, policy, clk, cfg.Attendance)

	scheduler := cron.NewScheduler()
	attendanceJobs := cron.NewAttendanceJobs(reconciliationService, statusService, guard, cfg.Attendance.Location, cfg.Scheduler.ClaimTTL)
	if err := attendanceJobs.RegisterJobs(scheduler, cfg.Scheduler); err != nil {
		slog.Error("Failed to register attendance jobs", "error", err)
		os.Exit(1)
	}
	if cfg.Scheduler.Enabled {
		if err := scheduler.Start(); err != nil {
			slog.Error("Failed to start scheduler", "error", err)
			os.Exit(1)
		}
		defer scheduler.Stop()
	} else {
		slog.Warn("Scheduler disabled, jobs only run through /ops triggers")
	}

	opsHandler := appHTTP.NewOpsHandler(
		sessionService,
		statusService,
		reconciliationService,
		queryService,
		scheduler,
		clk,
		cfg.Attendance.Location,
	)
	router := appHTTP.NewRouter(appHTTP.RouterOptions{
		AppName:  appName,
		Version:  appVersion,
		Env:      cfg.App.Env,
		LogLevel: cfg.SlogLevel(),
	}, opsHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "timezone", cfg.Attendance.Timezone, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutdown signal received, shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}

func openStores(ctx context.Context, cfg *config.Config, clk clock.Clock) (stores, error) {
	switch cfg.Storage.Driver {
	case "memory":
		slog.Warn("Using in-memory storage, attendance data is lost on restart")
		return stores{
			days:      memory.NewDayRepository(clk),
			directory: memory.NewEmployeeDirectory(),
			requests:  memory.NewRequestStore(),
			close:     func() {},
		}, nil
	default:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return stores{}, fmt.Errorf("connect to database: %w", err)
		}
		if cfg.Storage.AutoMigrate {
			if err := postgresql.Migrate(ctx, db); err != nil {
				db.Close()
				return stores{}, err
			}
		}
		return stores{
			days:      postgresql.NewAttendanceDayRepository(db),
			directory: postgresql.NewEmployeeDirectory(db),
			requests:  postgresql.NewLeaveRequestReader(db),
			close:     db.Close,
		}, nil
	}
}

func openRunGuard(ctx context.Context, cfg *config.Config) (lock.RunGuard, func(), error) {
	if !cfg.Redis.Enabled {
		return lock.Noop(), func() {}, nil
	}

	client, err := lock.NewRedisClient(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("Redis run guard enabled", "addr", cfg.RedisAddr())
	return lock.NewRedisGuard(client, appName+":"), func() { _ = client.Close() }, nil
}
