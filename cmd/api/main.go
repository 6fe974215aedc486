package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/config"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/payroll"
	appHTTP "github.com/cmlabs-hris/attendance-payroll/internal/handler/http"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/email"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/storage"
	"github.com/cmlabs-hris/attendance-payroll/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-payroll/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-payroll/internal/service/attendance"
	"github.com/cmlabs-hris/attendance-payroll/internal/service/file"
	notificationService "github.com/cmlabs-hris/attendance-payroll/internal/service/notification"
	payrollService "github.com/cmlabs-hris/attendance-payroll/internal/service/payroll"
	"github.com/go-chi/httplog/v3"
)

type repositories struct {
	employees   employee.EmployeeRepository
	attendances attendance.AttendanceRepository
	payrolls    payroll.PayrollRepository
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}

	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-payroll"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clk := clock.New(loc)

	accessExpiration, err := time.ParseDuration(cfg.JWT.AccessExpiration)
	if err != nil {
		return fmt.Errorf("invalid access token expiration: %w", err)
	}
	digestInterval, err := cfg.DigestInterval()
	if err != nil {
		return err
	}

	repos, err := openRepositories(ctx, cfg, loc)
	if err != nil {
		return err
	}
	defer repos.close()

	if cfg.App.SeedEmployeesFile != "" {
		if err := seedEmployees(ctx, repos.employees, cfg.App.SeedEmployeesFile, logger); err != nil {
			return err
		}
	}

	fileStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}

	hub := sse.NewHub()
	senders := []notification.Sender{hub}
	if cfg.Notification.SlackWebhookURL != "" {
		senders = append(senders, notificationService.NewSlackSender(cfg.Notification.SlackWebhookURL))
	} else {
		senders = append(senders, notificationService.NewLogSender(logger))
	}
	transport, err := openMailTransport(ctx, cfg.Email)
	if err != nil {
		return err
	}
	if transport != nil {
		mailer, err := email.NewSender(cfg.Email, repos.employees, transport)
		if err != nil {
			return err
		}
		senders = append(senders, mailer)
	}
	notifier := notificationService.NewNotificationService(logger, notificationService.Config{}, senders...)
	defer notifier.Stop()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, accessExpiration)
	fileService := file.NewFileService(fileStorage)

	attendanceSvc := attendanceService.NewAttendanceService(repos.attendances, repos.employees, fileService, notifier, clk)
	payrollSvc := payrollService.NewPayrollService(repos.payrolls, repos.attendances, repos.employees, notifier, clk)

	scheduler := cron.NewScheduler(logger, loc)
	if err := cron.NewAttendanceJobs(repos.attendances, notifier, clk).RegisterJobs(scheduler, digestInterval, cfg.Notification.DigestSchedule); err != nil {
		return fmt.Errorf("invalid DIGEST_SCHEDULE: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{Logger: logger, CORSOrigins: cfg.App.CORSOrigins},
		JWTService,
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewPayrollHandler(payrollSvc),
		appHTTP.NewNotificationHandler(hub),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.RegisterOnShutdown(hub.Close)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr, "store", cfg.App.Store, "storage", cfg.Storage.Type)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openRepositories(ctx context.Context, cfg *config.Config, loc *time.Location) (repositories, error) {
	if cfg.App.Store == "memory" {
		employees := memory.NewEmployeeRepository()
		return repositories{
			employees:   employees,
			attendances: memory.NewAttendanceRepository(employees),
			payrolls:    memory.NewPayrollRepository(employees),
			close:       func() {},
		}, nil
	}

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		return repositories{}, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := postgresql.Migrate(ctx, db); err != nil {
		db.Close()
		return repositories{}, fmt.Errorf("error migrating database: %w", err)
	}
	return repositories{
		employees:   postgresql.NewEmployeeRepository(db),
		attendances: postgresql.NewAttendanceRepository(db, loc),
		payrolls:    postgresql.NewPayrollRepository(db),
		close:       db.Close,
	}, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.FileStorage, error) {
	switch cfg.Storage.Type {
	case "local":
		s, err := storage.NewLocalStorage(cfg.Storage.BasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		return s, nil
	case "s3":
		s, err := storage.NewS3Storage(ctx, cfg.Storage.S3Bucket, cfg.Storage.S3Prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

// openMailTransport returns nil when email delivery is off.
func openMailTransport(ctx context.Context, cfg config.EmailConfig) (email.Transport, error) {
	switch cfg.Transport {
	case "ses":
		t, err := email.NewSESTransport(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ses transport: %w", err)
		}
		return t, nil
	case "smtp":
		if cfg.Host == "" {
			return nil, nil
		}
		return email.NewSMTPTransport(cfg.Host, cfg.Port, cfg.Username, cfg.Password), nil
	default:
		return nil, fmt.Errorf("unsupported email transport: %s", cfg.Transport)
	}
}
