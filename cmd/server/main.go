// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/Padelicious/internal/api/auth"
	"github.com/codr1/Padelicious/internal/booking"
	"github.com/codr1/Padelicious/internal/clock"
	"github.com/codr1/Padelicious/internal/config"
	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/email"
	"github.com/codr1/Padelicious/internal/lifecycle"
	"github.com/codr1/Padelicious/internal/notify"
	"github.com/codr1/Padelicious/internal/ratelimit"
	"github.com/codr1/Padelicious/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.DefaultContextLogger = &log.Logger
}

// buildNotifier fans out to every configured driver. The returned closer
// releases broker connections.
func buildNotifier(ctx context.Context, cfg *config.Config, clk *clock.Clock, cancelLeadDays int) (notify.Notifier, func(), error) {
	var (
		notifiers notify.Multi
		closers   []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	for _, driver := range cfg.Notifications.Drivers {
		switch driver {
		case "log":
			notifiers = append(notifiers, notify.LogNotifier{})
		case "ses":
			client, err := email.NewSESClient(ctx, email.SESConfig{
				Region:          cfg.Notifications.SES.Region,
				Sender:          cfg.Notifications.SES.Sender,
				AccessKeyID:     cfg.Notifications.SES.AccessKeyID,
				SecretAccessKey: cfg.Notifications.SES.SecretAccessKey,
			})
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("ses notifier: %w", err)
			}
			notifiers = append(notifiers, email.NewNotifier(client, clk, cfg.App.Name, cancelLeadDays))
		case "amqp":
			publisher, err := notify.DialAMQP(cfg.Notifications.AMQP.URL, cfg.Notifications.AMQP.Exchange)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("amqp notifier: %w", err)
			}
			closers = append(closers, func() {
				if err := publisher.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close AMQP notifier")
				}
			})
			notifiers = append(notifiers, publisher)
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown notification driver %q", driver)
		}
	}

	log.Info().Strs("drivers", cfg.Notifications.Drivers).Msg("Notifiers configured")
	return notifiers, closeAll, nil
}

func buildPolicy(cfg config.BookingConfig) (booking.Policy, error) {
	opensAt, err := clock.ParseTimeOfDay(cfg.OpensAt)
	if err != nil {
		return booking.Policy{}, fmt.Errorf("opens_at: %w", err)
	}
	closesAt, err := clock.ParseTimeOfDay(cfg.ClosesAt)
	if err != nil {
		return booking.Policy{}, fmt.Errorf("closes_at: %w", err)
	}
	return booking.Policy{
		OpensAt:         opensAt,
		ClosesAt:        closesAt,
		MinLeadDays:     cfg.MinLeadDays,
		CancelLeadDays:  cfg.CancelLeadDays,
		DailyCapMinutes: cfg.DailyCapMinutes,
	}, nil
}

// catchUp runs the state sweeps once so reservations that ended or expired
// while the server was down are retired before traffic arrives.
func catchUp(ctx context.Context, sweeper *lifecycle.Sweeper) {
	logger := log.With().Str("component", "startup_sweep").Logger()
	if res, err := sweeper.CompleteFinished(ctx); err != nil {
		logger.Error().Err(err).Msg("Completion catch-up failed")
	} else {
		logger.Info().Int("processed", res.Processed).Msg("Completion catch-up finished")
	}
	if res, err := sweeper.ArchiveUnconfirmed(ctx); err != nil {
		logger.Error().Err(err).Msg("Archival catch-up failed")
	} else {
		logger.Info().Int("processed", res.Processed).Msg("Archival catch-up finished")
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	setupLogger(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	realClock := clockwork.NewRealClock()
	clk, err := clock.New(realClock, cfg.Booking.Timezone)
	if err != nil {
		return err
	}

	policy, err := buildPolicy(cfg.Booking)
	if err != nil {
		return err
	}

	notifier, closeNotifier, err := buildNotifier(ctx, cfg, clk, policy.CancelLeadDays)
	if err != nil {
		return err
	}
	defer closeNotifier()

	bookingService, err := booking.NewService(database, clk, policy, notifier)
	if err != nil {
		return err
	}
	sweeper, err := lifecycle.NewSweeper(database, clk, notifier)
	if err != nil {
		return err
	}
	catchUp(ctx, sweeper)

	jobs, err := scheduler.New(clk, cfg.JobTimeout())
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	if err := scheduler.RegisterLifecycleJobs(jobs, sweeper, scheduler.LifecycleCrons{
		Completion: cfg.Scheduler.CompletionCron,
		Archival:   cfg.Scheduler.ArchivalCron,
		Reminders:  cfg.Scheduler.ReminderCron,
	}); err != nil {
		return err
	}

	secretKey := cfg.App.SecretKey
	if secretKey == "" {
		// Validate only allows this in development; sessions die with the process.
		secretKey = uuid.NewString()
		log.Warn().Msg("APP_SECRET_KEY not set, using an ephemeral session key")
	}
	sessions, err := auth.NewSessions(secretKey, cfg.App.Environment != "development", realClock)
	if err != nil {
		return fmt.Errorf("create sessions: %w", err)
	}

	loginLimiter := ratelimit.New(&ratelimit.Config{Clock: realClock})
	defer loginLimiter.Close()

	server := newServer(cfg.App.Port, serverDeps{
		DB:         database,
		Booking:    bookingService,
		Sessions:   sessions,
		Limiter:    loginLimiter,
		Jobs:       jobs,
		TrustProxy: cfg.App.TrustProxy,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Msg("Starting server")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		jobs.Start()
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown error: %w", err))
		}
		if err := jobs.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
		}
		bookingService.Wait()
		return errors.Join(errs...)
	})

	return g.Wait()
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
