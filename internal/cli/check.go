package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskminder/internal/config"
	"taskminder/internal/database"
	"taskminder/internal/logging"
	"taskminder/internal/metrics"
	"taskminder/internal/scheduler"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newCheckCmd(open appOpener) *cobra.Command {
	var mark bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show tasks that are due now",
		Long:  "Show tasks that are due now. With --mark, record them as run and print their reminders.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			now := time.Now()

			if !mark {
				tasks, err := a.store.Load(cmd.Context())
				if err != nil {
					return err
				}
				due := scheduler.Due(tasks, now)
				if len(due) == 0 {
					fmt.Fprintln(out, "No tasks due.")
					return nil
				}
				for _, task := range due {
					fmt.Fprintf(out, "Due: %s\n", describe(task))
				}
				return nil
			}

			notifier := scheduler.NewWriterNotifier(out, a.cfg.Scheduler.NotifyRPS, a.cfg.Scheduler.NotifyBurst)
			checker := scheduler.NewChecker(a.store, a.bus, notifier, a.cfg.Scheduler.CheckInterval,
				logging.Component(a.logger, "scheduler"))
			due, err := checker.RunOnce(cmd.Context(), now)
			if err != nil {
				return err
			}
			if len(due) == 0 {
				fmt.Fprintln(out, "No tasks due.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&mark, "mark", "m", false, "Mark due tasks as run")
	return cmd
}

func newWatchCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Check tasks periodically until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.cfg.Monitoring.PrometheusEnabled {
				metrics.Register()
				go startMetricsServer(ctx, a.cfg.Monitoring.PrometheusPort, logging.Component(a.logger, "metrics"))
			}

			if a.cfg.Backup.Enabled && a.cfg.Storage.Backend != config.BackendMemory {
				backupService := database.NewBackupService(a.cfg.Storage.Backend, a.storePath, a.cfg.Backup,
					logging.Component(a.logger, "backup"))
				go backupService.Start(ctx)
			}

			notifier := scheduler.NewWriterNotifier(cmd.OutOrStdout(), a.cfg.Scheduler.NotifyRPS, a.cfg.Scheduler.NotifyBurst)
			checker := scheduler.NewChecker(a.store, a.bus, notifier, a.cfg.Scheduler.CheckInterval,
				logging.Component(a.logger, "scheduler"))
			checker.Start(ctx)

			a.logger.Info().Msg("Shutdown complete.")
			return nil
		},
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	logger.Info().Int("port", port).Msg("Metrics server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
