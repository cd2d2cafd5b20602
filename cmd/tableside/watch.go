package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/tableside/pkg/events"
	"github.com/cuemby/tableside/pkg/health"
	"github.com/cuemby/tableside/pkg/log"
	"github.com/cuemby/tableside/pkg/metrics"
	"github.com/cuemby/tableside/pkg/reconciler"
	"github.com/spf13/cobra"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the serving view refreshed",
		Long: `Refresh the serving reservations on an interval and print the view
after every refresh. With --metrics-addr, Prometheus metrics and health
endpoints are served while watching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, _ := cmd.Flags().GetDuration("interval")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.RefreshInterval
			}

			ctx, stop := signal.NotifyContext(a.context(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var srv *http.Server
			if metricsAddr != "" {
				srv = newMetricsServer(metricsAddr)
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Logger.Error().Err(err).Msg("metrics server failed")
					}
				}()
				fmt.Fprintf(a.out, "✓ Metrics on http://%s/metrics\n", metricsAddr)
			}

			return runWatch(ctx, a, interval, srv)
		},
	}
	cmd.Flags().Duration("interval", 30*time.Second, "refresh interval (defaults to refresh_interval from config)")
	cmd.Flags().String("metrics-addr", "", "address to serve /metrics, /health, /ready and /live on")
	return cmd
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func runWatch(ctx context.Context, a *app, interval time.Duration, srv *http.Server) error {
	sub := a.broker.Subscribe(events.EventCacheRefreshed, events.EventRefreshFailed)
	defer a.broker.Unsubscribe(sub)

	recon := reconciler.NewReconciler(a.board, a.broker, interval)

	monitorDone := make(chan struct{})
	if srv != nil {
		checkers := []health.Checker{health.NewStoreChecker(a.store), a.board}
		if tcp, err := health.NewTCPCheckerForURL(a.cfg.APIBaseURL); err == nil {
			checkers = append(checkers, tcp)
		}
		mon := health.NewMonitor(health.Config{
			Interval: interval,
			Timeout:  a.cfg.RequestTimeout,
			Retries:  3,
		}, checkers...)
		go func() {
			defer close(monitorDone)
			mon.Run(ctx)
		}()
	} else {
		close(monitorDone)
	}

	// First view right away instead of after one interval.
	if err := recon.Reconcile(ctx); err != nil {
		fmt.Fprintf(a.out, "✗ %v\n", err)
	}
	recon.Start()

	for {
		select {
		case e := <-sub:
			switch e.Type {
			case events.EventCacheRefreshed:
				fmt.Fprintf(a.out, "\n── %s ──\n", e.Timestamp.Format("15:04:05"))
				printReservations(a.out, a.printer, a.board.Current())
			case events.EventRefreshFailed:
				fmt.Fprintf(a.out, "✗ %s: %s\n", e.Message, e.Metadata[events.MetaError])
			}
		case <-ctx.Done():
			recon.Stop()
			<-monitorDone
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("failed to stop metrics server: %w", err)
				}
			}
			fmt.Fprintln(a.out, "✓ Stopped")
			return nil
		}
	}
}
