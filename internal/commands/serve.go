package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitwallet/internal/config"
	"github.com/mmynk/splitwallet/internal/ledger"
	"github.com/mmynk/splitwallet/internal/middleware"
	"github.com/mmynk/splitwallet/internal/service"
	"github.com/mmynk/splitwallet/internal/storage"
)

func newServeCommand(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Connect ledger server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			slog.Info("Storage initialized", "database", cfg.DBPath)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, store)
		},
	}
}

// newHandler builds the full HTTP handler: the ledger service, /metrics and
// request logging, served over h2c.
func newHandler(cfg *config.Config, store storage.Store, reg *prometheus.Registry) http.Handler {
	l := ledger.New(store, ledger.WithMetrics(ledger.NewMetrics(reg)))

	var svcOpts []service.Option
	if cfg.StrictAllocation {
		svcOpts = append(svcOpts, service.WithStrictAllocation())
	}
	svc := service.NewLedgerService(store, l, svcOpts...)

	mux := http.NewServeMux()
	path, handler := service.NewLedgerServiceHandler(svc,
		connect.WithInterceptors(middleware.LoggingInterceptor()),
	)
	mux.Handle(path, handler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// h2c serves HTTP/2 without TLS, which Connect's gRPC protocol needs.
	return h2c.NewHandler(middleware.RequestLogger(mux), &http2.Server{})
}

func runServer(ctx context.Context, cfg *config.Config, store storage.Store) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newHandler(cfg, store, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting",
			"address", srv.Addr,
			"url", fmt.Sprintf("http://localhost%s", srv.Addr),
			"strict_allocation", cfg.StrictAllocation,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
