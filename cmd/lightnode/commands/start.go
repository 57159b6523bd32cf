package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tendermint/lightnode/config"
	"github.com/tendermint/lightnode/libs/events"
	"github.com/tendermint/lightnode/libs/log"
	"github.com/tendermint/lightnode/libs/service"
	"github.com/tendermint/lightnode/light"
	lighthttp "github.com/tendermint/lightnode/light/provider/http"
	"github.com/tendermint/lightnode/types"
)

const (
	listenerID      = "lightnode"
	shutdownTimeout = 5 * time.Second
)

// MakeStartCommand returns the command that runs the light node until it is
// interrupted or verification fails.
func MakeStartCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Sync to the latest block of the primary and verify every new block",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runNode(ctx, conf, logger)
		},
	}
}

func runNode(ctx context.Context, conf *config.Config, logger log.Logger) error {
	lc := conf.Light
	if lc.ChainID == "" {
		return errors.New("no chain ID in the config; run lightnode init first")
	}
	cdc, err := lc.Codec()
	if err != nil {
		return err
	}
	statePath := lc.TrustedStatePath()
	trusted, err := readLightBlock(statePath)
	if err != nil {
		return fmt.Errorf("failed to load the trusted state: %w", err)
	}

	metrics := light.NopMetrics()
	if conf.Instrumentation.Prometheus {
		metrics = light.PrometheusMetrics(conf.Instrumentation.Namespace, "chain_id", lc.ChainID)
		srv := startPrometheusServer(conf.Instrumentation, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				logger.Error("Prometheus HTTP server Shutdown", "err", err)
			}
		}()
	}

	p, err := lighthttp.New(lc.ChainID, lc.Primary,
		lighthttp.PerPage(lc.PerPage),
		lighthttp.Logger(logger.With("module", "provider")))
	if err != nil {
		return err
	}
	c, err := light.NewClient(lc.ChainID, trusted, p, cdc,
		light.Logger(logger.With("module", "light")),
		light.MaxClockDrift(lc.MaxClockDrift),
		light.MaxAge(lc.MaxAge),
		light.StrictAddresses(lc.StrictAddresses),
		light.WithMetrics(metrics),
	)
	if err != nil {
		_ = p.Close()
		return err
	}

	failed := make(chan error, 1)
	if err := c.Events().AddListenerForEvent(listenerID, light.EventError, func(data events.EventData) error {
		err, _ := data.(error)
		select {
		case failed <- err:
		default:
		}
		return nil
	}); err != nil {
		return err
	}
	if lc.SaveTrustedState {
		save := func(data events.EventData) error {
			lb, ok := data.(*types.LightBlock)
			if !ok {
				return nil
			}
			if err := writeLightBlock(statePath, lb); err != nil {
				logger.Error("Failed to save the trusted state", "height", lb.Height, "err", err)
				return err
			}
			return nil
		}
		for _, event := range []string{light.EventSynced, light.EventUpdate} {
			if err := c.Events().AddListenerForEvent(listenerID, event, save); err != nil {
				return err
			}
		}
	}

	logger.Info("Starting light node", "chainID", lc.ChainID, "primary", p, "trusted", trusted.Height)
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start the light client: %w", err)
	}

	select {
	case <-ctx.Done():
		logger.Info("Stopping light node", "height", c.LastTrustedHeight())
	case err := <-failed:
		stopClient(c, logger)
		return fmt.Errorf("light client failed at height %d: %w", c.LastTrustedHeight(), err)
	}
	stopClient(c, logger)
	return nil
}

// stopClient stops c unless cancelling the start context already did.
func stopClient(c *light.Client, logger log.Logger) {
	if err := c.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
		logger.Error("Failed to stop the light client", "err", err)
	}
}

// startPrometheusServer starts a Prometheus HTTP server, listening for
// metrics collectors on addr.
func startPrometheusServer(cfg *config.InstrumentationConfig, logger log.Logger) *http.Server {
	srv := &http.Server{
		Addr: cfg.PrometheusListenAddr,
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: cfg.MaxOpenConnections},
			),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// Error starting or closing listener:
			logger.Error("Prometheus HTTP server ListenAndServe", "err", err)
		}
	}()
	return srv
}
