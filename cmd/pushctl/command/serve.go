package command

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DrmagicE/pushstore/store"
)

// NewServeCmd creates the serve command, which keeps a store opened and exposes its metrics.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open the persistence and serve its prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			w := cmd.OutOrStdout()
			c, err := loadConfig(w)
			if err != nil {
				return err
			}
			s, log, err := openStore(ctx, w, store.WithRegisterer(prometheus.DefaultRegisterer))
			if err != nil {
				return err
			}
			defer s.Close()

			network, address := c.Metrics.Network()
			ln, err := net.Listen(network, address)
			if err != nil {
				return err
			}
			mu := http.NewServeMux()
			mu.Handle(c.Metrics.Path, promhttp.Handler())
			srv := &http.Server{Handler: mu}
			errCh := make(chan error, 1)
			go func() {
				err := srv.Serve(ln)
				if err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()
			log.Info("metrics served",
				zap.String("listen_address", c.Metrics.ListenAddress),
				zap.String("path", c.Metrics.Path))

			stopSignalCh := make(chan os.Signal, 1)
			signal.Notify(stopSignalCh, os.Interrupt, syscall.SIGTERM)
			select {
			case err = <-errCh:
				return err
			case <-stopSignalCh:
			}
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			log.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	return cmd
}
