package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/newtron-network/sairedis/pkg/server"
	"github.com/newtron-network/sairedis/pkg/util"
)

var (
	serveListen  string
	serveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API and metrics",
	Long: `Serve the object API over HTTP until interrupted.

Endpoints:
  GET    /healthz
  GET    /metrics
  GET    /v1/types, /v1/types/{type}
  GET    /v1/objects[?type=]
  POST   /v1/objects/{type}
  GET    /v1/objects/{type}/{oid}?attr=...
  PATCH  /v1/objects/{type}/{oid}
  DELETE /v1/objects/{type}/{oid}

Examples:
  sairedis serve
  sairedis serve --backend memory --listen 127.0.0.1:9090`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen := serveListen
		if listen == "" {
			listen = cfg.Server.Listen
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		sess, err := openSession(cfg, reg)
		if err != nil {
			return err
		}

		l, err := net.Listen("tcp", listen)
		if err != nil {
			return multierror.Append(fmt.Errorf("listen %s: %w", listen, err), sess.Close()).ErrorOrNil()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(sess.table, reg)
		errc := make(chan error, 1)
		go func() { errc <- srv.Serve(l) }()

		var result *multierror.Error
		select {
		case err := <-errc:
			result = multierror.Append(result, err)
		case <-ctx.Done():
			util.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), serveTimeout)
			defer cancel()
			result = multierror.Append(result, srv.Shutdown(shutdownCtx))
		}
		result = multierror.Append(result, sess.Close())
		return result.ErrorOrNil()
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (default from settings server.listen)")
	serveCmd.Flags().DurationVar(&serveTimeout, "shutdown-timeout", 10*time.Second, "Grace period for in-flight requests")
}
