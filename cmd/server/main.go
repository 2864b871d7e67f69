// Command tunevault-server starts the catalog gRPC server.
// Catalog calls use the "json" content subtype.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/tunevault/internal/config"
	"github.com/and161185/tunevault/internal/metrics"
	grpcserver "github.com/and161185/tunevault/internal/server/grpc"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, wires the catalog and serves gRPC plus /metrics until signalled.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, release, err := buildCatalog(ctx, cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("wire catalog", zap.Error(err))
	}
	defer release()

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.MetricsUnary(cat.Metrics),
			grpcserver.AuthUnary(cat.Auth),
			grpcserver.ErrorsUnary(),
		),
	}
	if cfg.TLSCert != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	} else {
		logger.Warn("TLS disabled")
	}
	s := grpc.NewServer(opts...)
	cat.API.Register(s)

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	var ms *http.Server
	if cfg.MetricsAddr != "" {
		ms = metrics.NewServer(cfg.MetricsAddr, prometheus.DefaultGatherer)
	}
	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", cfg.TLSCert != ""))
		errCh <- s.Serve(lis)
	}()
	if ms != nil {
		go func() {
			logger.Info("metrics listening", zap.String("addr", ms.Addr))
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	// Wait for stop
	select {
	case <-ctx.Done():
		hs.Shutdown()
		// graceful shutdown
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
		if ms != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = ms.Shutdown(sctx)
			cancel()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		release()
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
