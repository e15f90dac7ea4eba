package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"archivist/internal/api"
	"archivist/internal/config"
	"archivist/internal/health"
	"archivist/internal/logger"
	"archivist/internal/storage/sqlite"
)

func main() {
	cfg := config.Get()

	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		logrus.Fatalf("failed to set up logging: %v", err)
	}
	defer closer.Close()

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reporter := health.NewReporter(store, health.DefaultInterval)
	go reporter.Run(ctx)

	healthAddr := cfg.Health.Address()
	lis, err := net.Listen("tcp", healthAddr)
	if err != nil {
		logrus.Fatalf("failed to listen on %s: %v", healthAddr, err)
	}
	go func() {
		if err := health.Serve(ctx, health.NewGRPCServer(reporter), lis); err != nil {
			logrus.WithError(err).Error("health server stopped")
		}
	}()
	logrus.Infof("gRPC health service started on %s", healthAddr)

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           api.NewRouter(cfg, &api.Server{Library: store}, logrus.StandardLogger()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	idle := make(chan struct{})
	go func() {
		defer close(idle)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("http shutdown did not finish cleanly")
		}
	}()

	logrus.Infof("Archivist started on http://%s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatalf("failed to start web server: %v", err)
	}
	<-idle
	logrus.Info("Archivist stopped")
}
