// Package server constructs and stops the admin HTTP service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// CreateAdminServer configures the HTTP server for the admin surface.
// There are no blanket read/write timeouts: the event feed holds its
// WebSocket open indefinitely. Header reads are still bounded.
func CreateAdminServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// ShutdownAdminServer gracefully shuts down the admin HTTP server,
// waiting for in-flight requests up to the timeout.
func ShutdownAdminServer(srv *http.Server, timeout time.Duration, log logrus.FieldLogger) error {
	log.Info("shutting down admin HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("admin HTTP server shutdown error")
		return err
	}

	log.Info("admin HTTP server shutdown completed")
	return nil
}
