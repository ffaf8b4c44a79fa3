package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/Tyrowin/cyberchat/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := pflag.String("config", "", "path to TOML config file")
	host := pflag.String("host", "", "chat listen host (overrides config)")
	port := pflag.Int("port", 0, "chat listen port (overrides config)")
	adminAddr := pflag.String("admin-addr", "", "admin HTTP listen address (overrides config)")
	logLevel := pflag.String("log-level", "", "log level: debug, info, warn, error")
	logFile := pflag.String("log-file", "", "also write logs to this file")
	pflag.Parse()

	// .env is optional; real environment variables win either way.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("failed to load .env file")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	applyFlags(cfg, *host, *port, *adminAddr, *logLevel, *logFile)

	log, logCloser, err := server.NewLogger(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to set up logging")
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	log.Info("starting Cyber Chat server")

	chatServer := server.NewServer(cfg, log)
	go chatServer.Events().Run()

	adminAPI := server.NewAdminAPI(chatServer, cfg, log)
	adminServer := server.CreateAdminServer(cfg.AdminAddr, adminAPI.Routes())

	errCh := make(chan error, 2)
	go func() {
		if err := chatServer.Serve(); err != nil {
			errCh <- err
		}
	}()
	go func() {
		log.WithField("addr", cfg.AdminAddr).Info("admin HTTP server listening")
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("server failed")
	}

	if err := chatServer.Shutdown(shutdownTimeout); err != nil {
		log.WithError(err).Warn("chat server did not shut down cleanly")
	}
	if err := server.ShutdownAdminServer(adminServer, shutdownTimeout, log); err != nil {
		log.WithError(err).Warn("admin server did not shut down cleanly")
	}
	chatServer.Events().Shutdown()

	log.Info("goodbye")
}

func loadConfig(path string) (*server.Config, error) {
	if path != "" {
		return server.LoadConfigFile(path)
	}
	return server.NewConfigFromEnv(), nil
}

func applyFlags(cfg *server.Config, host string, port int, adminAddr, logLevel, logFile string) {
	if host != "" {
		cfg.Host = host
	}
	if port > 0 {
		cfg.Port = port
	}
	if adminAddr != "" {
		cfg.AdminAddr = adminAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	cfg.Sanitize()
}
