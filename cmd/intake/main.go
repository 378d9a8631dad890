package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hospiceconnect/intake/pkg/api"
	"github.com/hospiceconnect/intake/pkg/config"
	"github.com/hospiceconnect/intake/pkg/intake"
	"github.com/hospiceconnect/intake/pkg/mail"
	"github.com/hospiceconnect/intake/pkg/store"
	"github.com/hospiceconnect/intake/pkg/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		debug      bool
		configPath string
	)
	flag.BoolVar(&debug, "debug", getEnvBool("INTAKE_DEBUG", false), "Enable debug level logging and CORS for local frontends")
	flag.StringVar(&configPath, "config-path", getEnvString("INTAKE_CONFIG_PATH", "./config.yaml"), "Path to the intake configuration file")
	flag.Parse()

	logger := newLogger(debug)
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	log.Infow("Starting intake service", "version", version.String())

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalw("Failed to load configuration", "error", err)
	}

	st, err := store.New(cfg.Database, log)
	if err != nil {
		log.Fatalw("Failed to open database", "error", err)
	}
	defer func() { _ = st.Close() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := st.Ping(startupCtx); err != nil {
		// Hosted databases come up independently of this process; keep
		// serving and let per-request errors surface until it recovers.
		log.Errorw("Error acquiring database connection", "error", err)
	} else {
		log.Infow("Connected to PostgreSQL database")
		if err := st.EnsureSchema(startupCtx); err != nil {
			log.Errorw("Failed to ensure submissions schema", "error", err)
		}
	}
	cancel()

	channel := mail.NewChannel(cfg.Mail, log)
	if channel.Configured() {
		verifyCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := channel.Verify(verifyCtx); err != nil {
			log.Errorw("Notification channel verification failed", "error", err)
		} else {
			log.Infow("Notification channel ready", "recipient", cfg.Mail.Recipient)
		}
		cancel()
	}

	auth := api.NewAuth(log, cfg.Server.AdminJWTSecret)
	server := api.NewServer(logger, cfg, debug)
	if err := server.RegisterAll([]api.APIController{
		intake.NewSubmissionController(st, channel, log),
		intake.NewAdminController(st, auth.Middleware(), log),
	}); err != nil {
		log.Fatalw("Failed to register API controllers", "error", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infow("Server running", "address", cfg.Server.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("HTTP server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Infow("Shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnw("Shutdown did not drain in time", "error", err)
	}
}

func newLogger(debug bool) *zap.Logger {
	if debug {
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}

// getEnvString returns the value of an environment variable, or the provided default if not set.
func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvBool returns the value of an environment variable as a bool, or the provided default if not set.
func getEnvBool(key string, defaultVal bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}
