package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skillwallet/internal/devbackend"
	"skillwallet/internal/platform/config"
	"skillwallet/internal/platform/logger"
	"skillwallet/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8000")
	uploadDir := config.GetEnv("UPLOAD_DIR", "uploaded_files")
	jwtSecret := config.GetEnv("JWT_SECRET", "dev-only-secret")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	repo := devbackend.NewInMemoryRepository(devbackend.NewWalletHash, devbackend.NewTokenID)

	var sender devbackend.OTPSender = &devbackend.LogSender{Log: log}
	twilioSID := config.GetEnv("TWILIO_ACCOUNT_SID", "")
	twilioToken := config.GetEnv("TWILIO_AUTH_TOKEN", "")
	twilioFrom := config.GetEnv("TWILIO_FROM_NUMBER", "")
	if twilioSID != "" && twilioToken != "" && twilioFrom != "" {
		sender = devbackend.NewTwilioSender(twilioSID, twilioToken, twilioFrom)
		log.Info("OTP delivery via Twilio", "from", twilioFrom)
	} else {
		log.Info("OTP delivery in dev mode, codes are logged")
	}

	svc := devbackend.NewService(repo, sender, log)
	issuer := devbackend.NewTokenIssuer(jwtSecret)
	met := metrics.New()
	h := devbackend.NewHandler(svc, repo, issuer, uploadDir, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() { met.SetRegisteredUsers(repo.UserCount()) }).ServeHTTP(w, req)
	})
	h.Routes(r)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("dev backend starting",
		"port", port,
		"upload_dir", uploadDir,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
