// cmd/devserver/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/galactic-uno/internal/auth"
	"github.com/jason-s-yu/galactic-uno/internal/config"
	"github.com/jason-s-yu/galactic-uno/internal/devserver"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()

	ttl, err := auth.ParseTokenTTL(config.GetEnv("TOKEN_EXPIRE_TIME", "never"))
	if err != nil {
		logger.Fatalf("token ttl: %v", err)
	}
	srv, err := devserver.New(devserver.Options{
		TokenTTL: ttl,
		Seed:     uint64(config.GetEnvInt("DEVSERVER_SEED", 0)),
	}, logger)
	if err != nil {
		logger.Fatalf("devserver: %v", err)
	}

	// clients verifying tokens locally read the key from here
	if path := cfg.AuthPublicKeyPath; path != "" {
		if err := os.WriteFile(path, srv.PublicKey(), 0o644); err != nil {
			logger.Fatalf("write public key: %v", err)
		}
		logger.Infof("public key written to %s", path)
	}

	addr := ":1731"
	if port := config.GetEnv("DEVSERVER_PORT", os.Getenv("PORT")); port != "" {
		addr = ":" + port
	}
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Infof("Running on %s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}
