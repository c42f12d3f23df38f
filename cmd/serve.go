package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/machinemessiah/tagify-sub000/internal/server"
	"github.com/machinemessiah/tagify-sub000/internal/services"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// Serve runs the long-lived operations server: /health, /metrics and, when a
// provider is configured, a /callback route that completes one authorization
// flow out of band.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	router := server.NewOpsRouter("tagify", r.logger)

	if svc, ok := r.remote.(services.OAuthService); ok {
		state, err := shared.GenerateState()
		if err != nil {
			return fmt.Errorf("failed to generate state token: %w", err)
		}
		handler := server.NewOAuthHandler(svc.GetOAuthConfig(), state)
		router.Handler(handler)

		go r.installTokens(handler)

		r.writePlain("→ Authorize at:\n  %s\n\n", svc.GetAuthURL(state))
	}

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("serving at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	r.writePlain("→ Serving /health and /metrics at http://%s\n", serverAddr)
	r.writePlain("  Press Ctrl+C to stop.\n")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		r.logger.Info("shutting down", "signal", sig.String())
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	r.writePlain("✓ Server stopped\n")
	return nil
}

// installTokens waits for the single authorization callback and installs the
// resulting token set into the config file and the live service.
func (r *Runner) installTokens(handler *server.OAuthHandler) {
	result, ok := <-handler.Result()
	if !ok {
		return
	}
	if err := result.Error(); err != nil {
		r.logger.Error("authorization callback failed", "error", err)
		return
	}
	if result.Token == nil {
		r.logger.Error("authorization callback returned no token")
		return
	}

	if err := r.saveTokens(result.Token); err != nil {
		r.logger.Warn("failed to persist tokens", "error", err)
	}

	if spotify, ok := r.remote.(*services.SpotifyService); ok && r.config != nil {
		if err := spotify.Authenticate(context.Background(), r.config.Credentials.Spotify.Map()); err != nil {
			r.logger.Warn("failed to install new tokens", "error", err)
			return
		}
	}

	r.logger.Info("authorization complete, tokens installed")
}
