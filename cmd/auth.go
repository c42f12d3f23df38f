package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/machinemessiah/tagify-sub000/internal/server"
	"github.com/machinemessiah/tagify-sub000/internal/services"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// AuthLogin performs the OAuth2 authorization-code flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// exchanges the auth code for tokens saved into the config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if config == nil {
		var err error
		if _, statErr := os.Stat(configPath); statErr == nil {
			config, err = shared.LoadConfig(configPath)
			if err != nil {
				r.logger.Warnf("failed to load config, using defaults %v", err)
				config = shared.DefaultConfig()
			}
		} else {
			config = shared.DefaultConfig()
		}
	}

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, configPath)
	}

	spotifyService, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}
	spotifyService.SetLogger(r.logger)
	spotifyService.SetRateInterval(config.Sync.RateInterval())
	spotifyService.SetPageSize(config.Sync.PageSize)

	token, err := r.doOAuth(config, spotifyService, "authorization")
	if err != nil {
		return err
	}

	r.config = config
	r.configPath = configPath
	if err := r.saveTokens(token); err != nil {
		return err
	}

	if err := spotifyService.Authenticate(ctx, config.Credentials.Spotify.Map()); err != nil {
		return fmt.Errorf("failed to install new tokens: %w", err)
	}
	spotifyService.SetTokenRefreshCallback(func(refreshed *oauth2.Token) {
		if err := r.saveTokens(refreshed); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		}
	})

	r.remote = spotifyService
	if r.engine != nil {
		r.engine.SetRemote(spotifyService)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now use: tagify playlist list\n")

	return nil
}

// AuthStatus reports the stored token state and, when the tokens work,
// the authenticated Spotify profile.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify

	r.writePlainHeader("Authentication Status")

	if creds.ClientID == "" || creds.ClientSecret == "" {
		r.writePlain("Credentials: not configured\n")
		r.writePlain("\nAdd client_id and client_secret to the config, then run 'tagify auth login'.\n")
		return nil
	}
	r.writePlain("Credentials: configured\n")

	token := creds.Token()
	if token == nil {
		r.writePlain("Tokens:      none\n")
		r.writePlain("\nRun 'tagify auth login' to authorize.\n")
		return nil
	}

	if !creds.TokenExpiry.IsZero() && creds.TokenExpiry.Before(time.Now()) {
		r.writePlain("Tokens:      expired %s\n", creds.TokenExpiry.Format(time.RFC3339))
		if creds.RefreshToken != "" {
			r.writePlain("             refresh token present, commands will renew automatically\n")
		}
	} else {
		r.writePlain("Tokens:      valid\n")
		if !creds.TokenExpiry.IsZero() {
			r.writePlain("Expires:     %s\n", creds.TokenExpiry.Format(time.RFC3339))
		}
	}

	if svc, ok := r.remote.(*services.SpotifyService); ok {
		profileCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if profile, err := svc.UserProfile(profileCtx); err == nil {
			r.writePlain("Account:     %s (%s)\n", profile.DisplayName, profile.ID)
		} else {
			r.writePlain("Account:     unavailable (%v)\n", err)
		}
	}

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
