package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/machinemessiah/tagify-sub000/internal/services"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

const configPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warnf("failed to load %s, using defaults: %v", configPath, err)
		}
	}

	var remote services.Service
	var spotify *services.SpotifyService

	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
		if err != nil {
			logger.Warnf("spotify service unavailable: %v", err)
		} else {
			svc.SetLogger(logger)
			svc.SetRateInterval(config.Sync.RateInterval())
			svc.SetPageSize(config.Sync.PageSize)
			if config.Credentials.Spotify.Token() != nil {
				if err := svc.Authenticate(context.Background(), config.Credentials.Spotify.Map()); err != nil {
					logger.Warnf("stored spotify tokens rejected: %v", err)
				}
			}
			spotify = svc
			remote = svc
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Remote:     remote,
		Logger:     logger,
	})
	defer runner.Close()

	if spotify != nil {
		spotify.SetTokenRefreshCallback(func(token *oauth2.Token) {
			if err := runner.saveTokens(token); err != nil {
				logger.Warn("failed to persist refreshed token", "error", err)
			}
		})
	}

	app := &cli.Command{
		Name:     "tagify",
		Usage:    "Tag your library and keep smart playlists in sync",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			runner.Close()
			logger.Fatalf("application error: %v", err)
		}
	}
}
