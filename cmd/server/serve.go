package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jamesprial/mcp-oauth-2.1/internal/config"
	"github.com/jamesprial/mcp-oauth-2.1/internal/mcpserver"
	"github.com/jamesprial/mcp-oauth-2.1/internal/oauth"
	"github.com/jamesprial/mcp-oauth-2.1/internal/transport"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the OAuth 2.1 protected MCP resource server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("server configuration loaded",
		"addr", cfg.Addr,
		"base_url", cfg.BaseURL,
		"auth_servers", cfg.AuthorizationServers,
	)

	oauthCfg := &oauth.Config{
		BaseURL:              cfg.BaseURL,
		AuthorizationServers: cfg.AuthorizationServers,
		Audience:             cfg.Audience,
		ScopesSupported:      cfg.ScopesSupported,
		JWKSCacheTTL:         cfg.JWKSCacheTTL,
		ClockSkew:            cfg.ClockSkew,
	}

	tokenValidator, metadataService, scopeChecker, jwksClient := oauth.NewOAuthServices(oauthCfg)
	_ = scopeChecker // available for future per-route scope requirements
	_ = jwksClient   // available for manual key refresh

	slog.Info("oauth services initialized",
		"jwks_cache_ttl", cfg.JWKSCacheTTL,
		"clock_skew", cfg.ClockSkew,
	)

	transportCfg := &transport.Config{
		ServerConfig:    cfg,
		OAuthValidator:  tokenValidator,
		MetadataService: metadataService,
		MCPServer:       mcpserver.Config{Name: "mcp-oauth-2.1", Version: "2.0.0"},
	}

	server, _, err := transport.NewTransportServices(transportCfg)
	if err != nil {
		return fmt.Errorf("failed to create transport services: %w", err)
	}

	slog.Info("transport services initialized",
		"metadata_url", metadataService.GetMetadataURL(),
		"max_sessions", cfg.MaxSessions,
	)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		slog.Info("starting server", "addr", cfg.Addr)
		return server.Start()
	})
	group.Go(func() error {
		<-groupCtx.Done()
		slog.Info("shutdown signal received, stopping server gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}

	slog.Info("server stopped successfully")
	return nil
}
