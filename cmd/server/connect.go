package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesprial/mcp-oauth-2.1/internal/config"
	"github.com/jamesprial/mcp-oauth-2.1/internal/mcptransport/httpsse"
	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/discovery"
	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/primitives"
	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/providers"
	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/storage"
	"github.com/jamesprial/mcp-oauth-2.1/internal/session"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/mcp"
)

func newConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect to an MCP server over streamable-HTTP using the client_credentials grant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(cmd.Context())
		},
	}
}

func runConnect(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.ClientServerURL == "" {
		return fmt.Errorf("MCP_CLIENT_SERVER_URL must be set to connect")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	provider := providers.NewClientCredentialsProvider(providers.ClientCredentialsConfig{
		ServerURL:       cfg.ClientServerURL,
		ClientID:        cfg.ClientID,
		ClientSecret:    cfg.ClientSecret,
		Storage:         storage.NewMemoryStorage(),
		DiscoveryCache:  discovery.NewCache(),
		HTTPClient:      httpClient,
		ProtocolVersion: cfg.ClientProtoVersion,
	})

	auth := &providerAuth{provider: provider}
	transport := httpsse.NewClient(cfg.ClientServerURL, httpClient, auth)
	defer func() { _ = transport.Disconnect() }()

	if err := transport.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	sess := session.New(transport)
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go func() { _ = sess.Run(runCtx) }()

	params := mcp.InitializeParams{
		ProtocolVersion: cfg.ClientProtoVersion,
		ClientInfo:      mcp.ClientInfo{Name: "mcp-oauth-2.1-cli", Version: "2.0.0"},
	}
	raw, err := sess.Call(ctx, "initialize", params)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	var result mcp.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("decoding initialize result: %w", err)
	}

	fmt.Printf("connected to %s %s (protocol %s)\n",
		result.ServerInfo.Name, result.ServerInfo.Version, result.ProtocolVersion)
	return nil
}

// providerAuth adapts an oauthclient providers.Provider (spec §4.7) onto
// the httpsse.AuthProvider seam the streamable-HTTP client transport
// uses to attach credentials and recover from 401 challenges.
type providerAuth struct {
	provider providers.Provider
}

func (a *providerAuth) Authorize(ctx context.Context, req *http.Request) error {
	tokens, err := a.provider.Tokens(ctx)
	if err != nil {
		return err
	}
	if tokens == nil {
		tokens, err = a.provider.HandleUnauthorized(ctx, providers.UnauthorizedContext{})
		if err != nil {
			return err
		}
	}
	req.Header.Set("Authorization", tokens.TokenType+" "+tokens.AccessToken)
	return nil
}

func (a *providerAuth) HandleUnauthorized(ctx context.Context, resp *http.Response) error {
	challenge, _ := primitives.FindChallenge(resp.Header.Get("WWW-Authenticate"), "Bearer")
	uctx := providers.UnauthorizedContext{
		Challenge:           challenge,
		ResourceMetadataURL: challenge.Params["resource_metadata"],
		Scope:               challenge.Params["scope"],
	}
	_, err := a.provider.HandleUnauthorized(ctx, uctx)
	return err
}
