// Package mcpserver wires the built-in protocol-level request handlers
// (initialize, ping) onto a session.Session. High-level tool/prompt/
// resource registration is explicitly out of scope (spec §1); this
// package only covers the handshake every session needs regardless of
// what domain handlers an embedder layers on top.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jamesprial/mcp-oauth-2.1/internal/session"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/mcp"
)

// Config names this server for the initialize handshake.
type Config struct {
	Name    string
	Version string

	// Capabilities is merged with the registered-handler inference
	// (spec §4.4); a zero value advertises nothing beyond what
	// Register itself turns on.
	Capabilities mcp.ServerCapabilities
}

// Register installs the initialize/ping request handlers on sess,
// records the advertised capabilities on sess via
// SetAdvertisedCapabilities, and returns those capabilities.
func Register(sess *session.Session, cfg Config) mcp.ServerCapabilities {
	caps := mcp.MergeServerCapabilities(cfg.Capabilities, mcp.InferredServerCapabilities{
		HasLogging: true,
	})

	sess.RegisterRequestHandler("initialize", func(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
		var in mcp.InitializeParams
		if len(params) > 0 {
			if err := json.Unmarshal(params, &in); err != nil {
				return nil, fmt.Errorf("initialize: invalid params: %w", err)
			}
		}

		result := mcp.InitializeResult{
			ProtocolVersion: mcp.NegotiateServerVersion(in.ProtocolVersion, mcp.SupportedVersions),
			Capabilities:    caps,
			ServerInfo:      mcp.ServerInfo{Name: cfg.Name, Version: cfg.Version},
		}
		return json.Marshal(result)
	})

	sess.RegisterRequestHandler("ping", func(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(struct{}{})
	})

	sess.SetAdvertisedCapabilities(map[string]bool{
		"tools":     caps.Tools != nil,
		"resources": caps.Resources != nil,
		"prompts":   caps.Prompts != nil,
		"logging":   caps.Logging != nil,
	})

	return caps
}
