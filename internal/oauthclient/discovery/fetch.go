// Package discovery implements OAuth 2.1 Protected Resource Metadata
// (RFC 9728) and Authorization Server Metadata (RFC 8414) discovery: the
// ordered URL fallback chains, per-URL fetch policy, issuer validation,
// and endpoint safety checks of spec.md §4.6.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/clienterr"
)

// HTTPDoer is the injectable HTTP client seam (spec §6 HTTPClient),
// satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// headerAccept / headerMCPProtocolVersion are the headers every
// discovery fetch sends (spec §4.6 "per-URL fetch policy").
const (
	headerAccept              = "Accept"
	headerMCPProtocolVersion  = "Mcp-Protocol-Version"
	acceptJSON                = "application/json"
)

// fetchOutcome distinguishes "try the next URL" from "stop the chain".
type fetchOutcome int

const (
	outcomeSuccess fetchOutcome = iota
	outcomeContinue
	outcomeStop
)

// fetchJSON applies the shared per-URL fetch policy of spec §4.6:
//   - 200 with a body that decodes into dst -> success, stop.
//   - 200 with a body that fails to decode, or any 4xx -> continue.
//   - 5xx or a transport error -> stop, return failure immediately.
func fetchJSON(ctx context.Context, client HTTPDoer, protocolVersion, url string, dst any) (fetchOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return outcomeStop, clienterr.NewDiscoveryFailedError("fetchJSON", url, err)
	}
	req.Header.Set(headerAccept, acceptJSON)
	if protocolVersion != "" {
		req.Header.Set(headerMCPProtocolVersion, protocolVersion)
	}

	resp, err := client.Do(req)
	if err != nil {
		return outcomeStop, clienterr.NewDiscoveryFailedError("fetchJSON", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return outcomeStop, clienterr.NewDiscoveryFailedError("fetchJSON", url,
			fmt.Errorf("server error: status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return outcomeContinue, nil
	case resp.StatusCode != http.StatusOK:
		return outcomeContinue, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return outcomeContinue, nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return outcomeContinue, nil
	}
	return outcomeSuccess, nil
}

// originOf returns scheme://host (no path) for building well-known URLs.
func originOf(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("discovery: invalid url %q: %w", serverURL, err)
	}
	return u.Scheme + "://" + u.Host, nil
}

// pathOf returns the non-root path component of serverURL, or "" if the
// path is empty or "/".
func pathOf(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("discovery: invalid url %q: %w", serverURL, err)
	}
	if u.Path == "/" {
		return "", nil
	}
	return u.Path, nil
}
