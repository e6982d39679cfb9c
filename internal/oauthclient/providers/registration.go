package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/clienterr"
	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/primitives"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// ClientMetadata is the Dynamic Client Registration request body (RFC
// 7591), as POSTed to an AS's registration_endpoint.
type ClientMetadata struct {
	RedirectURIs            []string `json:"redirect_uris,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	ClientName              string   `json:"client_name,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

// registerClient performs Dynamic Client Registration (spec §4.7.1 step
// 3): POST client metadata to endpoint, accepting 200 or 201, decoding
// an OAuthTokenErrorResponse on any other status.
func registerClient(ctx context.Context, client HTTPDoer, endpoint string, metadata ClientMetadata) (*oauth.ClientInformation, error) {
	body, err := json.Marshal(metadata)
	if err != nil {
		return nil, clienterr.NewTokenRequestFailedError("registerClient", 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, clienterr.NewTokenRequestFailedError("registerClient", 0, err)
	}
	req.Header.Set("Content-Type", oauth.ContentTypeJSON)
	req.Header.Set("Accept", oauth.ContentTypeJSON)

	resp, err := client.Do(req)
	if err != nil {
		return nil, clienterr.NewTokenRequestFailedError("registerClient", 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, clienterr.NewTokenRequestFailedError("registerClient", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var tokenErr oauth.OAuthTokenErrorResponse
		_ = json.Unmarshal(raw, &tokenErr)
		return nil, clienterr.NewTokenRequestFailedError("registerClient", resp.StatusCode,
			&registrationFailedError{code: tokenErr.Error, description: tokenErr.ErrorDescription})
	}

	var info oauth.ClientInformation
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, clienterr.NewInvalidMetadataError("registerClient", endpoint, err)
	}
	return &info, nil
}

type registrationFailedError struct {
	code        string
	description string
}

func (e *registrationFailedError) Error() string {
	return "dynamic client registration failed: " + e.code + ": " + e.description
}

// validateCIMDURL implements the Client-ID Metadata Document rules of
// spec §4.7.1 step 3: HTTPS and a non-root path.
func validateCIMDURL(raw string) error {
	if err := primitives.ValidateEndpointSafety(raw); err != nil {
		return err
	}
	if !strings.HasPrefix(raw, "https://") {
		return &cimdInvalidError{reason: "must be https"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &cimdInvalidError{reason: "unparseable url"}
	}
	if u.Path == "" || u.Path == "/" {
		return &cimdInvalidError{reason: "must have a non-root path"}
	}
	return nil
}

type cimdInvalidError struct{ reason string }

func (e *cimdInvalidError) Error() string { return "cimd url invalid: " + e.reason }
