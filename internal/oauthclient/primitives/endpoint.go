package primitives

import (
	"fmt"
	"net/url"
)

// localhostHosts are the only hostnames an http:// endpoint may use
// (spec §4.5): everything else must be https.
var localhostHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// ValidateEndpointSafety rejects any URL that is not https, or http to
// one of the localhost loopback hosts. Applied before any HTTP request
// derived from discovered metadata, so a malicious metadata document
// cannot redirect the client to javascript:/data:/arbitrary-http URLs.
func ValidateEndpointSafety(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("primitives: invalid endpoint url: %w", err)
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if localhostHosts[u.Hostname()] {
			return nil
		}
		return fmt.Errorf("primitives: http scheme only permitted for localhost, got host %q", u.Hostname())
	default:
		return fmt.Errorf("primitives: unsupported endpoint scheme %q", u.Scheme)
	}
}
