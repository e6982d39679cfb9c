package primitives

import (
	"fmt"
	"net/url"
	"strings"
)

// CanonicalizeResourceURL implements the RFC 8707 canonicalization rule
// of spec.md §4.5: lowercase scheme and host, drop fragment, drop
// default ports, preserve path/query/trailing slash.
func CanonicalizeResourceURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("primitives: invalid resource url: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = canonicalizeHost(u.Scheme, u.Host)
	u.Fragment = ""
	return u.String(), nil
}

func canonicalizeHost(scheme, host string) string {
	hostname := host
	port := ""
	if idx := strings.LastIndex(host, ":"); idx != -1 && !strings.Contains(host[idx+1:], "]") {
		hostname, port = host[:idx], host[idx+1:]
	}
	hostname = strings.ToLower(hostname)
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port == "" {
		return hostname
	}
	return hostname + ":" + port
}

// ResourceURLMatches implements the hierarchical match of spec.md §4.5:
// scheme, host, and effective port must be equal; the requested path
// (with a trailing "/" appended) must have the configured path plus a
// trailing "/" as a prefix. An empty configured path matches any path.
func ResourceURLMatches(requested, configured string) (bool, error) {
	req, err := url.Parse(requested)
	if err != nil {
		return false, fmt.Errorf("primitives: invalid requested url: %w", err)
	}
	cfg, err := url.Parse(configured)
	if err != nil {
		return false, fmt.Errorf("primitives: invalid configured url: %w", err)
	}

	if !strings.EqualFold(req.Scheme, cfg.Scheme) {
		return false, nil
	}
	if canonicalizeHost(strings.ToLower(req.Scheme), req.Host) != canonicalizeHost(strings.ToLower(cfg.Scheme), cfg.Host) {
		return false, nil
	}

	cfgPath := cfg.Path
	if cfgPath == "" {
		return true, nil
	}

	reqWithSlash := ensureTrailingSlash(req.Path)
	cfgWithSlash := ensureTrailingSlash(cfgPath)
	return strings.HasPrefix(reqWithSlash, cfgWithSlash), nil
}

func ensureTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// SelectResource implements the §4.5 "select resource" rule: prefer the
// PRM-advertised resource when it is a hierarchical parent of the
// canonical server URL, else fall back to the server URL itself.
func SelectResource(prmResource, canonicalServerURL string) (string, error) {
	if prmResource == "" {
		return canonicalServerURL, nil
	}
	matches, err := ResourceURLMatches(canonicalServerURL, prmResource)
	if err != nil {
		return "", err
	}
	if matches {
		return prmResource, nil
	}
	return canonicalServerURL, nil
}
