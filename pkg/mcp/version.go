package mcp

// SupportedVersions lists protocol versions this core understands,
// ordered latest-first; lexicographic ordering matches chronological
// ordering because versions are YYYY-MM-DD strings (spec §3).
var SupportedVersions = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}

// PreferredVersion is the default-preferred version: the head of
// SupportedVersions.
func PreferredVersion() string {
	return SupportedVersions[0]
}

// VersionSupported reports whether v is in SupportedVersions.
func VersionSupported(v string) bool {
	for _, s := range SupportedVersions {
		if s == v {
			return true
		}
	}
	return false
}

// NegotiateServerVersion implements the server side of spec §4.4: if the
// client's preferred version is in the server's supported list, return
// it; else return the server's preferred version.
func NegotiateServerVersion(clientPreferred string, serverSupported []string) string {
	for _, v := range serverSupported {
		if v == clientPreferred {
			return clientPreferred
		}
	}
	if len(serverSupported) > 0 {
		return serverSupported[0]
	}
	return PreferredVersion()
}
