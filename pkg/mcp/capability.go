package mcp

// ClientInfo / ServerInfo identify the two handshake participants.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DefaultClientInfo is used when a decoded InitializeParams omits
// clientInfo entirely (spec §4.4).
func DefaultClientInfo() ClientInfo {
	return ClientInfo{Name: "unknown", Version: "0.0.0"}
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Sub-capability structs. ListChanged is a pointer so "absent" (nil) is
// distinguishable from an explicit "false" on the wire; Merge fills nils
// with the documented true default before a capability set is sent.
type RootsCapability struct {
	ListChanged *bool `json:"listChanged,omitempty"`
}

type SamplingCapability struct{}

type ElicitationCapability struct{}

type ClientCapabilities struct {
	Roots       *RootsCapability       `json:"roots,omitempty"`
	Sampling    *SamplingCapability    `json:"sampling,omitempty"`
	Elicitation *ElicitationCapability `json:"elicitation,omitempty"`
}

type ToolsCapability struct {
	ListChanged *bool `json:"listChanged,omitempty"`
}

type ResourcesCapability struct {
	Subscribe   bool  `json:"subscribe,omitempty"`
	ListChanged *bool `json:"listChanged,omitempty"`
}

type PromptsCapability struct {
	ListChanged *bool `json:"listChanged,omitempty"`
}

type LoggingCapability struct{}

type ServerCapabilities struct {
	Tools     *ToolsCapability     `json:"tools,omitempty"`
	Resources *ResourcesCapability `json:"resources,omitempty"`
	Prompts   *PromptsCapability   `json:"prompts,omitempty"`
	Logging   *LoggingCapability   `json:"logging,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

// fillListChangedDefault fills a nil ListChanged pointer with true, the
// documented default for a present-but-unspecified sub-flag (spec §3).
func fillListChangedDefault(p **bool) {
	if *p == nil {
		*p = boolPtr(true)
	}
}

// InferredServerCapabilities is the set of capability-implying facts the
// caller has observed about its own registered handlers. The core has no
// opinion on what a "tool" or "resource" handler looks like (that is
// explicitly out of scope, spec §1); callers report which capability
// areas they have registered handlers for.
type InferredServerCapabilities struct {
	HasTools     bool
	HasResources bool
	HasPrompts   bool
	HasLogging   bool
}

// MergeServerCapabilities combines explicit configuration with handler-
// registration auto-inference per spec §4.4: auto-inference never
// overrides an explicit configuration entry, and fills listChanged
// defaults. The result is independent of handler registration order,
// since inference only ever adds a capability object when the explicit
// config left that slot nil.
func MergeServerCapabilities(explicit ServerCapabilities, inferred InferredServerCapabilities) ServerCapabilities {
	merged := explicit

	if merged.Tools == nil && inferred.HasTools {
		merged.Tools = &ToolsCapability{}
	}
	if merged.Tools != nil {
		fillListChangedDefault(&merged.Tools.ListChanged)
	}

	if merged.Resources == nil && inferred.HasResources {
		merged.Resources = &ResourcesCapability{}
	}
	if merged.Resources != nil {
		fillListChangedDefault(&merged.Resources.ListChanged)
	}

	if merged.Prompts == nil && inferred.HasPrompts {
		merged.Prompts = &PromptsCapability{}
	}
	if merged.Prompts != nil {
		fillListChangedDefault(&merged.Prompts.ListChanged)
	}

	if merged.Logging == nil && inferred.HasLogging {
		merged.Logging = &LoggingCapability{}
	}

	return merged
}

// InferredClientCapabilities mirrors InferredServerCapabilities for the
// client side (sampling/roots/elicitation handlers).
type InferredClientCapabilities struct {
	HasSampling    bool
	HasRoots       bool
	HasElicitation bool
}

// MergeClientCapabilities is the client-side analogue of
// MergeServerCapabilities.
func MergeClientCapabilities(explicit ClientCapabilities, inferred InferredClientCapabilities) ClientCapabilities {
	merged := explicit

	if merged.Roots == nil && inferred.HasRoots {
		merged.Roots = &RootsCapability{}
	}
	if merged.Roots != nil {
		fillListChangedDefault(&merged.Roots.ListChanged)
	}

	if merged.Sampling == nil && inferred.HasSampling {
		merged.Sampling = &SamplingCapability{}
	}

	if merged.Elicitation == nil && inferred.HasElicitation {
		merged.Elicitation = &ElicitationCapability{}
	}

	return merged
}

// HasCapability reports whether a server advertised the named top-level
// capability ("tools", "resources", "prompts", "logging"). The session
// engine's notification gating does not call it; it keeps its own
// method-to-capability table.
func (c ServerCapabilities) HasCapability(name string) bool {
	switch name {
	case "tools":
		return c.Tools != nil
	case "resources":
		return c.Resources != nil
	case "prompts":
		return c.Prompts != nil
	case "logging":
		return c.Logging != nil
	default:
		return false
	}
}

// InitializeParams is the payload of the "initialize" request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      ClientInfo         `json:"clientInfo"`
}

// InitializeResult is the payload of a successful "initialize" response.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}
