package model

import "strings"

type KV struct {
	Key   string
	Value string
}

// BodyMode tags the request body variant. Anything the source collection
// declares beyond raw/urlencoded collapses to BodyNone during extraction and
// is reported through a notice instead of failing the conversion.
type BodyMode int

const (
	BodyNone BodyMode = iota
	BodyRaw
	BodyForm
)

type Body struct {
	Mode BodyMode

	// Raw is set only for BodyRaw. The text is carried verbatim; the emitter
	// must not reformat it.
	Raw string

	// Form is set only for BodyForm. Order is preserved (no map) to keep the
	// emitted document deterministic.
	Form []KV
}

// URL is the decomposed request URL. Raw is authoritative; the structured
// parts are either copied from the source's url object or derived from Raw.
type URL struct {
	Raw      string
	Protocol string   // without trailing ':'; empty means unknown
	Host     []string // dot-separated segments
	Path     []string // slash-separated segments, no empties
	Port     string   // empty means "use the protocol default"
}

// Domain joins the host segments back into the JMeter domain field.
func (u URL) Domain() string { return strings.Join(u.Host, ".") }

// PathString joins the path segments with a leading slash. An empty path
// yields "/", matching how JMeter expects a root request.
func (u URL) PathString() string { return "/" + strings.Join(u.Path, "/") }

// PortOrDefault resolves the emitted port: the explicit source port when
// present, otherwise the protocol default.
func (u URL) PortOrDefault() string {
	if u.Port != "" {
		return u.Port
	}
	return DefaultPort(u.Protocol)
}

// DefaultPort maps a protocol to its well-known port. Kept as a pure lookup
// so the fallback rule is independently testable.
func DefaultPort(protocol string) string {
	switch protocol {
	case "https":
		return "443"
	default:
		return "80"
	}
}

// DefaultProtocol is assumed whenever the source omits a scheme.
const DefaultProtocol = "http"

// RequestDescriptor is one flattened leaf request. By construction it never
// contains nested sub-requests: folder boundaries are erased before this type
// is built, and the descriptor is immutable afterwards.
type RequestDescriptor struct {
	Name   string
	Method string // uppercase canonical form
	URL    URL

	// Headers preserves source order and duplicates; no case normalization.
	Headers []KV

	// Query holds URL query parameters in source order.
	Query []KV

	// PathVariables holds the url.variable entries (":id"-style placeholders)
	// declared on the source URL.
	PathVariables []KV

	Body Body
}
