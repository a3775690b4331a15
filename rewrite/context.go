// Package rewrite implements the content-rewriting core of a web archive
// replay proxy: URL, CSS, JavaScript, HTTP header and streaming HTML
// rewriters driven by a shared rewrite Context.
//
// The package performs no network I/O and holds no state beyond a single
// response: a Context plus a RuleSet are enough to construct any of the
// rewriters below, and the rewriters themselves are safe to discard at any
// point without cleanup.
package rewrite

// Mod is a short modifier string inserted between the capture timestamp and
// the original URL in an archive URL. It tells the replay server how to
// serve the referenced resource.
type Mod string

const (
	ModHTML   Mod = ""    // full HTML rewrite
	ModImage  Mod = "im_" // image, identity passthrough
	ModJS     Mod = "js_" // JavaScript, rewrite
	ModCSS    Mod = "cs_" // stylesheet, rewrite
	ModIframe Mod = "if_" // frame/iframe document
	ModOpaque Mod = "oe_" // opaque/embed passthrough
)

// JSLocationMode selects which JS rewriter variant is used, per spec.md
// §3's js_rewrite_location flag.
type JSLocationMode string

const (
	JSRewriteAll      JSLocationMode = "all"
	JSRewriteLocation JSLocationMode = "location"
	JSRewriteNone     JSLocationMode = "none"
	JSRewriteLinkOnly JSLocationMode = "link-only"
)

// CookieScope selects how Set-Cookie headers are narrowed during replay.
type CookieScope string

const (
	CookieScopeDefault CookieScope = "default"
	CookieScopeHost    CookieScope = "host"
	CookieScopeExact   CookieScope = "exact"
	CookieScopeColl    CookieScope = "coll"
	CookieScopeRoot    CookieScope = "root"
)

// Flags are the policy toggles enumerated in spec.md §3.
type Flags struct {
	RewriteRelCanon   bool
	RewriteBase       bool
	PunycodeLinks     bool
	JSRewriteLocation JSLocationMode
	ParseComments     bool
	CookieScope       CookieScope
}

// DefaultFlags returns the defaults named in spec.md §3.
func DefaultFlags() Flags {
	return Flags{
		RewriteRelCanon:   true,
		RewriteBase:       true,
		PunycodeLinks:     false,
		JSRewriteLocation: JSRewriteAll,
		ParseComments:     false,
		CookieScope:       CookieScopeDefault,
	}
}

// Context is the immutable record attached to a single response rewrite.
type Context struct {
	// ArchivePrefix is the string under which archived content is served,
	// e.g. "/web/" or "http://archive.example/web/".
	ArchivePrefix string
	// Timestamp is the 14-character capture timestamp, e.g. "20131226101010".
	Timestamp string
	// OriginalURL is the absolute URL of the captured resource.
	OriginalURL string
	// Mod is the default modifier for embedded references in this response.
	Mod Mod
	// Flags are the policy toggles in effect for this rewrite.
	Flags Flags
}
