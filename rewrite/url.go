package rewrite

import (
	stdhtml "html"
	"net/url"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/net/idna"
)

// passthroughSchemes are schemes the URL Rewriter never touches, per
// spec.md §4.1 step 3.
var passthroughSchemes = map[string]struct{}{
	"javascript": {},
	"data":       {},
	"mailto":     {},
	"blob":       {},
	"about":      {},
	"file":       {},
}

var schemeRe = regexp.MustCompile(`(?i)^([a-zA-Z][a-zA-Z0-9+.-]*):`)

// Option configures a URLRewriter built by NewURLRewriter.
type Option func(*urlRewriterConfig)

type urlRewriterConfig struct {
	punycodeCache *gocache.Cache
}

// WithPunycodeCache shares a single host→punycode cache across rewriters,
// e.g. one built per RuleSet and reused for every response it serves.
// Safe to share across concurrently-running rewriters: go-cache is safe
// for concurrent use. Entries are stored with the cache's default
// expiration and are recomputed after they expire.
func WithPunycodeCache(c *gocache.Cache) Option {
	return func(cfg *urlRewriterConfig) {
		cfg.punycodeCache = c
	}
}

// NewURLRewriter builds the URL Rewriter described in spec.md §4.1, bound
// to ctx. The returned function holds no mutable state of its own — the
// in-document base (if any) must be supplied per call via URL.Base — so a
// single URLRewriter may be shared across goroutines and across documents
// that share the same Context.
func NewURLRewriter(ctx Context, opts ...Option) URLRewriter {
	cfg := urlRewriterConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.punycodeCache == nil {
		cfg.punycodeCache = gocache.New(30*time.Minute, time.Hour)
	}

	return func(u URL) (string, error) {
		value := trimASCIISpace(u.Value)
		if value == "" {
			return "", nil
		}
		if strings.HasPrefix(value, "#") {
			return value, nil
		}
		if m := schemeRe.FindStringSubmatch(value); m != nil {
			if _, ok := passthroughSchemes[strings.ToLower(m[1])]; ok {
				return value, nil
			}
		}

		decoded := stdhtml.UnescapeString(value)

		base := u.Base
		if base == "" || u.Type == URLTypeBase || u.Type == URLTypeOpenGraph {
			base = ctx.OriginalURL
		}
		resolved, err := resolveURL(decoded, base)
		if err != nil {
			// Unresolvable per spec.md §7: pass the original value through.
			return value, nil
		}

		if ctx.Flags.PunycodeLinks {
			resolved = punycodeHost(resolved, cfg.punycodeCache)
		}

		mod := u.Mod
		if mod == "" {
			mod = ctx.Mod
		}

		var sb strings.Builder
		sb.WriteString(ctx.ArchivePrefix)
		sb.WriteString(ctx.Timestamp)
		sb.WriteString(string(mod))
		sb.WriteString("/")
		sb.WriteString(resolved)
		return sb.String(), nil
	}
}

// resolveURL resolves raw against base per RFC3986 reference resolution,
// covering scheme-relative, path-absolute and relative forms (spec.md
// §4.1 step 5). Go's net/url.ResolveReference already implements the
// relevant cases of RFC3986 §5.3 correctly, so this is a thin wrapper.
func resolveURL(raw, base string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	var result *url.URL
	if refURL.IsAbs() {
		result = refURL
	} else {
		resolved := *baseURL.ResolveReference(refURL)
		result = &resolved
	}
	if result.Host != "" && result.Path == "" {
		result.Path = "/"
	}
	return result.String(), nil
}

// punycodeHost rewrites an IDN host in resolved to its ASCII punycode
// form, preserving everything else about the URL. Results are cached by
// host since the same host recurs across many references in one document.
func punycodeHost(resolved string, cache *gocache.Cache) string {
	u, err := url.Parse(resolved)
	if err != nil || u.Host == "" {
		return resolved
	}
	host := u.Hostname()
	port := u.Port()

	var ascii string
	if cached, ok := cache.Get(host); ok {
		ascii = cached.(string)
	} else {
		converted, err := idna.ToASCII(host)
		if err != nil {
			// Leave the original UTF-8 host bytes in place on failure,
			// per spec.md §4.1 step 6.
			converted = host
		}
		ascii = converted
		cache.Set(host, ascii, gocache.DefaultExpiration)
	}
	if ascii == host {
		return resolved
	}
	if port != "" {
		u.Host = ascii + ":" + port
	} else {
		u.Host = ascii
	}
	return u.String()
}

func trimASCIISpace(s string) string {
	start := 0
	for start < len(s) && isASCIISpace(s[start]) {
		start++
	}
	end := len(s)
	for end > start && isASCIISpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isASCIISpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	default:
		return false
	}
}
