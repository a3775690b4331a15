package rewrite

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/archivecore/rewrite/internal/archivekey"
)

// archiveOrigPrefix is prepended to a header name when the original value
// is preserved for audit purposes after the visible header was dropped or
// rewritten.
const archiveOrigPrefix = "X-Archive-Orig-"

// droppedHeaders are stripped because the body is presented decoded
// (transport/content encoding no longer applies) or because their value
// is invalidated by rewriting (length changes).
var droppedHeaders = map[string]struct{}{
	"Content-Encoding":  {},
	"Transfer-Encoding": {},
	"Content-Length":    {},
}

// securityHeaders are dropped because they describe a policy scoped to the
// original origin, which the replay (served from the archive's origin)
// cannot satisfy.
var securityHeaders = map[string]struct{}{
	"Content-Security-Policy":   {},
	"Strict-Transport-Security": {},
	"Public-Key-Pins":           {},
}

// Headers rewrites the HTTP response headers in h per spec.md §4.5 and
// returns a new http.Header. h is not modified in place.
func Headers(h http.Header, ctx Context, rewriter URLRewriter) (http.Header, error) {
	out := make(http.Header, len(h)+4)
	for name, values := range h {
		canonical := http.CanonicalHeaderKey(name)
		switch {
		case canonical == "Location" || canonical == "Content-Location":
			for _, v := range values {
				rewritten, err := rewriteHeaderURL(v, ctx, rewriter)
				if err != nil {
					return nil, err
				}
				out.Add(canonical, rewritten)
			}
			out[archiveOrigPrefix+canonical] = cloneValues(values)
		case canonical == "Set-Cookie":
			for _, v := range values {
				rewritten, err := rewriteSetCookie(v, ctx)
				if err != nil {
					// Malformed Set-Cookie degrades to passthrough with the
					// original preserved for audit, per spec.md §7.
					out.Add(canonical, v)
					continue
				}
				if rewritten != "" {
					out.Add(canonical, rewritten)
				}
			}
			out[archiveOrigPrefix+canonical] = cloneValues(values)
		case isListed(canonical, droppedHeaders), isListed(canonical, securityHeaders):
			out[archiveOrigPrefix+canonical] = cloneValues(values)
		default:
			out[canonical] = cloneValues(values)
			out[archiveOrigPrefix+canonical] = cloneValues(values)
		}
	}
	return out, nil
}

func cloneValues(values []string) []string {
	return append([]string(nil), values...)
}

func isListed(canonical string, set map[string]struct{}) bool {
	_, ok := set[canonical]
	return ok
}

func rewriteHeaderURL(value string, ctx Context, rewriter URLRewriter) (string, error) {
	rewritten, err := rewriter(URL{Value: value, Mod: ModHTML, Type: URLTypeUnknown})
	if err != nil {
		return "", err
	}
	if rewritten == "" {
		return value, nil
	}
	return rewritten, nil
}

// setCookie is a minimal parsed representation of a Set-Cookie header,
// enough to rewrite Domain/Path/Secure without depending on net/http's
// (unexported) full cookie parser.
type setCookie struct {
	nameValue string // "name=value", copied verbatim
	attrs     []string
	path      string
	hasPath   bool
	secure    bool
}

func parseSetCookie(value string) (*setCookie, error) {
	parts := strings.Split(value, ";")
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return nil, fmt.Errorf("empty set-cookie header")
	}
	nameValue := strings.TrimSpace(parts[0])
	if !strings.Contains(nameValue, "=") {
		return nil, fmt.Errorf("set-cookie missing name=value")
	}
	sc := &setCookie{nameValue: nameValue}
	for _, raw := range parts[1:] {
		attr := strings.TrimSpace(raw)
		if attr == "" {
			continue
		}
		lower := strings.ToLower(attr)
		switch {
		case lower == "secure":
			sc.secure = true
		case lower == "domain" || strings.HasPrefix(lower, "domain="):
			// dropped entirely, see rewriteSetCookie
		case strings.HasPrefix(lower, "path="):
			sc.path = strings.TrimSpace(attr[len("path="):])
			sc.hasPath = true
		default:
			sc.attrs = append(sc.attrs, attr)
		}
	}
	return sc, nil
}

func (sc *setCookie) String() string {
	var sb strings.Builder
	sb.WriteString(sc.nameValue)
	if sc.path != "" {
		sb.WriteString("; Path=")
		sb.WriteString(sc.path)
	}
	for _, attr := range sc.attrs {
		sb.WriteString("; ")
		sb.WriteString(attr)
	}
	if sc.secure {
		sb.WriteString("; Secure")
	}
	return sb.String()
}

// rewriteSetCookie applies the configured CookieScope to a single
// Set-Cookie header value. CookieScopeRoot scopes the cookie to the
// archive prefix; every other scope prefixes its Path with the archive
// prefix and timestamp. CookieScopeExact and CookieScopeColl additionally
// require ctx.OriginalURL to yield a canonical key and return an error
// otherwise; no cookie is dropped as out of scope.
func rewriteSetCookie(value string, ctx Context) (string, error) {
	cookie, err := parseSetCookie(value)
	if err != nil {
		return "", err
	}

	if ctx.Flags.CookieScope == CookieScopeExact || ctx.Flags.CookieScope == CookieScopeColl {
		if archivekey.Canonical(ctx.OriginalURL) == "" {
			return "", fmt.Errorf("cookie scope %s requires a parseable original URL", ctx.Flags.CookieScope)
		}
	}

	// Domain is always stripped: a cookie scoped to the live site's domain
	// must not leak onto the archive's domain, per spec.md §4.5.
	cookie.secure = false
	if ctx.Flags.CookieScope == CookieScopeRoot {
		prefix := strings.TrimSuffix(ctx.ArchivePrefix, "/")
		if prefix == "" {
			prefix = "/"
		}
		cookie.path = prefix
	} else {
		path := cookie.path
		if path == "" {
			path = "/"
		}
		cookie.path = archivePrefixedPath(ctx, path)
	}

	return cookie.String(), nil
}

// archivePrefixedPath rewrites a cookie's Path so that it scopes the
// cookie to the archived mirror of that path rather than the live site.
func archivePrefixedPath(ctx Context, path string) string {
	prefix := strings.TrimSuffix(ctx.ArchivePrefix, "/")
	return prefix + "/" + ctx.Timestamp + path
}
