package rewrite

import (
	"errors"
	"io"
	"regexp"
	"strings"
)

// JS rewrites a JavaScript source read in full from r, writing the result
// to w. mode selects which of {link rewriting, location shadowing} are
// applied, per spec.md §4.4. Rewriting is purely textual (regex-driven),
// not AST-level: the JS rewriter never parses JavaScript, it only finds
// string literals that look like absolute URLs and bare `location`
// identifiers.
func JS(r io.Reader, w io.Writer, rewriter URLRewriter, mode JSLocationMode) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	out, err := RewriteJSString(string(data), rewriter, mode)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// jsLinkLiteralRe matches quoted string literals whose content begins with
// an absolute http(s) URL or a scheme-relative URL.
var jsLinkLiteralRe = regexp.MustCompile(`(['"])((?:https?:)?//[^'"\\]*)(['"])`)

// jsLocationRe matches the bare identifier `location`, optionally preceded
// by `window.`. Go's regexp (RE2) has no lookbehind, so callers must check
// the rune before the match themselves to reject other `<ident>.location`
// property accesses (see rewriteLocationIdentifiers).
var jsLocationRe = regexp.MustCompile(`\b(window\s*\.\s*)?location\b`)

// RewriteJSString applies the JS Rewriter family to src and returns the
// result.
func RewriteJSString(src string, rewriter URLRewriter, mode JSLocationMode) (string, error) {
	switch mode {
	case JSRewriteNone:
		return src, nil
	case JSRewriteLocation:
		return rewriteLocationIdentifiers(src)
	case JSRewriteLinkOnly:
		return rewriteJSLinks(src, rewriter)
	case JSRewriteAll, "":
		withLinks, err := rewriteJSLinks(src, rewriter)
		if err != nil {
			return "", err
		}
		return rewriteLocationIdentifiers(withLinks)
	default:
		return src, nil
	}
}

func rewriteJSLinks(src string, rewriter URLRewriter) (string, error) {
	var outErr error
	out := jsLinkLiteralRe.ReplaceAllStringFunc(src, func(match string) string {
		if outErr != nil {
			return match
		}
		sub := jsLinkLiteralRe.FindStringSubmatch(match)
		quote, value := sub[1], sub[2]
		newValue, err := rewriter(URL{Value: value, Mod: ModHTML, Type: URLTypeJS})
		switch {
		case errors.Is(err, ErrNotModified):
			return match
		case err != nil:
			outErr = err
			return match
		default:
			return quote + newValue + quote
		}
	})
	if outErr != nil {
		return "", outErr
	}
	return out, nil
}

// rewriteLocationIdentifiers replaces standalone `location` (and the
// `location` of `window.location`, keeping the `window.` prefix) with
// `WB_wombat_location`, leaving `<other>.location` property accesses
// untouched.
func rewriteLocationIdentifiers(src string) (string, error) {
	matches := jsLocationRe.FindAllStringSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return src, nil
	}
	var sb strings.Builder
	sb.Grow(len(src) + len(matches)*12)
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		hasWindowPrefix := m[2] != -1
		if !hasWindowPrefix && precededByMemberAccess(src, start) {
			// `foo.location`: a property access on something other than
			// `window`, leave it alone.
			continue
		}
		sb.WriteString(src[last:start])
		if hasWindowPrefix {
			sb.WriteString(src[start:m[3]])
		}
		sb.WriteString("WB_wombat_location")
		last = end
	}
	sb.WriteString(src[last:])
	return sb.String(), nil
}

// precededByMemberAccess reports whether the identifier starting at pos is
// immediately preceded by a `.`, skipping whitespace.
func precededByMemberAccess(src string, pos int) bool {
	i := pos - 1
	for i >= 0 && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i--
	}
	return i >= 0 && src[i] == '.'
}
