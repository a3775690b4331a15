package rewrite

import (
	"errors"
	"io"
	"regexp"
)

// jsonLinkStringRe matches a JSON string value whose content begins with
// an absolute http(s) URL or a scheme-relative URL. JSON strings are
// always double-quoted, unlike the JS rewriter's literals.
var jsonLinkStringRe = regexp.MustCompile(`"((?:https?:)?//[^"\\]*)"`)

// JSON rewrites absolute/scheme-relative URL strings found in a JSON
// document. Per spec.md §4.4, it defaults to link-only behavior but
// degrades to a no-op when mode is JSRewriteLocation or JSRewriteNone,
// since there is no `location` identifier to shadow in JSON and doing a
// location-style rewrite would require parsing JS inside a string value,
// which risks mangling otherwise-valid JSON.
func JSON(r io.Reader, w io.Writer, rewriter URLRewriter, mode JSLocationMode) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if mode == JSRewriteLocation || mode == JSRewriteNone {
		_, err := w.Write(data)
		return err
	}

	var outErr error
	out := jsonLinkStringRe.ReplaceAllStringFunc(string(data), func(match string) string {
		if outErr != nil {
			return match
		}
		sub := jsonLinkStringRe.FindStringSubmatch(match)
		value := sub[1]
		newValue, err := rewriter(URL{Value: value, Mod: ModHTML, Type: URLTypeUnknown})
		switch {
		case errors.Is(err, ErrNotModified):
			return match
		case err != nil:
			outErr = err
			return match
		default:
			return `"` + newValue + `"`
		}
	})
	if outErr != nil {
		return outErr
	}
	_, err = io.WriteString(w, out)
	return err
}
