// Package archivekey computes a canonical per-capture lookup key. The
// Header Rewriter's collection/exact cookie scopes require the capture's
// original URL to yield a non-empty key before rewriting a Set-Cookie
// header.
//
// Adapted from the teacher's repository.Key: reorders query parameters and
// strips common tracking parameters so that two URLs differing only in
// query-parameter order or tracking noise map to the same key.
package archivekey

import (
	"net/url"
	"sort"
	"strings"

	"github.com/archivecore/rewrite/urlnorm"
)

var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
}

// Canonical returns a canonical string key for rawURL, or "" if rawURL does
// not parse.
func Canonical(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !parsed.IsAbs() {
		return ""
	}
	u := urlnorm.Canonical(parsed)

	type queryParam struct {
		name   string
		values []string
	}
	var parts []queryParam
	for k, v := range u.Query() {
		if _, tracked := trackingParams[k]; tracked {
			continue
		}
		parts = append(parts, queryParam{name: k, values: v})
	}
	sort.Slice(parts, func(i, j int) bool {
		return parts[i].name < parts[j].name
	})

	var rawQuery strings.Builder
	for i, part := range parts {
		if i > 0 {
			rawQuery.WriteString("&")
		}
		sort.Strings(part.values)
		for j, v := range part.values {
			if j > 0 {
				rawQuery.WriteString("&")
			}
			rawQuery.WriteString(url.QueryEscape(part.name))
			rawQuery.WriteString("=")
			rawQuery.WriteString(url.QueryEscape(v))
		}
	}
	u.RawQuery = rawQuery.String()
	u.Fragment = ""
	return u.String()
}
