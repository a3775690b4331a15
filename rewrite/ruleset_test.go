package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyContentType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"text/html; charset=utf-8", "html"},
		{"application/xhtml+xml", "html"},
		{"text/css", "css"},
		{"application/javascript", "js"},
		{"text/javascript; charset=utf-8", "js"},
		{"application/json", "json"},
		{"application/vnd.api+json", "json"},
		{"text/xml", "xml"},
		{"application/rss+xml", "xml"},
		{"application/vnd.apple.mpegurl", "manifest"},
		{"image/png", "identity"},
		{"", "identity"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyContentType(tt.in))
		})
	}
}

func TestRuleSetCSSRewriting(t *testing.T) {
	rs := NewRuleSet()
	cr := rs.NewContentRewriter(testContext(), "text/css")
	_, err := cr.Feed([]byte(`body { background: url(http://example.com/a.png); }`))
	require.NoError(t, err)
	out, err := cr.Close()
	require.NoError(t, err)
	assert.Contains(t, string(out), "/web/20200101000000cs_/")
}

func TestRuleSetIdentityPassesThrough(t *testing.T) {
	rs := NewRuleSet()
	cr := rs.NewContentRewriter(testContext(), "image/png")
	out, err := cr.Feed([]byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, out)
}

func TestRuleSetHTMLIsStreaming(t *testing.T) {
	rs := NewRuleSet()
	cr := rs.NewContentRewriter(testContext(), "text/html")
	_, ok := cr.(*HTMLRewriter)
	assert.True(t, ok)
}

func TestRuleSetCustomRegexRules(t *testing.T) {
	rs := NewRuleSet(WithCustomRegexRules("css", RegexRule{
		Pattern: absoluteURLPattern,
		Replace: func(match string, rewriter URLRewriter) (string, error) {
			return "CUSTOM", nil
		},
	}))
	cr := rs.NewContentRewriter(testContext(), "text/css")
	_, err := cr.Feed([]byte(`body { background: url(http://example.com/a.png); }`))
	require.NoError(t, err)
	out, err := cr.Close()
	require.NoError(t, err)
	assert.Contains(t, string(out), "CUSTOM")
}
