package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passthroughRewriter() URLRewriter {
	return func(u URL) (string, error) { return "", ErrNotModified }
}

func fixedRewriter(result string) URLRewriter {
	return func(u URL) (string, error) { return result, nil }
}

func TestJSLinkRewriting(t *testing.T) {
	src := `var a = "http://example.com/img.png"; var b = '//example.com/x.js';`
	out, err := RewriteJSString(src, fixedRewriter("REWRITTEN"), JSRewriteLinkOnly)
	require.NoError(t, err)
	assert.Equal(t, `var a = "REWRITTEN"; var b = 'REWRITTEN';`, out)
}

func TestJSLinkRewritingNotModified(t *testing.T) {
	src := `var a = "http://example.com/img.png";`
	out, err := RewriteJSString(src, passthroughRewriter(), JSRewriteLinkOnly)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestJSLocationRewriting(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare location", "location.href = 'x';", "WB_wombat_location.href = 'x';"},
		{"window.location", "window.location.href = 'x';", "window.WB_wombat_location.href = 'x';"},
		{"member access left alone", "foo.location = 'x';", "foo.location = 'x';"},
		{"no match", "var x = 1;", "var x = 1;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := RewriteJSString(tt.in, passthroughRewriter(), JSRewriteLocation)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestJSRewriteAllCombinesBoth(t *testing.T) {
	src := `location.href = "http://example.com/p";`
	out, err := RewriteJSString(src, fixedRewriter("/web/x/http://example.com/p"), JSRewriteAll)
	require.NoError(t, err)
	assert.Equal(t, `WB_wombat_location.href = "/web/x/http://example.com/p";`, out)
}

func TestJSRewriteNoneIsIdentity(t *testing.T) {
	src := `location.href = "http://example.com/p";`
	out, err := RewriteJSString(src, fixedRewriter("should not be used"), JSRewriteNone)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestJS(t *testing.T) {
	var sb strings.Builder
	err := JS(strings.NewReader(`var a = "http://example.com/img.png";`), &sb, fixedRewriter("X"), JSRewriteLinkOnly)
	require.NoError(t, err)
	assert.Equal(t, `var a = "X";`, sb.String())
}
