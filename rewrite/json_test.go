package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONRewritesLinkStrings(t *testing.T) {
	var sb strings.Builder
	src := `{"next": "http://example.com/page", "count": 3}`
	err := JSON(strings.NewReader(src), &sb, fixedRewriter("/web/x/http://example.com/page"), JSRewriteLinkOnly)
	require.NoError(t, err)
	assert.Equal(t, `{"next": "/web/x/http://example.com/page", "count": 3}`, sb.String())
}

func TestJSONNotModifiedLeavesValueAlone(t *testing.T) {
	var sb strings.Builder
	src := `{"next": "http://example.com/page"}`
	err := JSON(strings.NewReader(src), &sb, passthroughRewriter(), JSRewriteLinkOnly)
	require.NoError(t, err)
	assert.Equal(t, src, sb.String())
}

func TestJSONNoOpUnderLocationMode(t *testing.T) {
	var sb strings.Builder
	src := `{"next": "http://example.com/page"}`
	err := JSON(strings.NewReader(src), &sb, fixedRewriter("should not apply"), JSRewriteLocation)
	require.NoError(t, err)
	assert.Equal(t, src, sb.String())
}

func TestJSONNoOpUnderNoneMode(t *testing.T) {
	var sb strings.Builder
	src := `{"next": "http://example.com/page"}`
	err := JSON(strings.NewReader(src), &sb, fixedRewriter("should not apply"), JSRewriteNone)
	require.NoError(t, err)
	assert.Equal(t, src, sb.String())
}
