package main

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivecore/rewrite/internal/metrics"
	"github.com/archivecore/rewrite/rewrite"
)

func TestRewriteHandlerRewritesBody(t *testing.T) {
	rs := rewrite.NewRuleSet()
	m := metrics.New("archivecore_test")
	logger := zerolog.Nop()

	body := `<a href="page2.html">next</a>`
	req := httptest.NewRequest("POST", "/rewrite?url=https://example.com/a/b/c.html&archive_prefix=/web/&timestamp=20200101000000", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/html")
	rec := httptest.NewRecorder()

	rewriteHandler(rs, m, logger)(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "/web/20200101000000/https://example.com/a/b/page2.html")
}

func TestRewriteHandlerMissingURL(t *testing.T) {
	rs := rewrite.NewRuleSet()
	m := metrics.New("archivecore_test_missing_url")
	logger := zerolog.Nop()

	req := httptest.NewRequest("POST", "/rewrite", strings.NewReader("<p>hi</p>"))
	rec := httptest.NewRecorder()

	rewriteHandler(rs, m, logger)(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestRewriteHandlerDefaultsArchivePrefixAndTimestamp(t *testing.T) {
	rs := rewrite.NewRuleSet()
	m := metrics.New("archivecore_test_defaults")
	logger := zerolog.Nop()

	req := httptest.NewRequest("POST", "/rewrite?url=https://example.com/x.html", strings.NewReader(`<a href="y.html">y</a>`))
	req.Header.Set("Content-Type", "text/html")
	rec := httptest.NewRecorder()

	rewriteHandler(rs, m, logger)(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "/web/20260101000000/https://example.com/y.html")
}

func TestDefaultString(t *testing.T) {
	assert.Equal(t, "fallback", defaultString("", "fallback"))
	assert.Equal(t, "value", defaultString("value", "fallback"))
}
