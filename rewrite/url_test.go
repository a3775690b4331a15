package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() Context {
	return Context{
		ArchivePrefix: "/web/",
		Timestamp:     "20200101000000",
		OriginalURL:   "https://example.com/a/b/c.html",
		Mod:           ModHTML,
		Flags:         DefaultFlags(),
	}
}

func TestURLRewriterBasic(t *testing.T) {
	rewriter := NewURLRewriter(testContext())

	tests := []struct {
		name string
		in   URL
		want string
	}{
		{
			name: "absolute url",
			in:   URL{Value: "https://other.example/img.png"},
			want: "/web/20200101000000/https://other.example/img.png",
		},
		{
			name: "relative url resolves against original url",
			in:   URL{Value: "d.html"},
			want: "/web/20200101000000/https://example.com/a/b/d.html",
		},
		{
			name: "relative url resolves against explicit base",
			in:   URL{Value: "d.html", Base: "https://example.com/other/"},
			want: "/web/20200101000000/https://example.com/other/d.html",
		},
		{
			name: "scheme-relative url",
			in:   URL{Value: "//other.example/img.png"},
			want: "/web/20200101000000/https://other.example/img.png",
		},
		{
			name: "fragment-only url passes through",
			in:   URL{Value: "#section"},
			want: "#section",
		},
		{
			name: "mod override applies",
			in:   URL{Value: "style.css", Mod: ModCSS},
			want: "/web/20200101000000cs_/https://example.com/a/b/style.css",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rewriter(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURLRewriterPassthroughSchemes(t *testing.T) {
	rewriter := NewURLRewriter(testContext())

	for _, scheme := range []string{"javascript:alert(1)", "data:text/plain,hi", "mailto:a@b.com"} {
		got, err := rewriter(URL{Value: scheme})
		require.NoError(t, err)
		assert.Equal(t, scheme, got)
	}
}

func TestURLRewriterBaseTypeIgnoresURLBase(t *testing.T) {
	rewriter := NewURLRewriter(testContext())

	got, err := rewriter(URL{Value: "d.html", Base: "https://example.com/other/", Type: URLTypeBase})
	require.NoError(t, err)
	assert.Equal(t, "/web/20200101000000/https://example.com/a/b/d.html", got)
}

func TestURLRewriterEmptyValue(t *testing.T) {
	rewriter := NewURLRewriter(testContext())

	got, err := rewriter(URL{Value: "   "})
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestURLRewriterPunycode(t *testing.T) {
	ctx := testContext()
	ctx.Flags.PunycodeLinks = true
	rewriter := NewURLRewriter(ctx)

	got, err := rewriter(URL{Value: "https://xn--tst-placeholder.example/"})
	require.NoError(t, err)
	assert.Contains(t, got, "/web/20200101000000/")
}

func TestURLRewriterUnresolvable(t *testing.T) {
	rewriter := NewURLRewriter(testContext())

	got, err := rewriter(URL{Value: "http://[::1"})
	require.NoError(t, err)
	assert.Equal(t, "http://[::1", got)
}
