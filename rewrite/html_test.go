package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rewriteHTML(t *testing.T, ctx Context, opts []HTMLOption, input string) string {
	t.Helper()
	hr := NewHTMLRewriter(ctx, NewURLRewriter(ctx), opts...)
	out, err := hr.Feed([]byte(input))
	require.NoError(t, err)
	tail, err := hr.Close()
	require.NoError(t, err)
	return string(out) + string(tail)
}

func TestHTMLRewritesAnchorHref(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<a href="page2.html">next</a>`)
	assert.Equal(t, `<a href="/web/20200101000000/https://example.com/a/b/page2.html">next</a>`, got)
}

func TestHTMLLowercasesTagAndAttributeNamesOnOutput(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<HTML><A Href="page.html">T</A></hTmL>`)
	assert.Equal(t, `<html><a href="/web/20200101000000/https://example.com/a/b/page.html">T</a></html>`, got)
}

func TestHTMLLowercasesUnrewrittenAttributeName(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<div Title="hello">x</div>`)
	assert.Equal(t, `<div title="hello">x</div>`, got)
}

func TestHTMLRewritesImageSrcWithImMod(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<img src="pic.png">`)
	assert.Contains(t, got, `/web/20200101000000im_/`)
}

func TestHTMLRewritesScriptSrcWithJsMod(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<script src="app.js"></script>`)
	assert.Contains(t, got, `<script src="/web/20200101000000js_/https://example.com/a/b/app.js">`)
}

func TestHTMLRewritesInlineScriptBody(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<script>var a = "http://other.example/x.js";</script>`)
	assert.Contains(t, got, "/web/20200101000000/http://other.example/x.js")
	assert.Contains(t, got, "</script>")
}

func TestHTMLRewritesStyleElement(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<style>body { background: url(bg.png); }</style>`)
	assert.Contains(t, got, `/web/20200101000000cs_/https://example.com/a/b/bg.png`)
}

func TestHTMLTitleAndTextareaNotRewritten(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<title>http://example.com/not-a-link</title>`)
	assert.Equal(t, `<title>http://example.com/not-a-link</title>`, got)

	got = rewriteHTML(t, testContext(), nil, `<textarea>http://example.com/not-a-link</textarea>`)
	assert.Equal(t, `<textarea>http://example.com/not-a-link</textarea>`, got)
}

func TestHTMLScriptIntegrityRenamed(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<script src="app.js" integrity="sha384-x" crossorigin="anonymous"></script>`)
	assert.Contains(t, got, `_integrity="sha384-x"`)
	assert.Contains(t, got, `_crossorigin="anonymous"`)
}

func TestHTMLBaseUpdatesResolutionBase(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<base href="https://other.example/dir/"><a href="x.html">x</a>`)
	assert.Contains(t, got, "/web/20200101000000/https://other.example/dir/x.html")
}

func TestHTMLBaseHrefNotRewrittenWhenFlagUnset(t *testing.T) {
	ctx := testContext()
	ctx.Flags.RewriteBase = false
	got := rewriteHTML(t, ctx, nil, `<base href="https://other.example/dir/">`)
	assert.Equal(t, `<base href="https://other.example/dir/">`, got)
}

func TestHTMLBaseHrefRewrittenByDefault(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<base href="https://other.example/dir/">`)
	assert.Contains(t, got, "/web/20200101000000/https://other.example/dir/")
}

func TestHTMLLinkCanonicalPassesThroughWhenFlagUnset(t *testing.T) {
	ctx := testContext()
	ctx.Flags.RewriteRelCanon = false
	got := rewriteHTML(t, ctx, nil, `<link rel="canonical" href="https://example.com/a/b/c.html">`)
	assert.Equal(t, `<link rel="canonical" href="https://example.com/a/b/c.html">`, got)
}

func TestHTMLLinkCanonicalRewrittenByDefault(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<link rel="canonical" href="https://example.com/a/b/c.html">`)
	assert.Contains(t, got, "/web/20200101000000/https://example.com/a/b/c.html")
}

func TestHTMLLinkStylesheetGetsCSSMod(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<link rel="stylesheet" href="style.css">`)
	assert.Contains(t, got, "/web/20200101000000cs_/https://example.com/a/b/style.css")
}

func TestHTMLHeadInsertAfterHeadTag(t *testing.T) {
	got := rewriteHTML(t, testContext(), []HTMLOption{WithHeadInsert("<script>X</script>")}, `<html><head><title>t</title></head><body></body></html>`)
	assert.Equal(t, `<html><head><script>X</script><title>t</title></head><body></body></html>`, got)
}

func TestHTMLHeadInsertWithoutHeadTag(t *testing.T) {
	got := rewriteHTML(t, testContext(), []HTMLOption{WithHeadInsert("MARK")}, `<body>hello</body>`)
	assert.Equal(t, `MARK<body>hello</body>`, got)
}

func TestHTMLCommentsUntouchedByDefault(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<!-- <a href="page2.html">x</a> -->`)
	assert.Equal(t, `<!-- <a href="page2.html">x</a> -->`, got)
}

func TestHTMLCommentsRewrittenWhenFlagSet(t *testing.T) {
	ctx := testContext()
	ctx.Flags.ParseComments = true
	got := rewriteHTML(t, ctx, nil, `<!--<a href="page2.html">x</a>-->`)
	assert.Contains(t, got, "/web/20200101000000/https://example.com/a/b/page2.html")
}

func TestHTMLOpenGraphMeta(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<meta property="og:image" content="img.png">`)
	assert.Contains(t, got, "/web/20200101000000/https://example.com/a/b/img.png")
}

func TestHTMLMetaRefresh(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<meta http-equiv="refresh" content="5;url=next.html">`)
	assert.Contains(t, got, "/web/20200101000000/https://example.com/a/b/next.html")
}

func TestHTMLSrcsetRewritesEachCandidate(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<img srcset="a.png 1x, b.png 2x">`)
	assert.Contains(t, got, "/web/20200101000000im_/https://example.com/a/b/a.png 1x")
	assert.Contains(t, got, "/web/20200101000000im_/https://example.com/a/b/b.png 2x")
}

func TestHTMLEventHandlerAttributeRewritten(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<a href="#" onclick="location.href='next.html'">x</a>`)
	assert.Contains(t, got, "WB_wombat_location")
}

// TestHTMLChunkedFeedMatchesSinglePass verifies that splitting the same
// input across many Feed calls produces byte-identical output to a
// single Feed call, including when the split falls mid-tag and
// mid-attribute-value.
func TestHTMLChunkedFeedMatchesSinglePass(t *testing.T) {
	input := `<html><head><title>Page</title></head><body>` +
		`<a href="page2.html">next</a>` +
		`<script src="app.js"></script>` +
		`<script>var a = "http://other.example/x.js";</script>` +
		`<img src="pic.png" srcset="a.png 1x, b.png 2x">` +
		`</body></html>`

	ctx := testContext()
	whole := rewriteHTML(t, ctx, nil, input)

	for chunkSize := 1; chunkSize <= 7; chunkSize++ {
		hr := NewHTMLRewriter(ctx, NewURLRewriter(ctx))
		var got []byte
		for i := 0; i < len(input); i += chunkSize {
			end := i + chunkSize
			if end > len(input) {
				end = len(input)
			}
			out, err := hr.Feed([]byte(input[i:end]))
			require.NoError(t, err)
			got = append(got, out...)
		}
		tail, err := hr.Close()
		require.NoError(t, err)
		got = append(got, tail...)
		assert.Equal(t, whole, string(got), "chunk size %d", chunkSize)
	}
}

func TestHTMLFeedAfterCloseErrors(t *testing.T) {
	ctx := testContext()
	hr := NewHTMLRewriter(ctx, NewURLRewriter(ctx))
	_, err := hr.Feed([]byte(`<p>hi</p>`))
	require.NoError(t, err)
	_, err = hr.Close()
	require.NoError(t, err)
	_, err = hr.Feed([]byte(`<p>more</p>`))
	assert.Error(t, err)
}

func TestHTMLObjectDataAndCodebase(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<object data="movie.swf" codebase="flash/"></object>`)
	assert.Contains(t, got, "/web/20200101000000oe_/https://example.com/a/b/movie.swf")
	assert.Contains(t, got, "/web/20200101000000/https://example.com/a/b/flash/")
}

func TestHTMLFormActionRewritten(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<form action="submit.php"></form>`)
	assert.Contains(t, got, "/web/20200101000000/https://example.com/a/b/submit.php")
}

func TestHTMLDataAttributeOnlyRewrittenWhenAbsolute(t *testing.T) {
	got := rewriteHTML(t, testContext(), nil, `<div data-src="relative.png"></div>`)
	assert.Equal(t, `<div data-src="relative.png"></div>`, got)

	got = rewriteHTML(t, testContext(), nil, `<div data-src="https://other.example/a.png"></div>`)
	assert.Contains(t, got, "/web/20200101000000oe_/https://other.example/a.png")
}
