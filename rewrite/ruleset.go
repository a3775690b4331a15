package rewrite

import (
	"bytes"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tdewolff/parse/v2"
)

// ContentRewriter streams one response body through whichever rewriter a
// RuleSet selected for its MIME type. HTMLRewriter implements it
// natively; the CSS, JS, JSON, XML and manifest classes are wrapped so the
// whole body is buffered and rewritten in one pass at Close, matching how
// this package's CSS/JS/JSON/XML rewriters already operate. Bodies of any
// other content type pass through Feed unchanged and unbuffered.
type ContentRewriter interface {
	Feed(chunk []byte) ([]byte, error)
	Close() ([]byte, error)
}

type bufferedRewriter struct {
	buf     []byte
	rewrite func([]byte) ([]byte, error)
}

func (b *bufferedRewriter) Feed(chunk []byte) ([]byte, error) {
	b.buf = append(b.buf, chunk...)
	return nil, nil
}

func (b *bufferedRewriter) Close() ([]byte, error) {
	return b.rewrite(b.buf)
}

type identityRewriter struct{}

func (identityRewriter) Feed(chunk []byte) ([]byte, error) { return chunk, nil }
func (identityRewriter) Close() ([]byte, error)            { return nil, nil }

// RuleSet is the named policy described in spec.md §3: a mapping from
// content class to rewriter factory, plus any custom regex rules layered
// on top. It holds nothing response-specific — only the shared punycode
// cache and configuration — so a single RuleSet is read-only after
// construction and safe to share across concurrently-rewritten responses,
// per spec.md §5.
type RuleSet struct {
	punycodeCache *gocache.Cache
	customRules   map[string][]RegexRule
	headInsert    string
}

// RuleSetOption configures a RuleSet built by NewRuleSet.
type RuleSetOption func(*RuleSet)

// WithRuleSetPunycodeCache shares an existing host→punycode cache across
// every URL Rewriter this RuleSet builds, instead of creating a private
// one.
func WithRuleSetPunycodeCache(c *gocache.Cache) RuleSetOption {
	return func(rs *RuleSet) { rs.punycodeCache = c }
}

// WithCustomRegexRules appends extra regex rules to a content class
// ("css", "js", "json", "xml" or "manifest"), applied after that class's
// built-in rewriting. Per spec.md §4.2, these are the
// configuration-defined rules layered on top of the built-in rewriters.
// Rules registered under "html" are stored but never applied: HTML bodies
// go through HTMLRewriter, which runs no custom rules.
func WithCustomRegexRules(class string, rules ...RegexRule) RuleSetOption {
	return func(rs *RuleSet) {
		if rs.customRules == nil {
			rs.customRules = make(map[string][]RegexRule)
		}
		rs.customRules[class] = append(rs.customRules[class], rules...)
	}
}

// WithRuleSetHeadInsert configures markup every HTML document this
// RuleSet rewrites gets inserted into its <head>, per spec.md §9.
func WithRuleSetHeadInsert(markup string) RuleSetOption {
	return func(rs *RuleSet) { rs.headInsert = markup }
}

// NewRuleSet builds a RuleSet. The default punycode cache is private to
// this RuleSet; share one explicitly with WithRuleSetPunycodeCache if
// many RuleSets serve the same archive collection.
func NewRuleSet(opts ...RuleSetOption) *RuleSet {
	rs := &RuleSet{}
	for _, opt := range opts {
		opt(rs)
	}
	if rs.punycodeCache == nil {
		rs.punycodeCache = gocache.New(30*time.Minute, time.Hour)
	}
	return rs
}

// NewContentRewriter selects and builds the rewriter for a response body
// of the given MIME type, bound to ctx. This is the "Rewriter
// construction" operation of spec.md §6.
func (rs *RuleSet) NewContentRewriter(ctx Context, contentType string) ContentRewriter {
	urlRewriter := NewURLRewriter(ctx, WithPunycodeCache(rs.punycodeCache))
	class := classifyContentType(contentType)

	switch class {
	case "html":
		var opts []HTMLOption
		if rs.headInsert != "" {
			opts = append(opts, WithHeadInsert(rs.headInsert))
		}
		return NewHTMLRewriter(ctx, urlRewriter, opts...)
	case "css":
		return &bufferedRewriter{rewrite: func(b []byte) ([]byte, error) {
			var out bytes.Buffer
			if err := CSS(parse.NewInputBytes(b), &out, urlRewriter, ModCSS); err != nil {
				return nil, err
			}
			return rs.applyCustomRules(class, out.Bytes(), urlRewriter)
		}}
	case "js":
		return &bufferedRewriter{rewrite: func(b []byte) ([]byte, error) {
			var out bytes.Buffer
			if err := JS(bytes.NewReader(b), &out, urlRewriter, ctx.Flags.JSRewriteLocation); err != nil {
				return nil, err
			}
			return rs.applyCustomRules(class, out.Bytes(), urlRewriter)
		}}
	case "json":
		return &bufferedRewriter{rewrite: func(b []byte) ([]byte, error) {
			var out bytes.Buffer
			if err := JSON(bytes.NewReader(b), &out, urlRewriter, ctx.Flags.JSRewriteLocation); err != nil {
				return nil, err
			}
			return rs.applyCustomRules(class, out.Bytes(), urlRewriter)
		}}
	case "xml":
		return &bufferedRewriter{rewrite: func(b []byte) ([]byte, error) {
			var out bytes.Buffer
			if err := XML(bytes.NewReader(b), &out, urlRewriter); err != nil {
				return nil, err
			}
			return rs.applyCustomRules(class, out.Bytes(), urlRewriter)
		}}
	case "manifest":
		return &bufferedRewriter{rewrite: func(b []byte) ([]byte, error) {
			rr := NewRegexRewriter(append([]RegexRule{PlainTextURLRule()}, rs.customRules["manifest"]...)...)
			out, err := rr.Rewrite(string(b), urlRewriter)
			return []byte(out), err
		}}
	default:
		return identityRewriter{}
	}
}

func (rs *RuleSet) applyCustomRules(class string, body []byte, urlRewriter URLRewriter) ([]byte, error) {
	rules := rs.customRules[class]
	if len(rules) == 0 {
		return body, nil
	}
	rr := NewRegexRewriter(rules...)
	out, err := rr.Rewrite(string(body), urlRewriter)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// classifyContentType maps a Content-Type header value (with or without
// a charset parameter) to one of the rewriter classes named in
// spec.md §6.
func classifyContentType(contentType string) string {
	ct := contentType
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = ct[:idx]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))

	switch ct {
	case "text/html", "application/xhtml+xml":
		return "html"
	case "text/css":
		return "css"
	case "application/javascript", "text/javascript", "application/x-javascript", "application/ecmascript":
		return "js"
	case "application/json":
		return "json"
	case "application/xml", "text/xml":
		return "xml"
	case "application/x-mpegurl", "application/vnd.apple.mpegurl", "audio/mpegurl":
		return "manifest"
	}
	switch {
	case strings.HasSuffix(ct, "+json"):
		return "json"
	case strings.HasSuffix(ct, "+xml"):
		return "xml"
	}
	return "identity"
}
