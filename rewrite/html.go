package rewrite

import (
	"bytes"
	"errors"
	stdhtml "html"
	"io"
	"regexp"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/html"
)

// maxBufferedElement caps how much of a single script/style/title/textarea
// element's content the HTML Rewriter will hold in memory waiting for the
// matching close tag. Past the cap the element's remaining bytes are
// written through unrewritten rather than buffered indefinitely.
const maxBufferedElement = 16 * 1024 * 1024

// rawTextTailKeep is how much of an over-cap raw-text element is always
// kept unflushed, so a close tag split across the cap boundary is still
// found by the next scan.
const rawTextTailKeep = 32

var rawTextCloseRe = map[string]*regexp.Regexp{
	"script":   regexp.MustCompile(`(?i)</script\s*>`),
	"style":    regexp.MustCompile(`(?i)</style\s*>`),
	"title":    regexp.MustCompile(`(?i)</title\s*>`),
	"textarea": regexp.MustCompile(`(?i)</textarea\s*>`),
}

// rawTextTags are elements whose content the HTML tokenizer never
// interprets as markup; they run until their specific close tag.
var rawTextTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"title":    {},
	"textarea": {},
}

// errNeedMoreData signals that a tag's attribute list ran off the end of
// the buffer mid-token; the caller must re-buffer from the tag's start
// and wait for the next Feed call (or, at Close, fall back to passthrough).
var errNeedMoreData = errors.New("rewrite: need more data")

func (c *htmlCursor) eofErr() error {
	err := c.lexer.Err()
	if errors.Is(err, io.EOF) {
		return errNeedMoreData
	}
	return err
}

// HTMLOption configures an HTMLRewriter built by NewHTMLRewriter.
type HTMLOption func(*HTMLRewriter)

// WithHeadInsert arranges for markup to be inserted once: as the first
// child of <head>, or immediately before the first content-bearing tag if
// the document never opens a <head> at all.
func WithHeadInsert(markup string) HTMLOption {
	return func(hr *HTMLRewriter) {
		hr.headInsert = []byte(markup)
	}
}

// HTMLRewriter incrementally rewrites an HTML document per spec.md §4.6.
// It holds per-document state (the in-document base, head-insertion
// progress, any in-progress script/style buffering), so a single instance
// must serve exactly one document; build one per response via
// NewHTMLRewriter.
type HTMLRewriter struct {
	ctx         Context
	urlRewriter URLRewriter

	headInsert []byte
	headDone   bool
	sawHead    bool

	currentBase string
	baseSet     bool

	carry []byte

	rawTag      string
	rawBuf      []byte
	rawOverflow bool

	closed bool
}

// NewHTMLRewriter builds an HTML Rewriter bound to ctx and urlRewriter.
// ctx.OriginalURL seeds the initial in-document base; a <base> tag
// encountered in the document updates it regardless of whether
// ctx.Flags.RewriteBase causes the tag's own href to be rewritten.
func NewHTMLRewriter(ctx Context, urlRewriter URLRewriter, opts ...HTMLOption) *HTMLRewriter {
	hr := &HTMLRewriter{
		ctx:         ctx,
		urlRewriter: urlRewriter,
		currentBase: ctx.OriginalURL,
	}
	for _, opt := range opts {
		opt(hr)
	}
	return hr
}

// Feed rewrites as much of chunk as can be fully decided from bytes seen
// so far and returns the rewritten output. An incomplete trailing
// construct (a partial tag, a script element awaiting its close tag) is
// held back internally and completed by a later Feed call or by Close.
func (hr *HTMLRewriter) Feed(chunk []byte) ([]byte, error) {
	if hr.closed {
		return nil, errors.New("rewrite: Feed called after Close")
	}
	return hr.process(chunk, false)
}

// Close signals end of input: any buffered partial raw-text element is
// flushed and the final bytes are returned. Feed must not be called again
// afterward.
func (hr *HTMLRewriter) Close() ([]byte, error) {
	if hr.closed {
		return nil, nil
	}
	hr.closed = true
	return hr.process(nil, true)
}

func (hr *HTMLRewriter) process(chunk []byte, isFinal bool) ([]byte, error) {
	combined := append(hr.carry, chunk...)
	hr.carry = nil
	var out bytes.Buffer

	pos := 0
	for {
		if hr.rawTag != "" {
			consumed, done, err := hr.consumeRawText(combined[pos:], isFinal, &out)
			if err != nil {
				return nil, err
			}
			pos += consumed
			if !done {
				break
			}
			continue
		}
		if pos >= len(combined) {
			break
		}
		consumed, switchToRaw, err := hr.runLexerMode(combined[pos:], isFinal, &out)
		if err != nil {
			return nil, err
		}
		pos += consumed
		if !switchToRaw {
			break
		}
	}

	if isFinal {
		hr.insertHeadNow(&out)
	}
	return out.Bytes(), nil
}

// runLexerMode tokenizes sub from the start until it either runs out of
// complete tokens (returning the bytes consumed so far, with any leftover
// saved to hr.carry unless isFinal) or a start tag opens a raw-text
// element (returning with switchToRaw true so the caller hands the
// remainder to consumeRawText).
func (hr *HTMLRewriter) runLexerMode(sub []byte, isFinal bool, out *bytes.Buffer) (int, bool, error) {
	input := parse.NewInputBytes(sub)
	lexer := html.NewLexer(input)
	cur := &htmlCursor{input: input, lexer: lexer}

	for {
		startOffset := input.Offset()
		tt, _ := cur.next()
		if tt == html.ErrorToken {
			err := ignoreEOF(lexer.Err())
			if err != nil {
				return 0, false, err
			}
			if isFinal {
				out.Write(sub[startOffset:])
				return len(sub), false, nil
			}
			hr.carry = append([]byte(nil), sub[startOffset:]...)
			return len(sub), false, nil
		}

		switch tt {
		case html.StartTagToken:
			tagName := cur.text()
			tagLower := strings.ToLower(string(tagName))

			// Buffer the tag and its attributes locally: if the
			// attribute list runs off the end of sub mid-token, the
			// whole tag must be re-fed from scratch next call, and
			// nothing written so far (including any head insertion)
			// may have been committed yet.
			var tagBuf bytes.Buffer
			tagBuf.WriteByte('<')
			tagBuf.WriteString(tagLower)
			selfClosed, err := hr.processStartTag(cur, &tagBuf, tagLower)
			if errors.Is(err, errNeedMoreData) {
				if isFinal {
					out.Write(sub[startOffset:])
					return len(sub), false, nil
				}
				hr.carry = append([]byte(nil), sub[startOffset:]...)
				return len(sub), false, nil
			}
			if err != nil {
				return 0, false, err
			}

			hr.maybeInsertHeadBefore(out, tagLower)
			if _, err := out.Write(tagBuf.Bytes()); err != nil {
				return 0, false, err
			}
			if tagLower == "head" {
				hr.sawHead = true
				hr.insertHeadNow(out)
			}
			if !selfClosed {
				if _, ok := rawTextTags[tagLower]; ok {
					hr.rawTag = tagLower
					hr.rawBuf = nil
					hr.rawOverflow = false
					return input.Offset(), true, nil
				}
			}
		case html.EndTagToken:
			tagName := cur.text()
			out.WriteString("</")
			out.WriteString(strings.ToLower(string(tagName)))
			out.WriteString(">")
		case html.TextToken:
			hr.maybeInsertHeadBeforeText(out, cur.rawData())
			if err := cur.copy(out); err != nil {
				return 0, false, err
			}
		default:
			if tt.String() == "Comment" && hr.ctx.Flags.ParseComments {
				if err := hr.rewriteComment(out, cur.rawData()); err != nil {
					return 0, false, err
				}
			} else if err := cur.copy(out); err != nil {
				return 0, false, err
			}
		}
	}
}

// consumeRawText scans for the close tag of the currently open raw-text
// element, buffering content until it is found (or the cap is hit) and
// rewriting it as JS/CSS/plain text per element once it is.
func (hr *HTMLRewriter) consumeRawText(data []byte, isFinal bool, out *bytes.Buffer) (int, bool, error) {
	oldLen := len(hr.rawBuf)
	combinedRaw := append(hr.rawBuf, data...)
	re := rawTextCloseRe[hr.rawTag]
	loc := re.FindIndex(combinedRaw)

	if loc == nil {
		hr.rawBuf = combinedRaw
		if len(hr.rawBuf) > maxBufferedElement {
			hr.rawOverflow = true
			keep := rawTextTailKeep
			if keep > len(hr.rawBuf) {
				keep = len(hr.rawBuf)
			}
			out.Write(hr.rawBuf[:len(hr.rawBuf)-keep])
			hr.rawBuf = hr.rawBuf[len(hr.rawBuf)-keep:]
		}
		if !isFinal {
			return len(data), false, nil
		}
		if err := hr.flushRawBuf(out); err != nil {
			return 0, false, err
		}
		hr.rawTag = ""
		hr.rawOverflow = false
		return len(data), true, nil
	}

	hr.rawBuf = combinedRaw[:loc[0]]
	if err := hr.flushRawBuf(out); err != nil {
		return 0, false, err
	}
	hr.rawOverflow = false
	out.WriteString("</")
	out.WriteString(hr.rawTag)
	out.WriteString(">")
	hr.rawTag = ""

	consumed := loc[1] - oldLen
	if consumed < 0 {
		consumed = 0
	}
	return consumed, true, nil
}

func (hr *HTMLRewriter) flushRawBuf(out *bytes.Buffer) error {
	content := hr.rawBuf
	hr.rawBuf = nil
	if hr.rawOverflow {
		_, err := out.Write(content)
		return err
	}
	switch hr.rawTag {
	case "script":
		return JS(bytes.NewReader(content), out, hr.urlRewriter, hr.ctx.Flags.JSRewriteLocation)
	case "style":
		return CSS(parse.NewInputBytes(content), out, hr.urlRewriter, ModCSS)
	default: // title, textarea: never rewritten
		_, err := out.Write(content)
		return err
	}
}

// rewriteComment optionally rewrites URLs inside an HTML comment body, for
// pages that hide conditional-include markup from non-IE browsers inside
// `<!--[if ...]> ... <![endif]-->` blocks. Only active under
// ctx.Flags.ParseComments; the comment's inner bytes are run through a
// throwaway HTML Rewriter sharing this document's base and URL Rewriter.
func (hr *HTMLRewriter) rewriteComment(out *bytes.Buffer, raw []byte) error {
	const open, close = "<!--", "-->"
	if !bytes.HasPrefix(raw, []byte(open)) || !bytes.HasSuffix(raw, []byte(close)) {
		_, err := out.Write(raw)
		return err
	}
	inner := raw[len(open) : len(raw)-len(close)]

	child := &HTMLRewriter{
		ctx:         hr.ctx,
		urlRewriter: hr.urlRewriter,
		currentBase: hr.currentBase,
	}
	fed, err := child.Feed(inner)
	if err != nil {
		out.WriteString(open)
		out.Write(inner)
		out.WriteString(close)
		return nil
	}
	rest, err := child.Close()
	if err != nil {
		out.WriteString(open)
		out.Write(inner)
		out.WriteString(close)
		return nil
	}
	out.WriteString(open)
	out.Write(fed)
	out.Write(rest)
	out.WriteString(close)
	return nil
}

// maybeInsertHeadBefore inserts the configured head markup immediately
// before tagLower's opening bytes if the document never opens a <head>
// and tagLower is the first tag that counts as content (anything but
// <html> and <head> itself, the latter handled separately right after its
// own open tag closes).
func (hr *HTMLRewriter) maybeInsertHeadBefore(out *bytes.Buffer, tagLower string) {
	if hr.headInsert == nil || hr.headDone || hr.sawHead {
		return
	}
	if tagLower == "html" || tagLower == "head" {
		return
	}
	hr.insertHeadNow(out)
}

func (hr *HTMLRewriter) maybeInsertHeadBeforeText(out *bytes.Buffer, text []byte) {
	if hr.headInsert == nil || hr.headDone || hr.sawHead {
		return
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return
	}
	hr.insertHeadNow(out)
}

func (hr *HTMLRewriter) insertHeadNow(out *bytes.Buffer) {
	if hr.headInsert == nil || hr.headDone {
		return
	}
	out.Write(hr.headInsert)
	hr.headDone = true
}

// htmlCursor mirrors tdewolff's incremental lexer interface with offset
// tracking, the way the rest of this package's lexer-driven rewriters do.
type htmlCursor struct {
	input            *parse.Input
	lexer            *html.Lexer
	startPos, endPos int
}

func (c *htmlCursor) next() (html.TokenType, []byte) {
	c.startPos = c.input.Offset()
	tt, data := c.lexer.Next()
	c.endPos = c.input.Offset()
	return tt, data
}

func (c *htmlCursor) text() []byte {
	return c.lexer.Text()
}

func (c *htmlCursor) attrVal() []byte {
	return c.lexer.AttrVal()
}

func (c *htmlCursor) rawData() []byte {
	return c.input.Bytes()[c.startPos:c.endPos]
}

func (c *htmlCursor) copy(w io.Writer) error {
	_, err := w.Write(c.rawData())
	return err
}

type attributeToken struct {
	data      []byte
	rawData   []byte
	attrName  []byte
	attrValue []byte
}

func (at *attributeToken) cleanValue() (byte, string, error) {
	var outputQuoteType byte
	var value []byte
	if len(at.attrValue) > 0 && (at.attrValue[0] == '\'' || at.attrValue[0] == '"') {
		if len(at.attrValue) < 2 {
			return 0, "", errors.New("attribute value missing closing quote")
		}
		outputQuoteType = at.attrValue[0]
		value = at.attrValue[1 : len(at.attrValue)-1]
	} else {
		outputQuoteType = '"'
		value = at.attrValue
	}
	return outputQuoteType, stdhtml.UnescapeString(string(value)), nil
}

// copy writes the attribute verbatim except for its name, which is
// lowercased on output per spec.md's tag/attribute-name normalization.
func (at *attributeToken) copy(w io.Writer) error {
	return multiWrite(w, []byte(strings.ToLower(string(at.attrName))), at.rawData[len(at.attrName):])
}

// rewrite writes the attribute through handler, or verbatim if handler
// returns ErrNotModified. The attribute name is lowercased on output,
// matching copy.
func (at *attributeToken) rewrite(hr *HTMLRewriter, w io.Writer, tagLower string, handler attrHandler) error {
	outputQuoteType, cleanValue, err := at.cleanValue()
	if err != nil {
		return at.copy(w)
	}
	newValue, err := handler(hr, tagLower, strings.ToLower(string(at.attrName)), cleanValue)
	switch {
	case errors.Is(err, ErrNotModified):
		return at.copy(w)
	case err != nil:
		return err
	}
	newBytes := []byte(stdhtml.EscapeString(newValue))
	sep := at.data[len(at.attrName) : len(at.data)-len(at.attrValue)]
	return multiWrite(w, []byte(strings.ToLower(string(at.attrName))), sep, []byte{outputQuoteType}, newBytes, []byte{outputQuoteType})
}

// renameAndCopy writes the attribute with its value unchanged but its
// name replaced, for script integrity/crossorigin attributes that must
// survive for wombat's benefit under a different name.
func (at *attributeToken) renameAndCopy(w io.Writer, newName string) error {
	return multiWrite(w, []byte(newName), at.data[len(at.attrName):])
}

func multiWrite(w io.Writer, bufs ...[]byte) error {
	for _, buf := range bufs {
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// attrHandler rewrites a single attribute's (already HTML-unescaped)
// value. tagLower and attrLower are both already lowercased.
type attrHandler func(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error)

func (hr *HTMLRewriter) processStartTag(cur *htmlCursor, out *bytes.Buffer, tagLower string) (selfClosed bool, err error) {
	switch tagLower {
	case "meta":
		return false, hr.processMeta(cur, out)
	case "base":
		return hr.processBase(cur, out)
	case "link":
		return false, hr.processLink(cur, out)
	default:
		return hr.processGenericTag(cur, out, tagLower)
	}
}

// processLink handles <link href>, whose target modifier depends on rel:
// stylesheets are rewritten as CSS documents (cs_), a rel=canonical href
// is archive-rewritten only when ctx.Flags.RewriteRelCanon is set and is
// otherwise emitted resolved against the current base but not archive-
// prefixed (so it still names the live URL), and any other relation is
// treated as an opaque sub-resource.
func (hr *HTMLRewriter) processLink(cur *htmlCursor, out *bytes.Buffer) error {
	attrs, closeTagRaw, err := hr.readAttributes(cur)
	if err != nil {
		return err
	}

	rel := ""
	for _, attr := range attrs {
		if strings.ToLower(string(attr.attrName)) == "rel" {
			_, cleanValue, err := attr.cleanValue()
			if err == nil {
				rel = strings.ToLower(cleanValue)
			}
		}
	}
	isCanonical := hasRelToken(rel, "canonical")
	isStylesheet := hasRelToken(rel, "stylesheet")

	for i := range attrs {
		attr := &attrs[i]
		if strings.ToLower(string(attr.attrName)) != "href" {
			if err := attr.copy(out); err != nil {
				return err
			}
			continue
		}
		switch {
		case isCanonical && !hr.ctx.Flags.RewriteRelCanon:
			absolutize := func(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
				resolved, err := resolveURL(trimASCIISpace(value), hr.currentBase)
				if err != nil || resolved == value {
					return "", ErrNotModified
				}
				return resolved, nil
			}
			if err := attr.rewrite(hr, out, "link", absolutize); err != nil {
				return err
			}
		case isStylesheet:
			if err := attr.rewrite(hr, out, "link", stylesheetLinkAttribute); err != nil {
				return err
			}
		default:
			if err := attr.rewrite(hr, out, "link", opaqueURLAttribute); err != nil {
				return err
			}
		}
	}
	_, err = out.Write(closeTagRaw)
	return err
}

func hasRelToken(rel, token string) bool {
	for _, f := range strings.Fields(rel) {
		if f == token {
			return true
		}
	}
	return false
}

func stylesheetLinkAttribute(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
	return hr.urlRewriter(URL{Value: value, Base: hr.currentBase, Mod: ModCSS, Type: URLTypeUnknown})
}

func (hr *HTMLRewriter) processGenericTag(cur *htmlCursor, out *bytes.Buffer, tagLower string) (bool, error) {
	for {
		tt, data := cur.next()
		switch tt {
		case html.AttributeToken:
			attr := attributeToken{data: data, rawData: cur.rawData(), attrName: cur.text(), attrValue: cur.attrVal()}
			if err := hr.writeAttribute(out, tagLower, &attr); err != nil {
				return false, err
			}
		case html.StartTagCloseToken:
			return false, cur.copy(out)
		case html.StartTagVoidToken:
			return true, cur.copy(out)
		case html.ErrorToken:
			return false, cur.eofErr()
		default:
			return false, cur.copy(out)
		}
	}
}

func (hr *HTMLRewriter) writeAttribute(out *bytes.Buffer, tagLower string, attr *attributeToken) error {
	attrLower := strings.ToLower(string(attr.attrName))

	if tagLower == "script" && (attrLower == "integrity" || attrLower == "crossorigin") {
		return attr.renameAndCopy(out, "_"+attrLower)
	}

	handler := attributeHandlerFor(tagLower, attrLower)
	if handler == nil {
		return attr.copy(out)
	}
	return attr.rewrite(hr, out, tagLower, handler)
}

// processBase handles <base href="...">: the in-document base is updated
// regardless of whether the attribute itself ends up rewritten, and only
// the first <base> on the page takes effect.
func (hr *HTMLRewriter) processBase(cur *htmlCursor, out *bytes.Buffer) (bool, error) {
	for {
		tt, data := cur.next()
		switch tt {
		case html.AttributeToken:
			attr := attributeToken{data: data, rawData: cur.rawData(), attrName: cur.text(), attrValue: cur.attrVal()}
			attrLower := strings.ToLower(string(attr.attrName))
			if attrLower != "href" {
				if err := attr.copy(out); err != nil {
					return false, err
				}
				continue
			}
			if err := hr.rewriteBaseHref(out, &attr); err != nil {
				return false, err
			}
		case html.StartTagCloseToken:
			return false, cur.copy(out)
		case html.StartTagVoidToken:
			return true, cur.copy(out)
		case html.ErrorToken:
			return false, cur.eofErr()
		default:
			return false, cur.copy(out)
		}
	}
}

func (hr *HTMLRewriter) rewriteBaseHref(out *bytes.Buffer, attr *attributeToken) error {
	_, cleanValue, err := attr.cleanValue()
	if err != nil {
		return attr.copy(out)
	}
	if hr.baseSet {
		return attr.copy(out)
	}
	hr.baseSet = true

	resolved, err := resolveURL(stdhtml.UnescapeString(cleanValue), hr.currentBase)
	if err == nil {
		hr.currentBase = resolved
	}

	if !hr.ctx.Flags.RewriteBase {
		return attr.copy(out)
	}
	newValue, err := hr.urlRewriter(URL{Value: cleanValue, Type: URLTypeBase})
	if errors.Is(err, ErrNotModified) {
		return attr.copy(out)
	}
	if err != nil {
		return err
	}
	outputQuote, _, _ := attr.cleanValue()
	newBytes := []byte(stdhtml.EscapeString(newValue))
	return multiWrite(out, attr.data[:len(attr.data)-len(attr.attrValue)], []byte{outputQuote}, newBytes, []byte{outputQuote})
}

type metaFlag uint8

const (
	metaFlagRefresh metaFlag = 1 << iota
	metaFlagItemProp
)

func (hr *HTMLRewriter) processMeta(cur *htmlCursor, out *bytes.Buffer) error {
	attrs, closeTagRaw, err := hr.readAttributes(cur)
	if err != nil {
		return err
	}

	var flags metaFlag
	var itemProp string
	for _, attr := range attrs {
		switch strings.ToLower(string(attr.attrName)) {
		case "http-equiv":
			flags |= metaFlagRefresh
		case "itemprop", "property":
			flags |= metaFlagItemProp
			_, cleanValue, err := attr.cleanValue()
			if err == nil {
				itemProp = cleanValue
			}
		}
	}

	switch {
	case flags&metaFlagRefresh != 0:
		for i := range attrs {
			attr := &attrs[i]
			if strings.ToLower(string(attr.attrName)) == "content" {
				if err := attr.rewrite(hr, out, "meta", httpEquivRefreshAttribute); err != nil {
					return err
				}
			} else if err := attr.copy(out); err != nil {
				return err
			}
		}
	case flags&metaFlagItemProp != 0 && isOpenGraphURLProperty(itemProp):
		for i := range attrs {
			attr := &attrs[i]
			if strings.ToLower(string(attr.attrName)) == "content" {
				if err := attr.rewrite(hr, out, "meta", openGraphContentAttribute); err != nil {
					return err
				}
			} else if err := attr.copy(out); err != nil {
				return err
			}
		}
	default:
		for i := range attrs {
			if err := attrs[i].copy(out); err != nil {
				return err
			}
		}
	}
	_, err = out.Write(closeTagRaw)
	return err
}

func (hr *HTMLRewriter) readAttributes(cur *htmlCursor) ([]attributeToken, []byte, error) {
	attrs := make([]attributeToken, 0, 8)
	for {
		tt, data := cur.next()
		switch tt {
		case html.AttributeToken:
			attrs = append(attrs, attributeToken{data: data, rawData: cur.rawData(), attrName: cur.text(), attrValue: cur.attrVal()})
		case html.StartTagCloseToken, html.StartTagVoidToken:
			return attrs, cur.rawData(), nil
		case html.ErrorToken:
			return attrs, nil, cur.eofErr()
		default:
			return attrs, nil, nil
		}
	}
}

// attributeHandlerFor returns the rewrite rule for (tagLower, attrLower),
// or nil if the attribute passes through unchanged. This follows the
// decision table of spec.md §4.6; a handful of further URL-bearing
// attributes outside that table (cite, longdesc, ...) round it out the
// way the WHATWG/HTML5.2 attribute index does.
func attributeHandlerFor(tagLower, attrLower string) attrHandler {
	switch attrLower {
	case "style":
		return styleAttribute
	case "href":
		switch tagLower {
		case "a", "area":
			return urlAttribute
		}
		return nil
	case "src":
		switch tagLower {
		case "script":
			return jsURLAttribute
		case "iframe", "frame":
			return iframeURLAttribute
		case "object", "embed":
			return opaqueURLAttribute
		case "img", "input", "source", "track", "video", "audio":
			return imageURLAttribute
		}
		return nil
	case "data":
		if tagLower == "object" {
			return opaqueURLAttribute
		}
		return nil
	case "action":
		if tagLower == "form" {
			return urlAttribute
		}
		return nil
	case "formaction":
		if tagLower == "button" || tagLower == "input" {
			return urlAttribute
		}
		return nil
	case "background":
		switch tagLower {
		case "body", "table", "td", "th":
			return imageURLAttribute
		}
		return nil
	case "srcset":
		switch tagLower {
		case "img", "source":
			return srcSetAttribute
		}
		return nil
	case "value":
		if tagLower == "param" {
			return absoluteOnlyAttribute(opaqueURLAttribute)
		}
		return nil
	case "poster":
		if tagLower == "video" {
			return imageURLAttribute
		}
		return nil
	case "icon":
		if tagLower == "command" {
			return urlAttribute
		}
		return nil
	case "manifest":
		if tagLower == "html" {
			return urlAttribute
		}
		return nil
	case "profile":
		if tagLower == "head" {
			return urlAttribute
		}
		return nil
	case "usemap":
		switch tagLower {
		case "img", "input", "object":
			return urlAttribute
		}
		return nil
	case "cite":
		switch tagLower {
		case "blockquote", "del", "ins", "q":
			return urlAttribute
		}
		return nil
	case "longdesc":
		switch tagLower {
		case "img", "frame", "iframe":
			return urlAttribute
		}
		return nil
	case "classid", "codebase":
		if tagLower == "object" {
			return urlAttribute
		}
		return nil
	case "archive":
		switch tagLower {
		case "object":
			return urlListAttribute(" ")
		case "applet":
			return urlListAttribute(",")
		}
		return nil
	}
	if strings.HasPrefix(attrLower, "on") && len(attrLower) > 2 {
		return eventHandlerAttribute
	}
	if strings.HasPrefix(attrLower, "data-") {
		return absoluteOnlyAttribute(opaqueURLAttribute)
	}
	return nil
}

func urlAttribute(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
	return hr.urlRewriter(URL{Value: value, Base: hr.currentBase, Type: URLTypeUnknown})
}

func imageURLAttribute(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
	return hr.urlRewriter(URL{Value: value, Base: hr.currentBase, Mod: ModImage, Type: URLTypeUnknown})
}

func jsURLAttribute(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
	return hr.urlRewriter(URL{Value: value, Base: hr.currentBase, Mod: ModJS, Type: URLTypeUnknown})
}

func iframeURLAttribute(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
	return hr.urlRewriter(URL{Value: value, Base: hr.currentBase, Mod: ModIframe, Type: URLTypeUnknown})
}

func opaqueURLAttribute(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
	return hr.urlRewriter(URL{Value: value, Base: hr.currentBase, Mod: ModOpaque, Type: URLTypeUnknown})
}

func absoluteOnlyAttribute(inner attrHandler) attrHandler {
	return func(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
		if !looksAbsolute(value) {
			return "", ErrNotModified
		}
		return inner(hr, tagLower, attrLower, value)
	}
}

func looksAbsolute(value string) bool {
	m := schemeRe.FindStringSubmatch(strings.TrimSpace(value))
	return m != nil
}

func styleAttribute(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
	var sb strings.Builder
	err := CSS(parse.NewInputString(value), &sb, inlineCSSRewriter(hr), ModCSS)
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// inlineCSSRewriter adapts the document's URLRewriter to resolve against
// the current in-document base, since an inline style attribute has no
// @import/url() context of its own.
func inlineCSSRewriter(hr *HTMLRewriter) URLRewriter {
	return func(u URL) (string, error) {
		u.Base = hr.currentBase
		return hr.urlRewriter(u)
	}
}

func eventHandlerAttribute(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
	return RewriteJSString(value, inlineCSSRewriter(hr), hr.ctx.Flags.JSRewriteLocation)
}

func urlListAttribute(separator string) attrHandler {
	return func(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
		parts := strings.Split(value, separator)
		var sb strings.Builder
		anyModified := false
		for i, part := range parts {
			if i > 0 {
				sb.WriteString(separator)
			}
			rewritten, err := hr.urlRewriter(URL{Value: part, Base: hr.currentBase, Type: URLTypeUnknown})
			switch {
			case errors.Is(err, ErrNotModified):
				sb.WriteString(part)
			case err != nil:
				return "", err
			default:
				sb.WriteString(rewritten)
				anyModified = true
			}
		}
		if !anyModified {
			return "", ErrNotModified
		}
		return sb.String(), nil
	}
}

func srcSetAttribute(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
	parts := strings.Split(value, ",")
	var sb strings.Builder
	anyModified := false
	for i, part := range parts {
		if i > 0 {
			sb.WriteString(", ")
		}
		trimmed := strings.TrimSpace(part)
		fields := strings.SplitN(trimmed, " ", 2)
		if len(trimmed) == 0 || len(fields) == 0 {
			sb.WriteString(part)
			continue
		}
		rewritten, err := hr.urlRewriter(URL{Value: fields[0], Base: hr.currentBase, Mod: ModImage, Type: URLTypeUnknown})
		switch {
		case errors.Is(err, ErrNotModified):
			sb.WriteString(part)
		case err != nil:
			return "", err
		default:
			sb.WriteString(rewritten)
			if len(fields) > 1 {
				sb.WriteString(" ")
				sb.WriteString(fields[1])
			}
			anyModified = true
		}
	}
	if !anyModified {
		return "", ErrNotModified
	}
	return sb.String(), nil
}

var refreshRe = regexp.MustCompile(`^\s*(\d+)\s*(?:;\s*url=(.*)\s*)?$`)

func httpEquivRefreshAttribute(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
	m := refreshRe.FindStringSubmatch(value)
	if len(m) != 3 || m[2] == "" {
		return "", ErrNotModified
	}
	newURL, err := hr.urlRewriter(URL{Value: m[2], Base: hr.currentBase, Type: URLTypeUnknown})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(m[1])
	sb.WriteString(";url=")
	sb.WriteString(newURL)
	return sb.String(), nil
}

func openGraphContentAttribute(hr *HTMLRewriter, tagLower, attrLower, value string) (string, error) {
	return hr.urlRewriter(URL{Value: value, Type: URLTypeOpenGraph})
}
