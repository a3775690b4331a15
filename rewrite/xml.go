package rewrite

import (
	"errors"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
)

// xmlURLAttrs names the attributes XML rewrites when their value looks
// like an absolute or scheme-relative URL: XLink's href (SVG, SMIL, RSS
// enclosures) and the plain href/src some XML vocabularies reuse from
// HTML.
var xmlURLAttrs = map[string]struct{}{
	"href":       {},
	"src":        {},
	"xlink:href": {},
}

// XML rewrites absolute-URL-bearing attributes in a generic XML document
// (RSS/Atom feeds, sitemaps, SVG) read from r, writing the result to w.
// Unlike HTML, XML carries no fixed attribute/tag vocabulary to dispatch
// on, so only a small set of well-known URL-bearing attribute names are
// rewritten; everything else, including element text, passes through
// unchanged.
func XML(r io.Reader, w io.Writer, rewriter URLRewriter) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	input := parse.NewInputBytes(data)
	l := xml.NewLexer(input)
	xr := &xmlRewriter{input: input, lexer: l, w: w, urlRewriter: rewriter}
	for {
		tt, text := xr.next()
		switch tt {
		case xml.ErrorToken:
			return ignoreEOF(l.Err())
		case xml.AttributeToken:
			if err := xr.handleAttribute(text); err != nil {
				return err
			}
		default:
			if err := xr.copy(); err != nil {
				return err
			}
		}
	}
}

type xmlRewriter struct {
	input            *parse.Input
	lexer            *xml.Lexer
	w                io.Writer
	startPos, endPos int
	urlRewriter      URLRewriter
}

func (xr *xmlRewriter) next() (xml.TokenType, []byte) {
	xr.startPos = xr.input.Offset()
	tt, data := xr.lexer.Next()
	xr.endPos = xr.input.Offset()
	return tt, data
}

func (xr *xmlRewriter) rawData() []byte {
	return xr.input.Bytes()[xr.startPos:xr.endPos]
}

func (xr *xmlRewriter) copy() error {
	_, err := xr.w.Write(xr.rawData())
	return err
}

func (xr *xmlRewriter) handleAttribute(name []byte) error {
	attrName := strings.ToLower(string(name))
	if _, ok := xmlURLAttrs[attrName]; !ok {
		return xr.copy()
	}

	raw := xr.rawData()
	value := xr.lexer.AttrVal()
	quote := byte(0)
	inner := value
	if len(value) >= 2 && (value[0] == '\'' || value[0] == '"') {
		quote = value[0]
		inner = value[1 : len(value)-1]
	}
	if !looksAbsolute(string(inner)) && !strings.HasPrefix(strings.TrimSpace(string(inner)), "//") {
		return xr.copy()
	}

	newValue, err := xr.urlRewriter(URL{Value: string(inner), Type: URLTypeUnknown})
	if errors.Is(err, ErrNotModified) {
		return xr.copy()
	}
	if err != nil {
		return err
	}

	prefix := raw[:len(raw)-len(value)]
	if quote == 0 {
		return multiWrite(xr.w, prefix, []byte(newValue))
	}
	return multiWrite(xr.w, prefix, []byte{quote}, []byte(newValue), []byte{quote})
}
