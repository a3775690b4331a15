package rewrite

import (
	"errors"
	"io"
)

// ignoreEOF turns io.EOF into a nil error. Sub-lexers (CSS, HTML) signal
// "no more tokens" by returning io.EOF from their Err() method; callers
// driving a lexer to completion treat that as success, not failure.
func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// ErrNotModified can be returned by a URLRewriter to signal the URL should
// not be changed. Returning it is faster than returning an identical string,
// since callers can skip re-serializing the surrounding attribute/token.
var ErrNotModified = errors.New("not modified")

// URLRewriter rewrites a single URL reference found in a document.
// Return ErrNotModified if u.Value should pass through unchanged.
type URLRewriter func(u URL) (string, error)

// URL describes one URL reference to rewrite.
type URL struct {
	// Value is the original URL as it appeared in the source.
	Value string
	// Base is the absolute URL Value resolves against. Empty means "use
	// the Context's OriginalURL" (the document's original base, before
	// any in-document <base> tag). Callers that track a mutable
	// in-document base (the HTML Rewriter) pass it explicitly here so
	// the URLRewriter itself stays stateless and shareable.
	Base string
	// Mod overrides the Context's default modifier for this reference.
	// Empty means "use the context default".
	Mod Mod
	// Type further qualifies how Value should be interpreted.
	Type URLType
}

// URLType is a hint about the semantics of a URL reference, used by the
// URL Rewriter to apply per-type resolution rules.
type URLType uint8

const (
	URLTypeUnknown URLType = iota
	// URLTypeBase marks the href of a <base> tag: its resolution always
	// uses the document's original base, never the in-document base.
	URLTypeBase
	// URLTypeOpenGraph marks an OpenGraph/itemprop URL property: these are
	// always absolute and never resolve against <base>.
	URLTypeOpenGraph
	// URLTypeCSS marks a URL found inside CSS (url(...) or @import).
	URLTypeCSS
	// URLTypeJS marks a URL found inside a JS string literal.
	URLTypeJS
)
