package rewrite

import "regexp"

// RegexReplaceFunc produces the replacement text for one match, given the
// raw matched text and the URL Rewriter in effect.
type RegexReplaceFunc func(match string, rewriter URLRewriter) (string, error)

// RegexRule is one (pattern, replace) pair in a RegexRewriter.
type RegexRule struct {
	Pattern *regexp.Regexp
	Replace RegexReplaceFunc
}

// RegexRewriter applies an ordered list of regex rules to a whole buffer.
// It backs content types spec.md §6 names as "regex passthroughs" (HLS
// playlists, and custom rules layered on top of any other rewriter by a
// RuleSet) and is the base every other textual rewriter in this package
// could be expressed in terms of, for MIME types narrow enough that a
// full tokenizer would be overkill.
type RegexRewriter struct {
	rules []RegexRule
}

// NewRegexRewriter builds a RegexRewriter applying rules left to right.
func NewRegexRewriter(rules ...RegexRule) *RegexRewriter {
	return &RegexRewriter{rules: append([]RegexRule(nil), rules...)}
}

// Rewrite applies every rule in order to src and returns the result.
func (rr *RegexRewriter) Rewrite(src string, rewriter URLRewriter) (string, error) {
	out := src
	for _, rule := range rr.rules {
		var ruleErr error
		out = rule.Pattern.ReplaceAllStringFunc(out, func(match string) string {
			if ruleErr != nil {
				return match
			}
			replaced, err := rule.Replace(match, rewriter)
			if err != nil {
				ruleErr = err
				return match
			}
			return replaced
		})
		if ruleErr != nil {
			return "", ruleErr
		}
	}
	return out, nil
}

// absoluteURLPattern matches absolute http(s) and scheme-relative URLs in
// otherwise-opaque text, for the regex-passthrough content types (e.g.
// HLS/DASH manifests) that get no dedicated tokenizer.
var absoluteURLPattern = regexp.MustCompile(`(?:https?:)?//[^\s"'<>]+`)

// PlainTextURLRule rewrites bare absolute/scheme-relative URLs appearing
// in otherwise unstructured text, used for manifest-like formats.
func PlainTextURLRule() RegexRule {
	return RegexRule{
		Pattern: absoluteURLPattern,
		Replace: func(match string, rewriter URLRewriter) (string, error) {
			rewritten, err := rewriter(URL{Value: match, Type: URLTypeUnknown})
			if err != nil {
				return match, nil
			}
			return rewritten, nil
		},
	}
}
