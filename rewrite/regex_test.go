package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexRewriterAppliesRule(t *testing.T) {
	rr := NewRegexRewriter(
		RegexRule{Pattern: absoluteURLPattern, Replace: func(match string, rewriter URLRewriter) (string, error) {
			return rewriter(URL{Value: match})
		}},
	)
	out, err := rr.Rewrite("see http://example.com/a and //example.com/b", fixedRewriter("X"))
	require.NoError(t, err)
	assert.Equal(t, "see X and X", out)
}

func TestPlainTextURLRuleDegradesOnError(t *testing.T) {
	errRewriter := func(u URL) (string, error) { return "", assert.AnError }
	rule := PlainTextURLRule()
	out, err := rule.Replace("http://example.com/a", errRewriter)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/a", out)
}

func TestRegexRewriterStopsOnError(t *testing.T) {
	boom := func(match string, rewriter URLRewriter) (string, error) {
		return "", assert.AnError
	}
	rr := NewRegexRewriter(RegexRule{Pattern: absoluteURLPattern, Replace: boom})
	_, err := rr.Rewrite("http://example.com/a", passthroughRewriter())
	assert.Error(t, err)
}
