package archivekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalStripsTrackingParams(t *testing.T) {
	got := Canonical("https://example.com/page?utm_source=x&id=5")
	assert.Equal(t, Canonical("https://example.com/page?id=5"), got)
}

func TestCanonicalReordersQuery(t *testing.T) {
	a := Canonical("https://example.com/page?b=2&a=1")
	b := Canonical("https://example.com/page?a=1&b=2")
	assert.Equal(t, a, b)
}

func TestCanonicalDropsFragment(t *testing.T) {
	got := Canonical("https://example.com/page#section")
	assert.NotContains(t, got, "#")
}

func TestCanonicalInvalidURL(t *testing.T) {
	assert.Equal(t, "", Canonical(":not a url"))
}

func TestCanonicalRelativeURL(t *testing.T) {
	assert.Equal(t, "", Canonical("/relative/path"))
}
