package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesPattern(t *testing.T) {
	assert.True(t, matchesPattern("https://x.test/viewjob", []string{"/viewjob*"}))
	assert.True(t, matchesPattern("https://x.test/viewjob?jk=1", []string{"/viewjob*"}))
	assert.True(t, matchesPattern("https://x.test/rc/clk", []string{"/viewjob*", "/rc/*"}))
	assert.False(t, matchesPattern("https://x.test/company/about", []string{"/viewjob*"}))
	// No patterns means everything passes.
	assert.True(t, matchesPattern("https://x.test/anything", nil))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "https://x.test/viewjob?jk=1", normalize("https://x.test/viewjob?jk=1#frag"))
	assert.Equal(t, "https://x.test", normalize("https://x.test/"))
}
