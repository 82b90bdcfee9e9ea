package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSiteIsComplete(t *testing.T) {
	site := DefaultSite()

	assert.Equal(t, "indeed", site.Source)
	assert.NotEmpty(t, site.CardSelectors)
	for _, field := range []string{"title", "company", "location", "salary", "description", "url"} {
		assert.NotEmpty(t, site.Fields[field], "field %s has no selector chain", field)
	}
	assert.Equal(t, ValidationTitleAndCompany, site.ValidationMode)
	assert.Greater(t, site.QueryDelayMaxSec, site.QueryDelayMinSec)
	assert.Greater(t, site.BackoffMaxAttempts, 0)
}

func TestLoadSiteWithoutPathReturnsDefaults(t *testing.T) {
	site, err := LoadSite("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSite().Source, site.Source)
}

func TestLoadSiteOverlaysYAML(t *testing.T) {
	yaml := `
source: otherboard
base_url: https://jobs.other.test
queries:
  - golang developer
card_selectors:
  - ".posting-card"
fields:
  title:
    - ".posting-title"
  company:
    - ".posting-org"
query_delay_min_sec: 5
`
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	site, err := LoadSite(path)
	require.NoError(t, err)

	assert.Equal(t, "otherboard", site.Source)
	assert.Equal(t, "https://jobs.other.test", site.BaseURL)
	assert.Equal(t, []string{"golang developer"}, site.Queries)
	assert.Equal(t, []string{".posting-card"}, site.CardSelectors)
	assert.Equal(t, []string{".posting-title"}, site.Fields["title"])

	// Unset values fall back to built-in defaults.
	assert.Equal(t, 5, site.QueryDelayMinSec)
	assert.Equal(t, DefaultSite().QueryDelayMaxSec, site.QueryDelayMaxSec)
	assert.Equal(t, DefaultSite().ChallengeWaitSec, site.ChallengeWaitSec)
	assert.Equal(t, ValidationTitleAndCompany, site.ValidationMode)
}

func TestLoadSiteMissingFile(t *testing.T) {
	_, err := LoadSite("/nonexistent/site.yaml")
	assert.Error(t, err)
}
