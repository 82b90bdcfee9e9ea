package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHeaderProfileMatchesStrategy(t *testing.T) {
	for i := 0; i < 20; i++ {
		p := GetHeaderProfile(StrategyModernBrowser)
		assert.NotContains(t, p.UserAgent, "Mobile")

		m := GetHeaderProfile(StrategyMobileDevice)
		assert.Contains(t, m.UserAgent, "Mobile")
	}
}

func TestHeadersOmitEmptyValues(t *testing.T) {
	// The Safari desktop profile carries no client-hint headers.
	var safari HeaderProfile
	for _, p := range modernBrowserProfiles {
		if strings.Contains(p.UserAgent, "Version/18.2 Safari") {
			safari = p
		}
	}
	require.NotEmpty(t, safari.UserAgent)

	h := safari.Headers()
	assert.NotContains(t, h, "Sec-Ch-Ua")
	assert.NotContains(t, h, "Sec-Fetch-User")
	assert.Equal(t, "document", h["Sec-Fetch-Dest"])
	assert.Equal(t, "1", h["Upgrade-Insecure-Requests"])
}

func TestHeadersIncludeClientHintsWhenPresent(t *testing.T) {
	chrome := modernBrowserProfiles[0]
	h := chrome.Headers()
	assert.Contains(t, h["Sec-Ch-Ua"], "Chromium")
	assert.Equal(t, "?0", h["Sec-Ch-Ua-Mobile"])
	assert.Equal(t, "?1", h["Sec-Fetch-User"])
}

func TestGetAllStrategiesOrder(t *testing.T) {
	got := GetAllStrategies()
	require.Len(t, got, 2)
	assert.Equal(t, StrategyModernBrowser, got[0])
}
