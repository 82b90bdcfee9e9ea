package harvest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvester/internal/config"
	"harvester/internal/core/extract"
	"harvester/internal/core/run"
	"harvester/internal/core/session"
	"harvester/internal/core/store"
	"harvester/internal/logger"
)

func testService() *Service {
	return &Service{log: logger.New("HarvestService"), site: config.DefaultSite()}
}

func TestChooseStrategy(t *testing.T) {
	assert.Equal(t, session.StrategyModernBrowser, chooseStrategy("modern_browser"))
	assert.Equal(t, session.StrategyMobileDevice, chooseStrategy("mobile_device"))
	// Unknown names fall back to the most trusted strategy.
	assert.Equal(t, session.StrategyModernBrowser, chooseStrategy("smart_fridge"))
	assert.Equal(t, session.StrategyModernBrowser, chooseStrategy(""))
}

func TestSearchURL(t *testing.T) {
	site := config.DefaultSite()
	got := SearchURL(site, "entry level software engineer")
	assert.Equal(t,
		"https://www.indeed.com/jobs?q=entry+level+software+engineer&fromage=14&sort=date&radius=50",
		got)
}

func TestCollectToleratesQueryFailures(t *testing.T) {
	s := testService()
	sum := &run.Summary{}

	calls := 0
	runOne := func(_ context.Context, q string) (store.SaveResult, error) {
		calls++
		if q == "bad" {
			return store.SaveResult{}, errors.New("results page not reachable")
		}
		return store.SaveResult{Saved: 2, Skipped: 1}, nil
	}

	s.collect(context.Background(), sum, []string{"good one", "bad", "good two"}, 0, runOne, func() {})

	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, sum.QueriesAttempted)
	assert.Equal(t, 1, sum.QueriesFailed)
	assert.Equal(t, 4, sum.Saved)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 6, sum.Collected)
	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0], "bad")
}

func TestCollectStopsEarlyAtMaxRecords(t *testing.T) {
	s := testService()
	sum := &run.Summary{}

	calls := 0
	runOne := func(_ context.Context, _ string) (store.SaveResult, error) {
		calls++
		return store.SaveResult{Saved: 5}, nil
	}

	s.collect(context.Background(), sum, []string{"a", "b", "c", "d"}, 10, runOne, func() {})

	assert.Equal(t, 2, calls)
	assert.Equal(t, 10, sum.Collected)
}

func TestCollectPausesBetweenQueriesOnly(t *testing.T) {
	s := testService()
	sum := &run.Summary{}

	pauses := 0
	runOne := func(_ context.Context, _ string) (store.SaveResult, error) {
		return store.SaveResult{Saved: 1}, nil
	}

	s.collect(context.Background(), sum, []string{"a", "b", "c"}, 0, runOne, func() { pauses++ })

	// Two gaps for three queries; no pause after the last.
	assert.Equal(t, 2, pauses)
}

func TestCollectHonorsCancellation(t *testing.T) {
	s := testService()
	sum := &run.Summary{}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	runOne := func(_ context.Context, _ string) (store.SaveResult, error) {
		calls++
		cancel()
		return store.SaveResult{Saved: 1}, nil
	}

	s.collect(ctx, sum, []string{"a", "b", "c"}, 0, runOne, func() {})

	assert.Equal(t, 1, calls)
	assert.Contains(t, sum.Errors, "run cancelled")
}

func TestBackoffDelayEscalatesAndCaps(t *testing.T) {
	bo := Backoff{Base: 15 * time.Second, Max: 120 * time.Second, MaxAttempts: 3}

	d1 := bo.Delay(1)
	d2 := bo.Delay(2)
	d3 := bo.Delay(3)

	assert.GreaterOrEqual(t, d1, 15*time.Second)
	assert.GreaterOrEqual(t, d2, 30*time.Second)
	assert.GreaterOrEqual(t, d3, 60*time.Second)

	for attempt := 1; attempt <= 10; attempt++ {
		assert.LessOrEqual(t, bo.Delay(attempt), 120*time.Second)
	}
}

func TestMergeDetailPrecedence(t *testing.T) {
	c := extract.Candidate{
		Title:      "Software Engineer",
		SalaryText: "$80,000 a year",
		Provenance: map[string]int{"title": 0},
	}
	d := extract.Candidate{
		Description: "Full markdown description",
		ApplyURL:    "https://x.test/applystart?jk=1",
		SalaryText:  "$999,999 a year",
		Location:    "Austin, TX",
		Provenance:  map[string]int{"description": 0, "apply": 1},
	}

	mergeDetail(&c, d)

	assert.Equal(t, "Full markdown description", c.Description)
	assert.Equal(t, "https://x.test/applystart?jk=1", c.ApplyURL)
	// Results-page salary wins when present.
	assert.Equal(t, "$80,000 a year", c.SalaryText)
	assert.Equal(t, "Austin, TX", c.Location)
	assert.Equal(t, 1, c.Provenance["apply"])
}
