package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvester/internal/config"
	"harvester/internal/core/extract"
)

type memRepo struct {
	rows []*JobPosting
	// Insert fails for candidates with this exact title.
	failTitle string
}

func (m *memRepo) FindByURL(_ context.Context, url string) (*JobPosting, error) {
	for _, p := range m.rows {
		if p.URL == url {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) FuzzyFind(_ context.Context, title, company string) (*JobPosting, error) {
	for _, p := range m.rows {
		if strings.EqualFold(p.Title, title) && strings.EqualFold(p.Company, company) {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) Insert(_ context.Context, p *JobPosting) error {
	if m.failTitle != "" && p.Title == m.failTitle {
		return errors.New("insert rejected")
	}
	m.rows = append(m.rows, p)
	return nil
}

func newTestService(repo *memRepo) *Service {
	return NewService(repo, nil, config.DefaultSite())
}

func TestSaveAllDeduplicatesByURL(t *testing.T) {
	repo := &memRepo{}
	s := newTestService(repo)

	batch := []extract.Candidate{
		{Title: "Software Engineer", Company: "Initech", URL: "https://x.test/viewjob?jk=1"},
		{Title: "Software Engineer II", Company: "Initech", URL: "https://x.test/viewjob?jk=1"},
	}
	res := s.SaveAll(context.Background(), batch)

	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, res.Errors)
	assert.Len(t, repo.rows, 1)
}

func TestSaveAllFuzzyDuplicate(t *testing.T) {
	repo := &memRepo{}
	s := newTestService(repo)

	first := s.SaveAll(context.Background(), []extract.Candidate{
		{Title: "Backend Developer", Company: "Globex", URL: "https://x.test/viewjob?jk=2"},
	})
	require.Equal(t, 1, first.Saved)

	// Same posting reached through a different URL, different letter case.
	second := s.SaveAll(context.Background(), []extract.Candidate{
		{Title: "backend developer", Company: "GLOBEX", URL: "https://x.test/rc/clk?jk=other"},
	})
	assert.Equal(t, 0, second.Saved)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, repo.rows, 1)
}

func TestSaveAllIdempotentAcrossRuns(t *testing.T) {
	repo := &memRepo{}
	s := newTestService(repo)

	batch := []extract.Candidate{
		{Title: "Platform Engineer", Company: "Hooli", URL: "https://x.test/viewjob?jk=3"},
		{Title: "Data Engineer", Company: "Initech", URL: "https://x.test/viewjob?jk=4"},
	}

	first := s.SaveAll(context.Background(), batch)
	assert.Equal(t, 2, first.Saved)

	second := s.SaveAll(context.Background(), batch)
	assert.Equal(t, 0, second.Saved)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, repo.rows, 2)
}

func TestSaveAllIsolatesRecordErrors(t *testing.T) {
	repo := &memRepo{failTitle: "Poison Record"}
	s := newTestService(repo)

	res := s.SaveAll(context.Background(), []extract.Candidate{
		{Title: "Good Record One", Company: "Initech", URL: "https://x.test/viewjob?jk=5"},
		{Title: "Poison Record", Company: "Globex", URL: "https://x.test/viewjob?jk=6"},
		{Title: "Good Record Two", Company: "Hooli", URL: "https://x.test/viewjob?jk=7"},
	})

	assert.Equal(t, 2, res.Saved)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Poison Record")
	assert.Len(t, repo.rows, 2)
}

func TestApplyLinkIsCanonicalURL(t *testing.T) {
	repo := &memRepo{}
	s := newTestService(repo)

	res := s.SaveAll(context.Background(), []extract.Candidate{{
		Title:    "Site Reliability Engineer",
		Company:  "Umbrella",
		URL:      "https://x.test/viewjob?jk=9",
		ApplyURL: "https://x.test/applystart?jk=9",
	}})
	require.Equal(t, 1, res.Saved)

	p := repo.rows[0]
	assert.Equal(t, "https://x.test/applystart?jk=9", p.URL)
	assert.Equal(t, "https://x.test/viewjob?jk=9", p.ExtractedData["page_url"])
	assert.Equal(t, true, p.ExtractedData["apply_link_found"])

	// The same posting reached through a different results page still
	// de-duplicates on the apply link.
	second := s.SaveAll(context.Background(), []extract.Candidate{{
		Title:    "Site Reliability Engineer II",
		Company:  "Umbrella Corp",
		URL:      "https://x.test/rc/clk?jk=elsewhere",
		ApplyURL: "https://x.test/applystart?jk=9",
	}})
	assert.Equal(t, 0, second.Saved)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, repo.rows, 1)
}

func TestSavedPostingIsEnriched(t *testing.T) {
	repo := &memRepo{}
	s := newTestService(repo)

	res := s.SaveAll(context.Background(), []extract.Candidate{{
		Title:       "Senior Software Engineer",
		Company:     "Initech",
		Location:    "Remote",
		SalaryText:  "$95,000 - $120,000 a year",
		Description: "Build react dashboards in javascript against an aws backend.",
		URL:         "https://x.test/viewjob?jk=8",
		ApplyURL:    "https://x.test/applystart?jk=8",
		Provenance:  map[string]int{"title": 1, "company": 0},
	}})
	require.Equal(t, 1, res.Saved)
	require.Len(t, repo.rows, 1)

	p := repo.rows[0]
	require.NotNil(t, p.SalaryMin)
	assert.Equal(t, 95000.0, *p.SalaryMin)
	assert.Equal(t, 120000.0, *p.SalaryMax)
	assert.Equal(t, "yearly", p.SalaryPeriodAssumed)

	assert.Equal(t, "senior", p.ExperienceLevel)
	assert.True(t, p.IsRemote)
	assert.ElementsMatch(t, StringSlice{"javascript", "react", "aws"}, p.Tags)

	assert.Equal(t, true, p.ExtractedData["apply_link_found"])
	assert.Equal(t, "indeed", p.Source)
}
