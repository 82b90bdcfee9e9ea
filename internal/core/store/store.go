// Package store is the persistence gate: it decides which extracted records
// become rows and silently drops the ones already known.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"harvester/internal/config"
	"harvester/internal/core/extract"
	"harvester/internal/core/salary"
	"harvester/internal/logger"
	"harvester/internal/platform/redis"
)

// ErrNotFound is returned by repository lookups that matched nothing.
var ErrNotFound = errors.New("posting not found")

// Recently-saved URLs are cached this long to skip the database round-trip on
// re-harvests of the same queries.
const seenTTL = 24 * time.Hour

// Repository is the persistence surface. The gorm implementation runs in
// production; tests plug in an in-memory one.
type Repository interface {
	FindByURL(ctx context.Context, url string) (*JobPosting, error)
	FuzzyFind(ctx context.Context, title, company string) (*JobPosting, error)
	Insert(ctx context.Context, p *JobPosting) error
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) FindByURL(ctx context.Context, url string) (*JobPosting, error) {
	var p JobPosting
	err := r.db.WithContext(ctx).Where("url = ?", url).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FuzzyFind catches the same posting reached through a different URL. Case
// folding is left to the database.
func (r *GormRepository) FuzzyFind(ctx context.Context, title, company string) (*JobPosting, error) {
	var p JobPosting
	err := r.db.WithContext(ctx).
		Where("title ILIKE ? AND company ILIKE ?", title, company).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepository) Insert(ctx context.Context, p *JobPosting) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// SaveResult summarizes one batch through the gate.
type SaveResult struct {
	Saved   int
	Skipped int
	Errors  []string
}

type Service struct {
	repo Repository
	rds  *redis.Service
	site config.Site
	log  *logger.Logger
}

// NewService wires the gate. rds may be nil; the seen-URL cache is then
// skipped and every record goes through the database checks.
func NewService(repo Repository, rds *redis.Service, site config.Site) *Service {
	return &Service{repo: repo, rds: rds, site: site, log: logger.New("PersistenceGate")}
}

// SaveAll runs the gate over a batch. Each record passes or fails on its own;
// one bad row never aborts its neighbours.
func (s *Service) SaveAll(ctx context.Context, cands []extract.Candidate) SaveResult {
	var res SaveResult
	for i := range cands {
		saved, err := s.saveOne(ctx, &cands[i])
		switch {
		case err != nil:
			res.Errors = append(res.Errors, err.Error())
		case saved:
			res.Saved++
		default:
			res.Skipped++
		}
	}
	s.log.LogInfof("Batch done: %d saved, %d skipped, %d errors", res.Saved, res.Skipped, len(res.Errors))
	return res
}

func (s *Service) saveOne(ctx context.Context, c *extract.Candidate) (bool, error) {
	canonical := c.CanonicalURL()

	if s.rds != nil && canonical != "" && s.rds.WasSeen(ctx, canonical) {
		return false, nil
	}

	if canonical != "" {
		if _, err := s.repo.FindByURL(ctx, canonical); err == nil {
			s.markSeen(ctx, canonical)
			return false, nil
		} else if !errors.Is(err, ErrNotFound) {
			return false, fmt.Errorf("lookup by url %s: %w", canonical, err)
		}
	}

	if _, err := s.repo.FuzzyFind(ctx, c.Title, c.Company); err == nil {
		s.markSeen(ctx, canonical)
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("fuzzy lookup %q/%q: %w", c.Title, c.Company, err)
	}

	p := s.toPosting(c)
	if err := s.repo.Insert(ctx, p); err != nil {
		return false, fmt.Errorf("insert %q: %w", c.Title, err)
	}
	s.markSeen(ctx, canonical)
	return true, nil
}

func (s *Service) markSeen(ctx context.Context, url string) {
	if s.rds == nil || url == "" {
		return
	}
	s.rds.MarkSeen(ctx, url, seenTTL)
}

// toPosting builds the row. The canonical url prefers the direct apply link;
// apply_link_found and the page URL are kept as provenance.
func (s *Service) toPosting(c *extract.Candidate) *JobPosting {
	p := &JobPosting{
		Source:      s.site.Source,
		Title:       strings.TrimSpace(c.Title),
		Company:     strings.TrimSpace(c.Company),
		Location:    strings.TrimSpace(c.Location),
		SalaryText:  c.SalaryText,
		Description: c.Description,
		URL:         c.CanonicalURL(),
		ApplyURL:    c.ApplyURL,
		ExtractedData: JSONMap{
			"selector_provenance": c.Provenance,
			"apply_link_found":    c.ApplyURL != "",
			"page_url":            c.URL,
		},
	}
	if r := salary.ParseRange(c.SalaryText); r.Min != nil {
		p.SalaryMin = r.Min
		p.SalaryMax = r.Max
		p.SalaryPeriodAssumed = string(r.PeriodAssumed)
	}
	Classify(p)
	return p
}
