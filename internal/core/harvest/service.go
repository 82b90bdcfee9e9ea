// Package harvest orchestrates a full run: one stealth session, a sequence of
// paced queries, extraction, and the persistence gate.
package harvest

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/playwright-community/playwright-go"

	"harvester/internal/config"
	"harvester/internal/core/challenge"
	"harvester/internal/core/diag"
	"harvester/internal/core/extract"
	"harvester/internal/core/run"
	"harvester/internal/core/session"
	"harvester/internal/core/store"
	"harvester/internal/logger"
)

type Service struct {
	log        *logger.Logger
	cfg        config.Config
	site       config.Site
	sessions   *session.Manager
	challenges *challenge.Handler
	extractor  *extract.Engine
	gate       *store.Service
	runs       *run.Service
	diag       *diag.Service
}

// New wires a harvest service. diagSvc may be nil; screenshots are then
// skipped.
func New(cfg config.Config, site config.Site, runs *run.Service, gate *store.Service, diagSvc *diag.Service) *Service {
	return &Service{
		log:        logger.New("HarvestService"),
		cfg:        cfg,
		site:       site,
		sessions:   session.NewManager(),
		challenges: challenge.NewHandler(),
		extractor:  extract.NewEngine(site),
		gate:       gate,
		runs:       runs,
		diag:       diagSvc,
	}
}

// chooseStrategy resolves the configured header-strategy name; unknown names
// fall back to the first (most trusted) strategy.
func chooseStrategy(name string) session.HeaderStrategy {
	for _, st := range session.GetAllStrategies() {
		if string(st) == name {
			return st
		}
	}
	return session.GetAllStrategies()[0]
}

// SearchURL builds the results URL for one query.
func SearchURL(site config.Site, query string) string {
	return site.BaseURL + fmt.Sprintf(site.SearchPath, url.QueryEscape(query))
}

// Execute drives one run end to end. Per-query failures land in the summary;
// only session-fatal conditions (launch failure, blocked landing page, every
// query failing) fail the run itself.
func (s *Service) Execute(ctx context.Context, runID string, queries []string) error {
	if len(queries) == 0 {
		queries = s.site.Queries
	}
	if err := s.runs.SetProcessing(ctx, runID, s.site.Source); err != nil {
		return err
	}

	sess, err := s.sessions.Initialize(ctx, chooseStrategy(s.site.HeaderStrategy))
	if err != nil {
		_ = s.runs.Fail(ctx, runID, s.site.Source, err, nil)
		return err
	}
	defer sess.Close()

	if s.site.WarmUp {
		s.sessions.WarmUp(ctx, sess)
	}

	summary := &run.Summary{}

	// Connectivity gate: if the landing page will not clear, every query
	// would burn the same retry budget for nothing.
	if state := s.navigate(ctx, sess, s.site.BaseURL, summary); state != challenge.StateClear {
		err := fmt.Errorf("landing page not reachable: %s", state)
		_ = s.runs.Fail(ctx, runID, s.site.Source, err, summary)
		return err
	}

	runOne := func(ctx context.Context, q string) (store.SaveResult, error) {
		return s.runQuery(ctx, sess, q, summary)
	}
	s.collect(ctx, summary, queries, s.site.MaxRecords, runOne, func() { s.pause(ctx) })

	if summary.QueriesAttempted > 0 && summary.QueriesFailed == summary.QueriesAttempted {
		err := fmt.Errorf("all %d queries failed", summary.QueriesAttempted)
		_ = s.runs.Fail(ctx, runID, s.site.Source, err, summary)
		return err
	}
	return s.runs.Complete(ctx, runID, s.site.Source, summary)
}

// queryRunner runs one query and reports what the gate did with its records.
type queryRunner func(ctx context.Context, query string) (store.SaveResult, error)

// collect drives the per-query loop: tolerate individual failures, stop early
// once enough records were collected, pace between queries but not after the
// last one.
func (s *Service) collect(ctx context.Context, sum *run.Summary, queries []string, maxRecords int, runOne queryRunner, pause func()) {
	for i, q := range queries {
		if ctx.Err() != nil {
			sum.Errors = append(sum.Errors, "run cancelled")
			return
		}
		sum.QueriesAttempted++
		res, err := runOne(ctx, q)
		if err != nil {
			sum.QueriesFailed++
			sum.Errors = append(sum.Errors, fmt.Sprintf("query %q: %v", q, err))
		} else {
			sum.Collected += res.Saved + res.Skipped
			sum.Saved += res.Saved
			sum.Skipped += res.Skipped
			sum.Errors = append(sum.Errors, res.Errors...)
		}
		if maxRecords > 0 && sum.Collected >= maxRecords {
			s.log.LogInfof("Collected %d records, stopping early", sum.Collected)
			return
		}
		if i < len(queries)-1 {
			pause()
		}
	}
}

func (s *Service) pause(ctx context.Context) {
	secs := s.site.QueryDelayMinSec + rand.Intn(s.site.QueryDelayMaxSec-s.site.QueryDelayMinSec+1)
	s.log.LogDebugf("Pacing: %ds until next query", secs)
	s.sleep(ctx, time.Duration(secs)*time.Second)
}

func (s *Service) runQuery(ctx context.Context, sess *session.Session, query string, sum *run.Summary) (store.SaveResult, error) {
	target := SearchURL(s.site, query)
	s.log.LogInfof("Query %q -> %s", query, target)

	if state := s.navigate(ctx, sess, target, sum); state != challenge.StateClear {
		return store.SaveResult{}, fmt.Errorf("results page not reachable: %s", state)
	}

	html, err := sess.Page().Content()
	if err != nil {
		return store.SaveResult{}, fmt.Errorf("capture content: %w", err)
	}
	cands, err := s.extractor.FromResultsPage(html, target)
	if err != nil {
		s.snapshot(sess, "nocards_"+query, sum)
		return store.SaveResult{}, err
	}
	s.log.LogInfof("Extracted %d candidates for %q", len(cands), query)

	if s.site.FollowDetailPages {
		s.enrichFromDetails(ctx, sess, cands, sum)
	}
	return s.gate.SaveAll(ctx, cands), nil
}

// navigate goes to target and resolves any interstitial, retrying with
// escalating delays. Blocked is terminal for the target.
func (s *Service) navigate(ctx context.Context, sess *session.Session, target string, sum *run.Summary) challenge.State {
	page := sess.Page()
	bo := Backoff{
		Base:        time.Duration(s.site.BackoffBaseSec) * time.Second,
		Max:         time.Duration(s.site.BackoffMaxSec) * time.Second,
		MaxAttempts: s.site.BackoffMaxAttempts,
	}

	state := challenge.StateChallenged
	for attempt := 1; attempt <= bo.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return state
		}
		if _, err := page.Goto(target, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(45000),
		}); err != nil {
			s.log.LogWarnf("Navigation attempt %d failed for %s: %v", attempt, target, err)
			s.sleep(ctx, bo.Delay(attempt))
			continue
		}
		session.SimulateReading(page)

		state = s.challenges.Detect(page)
		if state == challenge.StateChallenged {
			state = s.challenges.AwaitClearance(ctx, page, time.Duration(s.site.ChallengeWaitSec)*time.Second)
		}
		switch state {
		case challenge.StateClear:
			return state
		case challenge.StateBlocked:
			s.snapshot(sess, "blocked_"+target, sum)
			return state
		default:
			s.snapshot(sess, "challenged_"+target, sum)
			s.sleep(ctx, bo.Delay(attempt))
		}
	}
	return state
}

func (s *Service) enrichFromDetails(ctx context.Context, sess *session.Session, cands []extract.Candidate, sum *run.Summary) {
	for i := range cands {
		if ctx.Err() != nil {
			return
		}
		if cands[i].URL == "" {
			continue
		}
		if state := s.navigate(ctx, sess, cands[i].URL, sum); state != challenge.StateClear {
			continue
		}
		html, err := sess.Page().Content()
		if err != nil {
			continue
		}
		detail, err := s.extractor.FromDetailPage(html, cands[i].URL)
		if err != nil {
			continue
		}
		mergeDetail(&cands[i], detail)
		session.RandomDelay(2000, 5000)
	}
}

// mergeDetail folds detail-page fields into a results-page candidate. Detail
// values win for description and apply link; results-page values win
// elsewhere unless empty.
func mergeDetail(c *extract.Candidate, d extract.Candidate) {
	if d.Description != "" {
		c.Description = d.Description
		c.Provenance["description"] = d.Provenance["description"]
	}
	if d.ApplyURL != "" {
		c.ApplyURL = d.ApplyURL
		c.Provenance["apply"] = d.Provenance["apply"]
	}
	if c.SalaryText == "" && d.SalaryText != "" {
		c.SalaryText = d.SalaryText
	}
	if c.Location == "" && d.Location != "" {
		c.Location = d.Location
	}
}

func (s *Service) snapshot(sess *session.Session, label string, sum *run.Summary) {
	if s.diag == nil {
		return
	}
	ref, err := s.diag.CapturePage(sess.Page(), label)
	if err != nil {
		s.log.LogWarnf("Screenshot capture failed: %v", err)
		return
	}
	sum.Screenshots = append(sum.Screenshots, ref)
}

func (s *Service) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
