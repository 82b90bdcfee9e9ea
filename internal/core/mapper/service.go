// Package mapper discovers posting detail links with a plain HTTP crawl. It
// is the cheap pre-pass used when the target serves results without a
// challenge; the browser pipeline remains the fallback.
package mapper

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly"

	"harvester/internal/logger"
)

type Service struct {
	log *logger.Logger
}

func New() *Service {
	return &Service{log: logger.New("MapperService")}
}

// DiscoverDetailLinks crawls startURL one level deep and returns same-domain
// links whose path matches one of the glob patterns, capped at limit.
func (s *Service) DiscoverDetailLinks(startURL string, patterns []string, limit int) ([]string, error) {
	links := make(map[string]struct{})
	var mu sync.Mutex

	c := colly.NewCollector(colly.MaxDepth(1), colly.Async(true))
	c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 4, RandomDelay: 500 * time.Millisecond})

	dom := extractDomain(startURL)

	c.OnRequest(func(r *colly.Request) {
		mu.Lock()
		reached := limit > 0 && len(links) >= limit
		mu.Unlock()
		if reached {
			r.Abort()
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := normalize(e.Request.AbsoluteURL(e.Attr("href")))
		if link == "" || extractDomain(link) != dom {
			return
		}
		if !matchesPattern(link, patterns) {
			return
		}
		mu.Lock()
		if limit <= 0 || len(links) < limit {
			links[link] = struct{}{}
		}
		mu.Unlock()
	})

	if err := c.Visit(startURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", startURL, err)
	}
	c.Wait()

	out := make([]string, 0, len(links))
	for l := range links {
		out = append(out, l)
	}
	s.log.LogInfof("Discovered %d detail links from %s", len(out), startURL)
	return out, nil
}

func extractDomain(u string) string {
	p, _ := url.Parse(u)
	if p != nil {
		return p.Hostname()
	}
	return ""
}

func normalize(u string) string {
	p, _ := url.Parse(u)
	if p == nil {
		return u
	}
	p.Fragment = ""
	if p.Path == "/" {
		p.Path = ""
	}
	return p.String()
}

func matchesPattern(u string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
		if strings.HasSuffix(pattern, "*") {
			prefix := strings.TrimSuffix(pattern, "*")
			if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix) {
				return true
			}
		}
	}
	return false
}
