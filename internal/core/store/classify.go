package store

import (
	"regexp"
	"strings"
)

const maxTags = 10

var techKeywords = []string{
	"javascript", "typescript", "react", "python", "java", "golang",
	"sql", "aws", "docker", "kubernetes", "node",
}

// Word-bounded so "javascript" does not also tag "java".
var keywordPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(techKeywords))
	for _, kw := range techKeywords {
		m[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return m
}()

// Classify fills the derived facets from the text the extractor captured.
// These are substring heuristics, deliberately loose.
func Classify(p *JobPosting) {
	text := strings.ToLower(p.Title + " " + p.Description)

	switch {
	case strings.Contains(text, "part-time") || strings.Contains(text, "part time"):
		p.JobType = "part-time"
	case strings.Contains(text, "contract"):
		p.JobType = "contract"
	case strings.Contains(text, "intern"):
		p.JobType = "internship"
	default:
		p.JobType = "full-time"
	}

	title := strings.ToLower(p.Title)
	switch {
	case containsAny(title, "senior", "sr.", "staff", "principal", "lead"):
		p.ExperienceLevel = "senior"
	case containsAny(title, "junior", "jr.", "entry", "graduate", "intern"):
		p.ExperienceLevel = "entry"
	default:
		p.ExperienceLevel = "mid"
	}

	remoteText := text + " " + strings.ToLower(p.Location)
	p.IsRemote = strings.Contains(remoteText, "remote") ||
		strings.Contains(remoteText, "work from home")

	p.Tags = nil
	for _, kw := range techKeywords {
		if keywordPatterns[kw].MatchString(text) {
			p.Tags = append(p.Tags, kw)
			if len(p.Tags) == maxTags {
				break
			}
		}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
