// Package extract turns captured result-page and detail-page markup into job
// records. It works on HTML snapshots rather than a live browser handle, so
// the whole pipeline is testable with canned fixtures.
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"harvester/internal/config"
	"harvester/internal/logger"
	"harvester/internal/utils/markdown"
)

// Detail descriptions are capped so a bloated posting cannot dominate a row.
const maxDescriptionLen = 5000

// SniffedIndex in a provenance map marks a value recovered by content
// sniffing after every selector in the chain missed.
const SniffedIndex = -1

// Candidate is a single extracted posting before persistence. Provenance maps
// each field name to the index of the selector that produced it.
type Candidate struct {
	Title       string
	Company     string
	Location    string
	SalaryText  string
	Description string
	URL         string
	ApplyURL    string

	Provenance map[string]int
}

// CanonicalURL is the identity the posting is stored and de-duplicated under.
// A direct apply link, when one was discovered, wins over the page URL.
func (c Candidate) CanonicalURL() string {
	if c.ApplyURL != "" {
		return c.ApplyURL
	}
	return c.URL
}

// Matches "City, ST" and "City, ST 12345" forms in free text.
var locationPattern = regexp.MustCompile(`[A-Z][a-z]+(?:[ .][A-Z][a-z]+)*,\s*[A-Z]{2}(?:\s+\d{5})?`)

type Engine struct {
	site config.Site
	log  *logger.Logger
}

func NewEngine(site config.Site) *Engine {
	return &Engine{site: site, log: logger.New("ExtractionEngine")}
}

// resolveField walks the chain in order and returns the first selector whose
// node carries non-empty text, plus the index it matched at. A title attribute
// wins over text content because the site truncates visible text. Index -1
// means nothing in the chain hit.
func resolveField(root *goquery.Selection, chain []string) (string, int) {
	for i, sel := range chain {
		node := root.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if v, ok := node.Attr("title"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), i
		}
		if txt := strings.TrimSpace(node.Text()); txt != "" {
			return txt, i
		}
	}
	return "", -1
}

// resolveHref is resolveField for link targets.
func resolveHref(root *goquery.Selection, chain []string) (string, int) {
	for i, sel := range chain {
		node := root.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if href, ok := node.Attr("href"); ok && strings.TrimSpace(href) != "" {
			return strings.TrimSpace(href), i
		}
	}
	return "", -1
}

// FromResultsPage extracts every valid posting from a search-results snapshot.
// A card that fails validation is dropped without failing its neighbours.
func (e *Engine) FromResultsPage(html, pageURL string) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	cards, cardSel := e.findCards(doc)
	if cards == nil {
		return nil, fmt.Errorf("no job cards matched any of %d selectors", len(e.site.CardSelectors))
	}
	e.log.LogDebugf("Matched %d cards with selector %q", cards.Length(), cardSel)

	var out []Candidate
	cards.Each(func(i int, card *goquery.Selection) {
		c := e.fromCard(card, pageURL, i)
		if e.Validate(c) {
			out = append(out, c)
		}
	})
	return out, nil
}

func (e *Engine) findCards(doc *goquery.Document) (*goquery.Selection, string) {
	for _, sel := range e.site.CardSelectors {
		nodes := doc.Find(sel)
		if nodes.Length() > 0 {
			return nodes, sel
		}
	}
	return nil, ""
}

func (e *Engine) fromCard(card *goquery.Selection, pageURL string, idx int) Candidate {
	c := Candidate{Provenance: map[string]int{}}

	c.Title, c.Provenance["title"] = resolveField(card, e.site.Fields["title"])
	c.Company, c.Provenance["company"] = resolveField(card, e.site.Fields["company"])
	c.Location, c.Provenance["location"] = resolveField(card, e.site.Fields["location"])
	c.SalaryText, c.Provenance["salary"] = resolveField(card, e.site.Fields["salary"])
	c.Description, c.Provenance["description"] = resolveField(card, e.site.Fields["description"])

	href, urlIdx := resolveHref(card, e.site.Fields["url"])
	if href == "" {
		// Card-level job key is the last resort for a link.
		if jk, ok := card.Attr("data-jk"); ok && jk != "" {
			href = "/viewjob?jk=" + jk
		}
	}
	c.URL = CleanJobURL(e.absolutize(pageURL, href))
	c.Provenance["url"] = urlIdx
	if c.URL == "" {
		// Synthetic identity: a record with no resolvable link still needs a
		// stable de-duplication key within its results page.
		c.URL = fmt.Sprintf("%s#job-%d", pageURL, idx)
		c.Provenance["url"] = SniffedIndex
	}

	e.sniffMissing(&c, card.Text())

	c.Description = truncate(c.Description, maxDescriptionLen)
	return c
}

// sniffMissing backfills company and location from the card's raw text when
// no selector produced them.
func (e *Engine) sniffMissing(c *Candidate, text string) {
	if c.Location == "" {
		if loc := locationPattern.FindString(text); loc != "" {
			c.Location = strings.TrimSpace(loc)
			c.Provenance["location"] = SniffedIndex
		}
	}
	if c.Company == "" {
		for _, emp := range e.site.KnownEmployers {
			if strings.Contains(text, emp) {
				c.Company = emp
				c.Provenance["company"] = SniffedIndex
				break
			}
		}
	}
}

// FromDetailPage extracts a single posting from a detail-view snapshot. The
// description is converted to markdown and a direct apply link is resolved
// when one of the apply selectors hits.
func (e *Engine) FromDetailPage(html, pageURL string) (Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Candidate{}, fmt.Errorf("parse detail page: %w", err)
	}
	root := doc.Selection

	c := Candidate{Provenance: map[string]int{}, URL: CleanJobURL(pageURL)}
	c.Title, c.Provenance["title"] = resolveField(root, e.site.Fields["title"])
	c.Company, c.Provenance["company"] = resolveField(root, e.site.Fields["company"])
	c.Location, c.Provenance["location"] = resolveField(root, e.site.Fields["location"])
	c.SalaryText, c.Provenance["salary"] = resolveField(root, e.site.Fields["salary"])

	c.Provenance["description"] = -1
	for i, sel := range e.site.Fields["description"] {
		node := root.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		fragment, err := goquery.OuterHtml(node)
		if err != nil {
			continue
		}
		rendered, err := markdown.Convert(fragment)
		if err != nil || rendered == "" {
			continue
		}
		c.Description = rendered
		c.Provenance["description"] = i
		break
	}
	c.Description = truncate(c.Description, maxDescriptionLen)

	if href, idx := resolveHref(root, e.site.ApplySelectors); href != "" {
		c.ApplyURL = CleanJobURL(e.absolutize(pageURL, href))
		c.Provenance["apply"] = idx
	}

	e.sniffMissing(&c, root.Text())
	return c, nil
}

// Validate applies the configured completeness rule. Placeholder values like
// "not found" never pass.
func (e *Engine) Validate(c Candidate) bool {
	titleOK := fieldOK(c.Title, 3)
	companyOK := fieldOK(c.Company, 1)
	if e.site.ValidationMode == config.ValidationTitleOrCompany {
		return titleOK || companyOK
	}
	return titleOK && companyOK
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func fieldOK(v string, minLen int) bool {
	v = strings.TrimSpace(v)
	if len(v) <= minLen {
		return false
	}
	return !strings.Contains(strings.ToLower(v), "not found")
}

// CleanJobURL strips tracking parameters from a posting URL, keeping only the
// job identifiers so two links to the same posting compare equal.
func CleanJobURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	kept := url.Values{}
	for _, key := range []string{"jk", "vjk"} {
		if v := q.Get(key); v != "" {
			kept.Set(key, v)
		}
	}
	u.RawQuery = kept.Encode()
	u.Fragment = ""
	return u.String()
}

func (e *Engine) absolutize(base, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		b, err = url.Parse(e.site.BaseURL)
		if err != nil {
			return href
		}
	}
	return b.ResolveReference(ref).String()
}
