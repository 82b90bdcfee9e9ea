package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string
	DataDir       string

	DatabaseDSN string

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string

	SiteConfigPath string

	TaskMaxRetries int
}

// Validation modes for extracted records.
const (
	ValidationTitleAndCompany = "title_and_company"
	ValidationTitleOrCompany  = "title_or_company"
)

// Site describes one harvest target: where to search, how to find fields in
// its markup, and how to pace requests against it. Everything here can be
// overridden from a YAML file so selector drift is an ops change, not a
// recompile.
type Site struct {
	Source     string   `yaml:"source"`
	BaseURL    string   `yaml:"base_url"`
	SearchPath string   `yaml:"search_path"`
	Queries    []string `yaml:"queries"`

	// Ordered fallback chains, tried first to last.
	CardSelectors  []string            `yaml:"card_selectors"`
	Fields         map[string][]string `yaml:"fields"`
	ApplySelectors []string            `yaml:"apply_selectors"`

	// title_and_company (server-side default) or title_or_company.
	ValidationMode string `yaml:"validation_mode"`

	// Header-profile strategy for the browser session, e.g. modern_browser
	// or mobile_device.
	HeaderStrategy string `yaml:"header_strategy"`

	MaxRecords        int  `yaml:"max_records"`
	FollowDetailPages bool `yaml:"follow_detail_pages"`
	WarmUp            bool `yaml:"warm_up"`

	// Inter-query sleep window, seconds. Wide on purpose: this is the
	// human-pacing measure, not a throughput knob.
	QueryDelayMinSec int `yaml:"query_delay_min_sec"`
	QueryDelayMaxSec int `yaml:"query_delay_max_sec"`

	ChallengeWaitSec int `yaml:"challenge_wait_sec"`

	BackoffBaseSec     int `yaml:"backoff_base_sec"`
	BackoffMaxSec      int `yaml:"backoff_max_sec"`
	BackoffMaxAttempts int `yaml:"backoff_max_attempts"`

	KnownEmployers []string `yaml:"known_employers"`
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Load() Config {
	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8082"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DataDir:       getenv("DATA_DIR", "./data"),

		DatabaseDSN: getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=harvester port=5432 sslmode=disable"),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:     getenv("SUPABASE_STORAGE_BUCKET", "diagnostics"),

		SiteConfigPath: os.Getenv("SITE_CONFIG_PATH"),

		TaskMaxRetries: getenvInt("TASK_MAX_RETRIES", 3),
	}
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	return cfg
}

// LoadSite returns the built-in Indeed profile, overlaid with the YAML file at
// path when one is configured.
func LoadSite(path string) (Site, error) {
	site := DefaultSite()
	if path == "" {
		return site, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return site, fmt.Errorf("read site config: %w", err)
	}
	if err := yaml.Unmarshal(b, &site); err != nil {
		return site, fmt.Errorf("parse site config: %w", err)
	}
	return site.withDefaults(), nil
}

func DefaultSite() Site {
	return Site{
		Source:     "indeed",
		BaseURL:    "https://www.indeed.com",
		SearchPath: "/jobs?q=%s&fromage=14&sort=date&radius=50",
		Queries: []string{
			"entry level software engineer",
			"junior developer",
		},
		CardSelectors: []string{"[data-jk]", ".jobsearch-SerpJobCard", ".job_seen_beacon"},
		Fields: map[string][]string{
			"title": {
				"h2 a[data-jk] span[title]",
				"h2 a span",
				".jobTitle a",
				`[data-testid="job-title"]`,
				"h2 a",
			},
			"company": {
				`[data-testid="company-name"]`,
				`span[data-testid="company-name"]`,
				".companyName a",
				".companyName span",
				".companyName",
				".company",
			},
			"location": {
				`[data-testid="job-location"]`,
				`[data-testid="text-location"]`,
				`div[data-testid="text-location"]`,
				".companyLocation",
				".location",
			},
			"salary": {
				".salary-snippet-container",
				".salary-snippet",
				`[data-testid="salary-snippet"]`,
				".salaryOnly",
				".estimated-salary",
			},
			"description": {
				"#jobDescriptionText",
				".jobsearch-JobComponent-description",
				".summary",
				".job-snippet",
				`[data-testid="job-snippet"]`,
			},
			"url": {
				"h2 a[data-jk]",
				"h2 a",
				".jobTitle a",
				`[data-testid="job-title"] a`,
			},
		},
		ApplySelectors: []string{
			`[data-testid="apply-button"] a`,
			"a#applyButtonLinkContainer",
			`a[href*="/applystart"]`,
			`a[aria-label*="Apply"]`,
			`button[aria-label*="Apply"]`,
		},
		ValidationMode:     ValidationTitleAndCompany,
		HeaderStrategy:     "modern_browser",
		MaxRecords:         30,
		FollowDetailPages:  false,
		WarmUp:             true,
		QueryDelayMinSec:   15,
		QueryDelayMaxSec:   30,
		ChallengeWaitSec:   30,
		BackoffBaseSec:     15,
		BackoffMaxSec:      120,
		BackoffMaxAttempts: 3,
		KnownEmployers: []string{
			"Lockheed Martin", "General Dynamics", "Microsoft", "Google", "Amazon",
		},
	}
}

func (s Site) withDefaults() Site {
	def := DefaultSite()
	if s.Source == "" {
		s.Source = def.Source
	}
	if s.BaseURL == "" {
		s.BaseURL = def.BaseURL
	}
	if s.SearchPath == "" {
		s.SearchPath = def.SearchPath
	}
	if len(s.Queries) == 0 {
		s.Queries = def.Queries
	}
	if len(s.CardSelectors) == 0 {
		s.CardSelectors = def.CardSelectors
	}
	if len(s.Fields) == 0 {
		s.Fields = def.Fields
	}
	if len(s.ApplySelectors) == 0 {
		s.ApplySelectors = def.ApplySelectors
	}
	if s.ValidationMode == "" {
		s.ValidationMode = def.ValidationMode
	}
	if s.HeaderStrategy == "" {
		s.HeaderStrategy = def.HeaderStrategy
	}
	if s.MaxRecords <= 0 {
		s.MaxRecords = def.MaxRecords
	}
	if s.QueryDelayMinSec <= 0 {
		s.QueryDelayMinSec = def.QueryDelayMinSec
	}
	if s.QueryDelayMaxSec <= s.QueryDelayMinSec {
		s.QueryDelayMaxSec = s.QueryDelayMinSec + 1
	}
	if s.ChallengeWaitSec <= 0 {
		s.ChallengeWaitSec = def.ChallengeWaitSec
	}
	if s.BackoffBaseSec <= 0 {
		s.BackoffBaseSec = def.BackoffBaseSec
	}
	if s.BackoffMaxSec <= 0 {
		s.BackoffMaxSec = def.BackoffMaxSec
	}
	if s.BackoffMaxAttempts <= 0 {
		s.BackoffMaxAttempts = def.BackoffMaxAttempts
	}
	if len(s.KnownEmployers) == 0 {
		s.KnownEmployers = def.KnownEmployers
	}
	return s
}
