// Package salary turns free-text compensation snippets into numeric ranges.
package salary

import (
	"regexp"
	"strconv"
	"strings"
)

// Period is the pay period assumed while annualizing. Recorded as provenance
// so downstream consumers know when a figure was derived rather than stated.
type Period string

const (
	PeriodYearly  Period = "yearly"
	PeriodMonthly Period = "monthly"
	PeriodHourly  Period = "hourly"
)

// Full-time hours per year used to annualize hourly figures.
const hoursPerYear = 2080

// Range is a parsed compensation range. Min and Max are nil when the text
// carried no numeric token; a guessed value is never substituted.
type Range struct {
	Min           *float64
	Max           *float64
	PeriodAssumed Period
}

var (
	currencyPattern  = regexp.MustCompile(`\$(\d+(?:,\d{3})*(?:\.\d+)?)`)
	thousandsPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[kK]\b`)
)

// ParseRange extracts every numeric token from raw using two notations:
// explicit currency amounts and "K" shorthand (x1000). A currency amount
// written in shorthand ("$45K") is a single token worth 45000, never a $45
// and a 45K counted separately. Min is the smallest token, Max the largest.
// Amounts stated per hour or per month are annualized and the assumption
// recorded.
func ParseRange(raw string) Range {
	if strings.TrimSpace(raw) == "" {
		return Range{}
	}

	var numbers []float64
	var taken []span

	for _, m := range currencyPattern.FindAllStringSubmatchIndex(raw, -1) {
		n, err := strconv.ParseFloat(strings.ReplaceAll(raw[m[2]:m[3]], ",", ""), 64)
		if err != nil {
			continue
		}
		end := m[1]
		if end < len(raw) && (raw[end] == 'k' || raw[end] == 'K') {
			n *= 1000
			end++
		}
		numbers = append(numbers, n)
		taken = append(taken, span{m[0], end})
	}
	for _, m := range thousandsPattern.FindAllStringSubmatchIndex(raw, -1) {
		if overlapsAny(taken, span{m[0], m[1]}) {
			continue
		}
		n, err := strconv.ParseFloat(raw[m[2]:m[3]], 64)
		if err != nil {
			continue
		}
		numbers = append(numbers, n*1000)
	}

	if len(numbers) == 0 {
		return Range{}
	}

	min, max := numbers[0], numbers[0]
	for _, n := range numbers[1:] {
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}

	period := detectPeriod(raw)
	min = annualize(min, period)
	max = annualize(max, period)

	return Range{Min: &min, Max: &max, PeriodAssumed: period}
}

type span struct{ start, end int }

func overlapsAny(taken []span, s span) bool {
	for _, t := range taken {
		if s.start < t.end && t.start < s.end {
			return true
		}
	}
	return false
}

func detectPeriod(raw string) Period {
	t := strings.ToLower(raw)
	switch {
	case strings.Contains(t, "hour") || strings.Contains(t, "/hr") || strings.Contains(t, "hourly"):
		return PeriodHourly
	case strings.Contains(t, "month") || strings.Contains(t, "/mo"):
		return PeriodMonthly
	default:
		return PeriodYearly
	}
}

func annualize(n float64, p Period) float64 {
	switch p {
	case PeriodHourly:
		return n * hoursPerYear
	case PeriodMonthly:
		return n * 12
	default:
		return n
	}
}
