package analyze

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/queryroute/core"
)

// periodPhrase maps a relative date phrase to its period.
// Ordered longest-first so "last week" wins over a bare "week" never
// being matched at all.
var periodPhrases = []struct {
	phrase string
	period core.RelativePeriod
}{
	{"this quarter", core.PeriodThisQuarter},
	{"last quarter", core.PeriodLastQuarter},
	{"this month", core.PeriodThisMonth},
	{"last month", core.PeriodLastMonth},
	{"this week", core.PeriodThisWeek},
	{"last week", core.PeriodLastWeek},
	{"this year", core.PeriodThisYear},
	{"last year", core.PeriodLastYear},
	{"yesterday", core.PeriodYesterday},
	{"today", core.PeriodToday},
}

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

var (
	reMonth = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\b(?:\s+(\d{4}))?`)
	reYear  = regexp.MustCompile(`\bin\s+(\d{4})\b`)
)

// PeriodBounds resolves a relative period to absolute [from, to) bounds
// anchored at now. Weeks start on Monday; quarters are calendar quarters.
// Called at execution time, never at analysis time, so cached analyses
// with relative filters stay correct across days.
func PeriodBounds(period core.RelativePeriod, now time.Time) (time.Time, time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch period {
	case core.PeriodToday:
		return day, day.AddDate(0, 0, 1)
	case core.PeriodYesterday:
		return day.AddDate(0, 0, -1), day
	case core.PeriodThisWeek:
		start := startOfWeek(day)
		return start, start.AddDate(0, 0, 7)
	case core.PeriodLastWeek:
		start := startOfWeek(day).AddDate(0, 0, -7)
		return start, start.AddDate(0, 0, 7)
	case core.PeriodThisMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0)
	case core.PeriodLastMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
		return start, start.AddDate(0, 1, 0)
	case core.PeriodThisQuarter:
		start := startOfQuarter(now)
		return start, start.AddDate(0, 3, 0)
	case core.PeriodLastQuarter:
		start := startOfQuarter(now).AddDate(0, -3, 0)
		return start, start.AddDate(0, 3, 0)
	case core.PeriodThisYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(1, 0, 0)
	case core.PeriodLastYear:
		start := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(1, 0, 0)
	}

	return time.Time{}, time.Time{}
}

func startOfWeek(day time.Time) time.Time {
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started the previous Monday
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

func startOfQuarter(now time.Time) time.Time {
	quarterMonth := time.Month((int(now.Month())-1)/3*3 + 1)
	return time.Date(now.Year(), quarterMonth, 1, 0, 0, 0, 0, now.Location())
}

// extractDateFilters finds relative period phrases, named months, and
// "in <year>" phrases, producing date-range filters. Relative phrases
// carry only their period; named months and years resolve to absolute
// bounds anchored at now (a named month means its most recent occurrence).
func extractDateFilters(text string, now time.Time, consumed *[]span) []core.Filter {
	var filters []core.Filter

	for _, pp := range periodPhrases {
		idx := indexOfPhrase(text, pp.phrase, *consumed)
		if idx < 0 {
			continue
		}
		*consumed = append(*consumed, span{idx, idx + len(pp.phrase)})
		filters = append(filters, core.Filter{
			Field:    "date",
			Operator: core.OpRange,
			Value: core.FilterValue{
				Kind:   core.ValueDateRange,
				Period: pp.period,
			},
		})
	}

	for _, match := range reMonth.FindAllStringSubmatchIndex(text, -1) {
		s := span{match[0], match[1]}
		if consumedIn(s, *consumed) {
			continue
		}
		month := monthNames[text[match[2]:match[3]]]
		year := 0
		if match[4] >= 0 {
			year, _ = strconv.Atoi(text[match[4]:match[5]])
		}
		if month == time.May && year == 0 {
			// "may" is usually the modal verb; only treat it as a month
			// when written as "in may" or followed by a year.
			if !(match[0] >= 3 && text[match[0]-3:match[0]] == "in ") {
				continue
			}
		}
		if year == 0 {
			year = now.Year()
			if month > now.Month() {
				year--
			}
		}
		*consumed = append(*consumed, s)
		from := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
		filters = append(filters, core.Filter{
			Field:    "date",
			Operator: core.OpRange,
			Value: core.FilterValue{
				Kind: core.ValueDateRange,
				From: from,
				To:   from.AddDate(0, 1, 0),
			},
		})
	}

	for _, match := range reYear.FindAllStringSubmatchIndex(text, -1) {
		s := span{match[0], match[1]}
		if consumedIn(s, *consumed) {
			continue
		}
		year, _ := strconv.Atoi(text[match[2]:match[3]])
		*consumed = append(*consumed, s)
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
		filters = append(filters, core.Filter{
			Field:    "date",
			Operator: core.OpRange,
			Value: core.FilterValue{
				Kind: core.ValueDateRange,
				From: from,
				To:   from.AddDate(1, 0, 0),
			},
		})
	}

	return filters
}

// indexOfPhrase finds a phrase on word boundaries outside consumed spans.
// Returns -1 when absent.
func indexOfPhrase(text, phrase string, consumed []span) int {
	for from := 0; from+len(phrase) <= len(text); {
		idx := strings.Index(text[from:], phrase)
		if idx < 0 {
			return -1
		}
		idx += from
		boundedLeft := idx == 0 || text[idx-1] == ' '
		boundedRight := idx+len(phrase) == len(text) || text[idx+len(phrase)] == ' '
		s := span{idx, idx + len(phrase)}
		if boundedLeft && boundedRight && !consumedIn(s, consumed) {
			return idx
		}
		from = idx + 1
	}
	return -1
}
