package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"job-sync/internal/domain/listing"
)

// Best-effort only. A digit run of three or fewer digits is read as thousands
// whether or not a "k" follows, so a literal "$50" stipend parses as 50000.
var (
	salaryRangeRe  = regexp.MustCompile(`(?i)([$£€₹])\s*(\d[\d,]*(?:\.\d+)?)\s*(k)?\s*(?:-|–|to)\s*[$£€₹]?\s*(\d[\d,]*(?:\.\d+)?)\s*(k)?`)
	salarySingleRe = regexp.MustCompile(`(?i)([$£€₹])\s*(\d[\d,]*(?:\.\d+)?)\s*(k)?`)
)

var currencyBySymbol = map[string]string{
	"$": "USD",
	"£": "GBP",
	"€": "EUR",
	"₹": "INR",
}

// ParseSalary extracts "$80k - $120k" or "$95k" style amounts. Both bounds are
// nil when nothing matches.
func ParseSalary(text string) listing.Salary {
	if strings.TrimSpace(text) == "" {
		return listing.Salary{}
	}

	if m := salaryRangeRe.FindStringSubmatch(text); m != nil {
		lo, okLo := salaryAmount(m[2])
		hi, okHi := salaryAmount(m[4])
		if okLo && okHi {
			if hi < lo {
				lo, hi = hi, lo
			}
			return listing.Salary{Min: &lo, Max: &hi, Currency: currencyBySymbol[m[1]]}
		}
	}

	if m := salarySingleRe.FindStringSubmatch(text); m != nil {
		v, ok := salaryAmount(m[2])
		if ok {
			lo, hi := v, v
			return listing.Salary{Min: &lo, Max: &hi, Currency: currencyBySymbol[m[1]]}
		}
	}

	return listing.Salary{}
}

func salaryAmount(raw string) (float64, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0, false
	}
	intPart := raw
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		intPart = raw[:i]
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if len(intPart) <= 3 {
		v *= 1000
	}
	return v, true
}
