package normalize

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 Jan 2006",
	"02-01-2006",
	"01/02/2006",
}

var relativeRe = regexp.MustCompile(`(?i)^(\d+)\+?\s*(minute|min|hour|hr|day|week|month|year)s?\s+ago$`)

// ParseDate falls back to now when raw is empty or unparseable.
func ParseDate(raw string, now time.Time) time.Time {
	if t, ok := parseTime(raw, now); ok {
		return t
	}
	return now.UTC()
}

// ParseOptionalDate returns nil when raw is empty or unparseable.
func ParseOptionalDate(raw string, now time.Time) *time.Time {
	t, ok := parseTime(raw, now)
	if !ok {
		return nil
	}
	return &t
}

func parseTime(raw string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	if isDigits(s) && (len(s) == 10 || len(s) == 13) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			if len(s) == 13 {
				return time.UnixMilli(n).UTC(), true
			}
			return time.Unix(n, 0).UTC(), true
		}
	}

	lower := strings.ToLower(s)
	switch lower {
	case "today", "just now", "just posted", "new":
		return now.UTC(), true
	case "yesterday":
		return now.UTC().AddDate(0, 0, -1), true
	}

	if m := relativeRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		base := now.UTC()
		switch m[2] {
		case "minute", "min":
			return base.Add(-time.Duration(n) * time.Minute), true
		case "hour", "hr":
			return base.Add(-time.Duration(n) * time.Hour), true
		case "day":
			return base.AddDate(0, 0, -n), true
		case "week":
			return base.AddDate(0, 0, -7*n), true
		case "month":
			return base.AddDate(0, -n, 0), true
		case "year":
			return base.AddDate(-n, 0, 0), true
		}
	}

	return time.Time{}, false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// CleanURL returns an absolute http(s) URL or nil.
func CleanURL(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(s), "www.") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	if u.Host == "" {
		return nil
	}
	out := u.String()
	return &out
}

// ResolveURL resolves href against base, for scraped relative links.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
