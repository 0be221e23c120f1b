// Package normalize maps loosely-typed provider records onto listing.Listing.
// Every function here is pure: output depends only on the arguments.
package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"regexp"
	"strings"
	"time"

	"job-sync/internal/domain/listing"
)

const (
	DefaultTitle    = "Untitled Position"
	DefaultCompany  = "Unknown Company"
	DefaultLocation = "Remote"

	MaxDescriptionLen = 5000
)

// Input is a provider record after JSON/HTML decoding. Every field is optional;
// structured hints (SalaryMin, JobTypeHint, Remote, ...) take precedence over
// what can be inferred from free text.
type Input struct {
	Kind     listing.Kind
	NativeID string

	Title       string
	Company     string
	Location    string
	Description string

	SalaryText string
	SalaryMin  *float64
	SalaryMax  *float64
	Currency   string

	JobTypeHint    string
	ExperienceHint string
	Remote         *bool
	Hybrid         *bool

	URL       string
	PostedAt  string
	ExpiresAt string

	Tags     []string
	Featured bool
}

// ToListing never fails: missing fields fall back to defaults.
func ToListing(sourceAPI string, in Input, now time.Time) listing.Listing {
	now = now.UTC()
	sourceAPI = strings.ToLower(strings.TrimSpace(sourceAPI))

	title := pickNonEmpty(collapseSpace(in.Title), DefaultTitle)
	company := pickNonEmpty(collapseSpace(in.Company), DefaultCompany)
	location := pickNonEmpty(collapseSpace(in.Location), DefaultLocation)
	description := TruncateDescription(CleanText(in.Description))

	kind := in.Kind
	if kind == "" {
		kind = listing.KindJob
	}

	nativeID := strings.TrimSpace(in.NativeID)
	if nativeID == "" {
		nativeID = fallbackNativeID(in.URL, in.Title, in.Company)
	}

	text := title + " " + description + " " + location
	salaryText := in.SalaryText
	if strings.TrimSpace(salaryText) == "" {
		salaryText = title + " " + description
	}

	expiresAt := ParseOptionalDate(in.ExpiresAt, now)
	active := expiresAt == nil || expiresAt.After(now)

	return listing.Listing{
		RemoteID:        RemoteID(sourceAPI, nativeID),
		Kind:            kind,
		Title:           title,
		Company:         company,
		Location:        location,
		Description:     description,
		Tags:            mergeTags(ExtractTags(title+" "+description), in.Tags),
		Salary:          resolveSalary(in, salaryText),
		JobType:         InferJobType(in.JobTypeHint, text),
		ExperienceLevel: InferExperienceLevel(in.ExperienceHint, title+" "+description),
		RemoteLevel:     InferRemoteLevel(in.Remote, in.Hybrid, text),
		ApplicationURL:  CleanURL(in.URL),
		PostedAt:        ParseDate(in.PostedAt, now),
		ExpiresAt:       expiresAt,
		IsActive:        active,
		Featured:        in.Featured,
		SourceAPI:       sourceAPI,
		LastSynced:      now,
	}
}

var nonIDChars = regexp.MustCompile(`[^a-z0-9_]+`)

// RemoteID is "{sourceAPI}_{nativeID}" lowercased and stripped to [a-z0-9_].
// Distinct native ids that differ only in stripped characters collapse to the
// same id ("ab-c" and "abc").
func RemoteID(sourceAPI, nativeID string) string {
	raw := strings.ToLower(strings.TrimSpace(sourceAPI) + "_" + strings.TrimSpace(nativeID))
	return nonIDChars.ReplaceAllString(raw, "")
}

func fallbackNativeID(rawURL, title, company string) string {
	return HashID(strings.TrimSpace(rawURL) + "|" + strings.TrimSpace(title) + "|" + strings.TrimSpace(company))
}

// HashID derives a stable short id from free text such as a feed GUID.
func HashID(key string) string {
	h := sha1.Sum([]byte(strings.ToLower(key)))
	return "h" + hex.EncodeToString(h[:10])
}

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// CleanText strips markup and entities and collapses whitespace.
func CleanText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return collapseSpace(s)
}

// TruncateDescription caps s at MaxDescriptionLen runes, the last three being "...".
func TruncateDescription(s string) string {
	r := []rune(s)
	if len(r) <= MaxDescriptionLen {
		return s
	}
	return string(r[:MaxDescriptionLen-3]) + "..."
}

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func pickNonEmpty(a, b string) string {
	a = strings.TrimSpace(a)
	if a != "" {
		return a
	}
	return strings.TrimSpace(b)
}

func resolveSalary(in Input, text string) listing.Salary {
	if positive(in.SalaryMin) || positive(in.SalaryMax) {
		s := listing.Salary{Currency: strings.ToUpper(strings.TrimSpace(in.Currency))}
		if positive(in.SalaryMin) {
			v := *in.SalaryMin
			s.Min = &v
		}
		if positive(in.SalaryMax) {
			v := *in.SalaryMax
			s.Max = &v
		}
		return s
	}
	s := ParseSalary(text)
	if s.Currency == "" && (s.Min != nil || s.Max != nil) {
		s.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	}
	return s
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}
