package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"job-sync/internal/domain/listing"
)

type jobTypeRule struct {
	re  *regexp.Regexp
	out listing.JobType
}

// First match wins.
var jobTypeRules = []jobTypeRule{
	{regexp.MustCompile(`(?i)\bintern(ship)?s?\b`), listing.JobTypeInternship},
	{regexp.MustCompile(`(?i)\bfreelanc(e|er|ing)\b`), listing.JobTypeFreelance},
	{regexp.MustCompile(`(?i)\b(contract|contractor|temporary)\b`), listing.JobTypeContract},
	{regexp.MustCompile(`(?i)\bpart[- ]?time\b`), listing.JobTypePartTime},
}

func InferJobType(hint, text string) listing.JobType {
	if jt, ok := jobTypeFromHint(hint); ok {
		return jt
	}
	for _, r := range jobTypeRules {
		if r.re.MatchString(text) {
			return r.out
		}
	}
	return listing.JobTypeFullTime
}

func jobTypeFromHint(hint string) (listing.JobType, bool) {
	h := strings.ToLower(strings.TrimSpace(hint))
	h = strings.NewReplacer("_", "-", " ", "-").Replace(h)
	switch h {
	case "":
		return "", false
	case "full-time", "fulltime", "full", "permanent":
		return listing.JobTypeFullTime, true
	case "part-time", "parttime", "part":
		return listing.JobTypePartTime, true
	case "contract", "contractor", "temporary", "temp":
		return listing.JobTypeContract, true
	case "freelance", "freelancer":
		return listing.JobTypeFreelance, true
	case "intern", "internship":
		return listing.JobTypeInternship, true
	}
	return "", false
}

type experienceRule struct {
	re  *regexp.Regexp
	out listing.ExperienceLevel
}

var experienceRules = []experienceRule{
	{regexp.MustCompile(`(?i)\b(director|vp|vice president|head of|chief|cto|cio|ceo)\b`), listing.ExperienceExecutive},
	{regexp.MustCompile(`(?i)\b(principal|staff engineer|architect)\b`), listing.ExperienceLead},
	{regexp.MustCompile(`(?i)(\bsenior\b|\bsr\.|\bsr\b|\blead\b)`), listing.ExperienceSenior},
	{regexp.MustCompile(`(?i)(\bjunior\b|\bjr\.|\bjr\b|\bentry[- ]level\b|\bgraduate\b|\bintern(ship)?\b|\btrainee\b|\bfresher\b|\bapprentice\b)`), listing.ExperienceEntry},
}

func InferExperienceLevel(hint, text string) listing.ExperienceLevel {
	if lvl, ok := experienceFromHint(hint); ok {
		return lvl
	}
	for _, r := range experienceRules {
		if r.re.MatchString(text) {
			return r.out
		}
	}
	return listing.ExperienceMid
}

var yearsRangeRe = regexp.MustCompile(`(\d+)\s*(?:-|to|–)?\s*(\d+)?\s*\+?\s*(?:years?|yrs?)`)

func experienceFromHint(hint string) (listing.ExperienceLevel, bool) {
	h := strings.ToLower(strings.TrimSpace(hint))
	h = strings.NewReplacer("-", "_", " ", "_").Replace(h)
	switch h {
	case "":
		return "", false
	case "c_level", "executive", "director":
		return listing.ExperienceExecutive, true
	case "staff", "lead", "principal":
		return listing.ExperienceLead, true
	case "senior", "senior_level":
		return listing.ExperienceSenior, true
	case "mid", "mid_level", "intermediate", "associate":
		return listing.ExperienceMid, true
	case "junior", "entry", "entry_level", "intern", "internship", "fresher":
		return listing.ExperienceEntry, true
	}

	// "0-2 years", "5+ yrs"
	if m := yearsRangeRe.FindStringSubmatch(strings.ReplaceAll(h, "_", " ")); m != nil {
		minYears, err := strconv.Atoi(m[1])
		if err != nil {
			return "", false
		}
		switch {
		case minYears < 2:
			return listing.ExperienceEntry, true
		case minYears < 5:
			return listing.ExperienceMid, true
		case minYears < 8:
			return listing.ExperienceSenior, true
		default:
			return listing.ExperienceLead, true
		}
	}
	return "", false
}

var (
	hybridRe = regexp.MustCompile(`(?i)\bhybrid\b`)
	remoteRe = regexp.MustCompile(`(?i)(\bremote\b|\bwfh\b|work from home|\banywhere\b)`)
)

// InferRemoteLevel prefers the structured flags. Without them, "hybrid" beats
// "remote" and anything else is office-based.
func InferRemoteLevel(remote, hybrid *bool, text string) listing.RemoteLevel {
	if hybrid != nil && *hybrid {
		return listing.RemoteHybrid
	}
	if remote != nil {
		if *remote {
			return listing.RemoteFully
		}
		if hybridRe.MatchString(text) {
			return listing.RemoteHybrid
		}
		return listing.RemoteOffice
	}
	if hybridRe.MatchString(text) {
		return listing.RemoteHybrid
	}
	if remoteRe.MatchString(text) {
		return listing.RemoteFully
	}
	return listing.RemoteOffice
}

type bucket struct {
	name  string
	words []string
}

var domainBuckets = []bucket{
	{"Engineering & Technology", []string{"engineering", "engineer", "technology", "computer", "software", "stem", "b.tech", "btech", "coding", "data science"}},
	{"Medical & Health", []string{"medical", "medicine", "health", "nursing", "mbbs", "pharmacy", "dental"}},
	{"Business & Management", []string{"business", "management", "mba", "commerce", "finance", "economics"}},
	{"Law", []string{"law", "legal", "llb"}},
	{"Arts & Humanities", []string{"arts", "humanities", "design", "music", "literature", "journalism", "film"}},
	{"Science", []string{"science", "physics", "chemistry", "biology", "mathematics", "research"}},
}

var categoryBuckets = []bucket{
	{"Women", []string{"women", "woman", "girl", "female"}},
	{"Need-based", []string{"need-based", "need based", "low income", "low-income", "financial need", "economically weaker", "ews", "bpl"}},
	{"Minority", []string{"minority", "sc/st", "obc", "underrepresented"}},
	{"Sports", []string{"sports", "athlete"}},
	{"Research", []string{"phd", "ph.d", "fellowship", "research"}},
	{"International", []string{"international", "abroad", "study in", "overseas"}},
	{"Merit-based", []string{"merit", "academic excellence", "topper", "gpa", "percentage"}},
}

const DefaultBucket = "General"

// Categorize assigns a scholarship or internship to a subject domain and an
// award category by keyword. Unmatched text lands in "General" for both.
func Categorize(text string) (domain, category string) {
	lower := " " + strings.ToLower(text) + " "
	return firstBucket(domainBuckets, lower), firstBucket(categoryBuckets, lower)
}

func firstBucket(buckets []bucket, lower string) string {
	for _, b := range buckets {
		for _, w := range b.words {
			if containsWord(lower, w) {
				return b.name
			}
		}
	}
	return DefaultBucket
}

// containsWord matches w at word boundaries so "law" does not hit "flawless".
func containsWord(lower, w string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], w)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(w)
		if !isWordByte(lower, start-1) && !isWordByte(lower, end) {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}
