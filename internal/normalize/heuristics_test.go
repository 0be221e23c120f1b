package normalize

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"job-sync/internal/domain/listing"
)

func ptrF(v float64) *float64 { return &v }
func ptrB(v bool) *bool       { return &v }

func TestParseSalary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want listing.Salary
	}{
		{"k range", "$80k - $120k", listing.Salary{Min: ptrF(80000), Max: ptrF(120000), Currency: "USD"}},
		{"full range", "$140,000 - $160,000 per year", listing.Salary{Min: ptrF(140000), Max: ptrF(160000), Currency: "USD"}},
		{"single", "$95k", listing.Salary{Min: ptrF(95000), Max: ptrF(95000), Currency: "USD"}},
		{"short digits read as thousands", "stipend of $50", listing.Salary{Min: ptrF(50000), Max: ptrF(50000), Currency: "USD"}},
		{"rupees", "₹3,00,000 - ₹5,00,000 a year", listing.Salary{Min: ptrF(300000), Max: ptrF(500000), Currency: "INR"}},
		{"not specified", "Not specified", listing.Salary{}},
		{"empty", "", listing.Salary{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSalary(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ParseSalary(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestInferJobType(t *testing.T) {
	tests := []struct {
		hint, text string
		want       listing.JobType
	}{
		{"", "Software Engineering Intern", listing.JobTypeInternship},
		{"", "Freelance designer wanted", listing.JobTypeFreelance},
		{"", "6 month contract role", listing.JobTypeContract},
		{"", "Part-time support agent", listing.JobTypePartTime},
		{"", "Backend engineer for internal tools", listing.JobTypeFullTime},
		{"part_time", "Backend engineer", listing.JobTypePartTime},
		{"permanent", "Contract negotiation experience", listing.JobTypeFullTime},
	}
	for _, tt := range tests {
		if got := InferJobType(tt.hint, tt.text); got != tt.want {
			t.Fatalf("InferJobType(%q,%q)=%q want %q", tt.hint, tt.text, got, tt.want)
		}
	}
}

func TestInferExperienceLevel(t *testing.T) {
	tests := []struct {
		hint, text string
		want       listing.ExperienceLevel
	}{
		{"", "Director of Engineering", listing.ExperienceExecutive},
		{"", "Principal Engineer", listing.ExperienceLead},
		{"", "Sr. Backend Developer", listing.ExperienceSenior},
		{"", "Team Lead, Payments", listing.ExperienceSenior},
		{"", "Junior QA Analyst", listing.ExperienceEntry},
		{"", "Graduate Trainee", listing.ExperienceEntry},
		{"", "Backend Developer", listing.ExperienceMid},
		{"c_level", "Developer", listing.ExperienceExecutive},
		{"0-2 years", "Developer", listing.ExperienceEntry},
		{"5+ yrs", "Developer", listing.ExperienceSenior},
	}
	for _, tt := range tests {
		if got := InferExperienceLevel(tt.hint, tt.text); got != tt.want {
			t.Fatalf("InferExperienceLevel(%q,%q)=%q want %q", tt.hint, tt.text, got, tt.want)
		}
	}
}

func TestInferRemoteLevel(t *testing.T) {
	tests := []struct {
		remote, hybrid *bool
		text           string
		want           listing.RemoteLevel
	}{
		{nil, nil, "Hybrid role in Berlin, some remote days", listing.RemoteHybrid},
		{nil, nil, "Work from home", listing.RemoteFully},
		{nil, nil, "Bangalore office", listing.RemoteOffice},
		{ptrB(true), nil, "Bangalore office", listing.RemoteFully},
		{ptrB(false), nil, "Remote friendly team", listing.RemoteOffice},
		{nil, ptrB(true), "", listing.RemoteHybrid},
	}
	for _, tt := range tests {
		if got := InferRemoteLevel(tt.remote, tt.hybrid, tt.text); got != tt.want {
			t.Fatalf("InferRemoteLevel(%q)=%q want %q", tt.text, got, tt.want)
		}
	}
}

func TestExtractTags_Dedup(t *testing.T) {
	got := mergeTags(ExtractTags("Python and python and Docker"), []string{"Docker", " aws "})
	want := []string{"python", "docker", "aws"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		text         string
		wantDomain   string
		wantCategory string
	}{
		{"Scholarship for women in engineering", "Engineering & Technology", "Women"},
		{"Need-based grant for MBBS students", "Medical & Health", "Need-based"},
		{"PhD fellowship in physics", "Science", "Research"},
		{"A flawless award", DefaultBucket, DefaultBucket},
	}
	for _, tt := range tests {
		d, c := Categorize(tt.text)
		if d != tt.wantDomain || c != tt.wantCategory {
			t.Fatalf("Categorize(%q)=(%q,%q) want (%q,%q)", tt.text, d, c, tt.wantDomain, tt.wantCategory)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01T10:00:00Z", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"3 days ago", fixedNow.AddDate(0, 0, -3)},
		{"5 hours ago", fixedNow.Add(-5 * time.Hour)},
		{"today", fixedNow},
		{"1741608000", time.Unix(1741608000, 0).UTC()},
		{"not a date", fixedNow},
		{"", fixedNow},
	}
	for _, tt := range tests {
		if got := ParseDate(tt.in, fixedNow); !got.Equal(tt.want) {
			t.Fatalf("ParseDate(%q)=%v want %v", tt.in, got, tt.want)
		}
	}
	if ParseOptionalDate("garbage", fixedNow) != nil {
		t.Fatalf("expected nil for unparseable optional date")
	}
}
