package listing

import "time"

type Kind string

const (
	KindJob         Kind = "job"
	KindScholarship Kind = "scholarship"
	KindInternship  Kind = "internship"
)

type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeFreelance  JobType = "freelance"
	JobTypeInternship JobType = "internship"
)

type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "entry"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperienceLead      ExperienceLevel = "lead"
	ExperienceExecutive ExperienceLevel = "executive"
)

type RemoteLevel string

const (
	RemoteFully  RemoteLevel = "fully-remote"
	RemoteHybrid RemoteLevel = "hybrid"
	RemoteOffice RemoteLevel = "office-based"
)

// Salary bounds are nil when the source text could not be parsed.
type Salary struct {
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Currency string   `json:"currency,omitempty"`
}

// Listing is the canonical shape every provider record is normalized into.
// Jobs are keyed by RemoteID; scholarships and internships by (Title, Company).
type Listing struct {
	RemoteID        string          `json:"remoteId"`
	Kind            Kind            `json:"kind"`
	Title           string          `json:"title"`
	Company         string          `json:"company"`
	Location        string          `json:"location"`
	Description     string          `json:"description"`
	Tags            []string        `json:"tags"`
	Salary          Salary          `json:"salary"`
	JobType         JobType         `json:"jobType"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel"`
	RemoteLevel     RemoteLevel     `json:"remoteLevel"`
	ApplicationURL  *string         `json:"applicationUrl"`
	PostedAt        time.Time       `json:"postedAt"`
	ExpiresAt       *time.Time      `json:"expiresAt"`
	IsActive        bool            `json:"isActive"`
	Featured        bool            `json:"featured"`
	SourceAPI       string          `json:"sourceApi"`
	LastSynced      time.Time       `json:"lastSynced"`

	// scholarship / internship only
	Domain      string `json:"domain,omitempty"`
	Category    string `json:"category,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Eligibility string `json:"eligibility,omitempty"`
}

func (l Listing) HasApplicationURL() bool {
	return l.ApplicationURL != nil && *l.ApplicationURL != ""
}
