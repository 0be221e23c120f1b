package provider

import (
	"context"
	"strings"

	"job-sync/internal/domain/listing"
	"job-sync/internal/normalize"
	"job-sync/internal/schedule"
)

const theirStackBaseURL = "https://api.theirstack.com"

type TheirStack struct {
	base
}

func NewTheirStack(opts Options) *TheirStack {
	return &TheirStack{base: newBase("theirstack", opts)}
}

type theirStackRequest struct {
	Page                int      `json:"page"`
	Limit               int      `json:"limit"`
	JobTitleOr          []string `json:"job_title_or"`
	JobCountryCodeOr    []string `json:"job_country_code_or,omitempty"`
	PostedAtMaxAgeDays  int      `json:"posted_at_max_age_days,omitempty"`
	IncludeTotalResults bool     `json:"include_total_results"`
}

type theirStackResponse struct {
	Data []theirStackJob `json:"data"`
}

type theirStackJob struct {
	ID            flexString `json:"id"`
	JobTitle      string     `json:"job_title"`
	URL           string     `json:"url"`
	FinalURL      string     `json:"final_url"`
	DatePosted    string     `json:"date_posted"`
	Company       string     `json:"company"`
	CompanyObject struct {
		Name string `json:"name"`
	} `json:"company_object"`
	Location           string    `json:"location"`
	LongLocation       string    `json:"long_location"`
	Remote             *bool     `json:"remote"`
	Hybrid             *bool     `json:"hybrid"`
	Seniority          string    `json:"seniority"`
	MinAnnualSalaryUSD flexFloat `json:"min_annual_salary_usd"`
	MaxAnnualSalaryUSD flexFloat `json:"max_annual_salary_usd"`
	SalaryString       string    `json:"salary_string"`
	Description        string    `json:"description"`
	EmploymentStatuses []string  `json:"employment_statuses"`
	TechnologySlugs    []string  `json:"technology_slugs"`
}

// FetchJobs posts one search per job title × country code.
func (t *TheirStack) FetchJobs(ctx context.Context, cfg schedule.ProviderConfig) ([]listing.Listing, error) {
	key := cfg.Credentials.APIKey
	if key == "" {
		t.logger.Warn("THEIRSTACK_API_KEY not set, skipping")
		return []listing.Listing{}, nil
	}
	queries := crossProduct(cfg.Keywords, cfg.Countries)
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}

	client := t.httpClient(cfg)
	endpoint := trimBase(cfg.BaseURL, theirStackBaseURL) + "/v1/jobs/search"
	headers := map[string]string{"Authorization": "Bearer " + key}

	return t.runQueries(ctx, cfg, queries, func(ctx context.Context, q query) ([]normalize.Input, error) {
		req := theirStackRequest{
			Page:               0,
			Limit:              cfg.MaxResults,
			JobTitleOr:         []string{q.term},
			PostedAtMaxAgeDays: cfg.PostedWithinDays,
		}
		if q.place != "" {
			req.JobCountryCodeOr = []string{strings.ToUpper(q.place)}
		}

		var resp theirStackResponse
		if err := postJSON(ctx, client, endpoint, headers, req, &resp); err != nil {
			return nil, err
		}

		out := make([]normalize.Input, 0, len(resp.Data))
		for _, r := range resp.Data {
			company := r.CompanyObject.Name
			if company == "" {
				company = r.Company
			}
			location := r.Location
			if location == "" {
				location = r.LongLocation
			}
			link := r.FinalURL
			if link == "" {
				link = r.URL
			}
			jobType := ""
			if len(r.EmploymentStatuses) > 0 {
				jobType = r.EmploymentStatuses[0]
			}
			cur := ""
			if r.MinAnnualSalaryUSD.Ptr() != nil || r.MaxAnnualSalaryUSD.Ptr() != nil {
				cur = "USD"
			}
			out = append(out, normalize.Input{
				NativeID:       string(r.ID),
				Title:          r.JobTitle,
				Company:        company,
				Location:       location,
				Description:    r.Description,
				SalaryText:     r.SalaryString,
				SalaryMin:      r.MinAnnualSalaryUSD.Ptr(),
				SalaryMax:      r.MaxAnnualSalaryUSD.Ptr(),
				Currency:       cur,
				JobTypeHint:    jobType,
				ExperienceHint: r.Seniority,
				Remote:         r.Remote,
				Hybrid:         r.Hybrid,
				URL:            link,
				PostedAt:       r.DatePosted,
				Tags:           r.TechnologySlugs,
			})
		}
		return out, nil
	}), nil
}
