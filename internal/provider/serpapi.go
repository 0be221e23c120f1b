package provider

import (
	"context"
	"net/url"
	"strings"

	"job-sync/internal/domain/listing"
	"job-sync/internal/normalize"
	"job-sync/internal/schedule"
)

const serpAPIBaseURL = "https://serpapi.com"

type SerpAPI struct {
	base
}

func NewSerpAPI(opts Options) *SerpAPI {
	return &SerpAPI{base: newBase("serpapi", opts)}
}

type serpResponse struct {
	Error       string    `json:"error"`
	JobsResults []serpJob `json:"jobs_results"`
}

type serpJob struct {
	JobID              string   `json:"job_id"`
	Title              string   `json:"title"`
	CompanyName        string   `json:"company_name"`
	Location           string   `json:"location"`
	Via                string   `json:"via"`
	Description        string   `json:"description"`
	ShareLink          string   `json:"share_link"`
	Extensions         []string `json:"extensions"`
	DetectedExtensions struct {
		PostedAt     string `json:"posted_at"`
		ScheduleType string `json:"schedule_type"`
		Salary       string `json:"salary"`
		WorkFromHome *bool  `json:"work_from_home"`
	} `json:"detected_extensions"`
	ApplyOptions []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"apply_options"`
}

// FetchJobs runs a google_jobs search per keyword × location.
func (s *SerpAPI) FetchJobs(ctx context.Context, cfg schedule.ProviderConfig) ([]listing.Listing, error) {
	key := cfg.Credentials.APIKey
	if key == "" {
		s.logger.Warn("SERPAPI_API_KEY not set, skipping")
		return []listing.Listing{}, nil
	}
	queries := crossProduct(cfg.Keywords, cfg.Locations)
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}

	client := s.httpClient(cfg)
	baseURL := trimBase(cfg.BaseURL, serpAPIBaseURL)

	return s.runQueries(ctx, cfg, queries, func(ctx context.Context, q query) ([]normalize.Input, error) {
		params := url.Values{}
		params.Set("engine", "google_jobs")
		params.Set("q", q.term)
		if q.place != "" {
			params.Set("location", q.place)
		}
		params.Set("api_key", key)

		var resp serpResponse
		if err := getJSON(ctx, client, baseURL+"/search.json?"+params.Encode(), nil, &resp); err != nil {
			return nil, err
		}
		if resp.Error != "" {
			s.logger.Warn("serpapi reported an error", "query", q.term, "err", resp.Error)
		}

		out := make([]normalize.Input, 0, len(resp.JobsResults))
		for _, r := range resp.JobsResults {
			link := r.ShareLink
			if len(r.ApplyOptions) > 0 && r.ApplyOptions[0].Link != "" {
				link = r.ApplyOptions[0].Link
			}
			salary := r.DetectedExtensions.Salary
			if salary == "" {
				salary = strings.Join(r.Extensions, " ")
			}
			out = append(out, normalize.Input{
				NativeID:    r.JobID,
				Title:       r.Title,
				Company:     r.CompanyName,
				Location:    r.Location,
				Description: r.Description,
				SalaryText:  salary,
				JobTypeHint: r.DetectedExtensions.ScheduleType,
				Remote:      r.DetectedExtensions.WorkFromHome,
				URL:         link,
				PostedAt:    r.DetectedExtensions.PostedAt,
			})
		}
		return out, nil
	}), nil
}
