package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"job-sync/internal/domain/listing"
	"job-sync/internal/normalize"
	"job-sync/internal/schedule"
)

const indianAPIBaseURL = "https://jobs.indianapi.in"

type IndianAPI struct {
	base
}

func NewIndianAPI(opts Options) *IndianAPI {
	return &IndianAPI{base: newBase("indianapi", opts)}
}

type indianJob struct {
	ID          flexString `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	JobType     string     `json:"job_type"`
	Experience  string     `json:"experience"`
	Salary      string     `json:"salary"`
	PostedDate  string     `json:"posted_date"`
	ApplyLink   string     `json:"apply_link"`
	Description string     `json:"description"`
	AboutJob    string     `json:"about_job"`
}

// FetchJobs queries /jobs per keyword × location with the X-Api-Key header.
func (a *IndianAPI) FetchJobs(ctx context.Context, cfg schedule.ProviderConfig) ([]listing.Listing, error) {
	key := cfg.Credentials.APIKey
	if key == "" {
		a.logger.Warn("INDIANAPI_API_KEY not set, skipping")
		return []listing.Listing{}, nil
	}
	queries := crossProduct(cfg.Keywords, cfg.Locations)
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}

	client := a.httpClient(cfg)
	baseURL := trimBase(cfg.BaseURL, indianAPIBaseURL)

	return a.runQueries(ctx, cfg, queries, func(ctx context.Context, q query) ([]normalize.Input, error) {
		params := url.Values{}
		params.Set("title", q.term)
		if q.place != "" {
			params.Set("location", q.place)
		}
		params.Set("limit", strconv.Itoa(cfg.MaxResults))
		endpoint := baseURL + "/jobs?" + params.Encode()

		body, err := doWithRetry(ctx, client, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Accept", "application/json")
			req.Header.Set("X-Api-Key", key)
			return req, nil
		}, defaultAttempts)
		if err != nil {
			return nil, err
		}
		jobs, err := decodeIndianJobs(body)
		if err != nil {
			return nil, err
		}

		out := make([]normalize.Input, 0, len(jobs))
		for _, r := range jobs {
			desc := r.Description
			if desc == "" {
				desc = r.AboutJob
			}
			out = append(out, normalize.Input{
				NativeID:       string(r.ID),
				Title:          r.Title,
				Company:        r.Company,
				Location:       r.Location,
				Description:    desc,
				SalaryText:     r.Salary,
				Currency:       "INR",
				JobTypeHint:    r.JobType,
				ExperienceHint: r.Experience,
				URL:            r.ApplyLink,
				PostedAt:       r.PostedDate,
			})
		}
		return out, nil
	}), nil
}

// decodeIndianJobs accepts either a bare array or {"data": [...]}.
func decodeIndianJobs(body []byte) ([]indianJob, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if body[0] == '[' {
		var jobs []indianJob
		if err := json.Unmarshal(body, &jobs); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return jobs, nil
	}
	var wrapped struct {
		Data []indianJob `json:"data"`
		Jobs []indianJob `json:"jobs"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(wrapped.Data) > 0 {
		return wrapped.Data, nil
	}
	return wrapped.Jobs, nil
}
