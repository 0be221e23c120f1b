package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"job-sync/internal/domain/listing"
	"job-sync/internal/normalize"
	"job-sync/internal/schedule"
)

const adzunaBaseURL = "https://api.adzuna.com/v1/api/jobs"

var adzunaCurrency = map[string]string{
	"gb": "GBP",
	"us": "USD",
	"in": "INR",
	"ca": "CAD",
	"au": "AUD",
	"de": "EUR",
	"fr": "EUR",
	"nl": "EUR",
}

type Adzuna struct {
	base
}

func NewAdzuna(opts Options) *Adzuna {
	return &Adzuna{base: newBase("adzuna", opts)}
}

type adzunaResponse struct {
	Count   int            `json:"count"`
	Results []adzunaResult `json:"results"`
}

type adzunaResult struct {
	ID          flexString `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	SalaryMin    flexFloat `json:"salary_min"`
	SalaryMax    flexFloat `json:"salary_max"`
	RedirectURL  string    `json:"redirect_url"`
	Created      string    `json:"created"`
	ContractTime string    `json:"contract_time"`
	ContractType string    `json:"contract_type"`
	Category     struct {
		Tag string `json:"tag"`
	} `json:"category"`
}

// FetchJobs queries page one for every country × keyword.
func (a *Adzuna) FetchJobs(ctx context.Context, cfg schedule.ProviderConfig) ([]listing.Listing, error) {
	appID, appKey := cfg.Credentials.AppID, cfg.Credentials.AppKey
	if appID == "" || appKey == "" {
		a.logger.Warn("ADZUNA_APP_ID / ADZUNA_APP_KEY not set, skipping")
		return []listing.Listing{}, nil
	}
	countries := nonEmpty(cfg.Countries)
	if len(countries) == 0 {
		countries = []string{"gb"}
	}
	queries := crossProduct(cfg.Keywords, countries)
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}

	client := a.httpClient(cfg)
	baseURL := trimBase(cfg.BaseURL, adzunaBaseURL)

	return a.runQueries(ctx, cfg, queries, func(ctx context.Context, q query) ([]normalize.Input, error) {
		country := strings.ToLower(q.place)
		params := url.Values{}
		params.Set("app_id", appID)
		params.Set("app_key", appKey)
		params.Set("results_per_page", strconv.Itoa(cfg.MaxResults))
		params.Set("what", q.term)
		params.Set("content-type", "application/json")
		params.Set("sort_by", "date")
		endpoint := fmt.Sprintf("%s/%s/search/1?%s", baseURL, url.PathEscape(country), params.Encode())

		var resp adzunaResponse
		if err := getJSON(ctx, client, endpoint, nil, &resp); err != nil {
			return nil, err
		}

		out := make([]normalize.Input, 0, len(resp.Results))
		for _, r := range resp.Results {
			jobType := r.ContractTime
			if strings.EqualFold(r.ContractType, "contract") {
				jobType = "contract"
			}
			out = append(out, normalize.Input{
				NativeID:    string(r.ID),
				Title:       r.Title,
				Company:     r.Company.DisplayName,
				Location:    r.Location.DisplayName,
				Description: r.Description,
				SalaryMin:   r.SalaryMin.Ptr(),
				SalaryMax:   r.SalaryMax.Ptr(),
				Currency:    adzunaCurrency[country],
				JobTypeHint: jobType,
				URL:         r.RedirectURL,
				PostedAt:    r.Created,
			})
		}
		return out, nil
	}), nil
}
