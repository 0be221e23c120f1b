package provider

import (
	"context"
	"net/url"
	"strconv"

	"job-sync/internal/domain/listing"
	"job-sync/internal/normalize"
	"job-sync/internal/schedule"
)

const joobleBaseURL = "https://jooble.org/api"

type Jooble struct {
	base
}

func NewJooble(opts Options) *Jooble {
	return &Jooble{base: newBase("jooble", opts)}
}

type joobleRequest struct {
	Keywords     string `json:"keywords"`
	Location     string `json:"location,omitempty"`
	Page         string `json:"page"`
	ResultOnPage string `json:"ResultOnPage"`
}

type joobleResponse struct {
	TotalCount int         `json:"totalCount"`
	Jobs       []joobleJob `json:"jobs"`
}

type joobleJob struct {
	ID       flexString `json:"id"`
	Title    string     `json:"title"`
	Location string     `json:"location"`
	Snippet  string     `json:"snippet"`
	Salary   string     `json:"salary"`
	Source   string     `json:"source"`
	Type     string     `json:"type"`
	Link     string     `json:"link"`
	Company  string     `json:"company"`
	Updated  string     `json:"updated"`
}

// FetchJobs posts one search per keyword × location.
func (j *Jooble) FetchJobs(ctx context.Context, cfg schedule.ProviderConfig) ([]listing.Listing, error) {
	key := cfg.Credentials.APIKey
	if key == "" {
		j.logger.Warn("JOOBLE_API_KEY not set, skipping")
		return []listing.Listing{}, nil
	}
	queries := crossProduct(cfg.Keywords, cfg.Locations)
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}

	client := j.httpClient(cfg)
	endpoint := trimBase(cfg.BaseURL, joobleBaseURL) + "/" + url.PathEscape(key)

	return j.runQueries(ctx, cfg, queries, func(ctx context.Context, q query) ([]normalize.Input, error) {
		var resp joobleResponse
		err := postJSON(ctx, client, endpoint, nil, joobleRequest{
			Keywords:     q.term,
			Location:     q.place,
			Page:         "1",
			ResultOnPage: strconv.Itoa(cfg.MaxResults),
		}, &resp)
		if err != nil {
			return nil, err
		}

		out := make([]normalize.Input, 0, len(resp.Jobs))
		for _, r := range resp.Jobs {
			out = append(out, normalize.Input{
				NativeID:    string(r.ID),
				Title:       r.Title,
				Company:     r.Company,
				Location:    r.Location,
				Description: r.Snippet,
				SalaryText:  r.Salary,
				JobTypeHint: r.Type,
				URL:         r.Link,
				PostedAt:    r.Updated,
			})
		}
		return out, nil
	}), nil
}
