package scholarship

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"job-sync/internal/normalize"
)

const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// extractItem reads one item node. Selectors that match nothing leave the
// field empty; a selector list ("a, b") takes the first non-empty match.
func extractItem(sel *goquery.Selection, s Source, pageURL string) Item {
	it := Item{
		Title:       firstText(sel, s.Selectors.Title),
		Provider:    firstText(sel, s.Selectors.Provider),
		Amount:      firstText(sel, s.Selectors.Amount),
		Deadline:    firstText(sel, s.Selectors.Deadline),
		Eligibility: firstText(sel, s.Selectors.Eligibility),
		Description: firstText(sel, s.Selectors.Description),
		Location:    firstText(sel, s.Selectors.Location),
	}
	if it.Title == "" && s.Selectors.Title == "" {
		it.Title = collapse(sel.Text())
	}

	href := ""
	if goquery.NodeName(sel) == "a" {
		href, _ = sel.Attr("href")
	}
	if href == "" {
		href, _ = sel.Find(s.Selectors.Link).First().Attr("href")
	}
	if href = strings.TrimSpace(href); href != "" {
		it.Link = normalize.ResolveURL(pageURL, href)
	}

	if it.Provider == "" {
		it.Provider = s.DefaultProvider
	}
	if it.Location == "" {
		it.Location = s.DefaultLocation
	}
	return it
}

func firstText(sel *goquery.Selection, selector string) string {
	if strings.TrimSpace(selector) == "" {
		return ""
	}
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if t := collapse(sel.Find(part).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseHTML extracts every item from a rendered page.
func parseHTML(html string, s Source, pageURL string) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	var items []Item
	doc.Find(s.Selectors.Item).Each(func(_ int, sel *goquery.Selection) {
		if it := extractItem(sel, s, pageURL); it.Title != "" {
			items = append(items, it)
		}
	})
	return items, nil
}

// collectDirect fetches pageURL with colly and extracts items from the
// server-rendered HTML.
func collectDirect(ctx context.Context, s Source, pageURL string, timeout time.Duration) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var c *colly.Collector
	if host := hostFromURL(pageURL); host != "" {
		c = colly.NewCollector(colly.AllowedDomains(host), colly.UserAgent(browserUserAgent))
	} else {
		c = colly.NewCollector(colly.UserAgent(browserUserAgent))
	}
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	if s.Delay > 0 {
		_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: s.Delay})
	}

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var items []Item
	c.OnHTML(s.Selectors.Item, func(e *colly.HTMLElement) {
		if it := extractItem(e.DOM, s, e.Request.URL.String()); it.Title != "" {
			items = append(items, it)
		}
	})

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		reqErr = err
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, err
	}
	c.Wait()
	if reqErr != nil {
		return nil, reqErr
	}
	return items, nil
}

func hostFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(u.Host); err == nil {
		return h
	}
	return u.Host
}
