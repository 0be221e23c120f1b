package scholarship

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"job-sync/internal/domain/listing"
)

//go:embed sources.yaml
var defaultSources []byte

//go:embed fallback.yaml
var defaultFallback []byte

type RenderMode string

const (
	RenderNone     RenderMode = "none"
	RenderProxy    RenderMode = "proxy"
	RenderHeadless RenderMode = "headless"
)

type Selectors struct {
	Item        string `yaml:"item"`
	Title       string `yaml:"title"`
	Provider    string `yaml:"provider"`
	Amount      string `yaml:"amount"`
	Deadline    string `yaml:"deadline"`
	Eligibility string `yaml:"eligibility"`
	Description string `yaml:"description"`
	Location    string `yaml:"location"`
	Link        string `yaml:"link"`
}

// Source is one scraped listing page. A URL containing %d is expanded for
// pages 1..Pages.
type Source struct {
	Name            string        `yaml:"name"`
	Kind            listing.Kind  `yaml:"kind"`
	URL             string        `yaml:"url"`
	Pages           int           `yaml:"pages"`
	Render          RenderMode    `yaml:"render"`
	DefaultProvider string        `yaml:"default_provider"`
	DefaultLocation string        `yaml:"default_location"`
	Delay           time.Duration `yaml:"delay"`
	Selectors       Selectors     `yaml:"selectors"`
}

// Item is a scraped or curated entry before normalization.
type Item struct {
	Title       string `yaml:"title"`
	Provider    string `yaml:"provider"`
	Amount      string `yaml:"amount"`
	Deadline    string `yaml:"deadline"`
	Eligibility string `yaml:"eligibility"`
	Description string `yaml:"description"`
	Location    string `yaml:"location"`
	Link        string `yaml:"link"`
}

// Fallback maps a listing kind to its curated dataset.
type Fallback map[listing.Kind][]Item

// LoadSources reads the sources table at path, or the embedded one.
func LoadSources(path string) ([]Source, error) {
	data := defaultSources
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scholarship sources: %w", err)
		}
		data = b
	}
	return ParseSources(data)
}

func ParseSources(data []byte) ([]Source, error) {
	var t struct {
		Sources []Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse scholarship sources: %w", err)
	}

	seen := map[string]struct{}{}
	out := make([]Source, 0, len(t.Sources))
	for _, s := range t.Sources {
		s.Name = strings.ToLower(strings.TrimSpace(s.Name))
		switch {
		case s.Name == "":
			return nil, errors.New("scholarship source without name")
		case strings.TrimSpace(s.URL) == "":
			return nil, fmt.Errorf("scholarship source %s: url is required", s.Name)
		case strings.TrimSpace(s.Selectors.Item) == "":
			return nil, fmt.Errorf("scholarship source %s: item selector is required", s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("duplicate scholarship source %q", s.Name)
		}
		seen[s.Name] = struct{}{}

		if s.Kind == "" {
			s.Kind = listing.KindScholarship
		}
		if s.Kind != listing.KindScholarship && s.Kind != listing.KindInternship {
			return nil, fmt.Errorf("scholarship source %s: unsupported kind %q", s.Name, s.Kind)
		}
		switch s.Render {
		case "":
			s.Render = RenderNone
		case RenderNone, RenderProxy, RenderHeadless:
		default:
			return nil, fmt.Errorf("scholarship source %s: unsupported render mode %q", s.Name, s.Render)
		}
		if s.Pages <= 0 {
			s.Pages = 1
		}
		if s.Selectors.Link == "" {
			s.Selectors.Link = "a"
		}
		out = append(out, s)
	}
	return out, nil
}

// DefaultFallback returns the embedded curated datasets.
func DefaultFallback() (Fallback, error) {
	return ParseFallback(defaultFallback)
}

func ParseFallback(data []byte) (Fallback, error) {
	var raw map[string][]Item
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fallback dataset: %w", err)
	}
	out := make(Fallback, len(raw))
	for k, items := range raw {
		out[listing.Kind(strings.ToLower(strings.TrimSpace(k)))] = items
	}
	return out, nil
}

// pageURLs expands the %d placeholder.
func (s Source) pageURLs() []string {
	if !strings.Contains(s.URL, "%d") {
		return []string{s.URL}
	}
	out := make([]string, 0, s.Pages)
	for p := 1; p <= s.Pages; p++ {
		out = append(out, fmt.Sprintf(s.URL, p))
	}
	return out
}
