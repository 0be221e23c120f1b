// Package schedule holds the static per-provider quota and cadence table.
// The policy only answers questions; it never sleeps or triggers runs itself.
package schedule

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

//go:embed providers.yaml
var defaultTable []byte

const (
	MaxResultsCap  = 50
	DefaultTimeout = 10 * time.Second
	DefaultDelay   = time.Second
)

var ErrUnknownProvider = errors.New("unknown provider")

type Limits struct {
	PerMonth int `yaml:"per_month" json:"perMonth"`
	PerDay   int `yaml:"per_day" json:"perDay"`
	PerHour  int `yaml:"per_hour" json:"perHour"`
}

type Cadence struct {
	Cron  string   `yaml:"cron" json:"cron"`
	Times []string `yaml:"times" json:"times"`
}

type Credentials struct {
	APIKey string
	AppID  string
	AppKey string
}

type ProviderConfig struct {
	Name     string  `yaml:"name"`
	Enabled  bool    `yaml:"enabled"`
	BaseURL  string  `yaml:"base_url"`
	Limits   Limits  `yaml:"limits"`
	Schedule Cadence `yaml:"schedule"`

	Keywords         []string `yaml:"keywords"`
	Locations        []string `yaml:"locations"`
	Countries        []string `yaml:"countries"`
	Feeds            []string `yaml:"feeds"`
	PostedWithinDays int      `yaml:"posted_within_days"`

	MaxResults int           `yaml:"max_results"`
	Delay      time.Duration `yaml:"delay"`
	Timeout    time.Duration `yaml:"timeout"`

	Credentials Credentials `yaml:"-"`
}

type table struct {
	Providers []ProviderConfig `yaml:"providers"`
}

type Policy struct {
	providers []ProviderConfig
	index     map[string]int
	parser    cron.Parser
}

// Load reads the table at path, or the embedded default when path is empty.
func Load(path string) (*Policy, error) {
	data := defaultTable
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read providers file: %w", err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*Policy, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse providers table: %w", err)
	}
	return New(t.Providers)
}

func New(providers []ProviderConfig) (*Policy, error) {
	p := &Policy{
		providers: make([]ProviderConfig, 0, len(providers)),
		index:     make(map[string]int, len(providers)),
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
	for _, pc := range providers {
		pc.Name = strings.ToLower(strings.TrimSpace(pc.Name))
		if pc.Name == "" {
			return nil, errors.New("provider entry without name")
		}
		if _, dup := p.index[pc.Name]; dup {
			return nil, fmt.Errorf("duplicate provider %q", pc.Name)
		}
		applyDefaults(&pc)
		p.index[pc.Name] = len(p.providers)
		p.providers = append(p.providers, pc)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func applyDefaults(pc *ProviderConfig) {
	if pc.MaxResults <= 0 || pc.MaxResults > MaxResultsCap {
		pc.MaxResults = MaxResultsCap
	}
	if pc.Timeout <= 0 {
		pc.Timeout = DefaultTimeout
	}
	if pc.Delay < 0 {
		pc.Delay = 0
	}
	if pc.Delay == 0 {
		pc.Delay = DefaultDelay
	}
}

func (p *Policy) Validate() error {
	var problems []string
	for _, pc := range p.providers {
		if pc.Limits.PerMonth < 0 || pc.Limits.PerDay < 0 || pc.Limits.PerHour < 0 {
			problems = append(problems, pc.Name+": negative limit")
		}
		if pc.Schedule.Cron != "" {
			if _, err := p.parser.Parse(pc.Schedule.Cron); err != nil {
				problems = append(problems, fmt.Sprintf("%s: cron %q: %v", pc.Name, pc.Schedule.Cron, err))
			}
		}
		for _, ts := range pc.Schedule.Times {
			if _, _, ok := parseClock(ts); !ok {
				problems = append(problems, fmt.Sprintf("%s: time %q is not HH:MM", pc.Name, ts))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid providers table: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (p *Policy) GetAPIConfig(name string) (ProviderConfig, error) {
	if p == nil {
		return ProviderConfig{}, ErrUnknownProvider
	}
	i, ok := p.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p.providers[i], nil
}

// Names lists every provider in table order.
func (p *Policy) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.providers))
	for _, pc := range p.providers {
		out = append(out, pc.Name)
	}
	return out
}

func (p *Policy) GetEnabledAPIs() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.providers))
	for _, pc := range p.providers {
		if pc.Enabled {
			out = append(out, pc.Name)
		}
	}
	return out
}

// ShouldRunAPI reports whether name is enabled and one of its run times falls
// in hour. Unknown providers never run.
func (p *Policy) ShouldRunAPI(name string, hour int) bool {
	pc, err := p.GetAPIConfig(name)
	if err != nil || !pc.Enabled {
		return false
	}
	for _, ts := range pc.Schedule.Times {
		h, _, ok := parseClock(ts)
		if ok && h == hour {
			return true
		}
	}
	return false
}

// ScheduledAt returns the providers due in hour, in table order.
func (p *Policy) ScheduledAt(hour int) []string {
	var out []string
	for _, name := range p.Names() {
		if p.ShouldRunAPI(name, hour) {
			out = append(out, name)
		}
	}
	return out
}

// NextRun is the next firing of the provider's cron expression after now.
// The zero time is returned for disabled providers or ones without a cron.
func (p *Policy) NextRun(name string, now time.Time) (time.Time, error) {
	pc, err := p.GetAPIConfig(name)
	if err != nil {
		return time.Time{}, err
	}
	if !pc.Enabled || pc.Schedule.Cron == "" {
		return time.Time{}, nil
	}
	sched, err := p.parser.Parse(pc.Schedule.Cron)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron for %s: %w", name, err)
	}
	return sched.Next(now.UTC()), nil
}

// SetCredentials attaches secrets loaded from the environment.
func (p *Policy) SetCredentials(name string, c Credentials) {
	if p == nil {
		return
	}
	if i, ok := p.index[strings.ToLower(strings.TrimSpace(name))]; ok {
		p.providers[i].Credentials = c
	}
}

// SetEnabled overrides the table flag, e.g. from a CLI flag.
func (p *Policy) SetEnabled(name string, enabled bool) {
	if p == nil {
		return
	}
	if i, ok := p.index[strings.ToLower(strings.TrimSpace(name))]; ok {
		p.providers[i].Enabled = enabled
	}
}

func parseClock(s string) (hour, minute int, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
