package badge

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/taskchain/taskchain/pkg/contribution"
)

type entry struct {
	Badge
	rule Rule
}

// Catalog is the immutable, ordered set of badges loaded at process start.
type Catalog struct {
	entries []entry
	byID    map[string]int
}

type catalogFile struct {
	Badges []Badge `yaml:"badges" validate:"required,min=1,dive"`
}

// NewCatalog validates badges and compiles their milestone rules.
func NewCatalog(badges []Badge) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(badges))}
	for _, b := range badges {
		if _, dup := c.byID[b.ID]; dup {
			return nil, fmt.Errorf("duplicate badge id %q", b.ID)
		}
		rule, err := b.Milestone.Rule()
		if err != nil {
			return nil, fmt.Errorf("badge %q: %w", b.ID, err)
		}
		c.byID[b.ID] = len(c.entries)
		c.entries = append(c.entries, entry{Badge: b, rule: rule})
	}
	return c, nil
}

// LoadCatalog reads a YAML catalog file. An empty path returns the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(DefaultBadges())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read badge catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse badge catalog: %w", err)
	}
	if err := validator.New().Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid badge catalog: %w", err)
	}
	return NewCatalog(file.Badges)
}

// Badges returns the catalog in declaration order.
func (c *Catalog) Badges() []Badge {
	out := make([]Badge, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Badge
	}
	return out
}

// Get returns the badge with id.
func (c *Catalog) Get(id string) (Badge, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Badge{}, false
	}
	return c.entries[i].Badge, true
}

// Eligible returns the badges whose milestone counts satisfies, in catalog order.
func (c *Catalog) Eligible(counts *contribution.Counts) []Badge {
	out := make([]Badge, 0)
	for _, e := range c.entries {
		if e.rule(counts) {
			out = append(out, e.Badge)
		}
	}
	return out
}

// IsEligible reports whether counts satisfies the milestone of badge id.
func (c *Catalog) IsEligible(id string, counts *contribution.Counts) bool {
	i, ok := c.byID[id]
	return ok && c.entries[i].rule(counts)
}

// DefaultBadges is the built-in catalog.
func DefaultBadges() []Badge {
	return []Badge{
		{ID: "first_contribution", Name: "First Steps", Description: "Recorded your first contribution", Milestone: MilestoneFirstContribution},
		{ID: "issues_10", Name: "Bug Hunter", Description: "Closed 10 issues", Milestone: "issues_10"},
		{ID: "issues_50", Name: "Issue Slayer", Description: "Closed 50 issues", Milestone: "issues_50"},
		{ID: "issues_100", Name: "Issue Legend", Description: "Closed 100 issues", Milestone: "issues_100"},
		{ID: "prs_10", Name: "Code Contributor", Description: "Merged 10 pull requests", Milestone: "prs_10"},
		{ID: "prs_50", Name: "Code Master", Description: "Merged 50 pull requests", Milestone: "prs_50"},
		{ID: "prs_100", Name: "Code Legend", Description: "Merged 100 pull requests", Milestone: "prs_100"},
		{ID: "commits_100", Name: "Committed", Description: "Pushed 100 commits", Milestone: "commits_100"},
		{ID: "commits_500", Name: "Commit Machine", Description: "Pushed 500 commits", Milestone: "commits_500"},
		{ID: "commits_1000", Name: "Commit Legend", Description: "Pushed 1000 commits", Milestone: "commits_1000"},
		{ID: "points_100", Name: "Rising Star", Description: "Earned 100 points", Milestone: "points_100"},
		{ID: "points_500", Name: "Star Contributor", Description: "Earned 500 points", Milestone: "points_500"},
		{ID: "points_1000", Name: "Superstar", Description: "Earned 1000 points", Milestone: "points_1000"},
	}
}
