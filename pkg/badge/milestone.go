package badge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/taskchain/taskchain/pkg/contribution"
)

// Milestone names an eligibility rule: "first_contribution" or "<metric>_<threshold>"
// where metric is one of issues, prs, commits, points.
type Milestone string

const MilestoneFirstContribution Milestone = "first_contribution"

// metrics maps a milestone prefix onto the aggregate it reads.
var metrics = map[string]func(c *contribution.Counts) int{
	"issues":  func(c *contribution.Counts) int { return c.Count(contribution.KindIssueClosed) },
	"prs":     func(c *contribution.Counts) int { return c.Count(contribution.KindPRMerged) },
	"commits": func(c *contribution.Counts) int { return c.Count(contribution.KindCommitPushed) },
	"points":  func(c *contribution.Counts) int { return c.TotalPoints },
}

// Rule is a pure predicate over aggregate counts.
type Rule func(c *contribution.Counts) bool

// Rule parses the milestone into its predicate.
func (m Milestone) Rule() (Rule, error) {
	if m == MilestoneFirstContribution {
		return func(c *contribution.Counts) bool { return c.TotalContributions >= 1 }, nil
	}

	prefix, raw, ok := strings.Cut(string(m), "_")
	if !ok {
		return nil, fmt.Errorf("unknown milestone %q", m)
	}
	metric, ok := metrics[prefix]
	if !ok {
		return nil, fmt.Errorf("unknown milestone metric %q", prefix)
	}
	threshold, err := strconv.Atoi(raw)
	if err != nil || threshold <= 0 {
		return nil, fmt.Errorf("milestone %q has an invalid threshold", m)
	}

	return func(c *contribution.Counts) bool { return metric(c) >= threshold }, nil
}
