package badge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchain/taskchain/pkg/contribution"
)

func countsWith(byKind map[contribution.Kind]int, points int) *contribution.Counts {
	c := contribution.NewCounts("u1")
	for k, n := range byKind {
		c.ByKind[k] = n
		c.TotalContributions += n
	}
	c.TotalPoints = points
	return c
}

func badgeIDs(badges []Badge) []string {
	ids := make([]string, len(badges))
	for i, b := range badges {
		ids[i] = b.ID
	}
	return ids
}

func TestDefaultCatalog_Eligibility(t *testing.T) {
	cat, err := NewCatalog(DefaultBadges())
	require.NoError(t, err)

	assert.Empty(t, cat.Eligible(contribution.NewCounts("u1")))

	one := countsWith(map[contribution.Kind]int{contribution.KindPRMerged: 1}, 15)
	assert.Equal(t, []string{"first_contribution"}, badgeIDs(cat.Eligible(one)))
	assert.False(t, cat.IsEligible("prs_10", one))

	busy := countsWith(map[contribution.Kind]int{
		contribution.KindPRMerged:     10,
		contribution.KindPROpened:     40,
		contribution.KindIssueClosed:  9,
		contribution.KindCommitPushed: 100,
	}, 550)
	assert.Equal(t,
		[]string{"first_contribution", "prs_10", "commits_100", "points_100", "points_500"},
		badgeIDs(cat.Eligible(busy)))
}

func TestMilestone_OpenedPRsDoNotCountAsMerged(t *testing.T) {
	rule, err := Milestone("prs_10").Rule()
	require.NoError(t, err)

	opened := countsWith(map[contribution.Kind]int{contribution.KindPROpened: 25}, 125)
	assert.False(t, rule(opened))
}

func TestMilestone_Invalid(t *testing.T) {
	for _, m := range []Milestone{"", "prs", "prs_x", "prs_0", "reviews_5"} {
		_, err := m.Rule()
		assert.Error(t, err, "milestone %q", m)
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "badges.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
badges:
  - id: hello
    name: Hello
    milestone: first_contribution
  - id: reviewer
    name: Reviewer
    description: Merged 3 pull requests
    milestone: prs_3
`), 0o600))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, cat.Badges(), 2)

	b, ok := cat.Get("reviewer")
	require.True(t, ok)
	assert.Equal(t, Milestone("prs_3"), b.Milestone)

	require.NoError(t, os.WriteFile(path, []byte("badges:\n  - id: bad\n    name: Bad\n    milestone: stars_3\n"), 0o600))
	_, err = LoadCatalog(path)
	assert.Error(t, err)

	def, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, def.Badges(), 13)
}
