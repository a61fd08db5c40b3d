package contribution

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTable() map[string]int {
	return map[string]int{
		"issue_closed":  10,
		"pr_opened":     5,
		"pr_merged":     15,
		"commit_pushed": 2,
	}
}

func TestPolicy_PointsTable(t *testing.T) {
	p, err := NewPolicy(defaultTable())
	require.NoError(t, err)

	cases := map[Kind]int{
		KindIssueClosed:  10,
		KindPROpened:     5,
		KindPRMerged:     15,
		KindCommitPushed: 2,
	}
	for kind, want := range cases {
		for i := 0; i < 3; i++ {
			got, err := p.Points(kind)
			require.NoError(t, err)
			assert.Equal(t, want, got, "kind %s", kind)
		}
	}
}

func TestPolicy_UnknownKindFailsClosed(t *testing.T) {
	p, err := NewPolicy(defaultTable())
	require.NoError(t, err)

	pts, err := p.Points("review_submitted")
	assert.ErrorIs(t, err, ErrInvalidKind)
	assert.Zero(t, pts)
	assert.False(t, p.Known("review_submitted"))
}

func TestPolicy_ConfiguredKindsAreAccepted(t *testing.T) {
	table := defaultTable()
	table["Review_Submitted "] = 3
	p, err := NewPolicy(table)
	require.NoError(t, err)

	pts, err := p.Points("review_submitted")
	require.NoError(t, err)
	assert.Equal(t, 3, pts)
	assert.Equal(t, []Kind{"commit_pushed", "issue_closed", "pr_merged", "pr_opened", "review_submitted"}, p.Kinds())
}

func TestNewPolicy_RejectsBadTables(t *testing.T) {
	_, err := NewPolicy(nil)
	assert.Error(t, err)

	_, err = NewPolicy(map[string]int{"pr_merged": -1})
	assert.Error(t, err)

	_, err = NewPolicy(map[string]int{"  ": 1})
	assert.Error(t, err)
}

func TestRecordRequest_Validate(t *testing.T) {
	ok := &RecordRequest{UserID: "u1", Kind: KindPRMerged, ExternalID: "pr-42"}
	assert.NoError(t, ok.Validate())

	missingUser := &RecordRequest{Kind: KindPRMerged, ExternalID: "pr-42"}
	assert.ErrorIs(t, missingUser.Validate(), ErrInvalidInput)

	missingExternal := &RecordRequest{UserID: "u1", Kind: KindPRMerged}
	assert.ErrorIs(t, missingExternal.Validate(), ErrInvalidInput)
}

func TestMetadata_SetRejectsNonPrimitive(t *testing.T) {
	m := Metadata{}
	require.NoError(t, m.Set(MetaTitle, "Fix flaky test"))
	require.NoError(t, m.Set("additions", 12))
	require.NoError(t, m.Set("draft", false))

	assert.ErrorIs(t, m.Set("labels", []string{"bug"}), ErrInvalidInput)

	title, ok := m.GetString(MetaTitle)
	assert.True(t, ok)
	assert.Equal(t, "Fix flaky test", title)

	n, ok := m.GetNumber("additions")
	assert.True(t, ok)
	assert.Equal(t, float64(12), n)
}

func TestMetadata_UnmarshalDropsNestedValues(t *testing.T) {
	var m Metadata
	err := json.Unmarshal([]byte(`{"title":"x","n":3,"ok":true,"nested":{"a":1},"list":[1],"nil":null}`), &m)
	require.NoError(t, err)

	assert.Equal(t, Metadata{"title": "x", "n": float64(3), "ok": true}, m)
}

func TestFold_GroupsByUser(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []AggregateRow{
		{UserID: "u1", Kind: KindPRMerged, Count: 2, Points: 30, FirstAt: t0.Add(time.Hour)},
		{UserID: "u1", Kind: KindCommitPushed, Count: 3, Points: 6, FirstAt: t0},
		{UserID: "u2", Kind: KindIssueClosed, Count: 1, Points: 10, FirstAt: t0.Add(2 * time.Hour)},
	}

	got := Fold(rows)
	require.Len(t, got, 2)

	u1 := got["u1"]
	assert.Equal(t, 5, u1.TotalContributions)
	assert.Equal(t, 36, u1.TotalPoints)
	assert.Equal(t, 2, u1.Count(KindPRMerged))
	assert.Equal(t, t0, u1.FirstAt)

	sum := 0
	for _, n := range u1.ByKind {
		sum += n
	}
	assert.Equal(t, u1.TotalContributions, sum)
}
