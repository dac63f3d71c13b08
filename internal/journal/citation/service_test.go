package citation

import (
	"context"
	"errors"
	"testing"

	"github.com/akozlovs/vinotes/internal/journal/models"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	records []*models.Record
	err     error
}

func (f *fakeSource) RecordsForUser(ctx context.Context, userID string) ([]*models.Record, error) {
	return f.records, f.err
}

func TestFindCandidates_SuggestsMissingFields(t *testing.T) {
	draft := &models.Record{WineName: "Chateau Margaux", Producer: "Margaux"}
	stored := &models.Record{
		ID:       "r1",
		WineName: "Château Margaux",
		Producer: "Château Margaux",
		Region:   "Bordeaux",
	}

	got := FindCandidates(draft, []*models.Record{stored}, Options{Threshold: 0.3})
	require.Len(t, got, 1)
	require.Greater(t, got[0].Confidence, 0.8)
	require.Contains(t, got[0].SuggestedFields, models.FieldRegion)
	require.NotContains(t, got[0].SuggestedFields, models.FieldGrapes,
		"fields absent on the historical record are not suggested")
}

func TestFindCandidates_ThresholdFiltersAndSorts(t *testing.T) {
	draft := &models.Record{WineName: "Barolo Riserva", Producer: "Conterno"}
	history := []*models.Record{
		{ID: "close", WineName: "Barolo Riserva", Producer: "Conterno"},
		{ID: "mid", WineName: "Barolo", Producer: "Conterno"},
		{ID: "far", WineName: "Sancerre", Producer: "Vatan"},
	}

	got := FindCandidates(draft, history, Options{Threshold: 0.5})
	require.GreaterOrEqual(t, len(got), 2)
	require.Equal(t, "close", got[0].Record.ID)
	require.Equal(t, "mid", got[1].Record.ID)
	for _, c := range got {
		require.NotEqual(t, "far", c.Record.ID)
		require.GreaterOrEqual(t, c.Confidence, 0.5)
	}
}

func TestFindCandidates_MaxResultsAndExcludes(t *testing.T) {
	draft := &models.Record{WineName: "Chablis"}
	var history []*models.Record
	for _, id := range []string{"a", "b", "c", "d"} {
		history = append(history, &models.Record{ID: id, WineName: "Chablis"})
	}

	got := FindCandidates(draft, history, Options{
		Threshold:  0.3,
		MaxResults: 2,
		ExcludeIDs: []string{"a"},
	})
	require.Len(t, got, 2)
	for _, c := range got {
		require.NotEqual(t, "a", c.Record.ID)
	}
}

func TestFindCandidates_NilDraft(t *testing.T) {
	require.Nil(t, FindCandidates(nil, []*models.Record{{ID: "r1"}}, Options{}))
}

func TestService_FindSimilarWines(t *testing.T) {
	src := &fakeSource{records: []*models.Record{
		{ID: "r1", UserID: "u1", WineName: "Etna Rosso", Producer: "Graci"},
	}}
	svc := NewService(src, nil)

	draft := &models.Record{WineName: "Etna Rosso", Producer: "Graci"}
	got, err := svc.FindSimilarWines(context.Background(), draft, "u1", Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "r1", got[0].Record.ID)
}

func TestService_FindSimilarWines_SourceError(t *testing.T) {
	boom := errors.New("storage down")
	svc := NewService(&fakeSource{err: boom}, nil)

	_, err := svc.FindSimilarWines(context.Background(), &models.Record{WineName: "x"}, "u1", Options{})
	require.ErrorIs(t, err, boom)
}

func TestDetectDuplicates_ExactBucket(t *testing.T) {
	src := &fakeSource{records: []*models.Record{
		{ID: "r1", WineName: "Tignanello", Producer: "Antinori", Vintage: 2019},
	}}
	svc := NewService(src, nil)

	// No vintage on the draft: producer+name equality is enough.
	report, err := svc.DetectDuplicates(context.Background(), "u1", DuplicateQuery{
		WineName: "tignanello",
		Producer: "ANTINORI",
	})
	require.NoError(t, err)
	require.Len(t, report.ExactDuplicates, 1)
	require.Equal(t, "r1", report.ExactDuplicates[0].ID)
	require.Empty(t, report.SimilarWines, "exact matches are not repeated in the fuzzy bucket")
}

func TestDetectDuplicates_VintageMismatchDemotesToFuzzy(t *testing.T) {
	src := &fakeSource{records: []*models.Record{
		{ID: "r1", WineName: "Tignanello", Producer: "Antinori", Vintage: 2015},
	}}
	svc := NewService(src, nil)

	report, err := svc.DetectDuplicates(context.Background(), "u1", DuplicateQuery{
		WineName: "Tignanello",
		Producer: "Antinori",
		Vintage:  2016,
	})
	require.NoError(t, err)
	require.Empty(t, report.ExactDuplicates)
	require.Len(t, report.SimilarWines, 1)
	require.Equal(t, "r1", report.SimilarWines[0].Record.ID)
}

func TestDetectDuplicates_UnrelatedWineIgnored(t *testing.T) {
	src := &fakeSource{records: []*models.Record{
		{ID: "r1", WineName: "Riesling Kabinett", Producer: "Dr. Loosen"},
	}}
	svc := NewService(src, nil)

	report, err := svc.DetectDuplicates(context.Background(), "u1", DuplicateQuery{
		WineName: "Malbec",
		Producer: "Catena",
	})
	require.NoError(t, err)
	require.Empty(t, report.ExactDuplicates)
	require.Empty(t, report.SimilarWines)
}
