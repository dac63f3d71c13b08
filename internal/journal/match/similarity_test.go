package match

import (
	"testing"

	"github.com/akozlovs/vinotes/internal/journal/models"
	"github.com/stretchr/testify/require"
)

func TestFieldSimilarity_IdenticalStrings(t *testing.T) {
	require.Equal(t, 1.0, FieldSimilarity("Barolo", "Barolo", models.FieldWineName))
	require.Equal(t, 1.0, FieldSimilarity("  Barolo ", "barolo", models.FieldWineName),
		"whitespace and case are normalized")
}

func TestFieldSimilarity_SubstringShortCircuit(t *testing.T) {
	require.Equal(t, 0.8, FieldSimilarity("Margaux", "Château Margaux", models.FieldProducer))
	require.Equal(t, 0.8, FieldSimilarity("Château Margaux", "Margaux", models.FieldProducer))
}

func TestFieldSimilarity_EditDistanceFallback(t *testing.T) {
	// "chateau margaux" vs "château margaux": one rune apart, 15 runes long.
	got := FieldSimilarity("Chateau Margaux", "Château Margaux", models.FieldWineName)
	require.InDelta(t, 1-1.0/15, got, 1e-9)
}

func TestFieldSimilarity_StringSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"Chianti Classico", "Chianti"},
		{"Rioja", "Ribera"},
		{"Pinot Noir", "Pinot Grigio"},
	}
	for _, p := range pairs {
		ab := FieldSimilarity(p[0], p[1], models.FieldWineName)
		ba := FieldSimilarity(p[1], p[0], models.FieldWineName)
		require.Equal(t, ab, ba, "similarity(%q,%q) must be symmetric", p[0], p[1])
	}
}

func TestFieldSimilarity_VintageDecay(t *testing.T) {
	require.Equal(t, 1.0, FieldSimilarity(2015, 2015, models.FieldVintage))
	require.Equal(t, 0.0, FieldSimilarity(2015, 2025, models.FieldVintage))
	require.Equal(t, 0.0, FieldSimilarity(2015, 2040, models.FieldVintage), "clamped at zero")

	near := FieldSimilarity(2015, 2016, models.FieldVintage)
	far := FieldSimilarity(2015, 2020, models.FieldVintage)
	require.Greater(t, near, far)
}

func TestFieldSimilarity_NumbersExactOrNothing(t *testing.T) {
	require.Equal(t, 1.0, FieldSimilarity(13.5, 13.5, models.FieldAlcoholContent))
	require.Equal(t, 0.0, FieldSimilarity(13.5, 14.0, models.FieldAlcoholContent))
	require.Equal(t, 1.0, FieldSimilarity(90, 90, models.FieldRating))
	require.Equal(t, 0.0, FieldSimilarity(90, 91, models.FieldRating))
}

func TestFieldSimilarity_MismatchedAndNil(t *testing.T) {
	require.Equal(t, 0.0, FieldSimilarity("Barolo", 2015, models.FieldWineName))
	require.Equal(t, 0.0, FieldSimilarity(nil, "Barolo", models.FieldWineName))
	require.Equal(t, 0.0, FieldSimilarity("Barolo", nil, models.FieldWineName))
}

func TestArraySimilarity(t *testing.T) {
	require.Equal(t, 1.0, ArraySimilarity([]string{"a", "b"}, []string{"a", "b"}))
	require.Equal(t, 1.0, ArraySimilarity([]string{"a", "b"}, []string{"B", "A"}), "order and case insensitive")
	require.Equal(t, 0.0, ArraySimilarity([]string{"a", "b"}, []string{"c", "d"}))
	require.InDelta(t, 1.0/3, ArraySimilarity([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
	require.Equal(t, 0.0, ArraySimilarity(nil, nil), "empty union scores zero")

	ab := ArraySimilarity([]string{"merlot", "syrah"}, []string{"syrah"})
	ba := ArraySimilarity([]string{"syrah"}, []string{"merlot", "syrah"})
	require.Equal(t, ab, ba)
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"château", "chateau", 1},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, levenshtein(tc.a, tc.b), "levenshtein(%q,%q)", tc.a, tc.b)
	}
}

func TestRecordSimilarity_WeightedAverage(t *testing.T) {
	draft := &models.Record{WineName: "Chateau Margaux", Producer: "Margaux"}
	stored := &models.Record{WineName: "Château Margaux", Producer: "Château Margaux", Region: "Bordeaux"}

	res := RecordSimilarity(draft, stored, nil, nil)

	// wineName: 1-1/15 at weight 3; producer: substring 0.8 at weight 2.5.
	// Region is absent on the draft so it is skipped, not penalized.
	want := (3.0*(1-1.0/15) + 2.5*0.8) / 5.5
	require.InDelta(t, want, res.Confidence, 1e-9)
	require.Greater(t, res.Confidence, 0.8)
	require.ElementsMatch(t, []string{models.FieldWineName, models.FieldProducer}, res.MatchedFields)
}

func TestRecordSimilarity_NoOverlap(t *testing.T) {
	draft := &models.Record{WineName: "Barolo"}
	stored := &models.Record{Region: "Piedmont"}

	res := RecordSimilarity(draft, stored, nil, nil)
	require.Equal(t, 0.0, res.Confidence)
	require.Empty(t, res.MatchedFields)
}

func TestRecordSimilarity_MatchedFieldsThreshold(t *testing.T) {
	draft := &models.Record{WineName: "Barolo", Vintage: 2015}
	stored := &models.Record{WineName: "Barolo", Vintage: 2021}

	res := RecordSimilarity(draft, stored, nil, nil)
	// vintage similarity 0.4 stays below the 0.5 matched threshold.
	require.ElementsMatch(t, []string{models.FieldWineName}, res.MatchedFields)
}

func TestRecordSimilarity_NilRecords(t *testing.T) {
	require.Equal(t, Result{}, RecordSimilarity(nil, &models.Record{}, nil, nil))
	require.Equal(t, Result{}, RecordSimilarity(&models.Record{}, nil, nil, nil))
}

func TestRecordSimilarity_CustomWeights(t *testing.T) {
	a := &models.Record{WineName: "Barolo", Region: "Piedmont"}
	b := &models.Record{WineName: "Rioja", Region: "Piedmont"}

	regionOnly := Weights{models.FieldRegion: 1}
	res := RecordSimilarity(a, b, []string{models.FieldWineName, models.FieldRegion}, regionOnly)
	require.Equal(t, 1.0, res.Confidence, "zero-weight fields are excluded entirely")
}
