// Package match scores similarity between field values and whole records.
// All functions are pure and never fail: missing or mismatched data scores
// zero instead of producing an error.
package match

import (
	"strings"

	"github.com/akozlovs/vinotes/internal/journal/models"
)

// substringScore is the fixed score when one string contains the other:
// strong evidence, but weaker than an exact match.
const substringScore = 0.8

// vintageSpanYears is the window over which vintage similarity decays
// linearly to zero.
const vintageSpanYears = 10.0

// matchedThreshold is the per-field similarity above which a field counts
// toward a record's matchedFields.
const matchedThreshold = 0.5

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FieldSimilarity returns a similarity in [0,1] between two field values.
// Strings compare case- and whitespace-insensitively with a substring
// short-circuit and an edit-distance fallback; vintages decay linearly over
// ten years; other numbers are exact-or-nothing; string slices use Jaccard.
func FieldSimilarity(a, b any, field string) float64 {
	if a == nil || b == nil {
		return 0
	}

	if field == models.FieldVintage {
		ya, aok := asInt(a)
		yb, bok := asInt(b)
		if !aok || !bok {
			return 0
		}
		return vintageSimilarity(ya, yb)
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0
		}
		return stringSimilarity(av, bv)
	case []string:
		bv, ok := b.([]string)
		if !ok {
			return 0
		}
		return ArraySimilarity(av, bv)
	case int:
		bv, ok := asInt(b)
		if !ok {
			return 0
		}
		if av == bv {
			return 1
		}
		return 0
	case float64:
		bv, ok := asFloat(b)
		if !ok {
			return 0
		}
		if av == bv {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func stringSimilarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return substringScore
	}
	la, lb := len([]rune(na)), len([]rune(nb))
	longest := la
	if lb > longest {
		longest = lb
	}
	return 1 - float64(levenshtein(na, nb))/float64(longest)
}

func vintageSimilarity(a, b int) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	s := 1 - float64(diff)/vintageSpanYears
	if s < 0 {
		return 0
	}
	return s
}

// ArraySimilarity is the Jaccard index over case-normalized sets.
// An empty union scores zero.
func ArraySimilarity(a, b []string) float64 {
	union := make(map[string]struct{}, len(a)+len(b))
	setA := make(map[string]struct{}, len(a))
	for _, v := range a {
		n := normalize(v)
		if n == "" {
			continue
		}
		setA[n] = struct{}{}
		union[n] = struct{}{}
	}
	inter := 0
	setB := make(map[string]struct{}, len(b))
	for _, v := range b {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, seen := setB[n]; seen {
			continue
		}
		setB[n] = struct{}{}
		union[n] = struct{}{}
		if _, ok := setA[n]; ok {
			inter++
		}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(inter) / float64(len(union))
}

// Result is the outcome of scoring one record against another.
type Result struct {
	Confidence    float64
	MatchedFields []string
}

// RecordSimilarity computes the weighted-average similarity between a
// candidate and a reference over the given fields. Fields absent from
// either record are skipped, contributing to neither score nor weight.
func RecordSimilarity(candidate, reference *models.Record, fields []string, w Weights) Result {
	if candidate == nil || reference == nil {
		return Result{}
	}
	if len(fields) == 0 {
		fields = DefaultFields()
	}
	if w == nil {
		w = DefaultWeights()
	}

	var score, maxScore float64
	var matched []string
	for _, field := range fields {
		weight, ok := w[field]
		if !ok || weight <= 0 {
			continue
		}
		av, aok := candidate.Field(field)
		bv, bok := reference.Field(field)
		if !aok || !bok {
			continue
		}
		sim := FieldSimilarity(av, bv, field)
		score += weight * sim
		maxScore += weight
		if sim > matchedThreshold {
			matched = append(matched, field)
		}
	}

	if maxScore == 0 {
		return Result{}
	}
	return Result{Confidence: score / maxScore, MatchedFields: matched}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
