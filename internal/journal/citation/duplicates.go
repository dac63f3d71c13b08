package citation

import (
	"context"
	"fmt"
	"strings"

	"github.com/akozlovs/vinotes/internal/journal/models"
)

// DuplicateQuery is the minimal identity a draft carries before creation.
type DuplicateQuery struct {
	WineName string
	Producer string
	Vintage  int
}

// DuplicateReport separates hard duplicates from soft lookalikes, because
// callers present them differently (blocking warning vs. suggestion).
type DuplicateReport struct {
	ExactDuplicates []*models.Record `json:"exactDuplicates"`
	SimilarWines    []Candidate      `json:"similarWines"`
}

// duplicateFields is the narrow identity set used for duplicate scoring.
var duplicateFields = []string{
	models.FieldWineName,
	models.FieldProducer,
	models.FieldVintage,
}

// DetectDuplicates checks a user's history for the queried wine. A record
// is an exact duplicate when wine name and producer are equal after case
// folding and the vintage matches whenever the query provides one. Records
// that only score above the fuzzy bar land in SimilarWines.
func (s *Service) DetectDuplicates(ctx context.Context, userID string, q DuplicateQuery) (*DuplicateReport, error) {
	history, err := s.source.RecordsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading records for user %s: %w", userID, err)
	}

	draft := &models.Record{WineName: q.WineName, Producer: q.Producer, Vintage: q.Vintage}
	report := &DuplicateReport{}
	exact := make(map[string]struct{})

	for _, rec := range history {
		if rec == nil {
			continue
		}
		if isExactDuplicate(q, rec) {
			report.ExactDuplicates = append(report.ExactDuplicates, rec)
			exact[rec.ID] = struct{}{}
		}
	}

	for _, cand := range FindCandidates(draft, history, Options{
		Threshold: duplicateThreshold,
		Fields:    duplicateFields,
	}) {
		if _, isExact := exact[cand.Record.ID]; isExact {
			continue
		}
		report.SimilarWines = append(report.SimilarWines, cand)
	}

	s.log.Debug(ctx, "duplicate check finished", "user_id", userID,
		"exact", len(report.ExactDuplicates), "similar", len(report.SimilarWines))
	return report, nil
}

func isExactDuplicate(q DuplicateQuery, rec *models.Record) bool {
	if !strings.EqualFold(strings.TrimSpace(q.WineName), strings.TrimSpace(rec.WineName)) {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(q.Producer), strings.TrimSpace(rec.Producer)) {
		return false
	}
	if q.Vintage != 0 && rec.Vintage != 0 && q.Vintage != rec.Vintage {
		return false
	}
	return true
}
