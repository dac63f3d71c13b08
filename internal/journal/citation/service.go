// Package citation ranks a user's history against a draft record for
// "cite from past entry" suggestions and near-duplicate warnings, and
// applies field citations with provenance tracking.
package citation

import (
	"context"
	"fmt"
	"sort"

	"github.com/akozlovs/vinotes/internal/journal/match"
	"github.com/akozlovs/vinotes/internal/journal/models"
	"github.com/akozlovs/vinotes/internal/logging"
)

// CitableFields is the whitelist of fields a citation may copy.
var CitableFields = []string{
	models.FieldRegion,
	models.FieldGrapes,
	models.FieldAlcoholContent,
	models.FieldDetailedAnalysis,
	models.FieldEnvironment,
	models.FieldTags,
}

// Candidate is an ephemeral match of a historical record against a draft.
type Candidate struct {
	Record          *models.Record `json:"record"`
	Confidence      float64        `json:"confidence"`
	MatchedFields   []string       `json:"matchedFields"`
	SuggestedFields []string       `json:"suggestedFields"`
}

// Options narrows a candidate search.
type Options struct {
	// Threshold is the minimum confidence to keep a candidate.
	Threshold float64
	// MaxResults truncates the ranked list. Zero means DefaultMaxResults.
	MaxResults int
	// Fields to score; nil uses match.DefaultFields.
	Fields []string
	// ExcludeIDs are record IDs skipped entirely (typically the draft itself).
	ExcludeIDs []string
}

const (
	DefaultThreshold  = 0.3
	DefaultMaxResults = 5

	// duplicateThreshold is the fuzzy bar for "you may already have this
	// wine" warnings, deliberately higher than citation suggestions.
	duplicateThreshold = 0.6
)

// RecordSource supplies a user's historical records. The sync engine's
// store satisfies it; tests use in-memory slices.
type RecordSource interface {
	RecordsForUser(ctx context.Context, userID string) ([]*models.Record, error)
}

// Service wires the matcher to a record source. Construct one per
// dependency graph; there is no shared global instance.
type Service struct {
	source RecordSource
	log    logging.Logger
}

func NewService(source RecordSource, log logging.Logger) *Service {
	if log == nil {
		log = logging.NewNop()
	}
	return &Service{source: source, log: log}
}

// FindCandidates ranks history against the draft and returns candidates at
// or above the threshold, best first, truncated to MaxResults.
func FindCandidates(draft *models.Record, history []*models.Record, opts Options) []Candidate {
	if draft == nil {
		return nil
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	excluded := make(map[string]struct{}, len(opts.ExcludeIDs))
	for _, id := range opts.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	var out []Candidate
	for _, rec := range history {
		if rec == nil {
			continue
		}
		if _, skip := excluded[rec.ID]; skip {
			continue
		}
		res := match.RecordSimilarity(draft, rec, opts.Fields, nil)
		if res.Confidence < threshold {
			continue
		}
		out = append(out, Candidate{
			Record:          rec,
			Confidence:      res.Confidence,
			MatchedFields:   res.MatchedFields,
			SuggestedFields: suggestedFields(draft, rec),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

// suggestedFields lists citable fields the historical record carries that
// the draft still lacks.
func suggestedFields(draft, historical *models.Record) []string {
	var out []string
	for _, field := range CitableFields {
		if _, has := historical.Field(field); !has {
			continue
		}
		if _, has := draft.Field(field); has {
			continue
		}
		out = append(out, field)
	}
	return out
}

// FindSimilarWines loads the user's history and ranks it against the draft.
func (s *Service) FindSimilarWines(ctx context.Context, draft *models.Record, userID string, opts Options) ([]Candidate, error) {
	history, err := s.source.RecordsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading records for user %s: %w", userID, err)
	}
	candidates := FindCandidates(draft, history, opts)
	s.log.Debug(ctx, "similarity search finished",
		"user_id", userID, "history", len(history), "candidates", len(candidates))
	return candidates, nil
}
