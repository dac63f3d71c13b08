package citation

import (
	"time"

	"github.com/akozlovs/vinotes/internal/journal/models"
)

// ApplyCitation copies the named fields from source into a copy of target,
// appends a provenance entry and stamps UpdatedAt. Neither input is
// mutated; prior citations are preserved verbatim.
func ApplyCitation(target, source *models.Record, fields []string) *models.Record {
	if target == nil || source == nil || len(fields) == 0 {
		return target.Clone()
	}

	out := target.Clone()
	var cited []string
	for _, field := range fields {
		if !citable(field) {
			continue
		}
		v, ok := source.Field(field)
		if !ok {
			continue
		}
		out.SetField(field, v)
		cited = append(cited, field)
	}
	if len(cited) == 0 {
		return out
	}

	out.Citations = append(out.Citations, models.Citation{
		SourceRecordID: source.ID,
		CitedFields:    cited,
		CitedAt:        time.Now(),
	})
	out.UpdatedAt = time.Now()
	return out
}

// Preview describes what ApplyCitation would change without changing it.
// Conflicts lists fields where the target already holds a differing
// non-empty value, so the caller can flag overwrites.
type Preview struct {
	Conflicts []string       `json:"conflicts"`
	Preview   *models.Record `json:"preview"`
}

// GenerateCitationPreview performs the same field-by-field pass as
// ApplyCitation but returns the merged view instead of committing it.
func GenerateCitationPreview(target, source *models.Record, fields []string) *Preview {
	if target == nil || source == nil {
		return &Preview{Preview: target.Clone()}
	}

	merged := target.Clone()
	var conflicts []string
	for _, field := range fields {
		if !citable(field) {
			continue
		}
		sv, ok := source.Field(field)
		if !ok {
			continue
		}
		if tv, has := target.Field(field); has && !valuesEqual(tv, sv) {
			conflicts = append(conflicts, field)
		}
		merged.SetField(field, sv)
	}
	return &Preview{Conflicts: conflicts, Preview: merged}
}

func citable(field string) bool {
	for _, f := range CitableFields {
		if f == field {
			return true
		}
	}
	return false
}
