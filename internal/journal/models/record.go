// Package models holds the journal's domain types: tasting records, the
// offline wrapper the local store keeps, sync queue entries and settings.
package models

import "time"

// Citation records that field values were copied from another record.
// The list on a record is append-only: entries are added, never removed.
type Citation struct {
	SourceRecordID string    `json:"sourceRecordId"`
	CitedFields    []string  `json:"citedFields"`
	CitedAt        time.Time `json:"citedAt"`
}

// Record is a single wine-tasting entry, the unit of synchronization and
// matching. ID stays empty until the record is first persisted locally.
// Version is assigned and bumped by the persistence server; local edits
// never touch it.
type Record struct {
	ID               string     `json:"id,omitempty"`
	UserID           string     `json:"userId" validate:"required"`
	WineName         string     `json:"wineName" validate:"required"`
	Producer         string     `json:"producer,omitempty"`
	Vintage          int        `json:"vintage,omitempty" validate:"omitempty,gte=1800,lte=2100"`
	Region           string     `json:"region,omitempty"`
	Country          string     `json:"country,omitempty"`
	Grapes           []string   `json:"grapes,omitempty"`
	AlcoholContent   float64    `json:"alcoholContent,omitempty" validate:"omitempty,gte=0,lte=100"`
	Price            float64    `json:"price,omitempty" validate:"omitempty,gte=0"`
	Rating           int        `json:"rating,omitempty" validate:"omitempty,gte=0,lte=100"`
	Notes            string     `json:"notes,omitempty"`
	DetailedAnalysis string     `json:"detailedAnalysis,omitempty"`
	Environment      string     `json:"environment,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	Version          int64      `json:"version,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	Citations        []Citation `json:"citations,omitempty"`
}

// Field names used by the similarity engine and citation matcher.
const (
	FieldWineName         = "wineName"
	FieldProducer         = "producer"
	FieldVintage          = "vintage"
	FieldRegion           = "region"
	FieldCountry          = "country"
	FieldGrapes           = "grapes"
	FieldAlcoholContent   = "alcoholContent"
	FieldPrice            = "price"
	FieldRating           = "rating"
	FieldNotes            = "notes"
	FieldDetailedAnalysis = "detailedAnalysis"
	FieldEnvironment      = "environment"
	FieldTags             = "tags"
)

// Field returns the named descriptive field and whether it carries a value.
// Zero values (empty string, 0, empty slice) count as absent so that missing
// data is skipped by the matcher rather than penalized.
func (r *Record) Field(name string) (any, bool) {
	switch name {
	case FieldWineName:
		return r.WineName, r.WineName != ""
	case FieldProducer:
		return r.Producer, r.Producer != ""
	case FieldVintage:
		return r.Vintage, r.Vintage != 0
	case FieldRegion:
		return r.Region, r.Region != ""
	case FieldCountry:
		return r.Country, r.Country != ""
	case FieldGrapes:
		return r.Grapes, len(r.Grapes) > 0
	case FieldAlcoholContent:
		return r.AlcoholContent, r.AlcoholContent != 0
	case FieldPrice:
		return r.Price, r.Price != 0
	case FieldRating:
		return r.Rating, r.Rating != 0
	case FieldNotes:
		return r.Notes, r.Notes != ""
	case FieldDetailedAnalysis:
		return r.DetailedAnalysis, r.DetailedAnalysis != ""
	case FieldEnvironment:
		return r.Environment, r.Environment != ""
	case FieldTags:
		return r.Tags, len(r.Tags) > 0
	default:
		return nil, false
	}
}

// SetField assigns the named descriptive field. Unknown names are ignored.
// Slice values are copied so the caller's backing array is never shared.
func (r *Record) SetField(name string, value any) {
	switch name {
	case FieldWineName:
		r.WineName, _ = value.(string)
	case FieldProducer:
		r.Producer, _ = value.(string)
	case FieldVintage:
		r.Vintage, _ = value.(int)
	case FieldRegion:
		r.Region, _ = value.(string)
	case FieldCountry:
		r.Country, _ = value.(string)
	case FieldGrapes:
		if v, ok := value.([]string); ok {
			r.Grapes = append([]string(nil), v...)
		}
	case FieldAlcoholContent:
		r.AlcoholContent, _ = value.(float64)
	case FieldPrice:
		r.Price, _ = value.(float64)
	case FieldRating:
		r.Rating, _ = value.(int)
	case FieldNotes:
		r.Notes, _ = value.(string)
	case FieldDetailedAnalysis:
		r.DetailedAnalysis, _ = value.(string)
	case FieldEnvironment:
		r.Environment, _ = value.(string)
	case FieldTags:
		if v, ok := value.([]string); ok {
			r.Tags = append([]string(nil), v...)
		}
	}
}

// Clone returns a deep copy. Slices and the citation list are duplicated so
// mutations on the copy never leak into the original.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Grapes = append([]string(nil), r.Grapes...)
	out.Tags = append([]string(nil), r.Tags...)
	out.Citations = make([]Citation, len(r.Citations))
	for i, c := range r.Citations {
		out.Citations[i] = Citation{
			SourceRecordID: c.SourceRecordID,
			CitedFields:    append([]string(nil), c.CitedFields...),
			CitedAt:        c.CitedAt,
		}
	}
	if len(r.Citations) == 0 {
		out.Citations = nil
	}
	return &out
}
