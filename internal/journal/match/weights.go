package match

import "github.com/akozlovs/vinotes/internal/journal/models"

// Weights maps a field name to its semantic importance in record scoring.
// Callers tune the table instead of the algorithm.
type Weights map[string]float64

// DefaultWeights favors identity fields (wine name, producer) over
// descriptive ones.
func DefaultWeights() Weights {
	return Weights{
		models.FieldWineName:       3.0,
		models.FieldProducer:       2.5,
		models.FieldGrapes:         2.0,
		models.FieldRegion:         2.0,
		models.FieldVintage:        1.5,
		models.FieldCountry:        1.0,
		models.FieldAlcoholContent: 0.5,
		models.FieldPrice:          0.5,
	}
}

// DefaultFields is the field set scored when the caller does not narrow it.
func DefaultFields() []string {
	return []string{
		models.FieldWineName,
		models.FieldProducer,
		models.FieldVintage,
		models.FieldRegion,
		models.FieldCountry,
		models.FieldGrapes,
		models.FieldAlcoholContent,
	}
}
