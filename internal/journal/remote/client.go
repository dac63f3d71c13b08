// Package remote speaks to the record persistence API. The sync engine
// treats it as an external collaborator: apply a mutation, classify the
// outcome, move on.
package remote

import (
	"context"

	"github.com/akozlovs/vinotes/internal/journal/models"
)

// Client is the record persistence API the sync engine drains against.
// FetchRecord returns common.ErrorNotFound when the document is absent.
type Client interface {
	CreateRecord(ctx context.Context, rec *models.Record) (*models.Record, error)
	UpdateRecord(ctx context.Context, id string, rec *models.Record) (*models.Record, error)
	DeleteRecord(ctx context.Context, id string) error
	FetchRecord(ctx context.Context, id string) (*models.Record, error)
	FetchUserRecords(ctx context.Context, userID string) ([]*models.Record, error)
	Ping(ctx context.Context) error
}
