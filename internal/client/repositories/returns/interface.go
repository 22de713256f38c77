package returns

import (
	"context"

	"github.com/dmitrijs2005/taxbox/internal/client/models"
)

// Repository stores the cached tax-return collection.
type Repository interface {
	// ReplaceAll drops the cached collection and stores records in order.
	ReplaceAll(ctx context.Context, records []models.TaxReturn) error

	// GetAll returns the cached collection in server order.
	GetAll(ctx context.Context) ([]models.TaxReturn, error)

	Clear(ctx context.Context) error
}
