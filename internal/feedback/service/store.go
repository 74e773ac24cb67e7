package service

import (
	"context"

	"votebooth/internal/feedback/models"
)

// Store persists feedback. Recent returns at most limit records, newest first.
type Store interface {
	Create(ctx context.Context, f *models.Feedback) error
	Recent(ctx context.Context, limit int) ([]*models.Feedback, error)
}
