package repository

import (
	"context"
	"time"

	"meeting-recap/internal/domain/model"
)

// JobRepository is the job table. Readers always get copies; mutation goes
// through Update so each entry has a single writer at a time.
type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	// Get returns domain.ErrJobNotFound for unknown ids.
	Get(ctx context.Context, id string) (*model.Job, error)
	// List returns jobs in submission order.
	List(ctx context.Context) ([]*model.Job, error)
	// Update applies fn to the stored job atomically. If fn fails the entry
	// is left unchanged.
	Update(ctx context.Context, id string, fn func(job *model.Job) error) (*model.Job, error)
	// PruneFinished drops completed and failed jobs last touched before
	// cutoff and reports how many went.
	PruneFinished(ctx context.Context, cutoff time.Time) (int, error)
}
