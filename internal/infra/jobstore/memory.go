// File: internal/infra/jobstore/memory.go
package jobstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.JobRepository = (*Memory)(nil)

// Memory is the process-lifetime job table. Nothing is persisted: jobs are
// gone after a restart.
type Memory struct {
	mu    sync.RWMutex
	jobs  map[string]*model.Job
	order []string
}

func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]*model.Job)}
}

func (m *Memory) Create(ctx context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return domain.Errorf(domain.KindInvalidArgument, "job id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	m.jobs[job.ID] = job.Clone()
	m.order = append(m.order, job.ID)
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.Errorf(domain.KindJobNotFound, "job not found: %s", id)
	}
	return j.Clone(), nil
}

func (m *Memory) List(ctx context.Context) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.jobs[id].Clone())
	}
	return out, nil
}

func (m *Memory) Update(ctx context.Context, id string, fn func(job *model.Job) error) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.Errorf(domain.KindJobNotFound, "job not found: %s", id)
	}
	draft := j.Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}
	m.jobs[id] = draft
	return draft.Clone(), nil
}

func (m *Memory) PruneFinished(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.order[:0]
	n := 0
	for _, id := range m.order {
		j := m.jobs[id]
		if j.IsTerminal() && j.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return n, nil
}
