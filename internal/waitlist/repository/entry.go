package repository

import (
	"context"
	"sort"
	"sync"

	waitlisterrors "carebook/internal/waitlist/errors"
	"carebook/pkg/model"
)

// WaitlistRepository stores waitlist entries. Ordering among Waiting entries
// is by the position rank token; the repository never reassigns positions.
type WaitlistRepository interface {
	Create(ctx context.Context, entry *model.WaitlistEntry) error
	FindByID(ctx context.Context, id string) (*model.WaitlistEntry, error)
	Update(ctx context.Context, entry *model.WaitlistEntry) error
	FindByProvider(ctx context.Context, providerID string, status model.WaitlistStatus, limit int) ([]*model.WaitlistEntry, error)
	FindByPatient(ctx context.Context, patientID string, status model.WaitlistStatus) ([]*model.WaitlistEntry, error)
	CountByProvider(ctx context.Context, providerID string, status model.WaitlistStatus) (int, error)
	All(ctx context.Context, filter model.WaitlistFilter) ([]*model.WaitlistEntry, error)
}

type memoryWaitlistRepository struct {
	mu      sync.RWMutex
	entries map[string]*model.WaitlistEntry
}

func NewMemoryWaitlistRepository() WaitlistRepository {
	return &memoryWaitlistRepository{
		entries: make(map[string]*model.WaitlistEntry),
	}
}

func (r *memoryWaitlistRepository) Create(_ context.Context, entry *model.WaitlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *entry
	r.entries[stored.ID] = &stored
	return nil
}

func (r *memoryWaitlistRepository) FindByID(_ context.Context, id string) (*model.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, waitlisterrors.ErrNotFound
	}
	out := *entry
	return &out, nil
}

func (r *memoryWaitlistRepository) Update(_ context.Context, entry *model.WaitlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[entry.ID]; !ok {
		return waitlisterrors.ErrNotFound
	}
	stored := *entry
	r.entries[stored.ID] = &stored
	return nil
}

func (r *memoryWaitlistRepository) FindByProvider(_ context.Context, providerID string, status model.WaitlistStatus, limit int) ([]*model.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*model.WaitlistEntry, 0)
	for _, entry := range r.entries {
		if entry.ProviderID != providerID {
			continue
		}
		if status != "" && entry.Status != status {
			continue
		}
		copied := *entry
		results = append(results, &copied)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Position < results[j].Position
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (r *memoryWaitlistRepository) FindByPatient(_ context.Context, patientID string, status model.WaitlistStatus) ([]*model.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*model.WaitlistEntry, 0)
	for _, entry := range r.entries {
		if entry.PatientID != patientID {
			continue
		}
		if status != "" && entry.Status != status {
			continue
		}
		copied := *entry
		results = append(results, &copied)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	return results, nil
}

func (r *memoryWaitlistRepository) CountByProvider(_ context.Context, providerID string, status model.WaitlistStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, entry := range r.entries {
		if entry.ProviderID == providerID && entry.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *memoryWaitlistRepository) All(_ context.Context, filter model.WaitlistFilter) ([]*model.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*model.WaitlistEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		if filter.ProviderID != "" && entry.ProviderID != filter.ProviderID {
			continue
		}
		if filter.LocationID != "" && entry.LocationID != filter.LocationID {
			continue
		}
		copied := *entry
		results = append(results, &copied)
	}
	return results, nil
}
