package repository

import (
	"context"
	"sync"
	"time"

	availerrors "carebook/internal/availability/errors"
	"carebook/pkg/model"
)

// SlotRepository is the storage contract for the slot catalogue. The service
// layer owns all status-transition rules; the repository only stores and
// indexes. Any backing store must preserve the natural-key uniqueness of
// (provider, date, start time).
type SlotRepository interface {
	Insert(ctx context.Context, slot *model.Slot) error
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByNaturalKey(ctx context.Context, providerID string, date time.Time, startTime string) (*model.Slot, error)
	All(ctx context.Context) ([]*model.Slot, error)
	Update(ctx context.Context, slot *model.Slot) error
}

// memorySlotRepository indexes slots by id and by natural key so commit-path
// lookups are O(1) instead of a scan over the whole catalogue.
type memorySlotRepository struct {
	mu       sync.RWMutex
	byID     map[string]*model.Slot
	byNatKey map[string]string
}

func NewMemorySlotRepository() SlotRepository {
	return &memorySlotRepository{
		byID:     make(map[string]*model.Slot),
		byNatKey: make(map[string]string),
	}
}

func (r *memorySlotRepository) Insert(_ context.Context, slot *model.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *slot
	r.byID[stored.ID] = &stored
	r.byNatKey[stored.NaturalKey()] = stored.ID
	return nil
}

func (r *memorySlotRepository) FindByID(_ context.Context, id string) (*model.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot, ok := r.byID[id]
	if !ok {
		return nil, availerrors.ErrNotFound
	}
	out := *slot
	return &out, nil
}

func (r *memorySlotRepository) FindByNaturalKey(_ context.Context, providerID string, date time.Time, startTime string) (*model.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byNatKey[model.SlotNaturalKey(providerID, date, startTime)]
	if !ok {
		return nil, availerrors.ErrNotFound
	}
	out := *r.byID[id]
	return &out, nil
}

func (r *memorySlotRepository) All(_ context.Context) ([]*model.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Slot, 0, len(r.byID))
	for _, slot := range r.byID {
		copied := *slot
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memorySlotRepository) Update(_ context.Context, slot *model.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[slot.ID]; !ok {
		return availerrors.ErrNotFound
	}
	stored := *slot
	r.byID[stored.ID] = &stored
	return nil
}
