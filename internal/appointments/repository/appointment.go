package repository

import (
	"context"
	"sort"
	"sync"

	appointmenterrors "carebook/internal/appointments/errors"
	"carebook/pkg/model"
)

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	Update(ctx context.Context, appointment *model.Appointment) error
	List(ctx context.Context, filter model.AppointmentFilter, limit, offset int) ([]*model.Appointment, int, error)
}

type memoryAppointmentRepository struct {
	mu           sync.RWMutex
	appointments map[string]*model.Appointment
}

func NewMemoryAppointmentRepository() AppointmentRepository {
	return &memoryAppointmentRepository{
		appointments: make(map[string]*model.Appointment),
	}
}

func (r *memoryAppointmentRepository) Create(_ context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *appointment
	r.appointments[stored.ID] = &stored
	return nil
}

func (r *memoryAppointmentRepository) FindByID(_ context.Context, id string) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appointment, ok := r.appointments[id]
	if !ok {
		return nil, appointmenterrors.ErrNotFound
	}
	out := *appointment
	return &out, nil
}

func (r *memoryAppointmentRepository) Update(_ context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.appointments[appointment.ID]; !ok {
		return appointmenterrors.ErrNotFound
	}
	stored := *appointment
	r.appointments[stored.ID] = &stored
	return nil
}

func (r *memoryAppointmentRepository) List(_ context.Context, filter model.AppointmentFilter, limit, offset int) ([]*model.Appointment, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*model.Appointment, 0)
	for _, appointment := range r.appointments {
		if !matches(appointment, filter) {
			continue
		}
		copied := *appointment
		results = append(results, &copied)
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].Date.Equal(results[j].Date) {
			return results[i].Date.Before(results[j].Date)
		}
		if results[i].StartTime != results[j].StartTime {
			return results[i].StartTime < results[j].StartTime
		}
		return results[i].ID < results[j].ID
	})

	total := len(results)
	if offset > total {
		offset = total
	}
	results = results[offset:]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, total, nil
}

func matches(appointment *model.Appointment, filter model.AppointmentFilter) bool {
	if filter.ProviderID != "" && appointment.ProviderID != filter.ProviderID {
		return false
	}
	if filter.LocationID != "" && appointment.LocationID != filter.LocationID {
		return false
	}
	if filter.PatientID != "" && appointment.PatientID != filter.PatientID {
		return false
	}
	if filter.Date != nil && !appointment.Date.Equal(*filter.Date) {
		return false
	}
	if filter.Status != "" && appointment.Status != filter.Status {
		return false
	}
	return true
}
