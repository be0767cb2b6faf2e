package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	apperrors "carebook/pkg/errors"
	"carebook/pkg/model"
)

// DirectoryService is the provider/location/appointment-type catalogue the
// booking core consults as a pure lookup. It never participates in slot
// state; a failed lookup surfaces as an invalid reference, not as a booking
// conflict.
type DirectoryService interface {
	SearchProviders(ctx context.Context, search model.ProviderSearch) ([]*model.Provider, error)
	GetProvider(ctx context.Context, providerID string) (*model.Provider, error)
	ListLocations(ctx context.Context, city, state string) ([]*model.Location, error)

	ProviderExists(ctx context.Context, providerID string) bool
	LocationExists(ctx context.Context, locationID string) bool
	TypeValidForProvider(ctx context.Context, providerID, appointmentType string) bool

	Providers(ctx context.Context) []*model.Provider
	Locations(ctx context.Context) []*model.Location
}

type directoryService struct {
	mu        sync.RWMutex
	providers map[string]*model.Provider
	locations map[string]*model.Location
}

func NewDirectoryService() DirectoryService {
	return &directoryService{
		providers: make(map[string]*model.Provider),
		locations: make(map[string]*model.Location),
	}
}

// NewSampleDirectoryService loads the demo catalogue used when no upstream
// directory is wired in.
func NewSampleDirectoryService() DirectoryService {
	s := &directoryService{
		providers: make(map[string]*model.Provider),
		locations: make(map[string]*model.Location),
	}
	s.loadSampleData()
	return s
}

func (s *directoryService) loadSampleData() {
	weekdayHours := func(start, end string, days ...string) []model.WorkingHours {
		hours := make([]model.WorkingHours, 0, len(days))
		for _, d := range days {
			hours = append(hours, model.WorkingHours{Day: d, StartTime: start, EndTime: end})
		}
		return hours
	}

	providers := []*model.Provider{
		{
			ID:          "prov-001",
			FirstName:   "Sarah",
			LastName:    "Johnson",
			Title:       "Dr.",
			Specialty:   model.PrimaryCare,
			Credentials: []string{"MD", "FACP"},
			Bio:         "Board-certified internist with 15 years of experience.",
			LocationIDs: []string{"loc-001"},
			WorkingHours: append(
				weekdayHours("09:00", "17:00", "monday", "tuesday", "wednesday", "thursday"),
				model.WorkingHours{Day: "friday", StartTime: "09:00", EndTime: "14:00"},
			),
			AppointmentTypes:     []string{model.TypeNewPatient, model.TypeFollowUp, model.TypeAnnualCheckup},
			AcceptingNewPatients: true,
			Languages:            []string{"English", "Spanish"},
		},
		{
			ID:                   "prov-002",
			FirstName:            "Michael",
			LastName:             "Chen",
			Title:                "Dr.",
			Specialty:            model.Cardiology,
			Credentials:          []string{"MD", "FACC"},
			Bio:                  "Specialist in cardiovascular disease and preventive cardiology.",
			LocationIDs:          []string{"loc-002"},
			WorkingHours:         weekdayHours("08:00", "16:00", "monday", "wednesday", "friday"),
			AppointmentTypes:     []string{model.TypeNewPatient, model.TypeFollowUp, model.TypeConsultation},
			AcceptingNewPatients: true,
			Languages:            []string{"English", "Mandarin"},
		},
	}
	for _, p := range providers {
		s.providers[p.ID] = p
	}

	locations := []*model.Location{
		{
			ID:      "loc-001",
			Name:    "Downtown Clinic",
			Address: "123 Main Street",
			City:    "New York",
			State:   "NY",
			ZipCode: "10001",
			Phone:   "(212) 555-0100",
		},
		{
			ID:      "loc-002",
			Name:    "Eastside Medical Center",
			Address: "456 East Avenue",
			City:    "New York",
			State:   "NY",
			ZipCode: "10022",
			Phone:   "(212) 555-0200",
		},
	}
	for _, l := range locations {
		s.locations[l.ID] = l
	}
}

func (s *directoryService) SearchProviders(_ context.Context, search model.ProviderSearch) ([]*model.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*model.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		if search.Specialty != "" && p.Specialty != search.Specialty {
			continue
		}
		if search.Name != "" {
			name := strings.ToLower(search.Name)
			if !strings.Contains(strings.ToLower(p.FirstName), name) &&
				!strings.Contains(strings.ToLower(p.LastName), name) {
				continue
			}
		}
		if search.AcceptingNewPatients && !p.AcceptingNewPatients {
			continue
		}
		copied := *p
		results = append(results, &copied)
	}

	sortProviders(results)

	offset := search.Offset
	if offset > len(results) {
		offset = len(results)
	}
	results = results[offset:]

	if search.Limit > 0 && len(results) > search.Limit {
		results = results[:search.Limit]
	}
	return results, nil
}

func sortProviders(providers []*model.Provider) {
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].ID < providers[j].ID
	})
}

func (s *directoryService) GetProvider(_ context.Context, providerID string) (*model.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.providers[providerID]
	if !ok {
		return nil, apperrors.NotFoundWithID("Provider", providerID)
	}
	copied := *p
	return &copied, nil
}

func (s *directoryService) ListLocations(_ context.Context, city, state string) ([]*model.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*model.Location, 0, len(s.locations))
	for _, l := range s.locations {
		if city != "" && !strings.EqualFold(l.City, city) {
			continue
		}
		if state != "" && !strings.EqualFold(l.State, state) {
			continue
		}
		copied := *l
		results = append(results, &copied)
	}
	return results, nil
}

func (s *directoryService) ProviderExists(_ context.Context, providerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.providers[providerID]
	return ok
}

func (s *directoryService) LocationExists(_ context.Context, locationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.locations[locationID]
	return ok
}

func (s *directoryService) TypeValidForProvider(_ context.Context, providerID, appointmentType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.providers[providerID]
	if !ok {
		return false
	}
	for _, t := range p.AppointmentTypes {
		if t == appointmentType {
			return true
		}
	}
	return false
}

func (s *directoryService) Providers(_ context.Context) []*model.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		copied := *p
		out = append(out, &copied)
	}
	sortProviders(out)
	return out
}

func (s *directoryService) Locations(_ context.Context) []*model.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Location, 0, len(s.locations))
	for _, l := range s.locations {
		copied := *l
		out = append(out, &copied)
	}
	return out
}
