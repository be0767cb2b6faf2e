package service

import (
	"context"
	"strings"
	"time"

	directoryservice "carebook/internal/directory/service"
	"carebook/pkg/config"
	"carebook/pkg/model"
)

// CatalogSeeder materializes slots from provider working hours over the
// booking horizon. Seeding is idempotent: a slot whose natural key already
// exists is left alone, so re-running never clobbers holds or bookings.
type CatalogSeeder struct {
	directory    directoryservice.DirectoryService
	availability AvailabilityService
	cfg          *config.Config

	now func() time.Time
}

func NewCatalogSeeder(directory directoryservice.DirectoryService, availability AvailabilityService, cfg *config.Config) *CatalogSeeder {
	return &CatalogSeeder{
		directory:    directory,
		availability: availability,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Seed walks every provider's schedule from today through the horizon and
// creates the missing slots. Returns the number of slots created.
func (s *CatalogSeeder) Seed(ctx context.Context) (int, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	locationNames := make(map[string]string)
	for _, location := range s.directory.Locations(ctx) {
		locationNames[location.ID] = location.Name
	}

	created := 0
	for _, provider := range s.directory.Providers(ctx) {
		locationID := ""
		if len(provider.LocationIDs) > 0 {
			locationID = provider.LocationIDs[0]
		}

		for day := 0; day < s.cfg.BookingHorizonDays; day++ {
			date := today.AddDate(0, 0, day)
			weekday := strings.ToLower(date.Weekday().String())

			for _, hours := range provider.WorkingHours {
				if hours.Day != weekday {
					continue
				}
				n, err := s.seedDay(ctx, provider, locationID, locationNames[locationID], date, hours)
				if err != nil {
					return created, err
				}
				created += n
			}
		}
	}

	s.cfg.Log.Info("Slot catalogue seeded",
		"created", created,
		"horizon_days", s.cfg.BookingHorizonDays,
	)
	return created, nil
}

func (s *CatalogSeeder) seedDay(ctx context.Context, provider *model.Provider, locationID, locationName string, date time.Time, hours model.WorkingHours) (int, error) {
	start, err := time.Parse("15:04", hours.StartTime)
	if err != nil {
		s.cfg.Log.Warn("Skipping malformed working hours",
			"provider_id", provider.ID,
			"start", hours.StartTime,
		)
		return 0, nil
	}
	end, err := time.Parse("15:04", hours.EndTime)
	if err != nil {
		s.cfg.Log.Warn("Skipping malformed working hours",
			"provider_id", provider.ID,
			"end", hours.EndTime,
		)
		return 0, nil
	}

	step := time.Duration(s.cfg.DefaultSlotMinutes) * time.Minute
	created := 0
	for t := start; !t.Add(step).After(end); t = t.Add(step) {
		startTime := t.Format("15:04")

		if _, err := s.availability.GetByNaturalKey(ctx, provider.ID, date, startTime); err == nil {
			continue
		}

		slot := &model.Slot{
			ProviderID:       provider.ID,
			ProviderName:     provider.FullName(),
			LocationID:       locationID,
			LocationName:     locationName,
			Date:             date,
			StartTime:        startTime,
			EndTime:          t.Add(step).Format("15:04"),
			DurationMinutes:  s.cfg.DefaultSlotMinutes,
			AppointmentTypes: provider.AppointmentTypes,
			Status:           model.SlotAvailable,
		}
		if err := s.availability.AddSlot(ctx, slot); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
