package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"carebook/internal/availability/repository"
	directoryservice "carebook/internal/directory/service"
	"carebook/pkg/config"
	apperrors "carebook/pkg/errors"
	"carebook/pkg/logger"
	"carebook/pkg/model"
)

func testConfig() *config.Config {
	return &config.Config{
		SlotLockTTL:         30 * time.Second,
		DefaultHoldDuration: 10 * time.Minute,
		MaxHoldDuration:     time.Hour,
		HoldSweepInterval:   time.Minute,
		BookingHorizonDays:  14,
		DefaultSlotMinutes:  30,
		Log:                 logger.NewNop(),
	}
}

func newTestAvailability(t *testing.T, clock *time.Time) *availabilityService {
	t.Helper()

	svc := NewAvailabilityService(repository.NewMemorySlotRepository(), testConfig()).(*availabilityService)
	if clock != nil {
		svc.now = func() time.Time { return *clock }
	}
	return svc
}

func day(offset int) time.Time {
	d := time.Now().UTC().AddDate(0, 0, offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func addTestSlot(t *testing.T, svc AvailabilityService, providerID string, date time.Time, start string, types ...string) *model.Slot {
	t.Helper()

	if len(types) == 0 {
		types = []string{model.TypeFollowUp}
	}
	slot := &model.Slot{
		ProviderID:       providerID,
		LocationID:       "loc-001",
		Date:             date,
		StartTime:        start,
		DurationMinutes:  30,
		AppointmentTypes: types,
		Status:           model.SlotAvailable,
	}
	if err := svc.AddSlot(context.Background(), slot); err != nil {
		t.Fatalf("AddSlot() error = %v", err)
	}
	return slot
}

func TestSearchFiltersAndSorts(t *testing.T) {
	svc := newTestAvailability(t, nil)
	ctx := context.Background()

	later := day(3)
	sooner := day(1)
	addTestSlot(t, svc, "prov-001", later, "09:00")
	addTestSlot(t, svc, "prov-001", sooner, "14:00")
	addTestSlot(t, svc, "prov-001", sooner, "09:00")
	addTestSlot(t, svc, "prov-002", sooner, "08:00")
	booked := addTestSlot(t, svc, "prov-001", sooner, "10:00")
	if err := svc.MarkBooked(ctx, "prov-001", sooner, "10:00", "patient-x"); err != nil {
		t.Fatalf("MarkBooked() error = %v", err)
	}
	_ = booked

	results, err := svc.Search(ctx, model.AvailabilitySearch{
		ProviderID: "prov-001",
		StartDate:  day(0),
		EndDate:    day(7),
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Search() = %d slots, want 3", len(results))
	}
	// Sorted by date, then start time; booked slot excluded.
	wantStarts := []string{"09:00", "14:00", "09:00"}
	for i, want := range wantStarts {
		if results[i].StartTime != want {
			t.Errorf("results[%d].StartTime = %s, want %s", i, results[i].StartTime, want)
		}
	}
	if !results[0].Date.Equal(sooner) || !results[2].Date.Equal(later) {
		t.Error("Search() results not ordered by date")
	}
}

func TestSearchTimeOfDayBuckets(t *testing.T) {
	svc := newTestAvailability(t, nil)
	ctx := context.Background()
	date := day(1)

	addTestSlot(t, svc, "prov-001", date, "08:00")
	addTestSlot(t, svc, "prov-001", date, "11:30")
	addTestSlot(t, svc, "prov-001", date, "12:00")
	addTestSlot(t, svc, "prov-001", date, "16:30")
	addTestSlot(t, svc, "prov-001", date, "17:00")
	addTestSlot(t, svc, "prov-001", date, "19:00")

	tests := []struct {
		tod  model.TimeOfDay
		want int
	}{
		{model.Morning, 2},
		{model.Afternoon, 2},
		{model.Evening, 2},
	}
	for _, tt := range tests {
		results, err := svc.Search(ctx, model.AvailabilitySearch{
			ProviderID: "prov-001",
			StartDate:  date,
			EndDate:    date,
			TimeOfDay:  tt.tod,
		})
		if err != nil {
			t.Fatalf("Search(%s) error = %v", tt.tod, err)
		}
		if len(results) != tt.want {
			t.Errorf("Search(%s) = %d slots, want %d", tt.tod, len(results), tt.want)
		}
	}
}

func TestSearchAppointmentTypeAndLimit(t *testing.T) {
	svc := newTestAvailability(t, nil)
	ctx := context.Background()
	date := day(1)

	addTestSlot(t, svc, "prov-001", date, "09:00", model.TypeNewPatient)
	addTestSlot(t, svc, "prov-001", date, "10:00", model.TypeFollowUp)
	addTestSlot(t, svc, "prov-001", date, "11:00", model.TypeNewPatient, model.TypeFollowUp)

	results, err := svc.Search(ctx, model.AvailabilitySearch{
		StartDate:       date,
		EndDate:         date,
		AppointmentType: model.TypeNewPatient,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Search(new_patient) = %d slots, want 2", len(results))
	}

	limited, err := svc.Search(ctx, model.AvailabilitySearch{
		StartDate: date,
		EndDate:   date,
		Limit:     1,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Search(limit=1) = %d slots, want 1", len(limited))
	}
}

func TestHoldLifecycle(t *testing.T) {
	clock := time.Now().UTC()
	svc := newTestAvailability(t, &clock)
	ctx := context.Background()
	slot := addTestSlot(t, svc, "prov-001", day(1), "09:00")

	hold, err := svc.HoldSlot(ctx, slot.ID, "patient-1", 0)
	if err != nil {
		t.Fatalf("HoldSlot() error = %v", err)
	}
	if want := clock.Add(10 * time.Minute); !hold.ExpiresAt.Equal(want) {
		t.Errorf("hold expires at %v, want default duration %v", hold.ExpiresAt, want)
	}

	// Held slots leave search results.
	results, _ := svc.Search(ctx, model.AvailabilitySearch{StartDate: day(0), EndDate: day(7)})
	if len(results) != 0 {
		t.Errorf("Search() = %d slots, want 0 while held", len(results))
	}

	// A second holder is rejected.
	if _, err := svc.HoldSlot(ctx, slot.ID, "patient-2", 0); err == nil {
		t.Error("HoldSlot() by second patient expected error, got nil")
	}

	// Release restores availability.
	if err := svc.ReleaseHold(ctx, slot.ID, "patient-1"); err != nil {
		t.Fatalf("ReleaseHold() error = %v", err)
	}
	got, _ := svc.GetSlot(ctx, slot.ID)
	if got.Status != model.SlotAvailable {
		t.Errorf("slot status = %s, want available after release", got.Status)
	}
}

func TestHoldDurationClamped(t *testing.T) {
	clock := time.Now().UTC()
	svc := newTestAvailability(t, &clock)
	slot := addTestSlot(t, svc, "prov-001", day(1), "09:00")

	hold, err := svc.HoldSlot(context.Background(), slot.ID, "patient-1", 5*time.Hour)
	if err != nil {
		t.Fatalf("HoldSlot() error = %v", err)
	}
	if want := clock.Add(time.Hour); !hold.ExpiresAt.Equal(want) {
		t.Errorf("hold expires at %v, want clamp to max %v", hold.ExpiresAt, want)
	}
}

func TestExpiredHoldClearedLazily(t *testing.T) {
	clock := time.Now().UTC()
	svc := newTestAvailability(t, &clock)
	ctx := context.Background()
	slot := addTestSlot(t, svc, "prov-001", day(1), "09:00")

	if _, err := svc.HoldSlot(ctx, slot.ID, "patient-1", time.Minute); err != nil {
		t.Fatalf("HoldSlot() error = %v", err)
	}

	clock = clock.Add(2 * time.Minute)

	// The read path observes the expiry and frees the slot.
	got, err := svc.GetSlot(ctx, slot.ID)
	if err != nil {
		t.Fatalf("GetSlot() error = %v", err)
	}
	if got.Status != model.SlotAvailable {
		t.Errorf("slot status = %s, want available after expiry", got.Status)
	}
	if got.HeldBy != "" || got.HeldUntil != nil {
		t.Errorf("hold fields not cleared: held_by=%q held_until=%v", got.HeldBy, got.HeldUntil)
	}

	// Another patient can now hold it.
	if _, err := svc.HoldSlot(ctx, slot.ID, "patient-2", time.Minute); err != nil {
		t.Errorf("HoldSlot() after expiry error = %v", err)
	}
}

func TestReleaseHoldWrongPatientIsNoOp(t *testing.T) {
	clock := time.Now().UTC()
	svc := newTestAvailability(t, &clock)
	ctx := context.Background()
	slot := addTestSlot(t, svc, "prov-001", day(1), "09:00")

	if _, err := svc.HoldSlot(ctx, slot.ID, "patient-1", time.Minute); err != nil {
		t.Fatalf("HoldSlot() error = %v", err)
	}
	if err := svc.ReleaseHold(ctx, slot.ID, "patient-2"); err != nil {
		t.Errorf("ReleaseHold() by non-holder error = %v, want nil", err)
	}

	got, _ := svc.GetSlot(ctx, slot.ID)
	if got.Status != model.SlotHeld || got.HeldBy != "patient-1" {
		t.Errorf("slot = %s/%s, want still held by patient-1", got.Status, got.HeldBy)
	}
}

func TestConcurrentHoldsSingleWinner(t *testing.T) {
	svc := newTestAvailability(t, nil)
	slot := addTestSlot(t, svc, "prov-001", day(1), "09:00")

	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.HoldSlot(context.Background(), slot.ID, "patient-"+string(rune('a'+n)), time.Minute)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("hold winners = %d, want exactly 1", wins)
	}
}

func TestEnsureBookable(t *testing.T) {
	clock := time.Now().UTC()
	svc := newTestAvailability(t, &clock)
	ctx := context.Background()
	date := day(1)
	slot := addTestSlot(t, svc, "prov-001", date, "09:00")

	// Available slot is bookable by anyone.
	if _, err := svc.EnsureBookable(ctx, "prov-001", date, "09:00", "patient-1"); err != nil {
		t.Fatalf("EnsureBookable() error = %v", err)
	}

	// Held by someone else: not bookable.
	if _, err := svc.HoldSlot(ctx, slot.ID, "patient-1", time.Minute); err != nil {
		t.Fatalf("HoldSlot() error = %v", err)
	}
	if _, err := svc.EnsureBookable(ctx, "prov-001", date, "09:00", "patient-2"); err == nil {
		t.Error("EnsureBookable() through foreign hold expected error, got nil")
	}

	// Held by the requester: bookable.
	if _, err := svc.EnsureBookable(ctx, "prov-001", date, "09:00", "patient-1"); err != nil {
		t.Errorf("EnsureBookable() by holder error = %v", err)
	}

	// Expired foreign hold: bookable again.
	clock = clock.Add(2 * time.Minute)
	if _, err := svc.EnsureBookable(ctx, "prov-001", date, "09:00", "patient-2"); err != nil {
		t.Errorf("EnsureBookable() after hold expiry error = %v", err)
	}

	// Booked: never bookable.
	if err := svc.MarkBooked(ctx, "prov-001", date, "09:00", "patient-2"); err != nil {
		t.Fatalf("MarkBooked() error = %v", err)
	}
	_, err := svc.EnsureBookable(ctx, "prov-001", date, "09:00", "patient-3")
	if err == nil {
		t.Fatal("EnsureBookable() on booked slot expected error, got nil")
	}
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeSlotUnavailable {
		t.Errorf("EnsureBookable() code = %s, want %s", code, apperrors.CodeSlotUnavailable)
	}
}

func TestMarkBookedRejectsForeignHold(t *testing.T) {
	svc := newTestAvailability(t, nil)
	ctx := context.Background()
	date := day(2)
	slot := addTestSlot(t, svc, "prov-001", date, "09:00")

	// The booker passed its re-check; another patient grabs a hold before
	// the booker commits.
	if _, err := svc.EnsureBookable(ctx, "prov-001", date, "09:00", "patient-1"); err != nil {
		t.Fatalf("EnsureBookable() error = %v", err)
	}
	if _, err := svc.HoldSlot(ctx, slot.ID, "patient-2", 10*time.Minute); err != nil {
		t.Fatalf("HoldSlot() error = %v", err)
	}

	err := svc.MarkBooked(ctx, "prov-001", date, "09:00", "patient-1")
	if err == nil {
		t.Fatal("MarkBooked() over a foreign hold expected error, got nil")
	}
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeSlotUnavailable {
		t.Errorf("MarkBooked() code = %s, want %s", code, apperrors.CodeSlotUnavailable)
	}

	got, err := svc.GetSlot(ctx, slot.ID)
	if err != nil {
		t.Fatalf("GetSlot() error = %v", err)
	}
	if got.Status != model.SlotHeld || got.HeldBy != "patient-2" {
		t.Errorf("slot = %s held by %q, want held by patient-2", got.Status, got.HeldBy)
	}

	// The holder's own commit still converts the hold.
	if err := svc.MarkBooked(ctx, "prov-001", date, "09:00", "patient-2"); err != nil {
		t.Fatalf("MarkBooked() by holder error = %v", err)
	}
}

func TestMarkBookedRejectsBookedSlot(t *testing.T) {
	svc := newTestAvailability(t, nil)
	ctx := context.Background()
	date := day(2)
	addTestSlot(t, svc, "prov-001", date, "09:00")

	if err := svc.MarkBooked(ctx, "prov-001", date, "09:00", "patient-1"); err != nil {
		t.Fatalf("MarkBooked() error = %v", err)
	}
	err := svc.MarkBooked(ctx, "prov-001", date, "09:00", "patient-2")
	if code := apperrors.AsAppError(err).Code; err == nil || code != apperrors.CodeSlotUnavailable {
		t.Errorf("MarkBooked() on booked slot = %v, want %s", err, apperrors.CodeSlotUnavailable)
	}
}

func TestCalendar(t *testing.T) {
	svc := newTestAvailability(t, nil)
	ctx := context.Background()

	target := day(40)
	addTestSlot(t, svc, "prov-001", target, "09:00")
	addTestSlot(t, svc, "prov-001", target, "10:00")
	booked := addTestSlot(t, svc, "prov-001", target, "11:00")
	if err := svc.MarkBooked(ctx, "prov-001", target, booked.StartTime, "patient-1"); err != nil {
		t.Fatalf("MarkBooked() error = %v", err)
	}

	days, err := svc.Calendar(ctx, "prov-001", int(target.Month()), target.Year())
	if err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}

	lastOfMonth := time.Date(target.Year(), target.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
	if len(days) != lastOfMonth.Day() {
		t.Fatalf("Calendar() = %d days, want %d", len(days), lastOfMonth.Day())
	}

	for _, d := range days {
		if d.Date.Equal(target) {
			if d.AvailableSlots != 2 || !d.HasAvailability {
				t.Errorf("target day = %d slots (has=%v), want 2 (true)", d.AvailableSlots, d.HasAvailability)
			}
		} else if d.HasAvailability {
			t.Errorf("day %s has availability, want none", d.Date.Format("2006-01-02"))
		}
	}
}

func TestNextAvailable(t *testing.T) {
	svc := newTestAvailability(t, nil)
	ctx := context.Background()

	addTestSlot(t, svc, "prov-001", day(5), "10:00")
	addTestSlot(t, svc, "prov-001", day(2), "14:00")

	next, err := svc.NextAvailable(ctx, "prov-001", "", "")
	if err != nil {
		t.Fatalf("NextAvailable() error = %v", err)
	}
	if next == nil {
		t.Fatal("NextAvailable() = nil, want a slot")
	}
	if !next.Date.Equal(day(2)) || next.StartTime != "14:00" {
		t.Errorf("NextAvailable() = %s %s, want %s 14:00", next.Date.Format("2006-01-02"), next.StartTime, day(2).Format("2006-01-02"))
	}

	none, err := svc.NextAvailable(ctx, "prov-999", "", "")
	if err != nil {
		t.Fatalf("NextAvailable() error = %v", err)
	}
	if none != nil {
		t.Errorf("NextAvailable(unknown provider) = %+v, want nil", none)
	}
}

func TestCatalogSeederIdempotent(t *testing.T) {
	cfg := testConfig()
	svc := NewAvailabilityService(repository.NewMemorySlotRepository(), cfg)
	seeder := NewCatalogSeeder(directoryservice.NewSampleDirectoryService(), svc, cfg)
	ctx := context.Background()

	created, err := seeder.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if created == 0 {
		t.Fatal("Seed() created no slots")
	}

	again, err := seeder.Seed(ctx)
	if err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	if again != 0 {
		t.Errorf("second Seed() created %d slots, want 0", again)
	}

	// Seeded slots carry the provider's types and the default duration.
	results, err := svc.Search(ctx, model.AvailabilitySearch{
		ProviderID: "prov-001",
		StartDate:  day(0),
		EndDate:    day(14),
		Limit:      1,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatal("Search() found no seeded slots")
	}
	slot := results[0]
	if slot.DurationMinutes != cfg.DefaultSlotMinutes {
		t.Errorf("slot duration = %d, want %d", slot.DurationMinutes, cfg.DefaultSlotMinutes)
	}
	if len(slot.AppointmentTypes) == 0 {
		t.Error("seeded slot has no appointment types")
	}
	if slot.ProviderName == "" || slot.LocationName == "" {
		t.Errorf("seeded slot missing names: %q %q", slot.ProviderName, slot.LocationName)
	}
}
