package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"carebook/internal/availability/repository"
	"carebook/pkg/config"
	apperrors "carebook/pkg/errors"
	"carebook/pkg/model"
)

// AvailabilityService owns the slot catalogue and its state machine:
// available -> held -> booked -> available. Status writes go through here
// and nowhere else; booking-path callers must hold the natural-key lock,
// hold/release only need the service's own serialization.
type AvailabilityService interface {
	Search(ctx context.Context, search model.AvailabilitySearch) ([]*model.Slot, error)
	NextAvailable(ctx context.Context, providerID, locationID, appointmentType string) (*model.Slot, error)
	Calendar(ctx context.Context, providerID string, month, year int) ([]model.CalendarDay, error)
	GetSlot(ctx context.Context, slotID string) (*model.Slot, error)
	GetByNaturalKey(ctx context.Context, providerID string, date time.Time, startTime string) (*model.Slot, error)

	HoldSlot(ctx context.Context, slotID, patientID string, duration time.Duration) (*model.Hold, error)
	ReleaseHold(ctx context.Context, slotID, patientID string) error

	EnsureBookable(ctx context.Context, providerID string, date time.Time, startTime, patientID string) (*model.Slot, error)
	MarkBooked(ctx context.Context, providerID string, date time.Time, startTime, patientID string) error
	MarkAvailable(ctx context.Context, providerID string, date time.Time, startTime string) error

	AddSlot(ctx context.Context, slot *model.Slot) error
	StartSweeper()
	Stop()
}

type availabilityService struct {
	repo repository.SlotRepository
	cfg  *config.Config

	// serializes every slot status transition; hold requests do not take
	// the booking lock, so without this two holders could race.
	mu    sync.Mutex
	holds map[string]*model.Hold

	now  func() time.Time
	stop chan struct{}
}

func NewAvailabilityService(repo repository.SlotRepository, cfg *config.Config) AvailabilityService {
	return &availabilityService{
		repo:  repo,
		cfg:   cfg,
		holds: make(map[string]*model.Hold),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
}

func (s *availabilityService) AddSlot(ctx context.Context, slot *model.Slot) error {
	if slot.ID == "" {
		slot.ID = model.NewSlotID()
	}
	if slot.Status == "" {
		slot.Status = model.SlotAvailable
	}
	return s.repo.Insert(ctx, slot)
}

func (s *availabilityService) Search(ctx context.Context, search model.AvailabilitySearch) ([]*model.Slot, error) {
	slots, err := s.repo.All(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to load slot catalogue", err)
	}

	now := s.now()
	results := make([]*model.Slot, 0)
	for _, slot := range slots {
		slot = s.effective(ctx, slot, now)
		if slot.Status != model.SlotAvailable {
			continue
		}
		if !search.StartDate.IsZero() && slot.Date.Before(search.StartDate) {
			continue
		}
		if !search.EndDate.IsZero() && slot.Date.After(search.EndDate) {
			continue
		}
		if search.ProviderID != "" && slot.ProviderID != search.ProviderID {
			continue
		}
		if search.LocationID != "" && slot.LocationID != search.LocationID {
			continue
		}
		if !slot.SupportsType(search.AppointmentType) {
			continue
		}
		if search.TimeOfDay != "" && !slot.MatchesTimeOfDay(search.TimeOfDay) {
			continue
		}
		results = append(results, slot)
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].Date.Equal(results[j].Date) {
			return results[i].Date.Before(results[j].Date)
		}
		return results[i].StartTime < results[j].StartTime
	})

	limit := config.NormalizeSearchLimit(search.Limit)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *availabilityService) NextAvailable(ctx context.Context, providerID, locationID, appointmentType string) (*model.Slot, error) {
	today := s.today()
	results, err := s.Search(ctx, model.AvailabilitySearch{
		ProviderID:      providerID,
		LocationID:      locationID,
		AppointmentType: appointmentType,
		StartDate:       today,
		EndDate:         today.AddDate(0, 0, 30),
		Limit:           1,
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (s *availabilityService) Calendar(ctx context.Context, providerID string, month, year int) ([]model.CalendarDay, error) {
	slots, err := s.repo.All(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to load slot catalogue", err)
	}

	now := s.now()
	counts := make(map[string]int)
	for _, slot := range slots {
		if slot.ProviderID != providerID {
			continue
		}
		if int(slot.Date.Month()) != month || slot.Date.Year() != year {
			continue
		}
		slot = s.effective(ctx, slot, now)
		if slot.Status == model.SlotAvailable {
			counts[slot.Date.Format("2006-01-02")]++
		}
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	numDays := first.AddDate(0, 1, -1).Day()

	days := make([]model.CalendarDay, 0, numDays)
	for day := 1; day <= numDays; day++ {
		dayDate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		available := counts[dayDate.Format("2006-01-02")]
		days = append(days, model.CalendarDay{
			Date:            dayDate,
			AvailableSlots:  available,
			HasAvailability: available > 0,
		})
	}
	return days, nil
}

func (s *availabilityService) GetSlot(ctx context.Context, slotID string) (*model.Slot, error) {
	slot, err := s.repo.FindByID(ctx, slotID)
	if err != nil {
		return nil, apperrors.NotFoundWithID("Slot", slotID)
	}
	return s.effective(ctx, slot, s.now()), nil
}

func (s *availabilityService) GetByNaturalKey(ctx context.Context, providerID string, date time.Time, startTime string) (*model.Slot, error) {
	slot, err := s.repo.FindByNaturalKey(ctx, providerID, date, startTime)
	if err != nil {
		return nil, apperrors.NotFound("Slot")
	}
	return s.effective(ctx, slot, s.now()), nil
}

// effective applies lazy hold expiry: a slot whose hold deadline has passed
// is written back as available before anyone acts on it.
func (s *availabilityService) effective(ctx context.Context, slot *model.Slot, now time.Time) *model.Slot {
	if !slot.HoldExpired(now) {
		return slot
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.FindByID(ctx, slot.ID)
	if err != nil {
		return slot
	}
	if !current.HoldExpired(now) {
		return current
	}

	if hold, ok := s.holds[current.ID]; ok {
		hold.Status = model.HoldExpired
		delete(s.holds, current.ID)
	}
	current.Status = model.SlotAvailable
	current.HeldBy = ""
	current.HeldUntil = nil
	if err := s.repo.Update(ctx, current); err != nil {
		s.cfg.Log.Warn("Failed to clear expired hold", "slot_id", current.ID, "error", err)
	}
	return current
}

func (s *availabilityService) HoldSlot(ctx context.Context, slotID, patientID string, duration time.Duration) (*model.Hold, error) {
	if duration <= 0 {
		duration = s.cfg.DefaultHoldDuration
	}
	if duration > s.cfg.MaxHoldDuration {
		duration = s.cfg.MaxHoldDuration
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, err := s.repo.FindByID(ctx, slotID)
	if err != nil {
		return nil, apperrors.SlotUnavailable("Slot not available")
	}

	now := s.now()
	if slot.HoldExpired(now) {
		slot.Status = model.SlotAvailable
		slot.HeldBy = ""
		slot.HeldUntil = nil
		if hold, ok := s.holds[slot.ID]; ok {
			hold.Status = model.HoldExpired
			delete(s.holds, slot.ID)
		}
	}
	if slot.Status != model.SlotAvailable {
		return nil, apperrors.SlotUnavailable("Slot not available")
	}

	expiresAt := now.Add(duration)
	hold := &model.Hold{
		ID:        model.NewHoldID(),
		SlotID:    slotID,
		PatientID: patientID,
		HeldAt:    now,
		ExpiresAt: expiresAt,
		Status:    model.HoldActive,
	}

	slot.Status = model.SlotHeld
	slot.HeldBy = patientID
	slot.HeldUntil = &expiresAt
	if err := s.repo.Update(ctx, slot); err != nil {
		return nil, apperrors.Internal("Failed to hold slot", err)
	}
	s.holds[slotID] = hold

	s.cfg.Log.Info("Slot held",
		"slot_id", slotID,
		"patient_id", patientID,
		"expires_at", expiresAt,
	)

	out := *hold
	return &out, nil
}

// ReleaseHold clears a hold only when the holder matches. A mismatched or
// missing holder is a silent no-op so double-release never penalizes a
// caller.
func (s *availabilityService) ReleaseHold(ctx context.Context, slotID, patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, err := s.repo.FindByID(ctx, slotID)
	if err != nil {
		return nil
	}
	if slot.Status != model.SlotHeld || slot.HeldBy != patientID {
		return nil
	}

	if hold, ok := s.holds[slotID]; ok {
		hold.Status = model.HoldReleased
		delete(s.holds, slotID)
	}
	slot.Status = model.SlotAvailable
	slot.HeldBy = ""
	slot.HeldUntil = nil
	if err := s.repo.Update(ctx, slot); err != nil {
		return apperrors.Internal("Failed to release hold", err)
	}

	s.cfg.Log.Info("Slot hold released", "slot_id", slotID)
	return nil
}

// EnsureBookable re-checks the slot under the caller's natural-key lock. An
// expired hold counts as available; an unexpired hold by the requester
// converts on booking; anything else is unavailable for this attempt.
func (s *availabilityService) EnsureBookable(ctx context.Context, providerID string, date time.Time, startTime, patientID string) (*model.Slot, error) {
	slot, err := s.repo.FindByNaturalKey(ctx, providerID, date, startTime)
	if err != nil {
		return nil, apperrors.SlotUnavailable("Selected slot does not exist")
	}

	slot = s.effective(ctx, slot, s.now())
	switch slot.Status {
	case model.SlotAvailable:
		return slot, nil
	case model.SlotHeld:
		if slot.HeldBy == patientID {
			return slot, nil
		}
		return nil, apperrors.SlotUnavailable("Selected slot is held by another patient")
	default:
		return nil, apperrors.SlotUnavailable("Selected slot is no longer available")
	}
}

func (s *availabilityService) MarkBooked(ctx context.Context, providerID string, date time.Time, startTime, patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, err := s.repo.FindByNaturalKey(ctx, providerID, date, startTime)
	if err != nil {
		return apperrors.SlotUnavailable("Selected slot does not exist")
	}

	// The booking lock does not serialize hold requests, so the slot may
	// have changed since the caller's re-check. Verify again here, in the
	// same critical section as the status write.
	switch {
	case slot.Status == model.SlotAvailable:
	case slot.Status == model.SlotHeld && slot.HoldExpired(s.now()):
		if hold, ok := s.holds[slot.ID]; ok {
			hold.Status = model.HoldExpired
			delete(s.holds, slot.ID)
		}
	case slot.Status == model.SlotHeld && slot.HeldBy == patientID:
		if hold, ok := s.holds[slot.ID]; ok {
			hold.Status = model.HoldConverted
			delete(s.holds, slot.ID)
		}
	default:
		return apperrors.SlotUnavailable("Selected slot is no longer available")
	}

	slot.Status = model.SlotBooked
	slot.HeldBy = ""
	slot.HeldUntil = nil
	if err := s.repo.Update(ctx, slot); err != nil {
		return apperrors.Internal("Failed to mark slot booked", err)
	}
	return nil
}

func (s *availabilityService) MarkAvailable(ctx context.Context, providerID string, date time.Time, startTime string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, err := s.repo.FindByNaturalKey(ctx, providerID, date, startTime)
	if err != nil {
		return apperrors.NotFound("Slot")
	}

	slot.Status = model.SlotAvailable
	slot.HeldBy = ""
	slot.HeldUntil = nil
	if err := s.repo.Update(ctx, slot); err != nil {
		return apperrors.Internal("Failed to release slot", err)
	}
	return nil
}

func (s *availabilityService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// StartSweeper runs a background pass that clears expired holds. Correctness
// never depends on it (expiry is checked lazily on every read); the sweep
// only makes freed slots reappear in searches promptly.
func (s *availabilityService) StartSweeper() {
	go func() {
		ticker := time.NewTicker(s.cfg.HoldSweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *availabilityService) sweep() {
	ctx := context.Background()
	slots, err := s.repo.All(ctx)
	if err != nil {
		s.cfg.Log.Warn("Hold sweep failed to load slots", "error", err)
		return
	}

	now := s.now()
	cleared := 0
	for _, slot := range slots {
		if slot.HoldExpired(now) {
			s.effective(ctx, slot, now)
			cleared++
		}
	}
	if cleared > 0 {
		s.cfg.Log.Info("Expired holds swept", "cleared", cleared)
	}
}

func (s *availabilityService) Stop() {
	close(s.stop)
}
