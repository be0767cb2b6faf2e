package service

import (
	"context"
	"errors"
	"sync"
	"time"

	directoryservice "carebook/internal/directory/service"
	"carebook/internal/notify"
	waitlisterrors "carebook/internal/waitlist/errors"
	"carebook/internal/waitlist/repository"
	apperrors "carebook/pkg/errors"
	"carebook/pkg/logger"
	"carebook/pkg/model"
	"carebook/pkg/validation"
)

// WaitlistService manages standing requests for slots that are currently
// full. Entries are ordered by a position rank token assigned once at join
// time; positions of later entries never shift when earlier ones leave.
type WaitlistService interface {
	Join(ctx context.Context, req *model.WaitlistRequest) (*model.WaitlistEntry, error)
	Get(ctx context.Context, entryID string) (*model.WaitlistEntry, error)
	Leave(ctx context.Context, entryID string) error
	Notify(ctx context.Context, entryID, slotID string) (*model.WaitlistEntry, error)
	MarkBooked(ctx context.Context, entryID, appointmentID string) error

	ListForProvider(ctx context.Context, providerID string, status model.WaitlistStatus, limit int) ([]*model.WaitlistEntry, error)
	ListForPatient(ctx context.Context, patientID string, status model.WaitlistStatus) ([]*model.WaitlistEntry, error)
	Stats(ctx context.Context, filter model.WaitlistFilter) (*model.WaitlistStats, error)

	// ScanForSlot finds the best waiting entry matching a freshly reopened
	// slot and notifies it. Returns nil when no entry matches.
	ScanForSlot(ctx context.Context, slot *model.Slot) (*model.WaitlistEntry, error)
}

type waitlistService struct {
	repo       repository.WaitlistRepository
	directory  directoryservice.DirectoryService
	dispatcher notify.Dispatcher
	log        *logger.Logger

	// serializes join so two concurrent joins for one provider cannot read
	// the same waiting count and claim the same position.
	joinMu sync.Mutex

	now func() time.Time
}

func NewWaitlistService(
	repo repository.WaitlistRepository,
	directory directoryservice.DirectoryService,
	dispatcher notify.Dispatcher,
	log *logger.Logger,
) WaitlistService {
	return &waitlistService{
		repo:       repo,
		directory:  directory,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

func (s *waitlistService) Join(ctx context.Context, req *model.WaitlistRequest) (*model.WaitlistEntry, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !s.directory.ProviderExists(ctx, req.ProviderID) {
		return nil, apperrors.InvalidReference("Provider does not exist: " + req.ProviderID)
	}
	if req.LocationID != "" && !s.directory.LocationExists(ctx, req.LocationID) {
		return nil, apperrors.InvalidReference("Location does not exist: " + req.LocationID)
	}
	if !s.directory.TypeValidForProvider(ctx, req.ProviderID, req.AppointmentType) {
		return nil, apperrors.InvalidReference("Provider does not offer appointment type: " + req.AppointmentType)
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = model.UrgencyNormal
	}

	s.joinMu.Lock()
	defer s.joinMu.Unlock()

	waiting, err := s.repo.CountByProvider(ctx, req.ProviderID, model.WaitlistWaiting)
	if err != nil {
		return nil, apperrors.Internal("Failed to determine waitlist position", err)
	}

	entry := &model.WaitlistEntry{
		ID:                 model.NewWaitlistEntryID(),
		PatientID:          req.PatientID,
		ProviderID:         req.ProviderID,
		LocationID:         req.LocationID,
		PreferredDates:     req.PreferredDates,
		PreferredTimeOfDay: req.PreferredTimeOfDay,
		AppointmentType:    req.AppointmentType,
		Urgency:            urgency,
		Status:             model.WaitlistWaiting,
		Position:           waiting + 1,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, apperrors.Internal("Failed to create waitlist entry", err)
	}

	s.log.Info("Waitlist entry created",
		"entry_id", entry.ID,
		"provider_id", entry.ProviderID,
		"patient_id", entry.PatientID,
		"position", entry.Position,
	)
	return entry, nil
}

func (s *waitlistService) Get(ctx context.Context, entryID string) (*model.WaitlistEntry, error) {
	entry, err := s.repo.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, waitlisterrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Waitlist entry", entryID)
		}
		return nil, apperrors.Internal("Failed to load waitlist entry", err)
	}
	return entry, nil
}

// Leave marks the entry removed. Positions of remaining entries are left
// untouched, so the queue keeps gaps rather than renumbering.
func (s *waitlistService) Leave(ctx context.Context, entryID string) error {
	entry, err := s.Get(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Status != model.WaitlistWaiting && entry.Status != model.WaitlistNotified {
		return apperrors.InvalidState("Waitlist entry is not active: " + string(entry.Status))
	}

	entry.Status = model.WaitlistRemoved
	if err := s.repo.Update(ctx, entry); err != nil {
		return apperrors.Internal("Failed to remove waitlist entry", err)
	}

	s.log.Info("Waitlist entry removed", "entry_id", entryID)
	return nil
}

// Notify flags the entry as notified and emits the slot-open event. It does
// not verify the slot is still open; the booking path re-checks when the
// patient acts on the notification.
func (s *waitlistService) Notify(ctx context.Context, entryID, slotID string) (*model.WaitlistEntry, error) {
	entry, err := s.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != model.WaitlistWaiting {
		return nil, apperrors.InvalidState("Waitlist entry is not waiting: " + string(entry.Status))
	}

	now := s.now().UTC()
	entry.Status = model.WaitlistNotified
	entry.NotifiedAt = &now
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, apperrors.Internal("Failed to update waitlist entry", err)
	}

	s.dispatcher.Send(ctx, notify.WaitlistSlotOpen, slotID, entry.PatientID)

	s.log.Info("Waitlist entry notified",
		"entry_id", entry.ID,
		"slot_id", slotID,
		"patient_id", entry.PatientID,
	)
	return entry, nil
}

// MarkBooked records that the entry converted into an appointment. Failure
// here never unwinds the booking; the entry is advisory once the appointment
// exists.
func (s *waitlistService) MarkBooked(ctx context.Context, entryID, appointmentID string) error {
	entry, err := s.Get(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Status != model.WaitlistWaiting && entry.Status != model.WaitlistNotified {
		return apperrors.InvalidState("Waitlist entry is not active: " + string(entry.Status))
	}

	entry.Status = model.WaitlistBooked
	entry.BookedAppointmentID = appointmentID
	if err := s.repo.Update(ctx, entry); err != nil {
		return apperrors.Internal("Failed to update waitlist entry", err)
	}

	s.log.Info("Waitlist entry converted",
		"entry_id", entryID,
		"appointment_id", appointmentID,
	)
	return nil
}

func (s *waitlistService) ListForProvider(ctx context.Context, providerID string, status model.WaitlistStatus, limit int) ([]*model.WaitlistEntry, error) {
	entries, err := s.repo.FindByProvider(ctx, providerID, status, limit)
	if err != nil {
		return nil, apperrors.Internal("Failed to list waitlist entries", err)
	}
	return entries, nil
}

func (s *waitlistService) ListForPatient(ctx context.Context, patientID string, status model.WaitlistStatus) ([]*model.WaitlistEntry, error) {
	entries, err := s.repo.FindByPatient(ctx, patientID, status)
	if err != nil {
		return nil, apperrors.Internal("Failed to list waitlist entries", err)
	}
	return entries, nil
}

func (s *waitlistService) Stats(ctx context.Context, filter model.WaitlistFilter) (*model.WaitlistStats, error) {
	entries, err := s.repo.All(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal("Failed to load waitlist entries", err)
	}

	stats := &model.WaitlistStats{TotalEntries: len(entries)}
	for _, entry := range entries {
		switch entry.Status {
		case model.WaitlistWaiting:
			stats.Waiting++
		case model.WaitlistNotified:
			stats.Notified++
		case model.WaitlistBooked:
			stats.Converted++
		}
	}
	if stats.TotalEntries > 0 {
		stats.ConversionRate = float64(stats.Converted) / float64(stats.TotalEntries)
	}
	return stats, nil
}

func (s *waitlistService) ScanForSlot(ctx context.Context, slot *model.Slot) (*model.WaitlistEntry, error) {
	entries, err := s.repo.FindByProvider(ctx, slot.ProviderID, model.WaitlistWaiting, 0)
	if err != nil {
		return nil, apperrors.Internal("Failed to scan waitlist", err)
	}

	// Entries arrive ordered by position; an urgent entry jumps the queue.
	var first *model.WaitlistEntry
	for _, entry := range entries {
		if !entryMatchesSlot(entry, slot) {
			continue
		}
		if entry.Urgency == model.UrgencyUrgent {
			first = entry
			break
		}
		if first == nil {
			first = entry
		}
	}
	if first == nil {
		return nil, nil
	}

	return s.Notify(ctx, first.ID, slot.ID)
}

func entryMatchesSlot(entry *model.WaitlistEntry, slot *model.Slot) bool {
	if entry.LocationID != "" && entry.LocationID != slot.LocationID {
		return false
	}
	if !slot.SupportsType(entry.AppointmentType) {
		return false
	}
	if entry.PreferredTimeOfDay != "" && !slot.MatchesTimeOfDay(model.TimeOfDay(entry.PreferredTimeOfDay)) {
		return false
	}
	if len(entry.PreferredDates) > 0 {
		slotDate := slot.Date.Format("2006-01-02")
		found := false
		for _, d := range entry.PreferredDates {
			if d == slotDate {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
