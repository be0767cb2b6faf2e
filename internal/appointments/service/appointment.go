package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	appointmenterrors "carebook/internal/appointments/errors"
	"carebook/internal/appointments/repository"
	"carebook/internal/appointments/validator"
	availabilityservice "carebook/internal/availability/service"
	directoryservice "carebook/internal/directory/service"
	"carebook/internal/locks"
	"carebook/internal/notify"
	waitlistservice "carebook/internal/waitlist/service"
	"carebook/pkg/config"
	apperrors "carebook/pkg/errors"
	"carebook/pkg/model"
)

// AppointmentService orchestrates bookings. The commit protocol for any
// write that claims a slot is: acquire the natural-key lock, re-verify the
// slot under the lock, commit, release the lock, and only then notify.
// The lock is released on every path, success or failure.
type AppointmentService interface {
	Book(ctx context.Context, req *model.AppointmentCreate) (*model.Appointment, error)
	Get(ctx context.Context, appointmentID string) (*model.Appointment, error)
	List(ctx context.Context, filter model.AppointmentFilter, limit, offset int) ([]*model.Appointment, int, error)
	Update(ctx context.Context, appointmentID string, upd *model.AppointmentUpdate) (*model.Appointment, error)
	Cancel(ctx context.Context, appointmentID, reason string) (*model.Appointment, error)
	Remind(ctx context.Context, appointmentID string) (*model.Appointment, error)
	CheckIn(ctx context.Context, appointmentID string) (*model.Appointment, error)
	Complete(ctx context.Context, appointmentID string) (*model.Appointment, error)
	MarkNoShow(ctx context.Context, appointmentID string) (*model.Appointment, error)
}

type appointmentService struct {
	repo         repository.AppointmentRepository
	availability availabilityservice.AvailabilityService
	directory    directoryservice.DirectoryService
	waitlist     waitlistservice.WaitlistService
	locks        locks.Manager
	dispatcher   notify.Dispatcher
	validator    *validator.AppointmentValidator
	cfg          *config.Config

	now func() time.Time
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	availability availabilityservice.AvailabilityService,
	directory directoryservice.DirectoryService,
	waitlist waitlistservice.WaitlistService,
	lockManager locks.Manager,
	dispatcher notify.Dispatcher,
	cfg *config.Config,
) AppointmentService {
	return &appointmentService{
		repo:         repo,
		availability: availability,
		directory:    directory,
		waitlist:     waitlist,
		locks:        lockManager,
		dispatcher:   dispatcher,
		validator:    validator.New(cfg.BookingHorizonDays),
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *appointmentService) Book(ctx context.Context, req *model.AppointmentCreate) (*model.Appointment, error) {
	date, err := s.validator.ValidateCreate(req)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req.ProviderID, req.LocationID, req.AppointmentType); err != nil {
		return nil, err
	}

	appointment, err := s.bookSlot(ctx, req, date)
	if err != nil {
		return nil, err
	}

	// The lock is already released; notification and waitlist conversion
	// happen strictly after.
	s.dispatcher.Send(ctx, notify.AppointmentConfirmed, appointment.ID, appointment.PatientID)

	if req.WaitlistEntryID != "" {
		if err := s.waitlist.MarkBooked(ctx, req.WaitlistEntryID, appointment.ID); err != nil {
			s.cfg.Log.Warn("Failed to record waitlist conversion",
				"entry_id", req.WaitlistEntryID,
				"appointment_id", appointment.ID,
				"error", err,
			)
		}
	}
	return appointment, nil
}

// bookSlot runs the locked section of a booking. The deferred release fires
// before the caller sees the result, so notification always happens with the
// lock gone.
func (s *appointmentService) bookSlot(ctx context.Context, req *model.AppointmentCreate, date time.Time) (*model.Appointment, error) {
	key := model.SlotNaturalKey(req.ProviderID, date, req.StartTime)
	if !s.locks.Acquire(ctx, key, s.cfg.SlotLockTTL) {
		return nil, apperrors.SlotContended("Another booking for this slot is in progress")
	}
	defer s.locks.Release(ctx, key)

	slot, err := s.availability.EnsureBookable(ctx, req.ProviderID, date, req.StartTime, req.PatientID)
	if err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = slot.DurationMinutes
	}
	if duration <= 0 {
		duration = s.cfg.DefaultSlotMinutes
	}

	now := s.now().UTC()
	appointment := &model.Appointment{
		ID:              model.NewAppointmentID(),
		PatientID:       req.PatientID,
		ProviderID:      req.ProviderID,
		LocationID:      req.LocationID,
		Date:            date,
		StartTime:       req.StartTime,
		EndTime:         addMinutes(req.StartTime, duration),
		DurationMinutes: duration,
		AppointmentType: req.AppointmentType,
		Status:          model.AppointmentScheduled,
		Reason:          req.Reason,
		Notes:           req.Notes,
		Telehealth:      req.Telehealth,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, apperrors.Internal("Failed to persist appointment", err)
	}
	if err := s.availability.MarkBooked(ctx, req.ProviderID, date, req.StartTime, req.PatientID); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Appointment booked",
		"appointment_id", appointment.ID,
		"provider_id", appointment.ProviderID,
		"patient_id", appointment.PatientID,
		"slot", key,
	)
	return appointment, nil
}

func (s *appointmentService) Get(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	appointment, err := s.repo.FindByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, appointmenterrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Appointment", appointmentID)
		}
		return nil, apperrors.Internal("Failed to load appointment", err)
	}
	return appointment, nil
}

func (s *appointmentService) List(ctx context.Context, filter model.AppointmentFilter, limit, offset int) ([]*model.Appointment, int, error) {
	appointments, total, err := s.repo.List(ctx, filter, config.NormalizePaginationLimit(limit), config.NormalizeOffset(offset))
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list appointments", err)
	}
	return appointments, total, nil
}

// Update edits notes and reason in place; a date or time change runs the
// full reschedule protocol against the new slot. The old appointment and its
// slot are untouched until the new slot has been verified under lock.
func (s *appointmentService) Update(ctx context.Context, appointmentID string, upd *model.AppointmentUpdate) (*model.Appointment, error) {
	newDate, err := s.validator.ValidateUpdate(upd)
	if err != nil {
		return nil, err
	}

	appointment, err := s.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.Status.Terminal() {
		return nil, apperrors.InvalidState("Appointment is " + string(appointment.Status))
	}

	if !upd.Reschedules() {
		applyNotes(appointment, upd)
		appointment.UpdatedAt = s.now().UTC()
		if err := s.repo.Update(ctx, appointment); err != nil {
			return nil, apperrors.Internal("Failed to update appointment", err)
		}
		return appointment, nil
	}

	targetDate := appointment.Date
	if newDate != nil {
		targetDate = *newDate
	}
	targetStart := appointment.StartTime
	if upd.StartTime != "" {
		targetStart = upd.StartTime
	}

	if targetDate.Equal(appointment.Date) && targetStart == appointment.StartTime {
		applyNotes(appointment, upd)
		appointment.UpdatedAt = s.now().UTC()
		if err := s.repo.Update(ctx, appointment); err != nil {
			return nil, apperrors.Internal("Failed to update appointment", err)
		}
		return appointment, nil
	}

	appointment, err = s.reschedule(ctx, appointment, upd, targetDate, targetStart)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Send(ctx, notify.AppointmentRescheduled, appointment.ID, appointment.PatientID)
	return appointment, nil
}

// reschedule moves the appointment to a new slot. Only the new slot's lock
// is taken; any failure before the old slot is freed leaves the original
// booking fully intact.
func (s *appointmentService) reschedule(ctx context.Context, appointment *model.Appointment, upd *model.AppointmentUpdate, targetDate time.Time, targetStart string) (*model.Appointment, error) {
	oldDate := appointment.Date
	oldStart := appointment.StartTime

	key := model.SlotNaturalKey(appointment.ProviderID, targetDate, targetStart)
	if !s.locks.Acquire(ctx, key, s.cfg.SlotLockTTL) {
		return nil, apperrors.SlotContended("Another booking for this slot is in progress")
	}
	defer s.locks.Release(ctx, key)

	if _, err := s.availability.EnsureBookable(ctx, appointment.ProviderID, targetDate, targetStart, appointment.PatientID); err != nil {
		return nil, err
	}

	// Nothing is committed yet. If the old slot cannot be freed, abort so
	// the original booking stays fully intact instead of moving on with a
	// slot that still reads booked.
	if err := s.availability.MarkAvailable(ctx, appointment.ProviderID, oldDate, oldStart); err != nil {
		return nil, err
	}

	appointment.Date = targetDate
	appointment.StartTime = targetStart
	appointment.EndTime = addMinutes(targetStart, appointment.DurationMinutes)
	applyNotes(appointment, upd)
	appointment.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, apperrors.Internal("Failed to update appointment", err)
	}

	if err := s.availability.MarkBooked(ctx, appointment.ProviderID, targetDate, targetStart, appointment.PatientID); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Appointment rescheduled",
		"appointment_id", appointment.ID,
		"from", model.SlotNaturalKey(appointment.ProviderID, oldDate, oldStart),
		"to", key,
	)
	return appointment, nil
}

// Cancel releases the slot and kicks off an asynchronous waitlist scan for
// the freed capacity. Cancellation is a status change; the record survives.
func (s *appointmentService) Cancel(ctx context.Context, appointmentID, reason string) (*model.Appointment, error) {
	appointment, err := s.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.Status.Terminal() {
		return nil, apperrors.InvalidState("Appointment is " + string(appointment.Status))
	}

	now := s.now().UTC()
	appointment.Status = model.AppointmentCancelled
	appointment.CancelledAt = &now
	appointment.CancellationReason = reason
	appointment.UpdatedAt = now
	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, apperrors.Internal("Failed to cancel appointment", err)
	}

	if err := s.availability.MarkAvailable(ctx, appointment.ProviderID, appointment.Date, appointment.StartTime); err != nil {
		s.cfg.Log.Warn("Failed to free slot after cancellation",
			"appointment_id", appointment.ID,
			"error", err,
		)
	}

	s.dispatcher.Send(ctx, notify.AppointmentCancelled, appointment.ID, appointment.PatientID)

	slot, err := s.availability.GetByNaturalKey(ctx, appointment.ProviderID, appointment.Date, appointment.StartTime)
	if err == nil && slot.Status == model.SlotAvailable {
		go s.scanWaitlist(slot)
	}

	s.cfg.Log.Info("Appointment cancelled", "appointment_id", appointmentID)
	return appointment, nil
}

// scanWaitlist runs outside the request; the cancellation response never
// waits for it.
func (s *appointmentService) scanWaitlist(slot *model.Slot) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entry, err := s.waitlist.ScanForSlot(ctx, slot)
	if err != nil {
		s.cfg.Log.Warn("Waitlist scan failed", "slot_id", slot.ID, "error", err)
		return
	}
	if entry != nil {
		s.cfg.Log.Info("Waitlist entry notified of opening",
			"entry_id", entry.ID,
			"slot_id", slot.ID,
		)
	}
}

// Remind sends a reminder notification for an upcoming appointment. Only
// scheduled appointments qualify; everything else is already resolved.
func (s *appointmentService) Remind(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	appointment, err := s.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.Status != model.AppointmentScheduled {
		return nil, apperrors.InvalidState("Appointment is " + string(appointment.Status))
	}

	s.dispatcher.Send(ctx, notify.AppointmentReminder, appointment.ID, appointment.PatientID)
	return appointment, nil
}

func (s *appointmentService) CheckIn(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	return s.transition(ctx, appointmentID, model.AppointmentScheduled, model.AppointmentCheckedIn,
		func(a *model.Appointment, now time.Time) { a.CheckedInAt = &now })
}

// Complete closes out any non-terminal appointment; a prior check-in is not
// required (walk-ins completed at the desk never check in).
func (s *appointmentService) Complete(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	appointment, err := s.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.Status.Terminal() {
		return nil, apperrors.InvalidState("Appointment is " + string(appointment.Status))
	}

	now := s.now().UTC()
	appointment.Status = model.AppointmentCompleted
	appointment.CompletedAt = &now
	appointment.UpdatedAt = now
	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, apperrors.Internal("Failed to update appointment", err)
	}

	s.cfg.Log.Info("Appointment status changed",
		"appointment_id", appointmentID,
		"to", model.AppointmentCompleted,
	)
	return appointment, nil
}

func (s *appointmentService) MarkNoShow(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	return s.transition(ctx, appointmentID, model.AppointmentScheduled, model.AppointmentNoShow,
		func(a *model.Appointment, now time.Time) { a.NoShowAt = &now })
}

func (s *appointmentService) transition(ctx context.Context, appointmentID string, from, to model.AppointmentStatus, stamp func(*model.Appointment, time.Time)) (*model.Appointment, error) {
	appointment, err := s.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.Status != from {
		return nil, apperrors.InvalidState(fmt.Sprintf(
			"Cannot move appointment from %s to %s", appointment.Status, to))
	}

	now := s.now().UTC()
	appointment.Status = to
	appointment.UpdatedAt = now
	stamp(appointment, now)
	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, apperrors.Internal("Failed to update appointment", err)
	}

	s.cfg.Log.Info("Appointment status changed",
		"appointment_id", appointmentID,
		"from", from,
		"to", to,
	)
	return appointment, nil
}

func (s *appointmentService) checkReferences(ctx context.Context, providerID, locationID, appointmentType string) error {
	if !s.directory.ProviderExists(ctx, providerID) {
		return apperrors.InvalidReference("Provider does not exist: " + providerID)
	}
	if !s.directory.LocationExists(ctx, locationID) {
		return apperrors.InvalidReference("Location does not exist: " + locationID)
	}
	if !s.directory.TypeValidForProvider(ctx, providerID, appointmentType) {
		return apperrors.InvalidReference("Provider does not offer appointment type: " + appointmentType)
	}
	return nil
}

func applyNotes(appointment *model.Appointment, upd *model.AppointmentUpdate) {
	if upd.Reason != "" {
		appointment.Reason = upd.Reason
	}
	if upd.Notes != "" {
		appointment.Notes = upd.Notes
	}
}

// addMinutes advances an HH:MM time by a duration in minutes, clamping at
// the end of the day.
func addMinutes(start string, minutes int) string {
	t, err := time.Parse("15:04", start)
	if err != nil {
		return start
	}
	end := t.Add(time.Duration(minutes) * time.Minute)
	if end.Day() != t.Day() {
		return "23:59"
	}
	return end.Format("15:04")
}
