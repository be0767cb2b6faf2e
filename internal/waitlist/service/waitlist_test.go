package service

import (
	"context"
	"errors"
	"testing"
	"time"

	directoryservice "carebook/internal/directory/service"
	"carebook/internal/notify"
	"carebook/internal/waitlist/repository"
	apperrors "carebook/pkg/errors"
	"carebook/pkg/logger"
	"carebook/pkg/model"
)

type recordedEvent struct {
	kind      notify.Kind
	refID     string
	patientID string
}

type fakeDispatcher struct {
	events []recordedEvent
}

func (d *fakeDispatcher) Send(_ context.Context, kind notify.Kind, refID, patientID string) {
	d.events = append(d.events, recordedEvent{kind: kind, refID: refID, patientID: patientID})
}

func (d *fakeDispatcher) Close() error { return nil }

func newTestService(t *testing.T) (*waitlistService, *fakeDispatcher) {
	t.Helper()

	dispatcher := &fakeDispatcher{}
	svc := NewWaitlistService(
		repository.NewMemoryWaitlistRepository(),
		directoryservice.NewSampleDirectoryService(),
		dispatcher,
		logger.NewNop(),
	).(*waitlistService)
	return svc, dispatcher
}

func validRequest() *model.WaitlistRequest {
	return &model.WaitlistRequest{
		PatientID:       "patient-1",
		ProviderID:      "prov-001",
		AppointmentType: model.TypeFollowUp,
	}
}

func TestJoinAssignsSequentialPositions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i, want := range []int{1, 2, 3} {
		req := validRequest()
		req.PatientID = "patient-" + string(rune('a'+i))
		entry, err := svc.Join(ctx, req)
		if err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		if entry.Position != want {
			t.Errorf("Join() position = %d, want %d", entry.Position, want)
		}
		if entry.Status != model.WaitlistWaiting {
			t.Errorf("Join() status = %s, want waiting", entry.Status)
		}
	}
}

func TestJoinPositionsScopedPerProvider(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Join(ctx, validRequest())
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	other := validRequest()
	other.ProviderID = "prov-002"
	second, err := svc.Join(ctx, other)
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	if first.Position != 1 || second.Position != 1 {
		t.Errorf("positions = %d, %d, want both 1", first.Position, second.Position)
	}
}

func TestJoinValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		mutate   func(*model.WaitlistRequest)
		wantCode string
	}{
		{
			name:     "unknown provider",
			mutate:   func(r *model.WaitlistRequest) { r.ProviderID = "prov-999" },
			wantCode: apperrors.CodeInvalidReference,
		},
		{
			name:     "unknown location",
			mutate:   func(r *model.WaitlistRequest) { r.LocationID = "loc-999" },
			wantCode: apperrors.CodeInvalidReference,
		},
		{
			name: "type not offered by provider",
			mutate: func(r *model.WaitlistRequest) {
				r.AppointmentType = model.TypeTelehealth
			},
			wantCode: apperrors.CodeInvalidReference,
		},
		{
			name:     "missing patient",
			mutate:   func(r *model.WaitlistRequest) { r.PatientID = "" },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "bad urgency",
			mutate:   func(r *model.WaitlistRequest) { r.Urgency = "whenever" },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "bad preferred date",
			mutate:   func(r *model.WaitlistRequest) { r.PreferredDates = []string{"tomorrow"} },
			wantCode: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			_, err := svc.Join(ctx, req)
			if err == nil {
				t.Fatal("Join() expected error, got nil")
			}
			appErr := apperrors.AsAppError(err)
			if appErr.Code != tt.wantCode {
				t.Errorf("Join() code = %s, want %s", appErr.Code, tt.wantCode)
			}
		})
	}
}

func TestLeaveKeepsLaterPositions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, _ := svc.Join(ctx, validRequest())
	second, _ := svc.Join(ctx, validRequest())
	third, _ := svc.Join(ctx, validRequest())

	if err := svc.Leave(ctx, first.ID); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}

	got, err := svc.Get(ctx, third.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Position != 3 {
		t.Errorf("position after earlier leave = %d, want 3 (no renumbering)", got.Position)
	}

	entries, err := svc.ListForProvider(ctx, "prov-001", model.WaitlistWaiting, 0)
	if err != nil {
		t.Fatalf("ListForProvider() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("waiting entries = %d, want 2", len(entries))
	}
	if entries[0].ID != second.ID || entries[1].ID != third.ID {
		t.Errorf("waiting order = %s, %s, want %s, %s", entries[0].ID, entries[1].ID, second.ID, third.ID)
	}
}

func TestLeaveInactiveEntry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	entry, _ := svc.Join(ctx, validRequest())
	if err := svc.Leave(ctx, entry.ID); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}

	err := svc.Leave(ctx, entry.ID)
	if err == nil {
		t.Fatal("Leave() on removed entry expected error, got nil")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInvalidState {
		t.Errorf("Leave() code = %s, want %s", apperrors.AsAppError(err).Code, apperrors.CodeInvalidState)
	}
}

func TestGetUnknownEntry(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "wl-missing")
	if err == nil {
		t.Fatal("Get() expected error, got nil")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("Get() code = %s, want %s", apperrors.AsAppError(err).Code, apperrors.CodeNotFound)
	}
}

func TestNotifyMarksEntryAndDispatches(t *testing.T) {
	svc, dispatcher := newTestService(t)
	ctx := context.Background()

	entry, _ := svc.Join(ctx, validRequest())

	notified, err := svc.Notify(ctx, entry.ID, "slot-123")
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if notified.Status != model.WaitlistNotified {
		t.Errorf("Notify() status = %s, want notified", notified.Status)
	}
	if notified.NotifiedAt == nil {
		t.Error("Notify() NotifiedAt not set")
	}

	if len(dispatcher.events) != 1 {
		t.Fatalf("dispatched events = %d, want 1", len(dispatcher.events))
	}
	event := dispatcher.events[0]
	if event.kind != notify.WaitlistSlotOpen {
		t.Errorf("event kind = %s, want %s", event.kind, notify.WaitlistSlotOpen)
	}
	if event.refID != "slot-123" || event.patientID != entry.PatientID {
		t.Errorf("event = %+v, want slot-123 for %s", event, entry.PatientID)
	}

	// A notified entry cannot be notified again.
	if _, err := svc.Notify(ctx, entry.ID, "slot-123"); err == nil {
		t.Error("Notify() on notified entry expected error, got nil")
	}
}

func TestMarkBookedRecordsAppointment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	entry, _ := svc.Join(ctx, validRequest())
	if err := svc.MarkBooked(ctx, entry.ID, "apt-abc"); err != nil {
		t.Fatalf("MarkBooked() error = %v", err)
	}

	got, _ := svc.Get(ctx, entry.ID)
	if got.Status != model.WaitlistBooked {
		t.Errorf("status = %s, want booked", got.Status)
	}
	if got.BookedAppointmentID != "apt-abc" {
		t.Errorf("booked appointment = %s, want apt-abc", got.BookedAppointmentID)
	}
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	empty, err := svc.Stats(ctx, model.WaitlistFilter{})
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if empty.ConversionRate != 0 {
		t.Errorf("empty conversion rate = %f, want 0", empty.ConversionRate)
	}

	a, _ := svc.Join(ctx, validRequest())
	b, _ := svc.Join(ctx, validRequest())
	_, _ = svc.Join(ctx, validRequest())
	c, _ := svc.Join(ctx, validRequest())

	_, _ = svc.Notify(ctx, a.ID, "slot-1")
	_ = svc.MarkBooked(ctx, b.ID, "apt-1")
	_ = svc.Leave(ctx, c.ID)

	stats, err := svc.Stats(ctx, model.WaitlistFilter{ProviderID: "prov-001"})
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalEntries != 4 {
		t.Errorf("total = %d, want 4", stats.TotalEntries)
	}
	if stats.Waiting != 1 {
		t.Errorf("waiting = %d, want 1", stats.Waiting)
	}
	if stats.Notified != 1 {
		t.Errorf("notified = %d, want 1", stats.Notified)
	}
	if stats.Converted != 1 {
		t.Errorf("converted = %d, want 1", stats.Converted)
	}
	if want := 0.25; stats.ConversionRate != want {
		t.Errorf("conversion rate = %f, want %f", stats.ConversionRate, want)
	}
}

func TestScanForSlot(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	slot := &model.Slot{
		ID:               "slot-scan",
		ProviderID:       "prov-001",
		LocationID:       "loc-001",
		Date:             date,
		StartTime:        "09:00",
		AppointmentTypes: []string{model.TypeFollowUp, model.TypeNewPatient},
	}

	t.Run("first matching position wins", func(t *testing.T) {
		svc, _ := newTestService(t)
		ctx := context.Background()

		first, _ := svc.Join(ctx, validRequest())
		_, _ = svc.Join(ctx, validRequest())

		got, err := svc.ScanForSlot(ctx, slot)
		if err != nil {
			t.Fatalf("ScanForSlot() error = %v", err)
		}
		if got == nil || got.ID != first.ID {
			t.Fatalf("ScanForSlot() = %+v, want entry %s", got, first.ID)
		}
		if got.Status != model.WaitlistNotified {
			t.Errorf("notified entry status = %s, want notified", got.Status)
		}
	})

	t.Run("urgent entry jumps the queue", func(t *testing.T) {
		svc, _ := newTestService(t)
		ctx := context.Background()

		_, _ = svc.Join(ctx, validRequest())
		urgentReq := validRequest()
		urgentReq.Urgency = model.UrgencyUrgent
		urgent, _ := svc.Join(ctx, urgentReq)

		got, err := svc.ScanForSlot(ctx, slot)
		if err != nil {
			t.Fatalf("ScanForSlot() error = %v", err)
		}
		if got == nil || got.ID != urgent.ID {
			t.Fatalf("ScanForSlot() = %+v, want urgent entry %s", got, urgent.ID)
		}
	})

	t.Run("preferences filter candidates", func(t *testing.T) {
		svc, _ := newTestService(t)
		ctx := context.Background()

		eveningReq := validRequest()
		eveningReq.PreferredTimeOfDay = "evening"
		_, _ = svc.Join(ctx, eveningReq)

		otherDateReq := validRequest()
		otherDateReq.PreferredDates = []string{"2026-09-11"}
		_, _ = svc.Join(ctx, otherDateReq)

		matchReq := validRequest()
		matchReq.PreferredTimeOfDay = "morning"
		matchReq.PreferredDates = []string{"2026-09-10"}
		match, _ := svc.Join(ctx, matchReq)

		got, err := svc.ScanForSlot(ctx, slot)
		if err != nil {
			t.Fatalf("ScanForSlot() error = %v", err)
		}
		if got == nil || got.ID != match.ID {
			t.Fatalf("ScanForSlot() = %+v, want entry %s", got, match.ID)
		}
	})

	t.Run("no match returns nil", func(t *testing.T) {
		svc, _ := newTestService(t)
		ctx := context.Background()

		req := validRequest()
		req.ProviderID = "prov-002"
		req.AppointmentType = model.TypeConsultation
		_, err := svc.Join(ctx, req)
		if err != nil {
			t.Fatalf("Join() error = %v", err)
		}

		got, err := svc.ScanForSlot(ctx, slot)
		if err != nil {
			t.Fatalf("ScanForSlot() error = %v", err)
		}
		if got != nil {
			t.Errorf("ScanForSlot() = %+v, want nil", got)
		}
	})
}

func TestRepositoryErrorSurfacesAsInternal(t *testing.T) {
	svc, _ := newTestService(t)
	svc.repo = failingRepo{}

	_, err := svc.Stats(context.Background(), model.WaitlistFilter{})
	if err == nil {
		t.Fatal("Stats() expected error, got nil")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInternal {
		t.Errorf("Stats() code = %s, want %s", apperrors.AsAppError(err).Code, apperrors.CodeInternal)
	}
}

type failingRepo struct{}

var errRepoDown = errors.New("repository unavailable")

func (failingRepo) Create(context.Context, *model.WaitlistEntry) error { return errRepoDown }
func (failingRepo) FindByID(context.Context, string) (*model.WaitlistEntry, error) {
	return nil, errRepoDown
}
func (failingRepo) Update(context.Context, *model.WaitlistEntry) error { return errRepoDown }
func (failingRepo) FindByProvider(context.Context, string, model.WaitlistStatus, int) ([]*model.WaitlistEntry, error) {
	return nil, errRepoDown
}
func (failingRepo) FindByPatient(context.Context, string, model.WaitlistStatus) ([]*model.WaitlistEntry, error) {
	return nil, errRepoDown
}
func (failingRepo) CountByProvider(context.Context, string, model.WaitlistStatus) (int, error) {
	return 0, errRepoDown
}
func (failingRepo) All(context.Context, model.WaitlistFilter) ([]*model.WaitlistEntry, error) {
	return nil, errRepoDown
}
