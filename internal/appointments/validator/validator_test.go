package validator

import (
	"testing"
	"time"

	apperrors "carebook/pkg/errors"
	"carebook/pkg/model"
)

func fixedValidator(horizonDays int, now time.Time) *AppointmentValidator {
	v := New(horizonDays)
	v.now = func() time.Time { return now }
	return v
}

func TestValidateCreate(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	v := fixedValidator(14, now)

	base := func() *model.AppointmentCreate {
		return &model.AppointmentCreate{
			PatientID:       "patient-1",
			ProviderID:      "prov-001",
			LocationID:      "loc-001",
			Date:            "2026-06-20",
			StartTime:       "09:00",
			AppointmentType: model.TypeFollowUp,
		}
	}

	t.Run("valid request", func(t *testing.T) {
		date, err := v.ValidateCreate(base())
		if err != nil {
			t.Fatalf("ValidateCreate() error = %v", err)
		}
		want := time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)
		if !date.Equal(want) {
			t.Errorf("date = %v, want %v", date, want)
		}
	})

	t.Run("today is allowed", func(t *testing.T) {
		req := base()
		req.Date = "2026-06-15"
		if _, err := v.ValidateCreate(req); err != nil {
			t.Errorf("ValidateCreate(today) error = %v", err)
		}
	})

	tests := []struct {
		name     string
		mutate   func(*model.AppointmentCreate)
		wantCode string
	}{
		{
			name:     "past date",
			mutate:   func(r *model.AppointmentCreate) { r.Date = "2026-06-14" },
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "beyond horizon",
			mutate:   func(r *model.AppointmentCreate) { r.Date = "2026-06-30" },
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "unknown type",
			mutate:   func(r *model.AppointmentCreate) { r.AppointmentType = "walk_in" },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "bad time format",
			mutate:   func(r *model.AppointmentCreate) { r.StartTime = "09:00:00" },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "oversized reason",
			mutate:   func(r *model.AppointmentCreate) { r.Reason = string(make([]byte, 501)) },
			wantCode: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(req)

			_, err := v.ValidateCreate(req)
			if err == nil {
				t.Fatal("ValidateCreate() expected error, got nil")
			}
			if code := apperrors.AsAppError(err).Code; code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	v := fixedValidator(14, now)

	t.Run("no date change", func(t *testing.T) {
		date, err := v.ValidateUpdate(&model.AppointmentUpdate{Notes: "updated"})
		if err != nil {
			t.Fatalf("ValidateUpdate() error = %v", err)
		}
		if date != nil {
			t.Errorf("date = %v, want nil", date)
		}
	})

	t.Run("valid new date", func(t *testing.T) {
		date, err := v.ValidateUpdate(&model.AppointmentUpdate{Date: "2026-06-25"})
		if err != nil {
			t.Fatalf("ValidateUpdate() error = %v", err)
		}
		if date == nil || !date.Equal(time.Date(2026, 6, 25, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("date = %v, want 2026-06-25", date)
		}
	})

	t.Run("past date rejected", func(t *testing.T) {
		_, err := v.ValidateUpdate(&model.AppointmentUpdate{Date: "2026-06-01"})
		if err == nil {
			t.Fatal("ValidateUpdate() expected error, got nil")
		}
		if code := apperrors.AsAppError(err).Code; code != apperrors.CodeInvalidInput {
			t.Errorf("code = %s, want %s", code, apperrors.CodeInvalidInput)
		}
	})
}
