package validator

import (
	"fmt"
	"time"

	apperrors "carebook/pkg/errors"
	"carebook/pkg/model"
	"carebook/pkg/validation"
)

// AppointmentValidator enforces the request-level rules a booking must pass
// before it touches any slot state: field shape, date parseability, and the
// booking horizon.
type AppointmentValidator struct {
	horizonDays int
	now         func() time.Time
}

func New(horizonDays int) *AppointmentValidator {
	return &AppointmentValidator{
		horizonDays: horizonDays,
		now:         time.Now,
	}
}

// ValidateCreate checks the request and returns the parsed appointment date
// at midnight UTC.
func (v *AppointmentValidator) ValidateCreate(req *model.AppointmentCreate) (time.Time, error) {
	if err := validation.Struct(req); err != nil {
		return time.Time{}, err
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("Invalid date: " + req.Date)
	}
	return date, v.checkHorizon(date)
}

// ValidateUpdate checks a reschedule request. The returned date is nil when
// the update does not change the date.
func (v *AppointmentValidator) ValidateUpdate(upd *model.AppointmentUpdate) (*time.Time, error) {
	if err := validation.Struct(upd); err != nil {
		return nil, err
	}
	if upd.Date == "" {
		return nil, nil
	}

	date, err := time.ParseInLocation("2006-01-02", upd.Date, time.UTC)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid date: " + upd.Date)
	}
	if err := v.checkHorizon(date); err != nil {
		return nil, err
	}
	return &date, nil
}

func (v *AppointmentValidator) checkHorizon(date time.Time) error {
	now := v.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if date.Before(today) {
		return apperrors.InvalidInput("Appointment date is in the past: " + date.Format("2006-01-02"))
	}
	if v.horizonDays > 0 && date.After(today.AddDate(0, 0, v.horizonDays)) {
		return apperrors.InvalidInput(fmt.Sprintf(
			"Appointment date is beyond the %d-day booking horizon", v.horizonDays))
	}
	return nil
}
