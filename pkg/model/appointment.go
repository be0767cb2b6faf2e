package model

import "time"

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCheckedIn AppointmentStatus = "checked_in"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

// Terminal reports whether no further status transitions are allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled || s == AppointmentNoShow
}

const (
	TypeNewPatient    = "new_patient"
	TypeFollowUp      = "follow_up"
	TypeConsultation  = "consultation"
	TypeUrgent        = "urgent"
	TypeTelehealth    = "telehealth"
	TypeAnnualCheckup = "annual_checkup"
)

func ValidAppointmentType(t string) bool {
	switch t {
	case TypeNewPatient, TypeFollowUp, TypeConsultation, TypeUrgent, TypeTelehealth, TypeAnnualCheckup:
		return true
	}
	return false
}

// Appointment is the durable record of a committed booking. Cancellation is
// a status change, never a delete; the slot itself carries the availability
// invariant.
type Appointment struct {
	ID                 string            `json:"id" bson:"_id"`
	PatientID          string            `json:"patient_id" bson:"patient_id"`
	ProviderID         string            `json:"provider_id" bson:"provider_id"`
	LocationID         string            `json:"location_id" bson:"location_id"`
	Date               time.Time         `json:"date" bson:"date"`
	StartTime          string            `json:"start_time" bson:"start_time"`
	EndTime            string            `json:"end_time" bson:"end_time"`
	DurationMinutes    int               `json:"duration_minutes" bson:"duration_minutes"`
	AppointmentType    string            `json:"appointment_type" bson:"appointment_type"`
	Status             AppointmentStatus `json:"status" bson:"status"`
	Reason             string            `json:"reason,omitempty" bson:"reason,omitempty"`
	Notes              string            `json:"notes,omitempty" bson:"notes,omitempty"`
	Telehealth         bool              `json:"telehealth" bson:"telehealth"`
	CheckedInAt        *time.Time        `json:"checked_in_at,omitempty" bson:"checked_in_at,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	NoShowAt           *time.Time        `json:"no_show_at,omitempty" bson:"no_show_at,omitempty"`
	CancellationReason string            `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	CreatedAt          time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at" bson:"updated_at"`
}

type AppointmentCreate struct {
	PatientID       string `json:"patient_id" validate:"required"`
	ProviderID      string `json:"provider_id" validate:"required"`
	LocationID      string `json:"location_id" validate:"required"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required,datetime=15:04"`
	AppointmentType string `json:"appointment_type" validate:"required,appointment_type"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=5,max=480"`
	Reason          string `json:"reason,omitempty" validate:"omitempty,max=500"`
	Notes           string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Telehealth      bool   `json:"telehealth"`

	// WaitlistEntryID links the booking back to the waitlist entry it
	// fulfills, if any. Conversion is recorded after the booking commits.
	WaitlistEntryID string `json:"waitlist_entry_id,omitempty"`
}

type AppointmentUpdate struct {
	Date      string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartTime string `json:"start_time,omitempty" validate:"omitempty,datetime=15:04"`
	Reason    string `json:"reason,omitempty" validate:"omitempty,max=500"`
	Notes     string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// Reschedules reports whether the update moves the appointment in time and
// therefore needs the full lock-verify-commit sequence against the new slot.
func (u *AppointmentUpdate) Reschedules() bool {
	return u.Date != "" || u.StartTime != ""
}

type AppointmentFilter struct {
	ProviderID string
	LocationID string
	PatientID  string
	Date       *time.Time
	Status     AppointmentStatus
}
