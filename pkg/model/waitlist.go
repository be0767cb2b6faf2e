package model

import "time"

type WaitlistStatus string

const (
	WaitlistWaiting  WaitlistStatus = "waiting"
	WaitlistNotified WaitlistStatus = "notified"
	WaitlistBooked   WaitlistStatus = "booked"
	WaitlistExpired  WaitlistStatus = "expired"
	WaitlistRemoved  WaitlistStatus = "removed"
)

const (
	UrgencyNormal   = "normal"
	UrgencyUrgent   = "urgent"
	UrgencyFlexible = "flexible"
)

type WaitlistRequest struct {
	PatientID          string   `json:"patient_id" validate:"required"`
	ProviderID         string   `json:"provider_id" validate:"required"`
	LocationID         string   `json:"location_id,omitempty"`
	PreferredDates     []string `json:"preferred_dates,omitempty" validate:"omitempty,dive,datetime=2006-01-02"`
	PreferredTimeOfDay string   `json:"preferred_time_of_day,omitempty" validate:"omitempty,oneof=morning afternoon evening"`
	AppointmentType    string   `json:"appointment_type" validate:"required,appointment_type"`
	Urgency            string   `json:"urgency,omitempty" validate:"omitempty,oneof=normal urgent flexible"`
	Notes              string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// WaitlistEntry is a standing request for notification when matching supply
// reopens. Position is a rank token assigned once at insertion; it is never
// renumbered when earlier entries leave, so gaps are expected.
type WaitlistEntry struct {
	ID                  string         `json:"id" bson:"_id"`
	PatientID           string         `json:"patient_id" bson:"patient_id"`
	ProviderID          string         `json:"provider_id" bson:"provider_id"`
	LocationID          string         `json:"location_id,omitempty" bson:"location_id,omitempty"`
	PreferredDates      []string       `json:"preferred_dates,omitempty" bson:"preferred_dates,omitempty"`
	PreferredTimeOfDay  string         `json:"preferred_time_of_day,omitempty" bson:"preferred_time_of_day,omitempty"`
	AppointmentType     string         `json:"appointment_type" bson:"appointment_type"`
	Urgency             string         `json:"urgency" bson:"urgency"`
	Status              WaitlistStatus `json:"status" bson:"status"`
	Position            int            `json:"position" bson:"position"`
	CreatedAt           time.Time      `json:"created_at" bson:"created_at"`
	NotifiedAt          *time.Time     `json:"notified_at,omitempty" bson:"notified_at,omitempty"`
	BookedAppointmentID string         `json:"booked_appointment_id,omitempty" bson:"booked_appointment_id,omitempty"`
}

type WaitlistStats struct {
	TotalEntries   int     `json:"total_entries"`
	Waiting        int     `json:"waiting"`
	Notified       int     `json:"notified"`
	Converted      int     `json:"converted"`
	ConversionRate float64 `json:"conversion_rate"`
}

type WaitlistFilter struct {
	ProviderID string
	LocationID string
}
