package model

import (
	"fmt"
	"strconv"
	"time"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotHeld      SlotStatus = "held"
	SlotBooked    SlotStatus = "booked"
)

type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
)

// Slot is a reservable unit of a provider's calendar. Times are kept as
// HH:MM strings so they sort lexicographically and survive JSON round-trips
// without timezone surprises; Date is midnight UTC of the calendar day.
type Slot struct {
	ID               string     `json:"id"`
	ProviderID       string     `json:"provider_id"`
	ProviderName     string     `json:"provider_name,omitempty"`
	LocationID       string     `json:"location_id"`
	LocationName     string     `json:"location_name,omitempty"`
	Date             time.Time  `json:"date"`
	StartTime        string     `json:"start_time"`
	EndTime          string     `json:"end_time"`
	DurationMinutes  int        `json:"duration_minutes"`
	AppointmentTypes []string   `json:"appointment_types"`
	Status           SlotStatus `json:"status"`
	HeldBy           string     `json:"held_by,omitempty"`
	HeldUntil        *time.Time `json:"held_until,omitempty"`
}

// NaturalKey identifies a slot by its calendar coordinates. The booking lock
// is keyed by this value, so two slots of the same provider at the same
// instant are impossible to double-commit.
func (s *Slot) NaturalKey() string {
	return SlotNaturalKey(s.ProviderID, s.Date, s.StartTime)
}

func SlotNaturalKey(providerID string, date time.Time, startTime string) string {
	return fmt.Sprintf("%s:%s:%s", providerID, date.Format("2006-01-02"), startTime)
}

// StartHour parses the hour out of StartTime. Malformed times fall into the
// morning bucket rather than failing a search.
func (s *Slot) StartHour() int {
	if len(s.StartTime) < 2 {
		return 0
	}
	hour, err := strconv.Atoi(s.StartTime[:2])
	if err != nil {
		return 0
	}
	return hour
}

// MatchesTimeOfDay buckets the slot start: morning < 12:00,
// afternoon 12:00-16:59, evening >= 17:00.
func (s *Slot) MatchesTimeOfDay(tod TimeOfDay) bool {
	hour := s.StartHour()
	switch tod {
	case Morning:
		return hour < 12
	case Afternoon:
		return hour >= 12 && hour < 17
	case Evening:
		return hour >= 17
	default:
		return true
	}
}

// SupportsType reports whether the slot is eligible for the given
// appointment type. An empty type matches any slot.
func (s *Slot) SupportsType(appointmentType string) bool {
	if appointmentType == "" {
		return true
	}
	for _, t := range s.AppointmentTypes {
		if t == appointmentType {
			return true
		}
	}
	return false
}

// HoldExpired reports whether the slot carries a hold whose expiry has
// passed. Expired holds are treated as if they never existed.
func (s *Slot) HoldExpired(now time.Time) bool {
	return s.Status == SlotHeld && s.HeldUntil != nil && !s.HeldUntil.After(now)
}

type AvailabilitySearch struct {
	ProviderID      string    `json:"provider_id,omitempty"`
	LocationID      string    `json:"location_id,omitempty"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	TimeOfDay       TimeOfDay `json:"time_of_day,omitempty"`
	AppointmentType string    `json:"appointment_type,omitempty"`
	Limit           int       `json:"limit"`
}

type CalendarDay struct {
	Date            time.Time `json:"date"`
	AvailableSlots  int       `json:"available_slots"`
	HasAvailability bool      `json:"has_availability"`
}
