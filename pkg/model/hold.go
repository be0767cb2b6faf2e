package model

import "time"

type HoldStatus string

const (
	HoldActive    HoldStatus = "active"
	HoldReleased  HoldStatus = "released"
	HoldExpired   HoldStatus = "expired"
	HoldConverted HoldStatus = "converted"
)

// Hold is a short-lived, non-binding claim on a slot. At most one active
// hold exists per slot; expiry is a fixed instant computed at creation.
type Hold struct {
	ID        string     `json:"id"`
	SlotID    string     `json:"slot_id"`
	PatientID string     `json:"patient_id"`
	HeldAt    time.Time  `json:"held_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	Status    HoldStatus `json:"status"`
}
