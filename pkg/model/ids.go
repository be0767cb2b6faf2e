package model

import (
	"strings"

	"github.com/google/uuid"
)

func NewAppointmentID() string {
	return "apt-" + shortID(12)
}

func NewSlotID() string {
	return "slot-" + shortID(8)
}

func NewHoldID() string {
	return "hold-" + shortID(8)
}

func NewWaitlistEntryID() string {
	return "wl-" + shortID(12)
}

func shortID(n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(hex) {
		n = len(hex)
	}
	return hex[:n]
}
