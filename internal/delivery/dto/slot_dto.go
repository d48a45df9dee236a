package dto

import "github.com/google/uuid"

// Response DTOs

type SlotResponse struct {
	Time           string `json:"time"`  // Normalized 24-hour key, e.g. "09:10"
	Label          string `json:"label"` // Display form, e.g. "9:10 AM"
	BookedByOthers bool   `json:"booked_by_others"`
	BookedByMe     bool   `json:"booked_by_me"`
}

type DaySlotsResponse struct {
	Date    string         `json:"date"` // Format: YYYY-MM-DD
	Weekday string         `json:"weekday"`
	Slots   []SlotResponse `json:"slots"`
}

type WeekSlotsResponse struct {
	ProviderID uuid.UUID          `json:"provider_id"`
	Days       []DaySlotsResponse `json:"days"`
}
