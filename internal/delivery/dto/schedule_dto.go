package dto

import "github.com/google/uuid"

// Request DTOs

type DayScheduleRequest struct {
	Weekday      int    `json:"weekday" validate:"gte=0,lte=6"` // time.Weekday numbering, Sunday = 0
	Available    bool   `json:"available"`
	StartTime    string `json:"start_time"` // Format: HH:MM
	EndTime      string `json:"end_time"`   // Format: HH:MM
	HasEvening   bool   `json:"has_evening"`
	EveningStart string `json:"evening_start"`
	EveningEnd   string `json:"evening_end"`
}

type UpdateWeekScheduleRequest struct {
	Days []DayScheduleRequest `json:"days" validate:"required,len=7,dive"`
}

// Response DTOs

type DayScheduleResponse struct {
	Weekday      int    `json:"weekday"`
	Available    bool   `json:"available"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	HasEvening   bool   `json:"has_evening"`
	EveningStart string `json:"evening_start"`
	EveningEnd   string `json:"evening_end"`
}

type WeekScheduleResponse struct {
	ProviderID uuid.UUID             `json:"provider_id"`
	Days       []DayScheduleResponse `json:"days"`
}
