package converter

import (
	"go-clinic-appointments/internal/delivery/dto"
	"go-clinic-appointments/internal/scheduling"

	"github.com/google/uuid"
)

// WeekSlotsToResponse annotates generated days against the requester's own
// holds and flattens them into the response DTO.
func WeekSlotsToResponse(providerID uuid.UUID, days []scheduling.DaySlots, held scheduling.HeldSlots) *dto.WeekSlotsResponse {
	dayResponses := make([]dto.DaySlotsResponse, len(days))
	for i, day := range days {
		dateKey := scheduling.DateKey(day.Date)
		slots := make([]dto.SlotResponse, len(day.Slots))
		for j, slot := range day.Slots {
			class := scheduling.Classify(dateKey, slot, held)
			slots[j] = dto.SlotResponse{
				Time:           slot.TimeKey,
				Label:          slot.Label,
				BookedByOthers: class == scheduling.SlotHeldByOther,
				BookedByMe:     class == scheduling.SlotHeldByRequester,
			}
		}
		dayResponses[i] = dto.DaySlotsResponse{
			Date:    day.Date.Format("2006-01-02"),
			Weekday: day.Date.Weekday().String(),
			Slots:   slots,
		}
	}
	return &dto.WeekSlotsResponse{
		ProviderID: providerID,
		Days:       dayResponses,
	}
}
