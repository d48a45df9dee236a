package handler

import (
	"net/http"

	"go-clinic-appointments/internal/usecase"
	"go-clinic-appointments/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type SlotHandler struct {
	slotUsecase usecase.SlotUsecase
}

func NewSlotHandler(slotUsecase usecase.SlotUsecase) *SlotHandler {
	return &SlotHandler{slotUsecase: slotUsecase}
}

func (h *SlotHandler) GetProviderSlots(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	providerID, err := uuid.Parse(vars["providerId"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid provider ID", nil)
		return
	}

	slots, err := h.slotUsecase.GetWeekSlots(r.Context(), providerID)
	if err != nil {
		response.InternalServerError(w, "Failed to get available slots")
		return
	}

	response.Success(w, http.StatusOK, "Slots retrieved successfully", slots)
}
