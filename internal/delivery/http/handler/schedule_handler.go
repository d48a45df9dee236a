package handler

import (
	"encoding/json"
	"net/http"

	"go-clinic-appointments/internal/delivery/dto"
	"go-clinic-appointments/internal/usecase"
	"go-clinic-appointments/pkg/response"
	"go-clinic-appointments/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ScheduleHandler struct {
	scheduleUsecase usecase.ScheduleUsecase
	validator       *validator.CustomValidator
}

func NewScheduleHandler(scheduleUsecase usecase.ScheduleUsecase, validator *validator.CustomValidator) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleUsecase: scheduleUsecase,
		validator:       validator,
	}
}

func (h *ScheduleHandler) GetWeekSchedule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	providerID, err := uuid.Parse(vars["providerId"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid provider ID", nil)
		return
	}

	schedule, err := h.scheduleUsecase.GetWeekTemplate(r.Context(), providerID)
	if err != nil {
		response.InternalServerError(w, "Failed to get schedule")
		return
	}

	response.Success(w, http.StatusOK, "Schedule retrieved successfully", schedule)
}

func (h *ScheduleHandler) UpdateWeekSchedule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	providerID, err := uuid.Parse(vars["providerId"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid provider ID", nil)
		return
	}

	var req dto.UpdateWeekScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	schedule, err := h.scheduleUsecase.ReplaceWeekTemplate(r.Context(), providerID, &req)
	if err != nil {
		switch err {
		case usecase.ErrInvalidTimeFormat, usecase.ErrInvalidSessionSpan, usecase.ErrSessionOutOfOrder:
			response.Error(w, http.StatusBadRequest, err.Error(), nil)
		default:
			response.InternalServerError(w, "Failed to update schedule")
		}
		return
	}

	response.Success(w, http.StatusOK, "Schedule updated successfully", schedule)
}
