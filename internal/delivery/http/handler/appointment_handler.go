package handler

import (
	"encoding/json"
	"net/http"

	"go-clinic-appointments/internal/usecase"
	"go-clinic-appointments/pkg/response"
	"go-clinic-appointments/pkg/validator"

	"go-clinic-appointments/internal/delivery/dto"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	bookingUsecase usecase.BookingUsecase
	validator      *validator.CustomValidator
}

func NewAppointmentHandler(bookingUsecase usecase.BookingUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		bookingUsecase: bookingUsecase,
		validator:      validator,
	}
}

func (h *AppointmentHandler) GetMyAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.bookingUsecase.GetMyAppointments(r.Context())
	if err != nil {
		if rejection, ok := usecase.AsRejection(err); ok {
			response.Error(w, rejectionStatus(rejection.Reason), rejection.Message, string(rejection.Reason))
			return
		}
		response.InternalServerError(w, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	var req dto.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.bookingUsecase.SubmitBooking(r.Context(), &req)
	if err != nil {
		if rejection, ok := usecase.AsRejection(err); ok {
			response.Error(w, rejectionStatus(rejection.Reason), rejection.Message, string(rejection.Reason))
			return
		}
		response.InternalServerError(w, "Failed to submit booking")
		return
	}

	status := http.StatusCreated
	if req.RescheduleID != nil {
		status = http.StatusOK
	}
	response.Success(w, status, "Appointment booked successfully", appointment)
}

func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	err = h.bookingUsecase.CancelAppointment(r.Context(), appointmentID)
	if err != nil {
		h.writeLifecycleError(w, err, "Failed to cancel appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment cancelled successfully", nil)
}

func (h *AppointmentHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	err = h.bookingUsecase.CompleteAppointment(r.Context(), appointmentID)
	if err != nil {
		h.writeLifecycleError(w, err, "Failed to complete appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment completed successfully", nil)
}

func (h *AppointmentHandler) writeLifecycleError(w http.ResponseWriter, err error, fallback string) {
	if rejection, ok := usecase.AsRejection(err); ok {
		response.Error(w, rejectionStatus(rejection.Reason), rejection.Message, string(rejection.Reason))
		return
	}
	switch err {
	case usecase.ErrAppointmentNotFound:
		response.NotFound(w, "Appointment not found")
	case usecase.ErrAppointmentNotOwned:
		response.Forbidden(w, "Appointment does not belong to you")
	case usecase.ErrAppointmentFinalized:
		response.Error(w, http.StatusConflict, "Appointment is already cancelled or completed", nil)
	default:
		response.InternalServerError(w, fallback)
	}
}

// rejectionStatus maps coordinator reason codes onto HTTP statuses.
// Validation-class reasons are 400s, conflict-class 409s.
func rejectionStatus(reason usecase.RejectReason) int {
	switch reason {
	case usecase.ReasonNoIdentity:
		return http.StatusUnauthorized
	case usecase.ReasonNoSlotSelected, usecase.ReasonSlotElapsed:
		return http.StatusBadRequest
	case usecase.ReasonSelfConflict, usecase.ReasonOtherConflict, usecase.ReasonSlotTaken:
		return http.StatusConflict
	case usecase.ReasonNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
