package http

import (
	"net/http"

	"go-clinic-appointments/internal/delivery/http/handler"
	"go-clinic-appointments/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router             *mux.Router
	slotHandler        *handler.SlotHandler
	appointmentHandler *handler.AppointmentHandler
	scheduleHandler    *handler.ScheduleHandler
	authMiddleware     *middleware.AuthMiddleware
	corsMiddleware     *middleware.CORSMiddleware
}

func NewRouter(
	slotHandler *handler.SlotHandler,
	appointmentHandler *handler.AppointmentHandler,
	scheduleHandler *handler.ScheduleHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		slotHandler:        slotHandler,
		appointmentHandler: appointmentHandler,
		scheduleHandler:    scheduleHandler,
		authMiddleware:     authMiddleware,
		corsMiddleware:     corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// All booking surfaces require an authenticated caller
	protected := api.PathPrefix("").Subrouter()
	protected.Use(r.authMiddleware.Authenticate)

	// Slot discovery
	protected.HandleFunc("/providers/{providerId}/slots", r.slotHandler.GetProviderSlots).Methods(http.MethodGet)

	// Appointments
	protected.HandleFunc("/appointments", r.appointmentHandler.GetMyAppointments).Methods(http.MethodGet)
	protected.HandleFunc("/appointments", r.appointmentHandler.SubmitBooking).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{id}", r.appointmentHandler.CancelAppointment).Methods(http.MethodDelete)
	protected.HandleFunc("/appointments/{id}/complete", r.appointmentHandler.CompleteAppointment).Methods(http.MethodPost)

	// Provider schedule administration
	protected.HandleFunc("/providers/{providerId}/schedule", r.scheduleHandler.GetWeekSchedule).Methods(http.MethodGet)
	protected.HandleFunc("/providers/{providerId}/schedule", r.scheduleHandler.UpdateWeekSchedule).Methods(http.MethodPut)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
