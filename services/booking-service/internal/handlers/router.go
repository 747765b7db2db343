package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/consultbook/libs/httpx"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
)

// NewRouter mounts the booking API under /api/v1.
func NewRouter(h *BookingHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/resources/{resourceID}", func(r chi.Router) {
			r.Use(requireUUIDParam("resourceID", "resource_id"))
			attachResourceRoutes(r, h)
		})
		r.Route("/bookings", func(r chi.Router) {
			attachBookingRoutes(r, h)
		})
	})
	return r
}

func attachResourceRoutes(router chi.Router, h *BookingHandler) {
	router.Get("/slots", h.Slots)
	router.Get("/availability", h.Availability)
	router.Get("/calendar", h.Calendar)
	router.Get("/price", h.Price)
	router.Get("/bookings", h.ListBookings)
}

func attachBookingRoutes(router chi.Router, h *BookingHandler) {
	router.Post("/", h.Create)
	router.Route("/{bookingID}", func(r chi.Router) {
		r.Use(requireUUIDParam("bookingID", "booking_id"))
		r.Get("/", h.Get)
		r.Post("/cancel", h.Cancel)
		r.Post("/reschedule", h.Reschedule)
	})
}

// requireUUIDParam answers 400 when the path parameter is not a UUID, before any
// lookup reaches storage.
func requireUUIDParam(param, field string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			value := chi.URLParam(r, param)
			if err := validate.Var(value, "required,uuid"); err != nil {
				httpx.WriteError(w, r, http.StatusBadRequest, (&apperr.InvalidArgumentError{Field: field, Value: value}).Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
