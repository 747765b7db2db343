package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-sql/civil"
	"github.com/md-rashed-zaman/consultbook/libs/httpx"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/reservations"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/scheduling"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/slots"
)

const (
	HeaderTimezone = "X-Timezone"
	CookieTimezone = "visitor_timezone"
)

// Queries is the read side served by scheduling.Service.
type Queries interface {
	Slots(ctx context.Context, req scheduling.SlotsRequest) (scheduling.DaySlots, error)
	IsAvailable(ctx context.Context, resourceID string, start, end time.Time) (availability.Result, error)
	Calendar(ctx context.Context, resourceID string) (scheduling.Calendar, error)
	ComputePrice(ctx context.Context, req scheduling.PriceRequest) (scheduling.Price, error)
}

// Bookings is the write side served by reservations.Service.
type Bookings interface {
	Confirm(ctx context.Context, req reservations.ConfirmRequest) (model.Booking, error)
	Cancel(ctx context.Context, bookingID string, party model.CancelParty, notes string) (model.Booking, error)
	Reschedule(ctx context.Context, bookingID string, newStart time.Time) (model.Booking, error)
	Get(ctx context.Context, bookingID string) (model.Booking, error)
	List(ctx context.Context, resourceID string, from, to time.Time) ([]model.Booking, error)
}

type BookingHandler struct {
	queries  Queries
	bookings Bookings
	logger   *slog.Logger
}

func NewBookingHandler(queries Queries, bookings Bookings, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{queries: queries, bookings: bookings, logger: logger}
}

type slotItem struct {
	StartUTC   string `json:"start_utc"`
	EndUTC     string `json:"end_utc"`
	StartLocal string `json:"start_local"`
	EndLocal   string `json:"end_local"`
	Label      string `json:"label"`
}

type slotsResponse struct {
	ResourceID      string     `json:"resource_id"`
	Date            string     `json:"date"`
	VisitorTimezone string     `json:"visitor_timezone"`
	MinDate         string     `json:"min_date"`
	MaxDate         string     `json:"max_date"`
	Slots           []slotItem `json:"slots"`
}

type availabilityResponse struct {
	ResourceID string `json:"resource_id"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
	Available  bool   `json:"available"`
	Reason     string `json:"reason"`
	ConflictID string `json:"conflict_id,omitempty"`
}

type calendarResponse struct {
	ResourceID       string   `json:"resource_id"`
	Timezone         string   `json:"timezone"`
	FromYear         int      `json:"from_year"`
	ToYear           int      `json:"to_year"`
	ExcludedDates    []string `json:"excluded_dates"`
	DisabledWeekdays []int    `json:"disabled_weekdays"`
	MinDate          string   `json:"min_date"`
	MaxDate          string   `json:"max_date"`
}

type priceResponse struct {
	ResourceID       string `json:"resource_id"`
	ConsultingType   string `json:"consulting_type"`
	Service          string `json:"service,omitempty"`
	Currency         string `json:"currency"`
	BaseRate         string `json:"base_rate"`
	ServiceSurcharge string `json:"service_surcharge"`
	PlatformFee      string `json:"platform_fee"`
	Discount         string `json:"discount"`
	FinalAmount      string `json:"final_amount"`
}

type bookingResponse struct {
	BookingID         string `json:"booking_id"`
	ResourceID        string `json:"resource_id"`
	CustomerID        string `json:"customer_id,omitempty"`
	CustomerName      string `json:"customer_name"`
	Title             string `json:"title"`
	Start             string `json:"start"`
	End               string `json:"end"`
	State             string `json:"state"`
	ConsultingType    string `json:"consulting_type"`
	OrderID           string `json:"order_id,omitempty"`
	Notes             string `json:"notes,omitempty"`
	CancellationNotes string `json:"cancellation_notes,omitempty"`
}

type listBookingsResponse struct {
	ResourceID string            `json:"resource_id"`
	Bookings   []bookingResponse `json:"bookings"`
}

type createBookingRequest struct {
	ResourceID     string `json:"resource_id" validate:"required,uuid"`
	Start          string `json:"start" validate:"required,rfc3339"`
	CustomerID     string `json:"customer_id" validate:"max=64"`
	CustomerName   string `json:"customer_name" validate:"required,max=200"`
	ConsultingType string `json:"consulting_type" validate:"required,consulting_type"`
	OrderID        string `json:"order_id" validate:"max=64"`
	Notes          string `json:"notes" validate:"max=2000"`
}

type cancelBookingRequest struct {
	CancelledBy string `json:"cancelled_by" validate:"required,oneof=user host"`
	Notes       string `json:"notes" validate:"max=2000"`
}

type rescheduleBookingRequest struct {
	Start string `json:"start" validate:"required,rfc3339"`
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	date, err := civil.ParseDate(raw)
	if err != nil || !date.IsValid() {
		httpx.WriteError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	day, err := h.queries.Slots(r.Context(), scheduling.SlotsRequest{
		ResourceID:  chi.URLParam(r, "resourceID"),
		Date:        date,
		VisitorZone: visitorZone(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := slotsResponse{
		ResourceID:      day.ResourceID,
		Date:            day.Date.String(),
		VisitorTimezone: day.VisitorZone,
		MinDate:         day.Bounds.Min.String(),
		MaxDate:         day.Bounds.Max.String(),
		Slots:           make([]slotItem, 0, len(day.Slots)),
	}
	for _, s := range day.Slots {
		resp.Slots = append(resp.Slots, toSlotItem(s))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	start, err := epochParam(r, "start")
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	end, err := epochParam(r, "end")
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resourceID := chi.URLParam(r, "resourceID")
	res, err := h.queries.IsAvailable(r.Context(), resourceID, start, end)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, availabilityResponse{
		ResourceID: resourceID,
		Start:      start.Unix(),
		End:        end.Unix(),
		Available:  res.Available,
		Reason:     string(res.Reason),
		ConflictID: res.ConflictID,
	})
}

func (h *BookingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	cal, err := h.queries.Calendar(r.Context(), chi.URLParam(r, "resourceID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	resp := calendarResponse{
		ResourceID:       cal.ResourceID,
		Timezone:         cal.Timezone,
		FromYear:         cal.FromYear,
		ToYear:           cal.ToYear,
		ExcludedDates:    make([]string, 0, len(cal.Exclusions.ExcludedDates)),
		DisabledWeekdays: cal.Exclusions.DisabledWeekdays,
		MinDate:          cal.Bounds.Min.String(),
		MaxDate:          cal.Bounds.Max.String(),
	}
	if resp.DisabledWeekdays == nil {
		resp.DisabledWeekdays = []int{}
	}
	for _, d := range cal.Exclusions.ExcludedDates {
		resp.ExcludedDates = append(resp.ExcludedDates, d.String())
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) Price(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	online := false
	if raw := strings.TrimSpace(q.Get("online_payment")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "online_payment must be a boolean")
			return
		}
		online = v
	}
	ct := model.ConsultingType(strings.TrimSpace(q.Get("type")))
	if ct == "" {
		ct = model.ConsultingInPerson
	}

	p, err := h.queries.ComputePrice(r.Context(), scheduling.PriceRequest{
		ResourceID:     chi.URLParam(r, "resourceID"),
		ConsultingType: ct,
		Service:        strings.TrimSpace(q.Get("service")),
		OnlinePayment:  online,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, priceResponse{
		ResourceID:       p.ResourceID,
		ConsultingType:   string(p.ConsultingType),
		Service:          p.Service,
		Currency:         p.Currency,
		BaseRate:         p.Quote.BaseRate.String(),
		ServiceSurcharge: p.Quote.ServiceSurcharge.String(),
		PlatformFee:      p.Quote.PlatformFee.String(),
		Discount:         p.Quote.Discount.String(),
		FinalAmount:      p.Quote.FinalAmount.String(),
	})
}

func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	from, err := epochParam(r, "from")
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	to, err := epochParam(r, "to")
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resourceID := chi.URLParam(r, "resourceID")
	list, err := h.bookings.List(r.Context(), resourceID, from, to)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	resp := listBookingsResponse{ResourceID: resourceID, Bookings: make([]bookingResponse, 0, len(list))}
	for _, b := range list {
		resp.Bookings = append(resp.Bookings, toBookingResponse(b))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := ValidateStruct(req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	start, _ := time.Parse(time.RFC3339, req.Start)

	b, err := h.bookings.Confirm(r.Context(), reservations.ConfirmRequest{
		ResourceID:     strings.TrimSpace(req.ResourceID),
		Start:          start,
		CustomerID:     strings.TrimSpace(req.CustomerID),
		CustomerName:   strings.TrimSpace(req.CustomerName),
		ConsultingType: model.ConsultingType(req.ConsultingType),
		OrderID:        strings.TrimSpace(req.OrderID),
		Notes:          req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Get(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := ValidateStruct(req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.bookings.Cancel(r.Context(), chi.URLParam(r, "bookingID"), model.CancelParty(req.CancelledBy), req.Notes)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := ValidateStruct(req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	start, _ := time.Parse(time.RFC3339, req.Start)

	b, err := h.bookings.Reschedule(r.Context(), chi.URLParam(r, "bookingID"), start)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperr.IsInvalidInput(err):
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		httpx.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrSlotUnavailable), errors.Is(err, apperr.ErrNotCancellable):
		httpx.WriteError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrLocked):
		w.Header().Set("Retry-After", "1")
		httpx.WriteError(w, r, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed", "err", err, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// visitorZone resolves the display zone: query parameter, then header, then cookie.
// An empty result lets the service apply its default.
func visitorZone(r *http.Request) string {
	if tz := strings.TrimSpace(r.URL.Query().Get("tz")); tz != "" {
		return tz
	}
	if tz := strings.TrimSpace(r.Header.Get(HeaderTimezone)); tz != "" {
		return tz
	}
	if c, err := r.Cookie(CookieTimezone); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func epochParam(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, errors.New(name + " is required")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, errors.New(name + " must be a unix timestamp in seconds")
	}
	return time.Unix(v, 0).UTC(), nil
}

func toSlotItem(s slots.Slot) slotItem {
	return slotItem{
		StartUTC:   s.StartUTC.Format(time.RFC3339),
		EndUTC:     s.EndUTC.Format(time.RFC3339),
		StartLocal: s.StartLocal.Format(time.RFC3339),
		EndLocal:   s.EndLocal.Format(time.RFC3339),
		Label:      s.StartLocal.Format("15:04") + " - " + s.EndLocal.Format("15:04"),
	}
}

func toBookingResponse(b model.Booking) bookingResponse {
	return bookingResponse{
		BookingID:         b.ID,
		ResourceID:        b.ResourceID,
		CustomerID:        b.CustomerID,
		CustomerName:      b.CustomerName,
		Title:             b.Title,
		Start:             b.Start.UTC().Format(time.RFC3339),
		End:               b.End.UTC().Format(time.RFC3339),
		State:             string(b.State),
		ConsultingType:    string(b.ConsultingType),
		OrderID:           b.OrderID,
		Notes:             b.Notes,
		CancellationNotes: b.CancellationNotes,
	}
}
