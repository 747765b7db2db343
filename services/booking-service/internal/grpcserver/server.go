package grpcserver

import (
	"context"
	"errors"
	"time"

	"github.com/golang-sql/civil"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/scheduling"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Queries interface {
	Slots(ctx context.Context, req scheduling.SlotsRequest) (scheduling.DaySlots, error)
	IsAvailable(ctx context.Context, resourceID string, start, end time.Time) (availability.Result, error)
	Calendar(ctx context.Context, resourceID string) (scheduling.Calendar, error)
	ComputePrice(ctx context.Context, req scheduling.PriceRequest) (scheduling.Price, error)
}

type server struct {
	queries Queries
}

func Register(grpcServer *grpc.Server, queries Queries) {
	grpcServer.RegisterService(&ServiceDesc, &server{queries: queries})
}

func (s *server) IsAvailable(ctx context.Context, req *IsAvailableRequest) (*IsAvailableReply, error) {
	if req.ResourceID == "" {
		return nil, status.Error(codes.InvalidArgument, "resource_id is required")
	}
	res, err := s.queries.IsAvailable(ctx, req.ResourceID, time.Unix(req.Start, 0).UTC(), time.Unix(req.End, 0).UTC())
	if err != nil {
		return nil, toStatus(err)
	}
	return &IsAvailableReply{Available: res.Available, Reason: string(res.Reason), ConflictID: res.ConflictID}, nil
}

func (s *server) GenerateSlots(ctx context.Context, req *GenerateSlotsRequest) (*GenerateSlotsReply, error) {
	if req.ResourceID == "" {
		return nil, status.Error(codes.InvalidArgument, "resource_id is required")
	}
	date, err := civil.ParseDate(req.Date)
	if err != nil || !date.IsValid() {
		return nil, status.Error(codes.InvalidArgument, "date must be YYYY-MM-DD")
	}
	day, err := s.queries.Slots(ctx, scheduling.SlotsRequest{
		ResourceID:  req.ResourceID,
		Date:        date,
		VisitorZone: req.VisitorTimezone,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	out := &GenerateSlotsReply{
		ResourceID:      day.ResourceID,
		Date:            day.Date.String(),
		VisitorTimezone: day.VisitorZone,
		MinDate:         day.Bounds.Min.String(),
		MaxDate:         day.Bounds.Max.String(),
		Slots:           make([]Slot, 0, len(day.Slots)),
	}
	for _, sl := range day.Slots {
		out.Slots = append(out.Slots, Slot{
			StartUTC:   sl.StartUTC.Format(time.RFC3339),
			EndUTC:     sl.EndUTC.Format(time.RFC3339),
			StartLocal: sl.StartLocal.Format(time.RFC3339),
			EndLocal:   sl.EndLocal.Format(time.RFC3339),
		})
	}
	return out, nil
}

func (s *server) ComputePrice(ctx context.Context, req *ComputePriceRequest) (*ComputePriceReply, error) {
	p, err := s.queries.ComputePrice(ctx, scheduling.PriceRequest{
		ResourceID:     req.ResourceID,
		ConsultingType: model.ConsultingType(req.ConsultingType),
		Service:        req.Service,
		OnlinePayment:  req.OnlinePayment,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ComputePriceReply{
		Currency:         p.Currency,
		BaseRate:         p.Quote.BaseRate.String(),
		ServiceSurcharge: p.Quote.ServiceSurcharge.String(),
		PlatformFee:      p.Quote.PlatformFee.String(),
		Discount:         p.Quote.Discount.String(),
		FinalAmount:      p.Quote.FinalAmount.String(),
	}, nil
}

func (s *server) GetCalendar(ctx context.Context, req *GetCalendarRequest) (*GetCalendarReply, error) {
	cal, err := s.queries.Calendar(ctx, req.ResourceID)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &GetCalendarReply{
		ResourceID:       cal.ResourceID,
		Timezone:         cal.Timezone,
		ExcludedDates:    make([]string, 0, len(cal.Exclusions.ExcludedDates)),
		DisabledWeekdays: cal.Exclusions.DisabledWeekdays,
		MinDate:          cal.Bounds.Min.String(),
		MaxDate:          cal.Bounds.Max.String(),
	}
	for _, d := range cal.Exclusions.ExcludedDates {
		out.ExcludedDates = append(out.ExcludedDates, d.String())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case apperr.IsInvalidInput(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, apperr.ErrSlotUnavailable), errors.Is(err, apperr.ErrNotCancellable), errors.Is(err, apperr.ErrLocked):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
