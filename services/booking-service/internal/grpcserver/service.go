package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service. Messages are plain structs carried
// by grpcx.JSONCodec, so clients must call with content-subtype "json".
const ServiceName = "consultbook.booking.v1.Availability"

type IsAvailableRequest struct {
	ResourceID string `json:"resource_id"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
}

type IsAvailableReply struct {
	Available  bool   `json:"available"`
	Reason     string `json:"reason"`
	ConflictID string `json:"conflict_id,omitempty"`
}

type GenerateSlotsRequest struct {
	ResourceID      string `json:"resource_id"`
	Date            string `json:"date"`
	VisitorTimezone string `json:"visitor_timezone,omitempty"`
}

type Slot struct {
	StartUTC   string `json:"start_utc"`
	EndUTC     string `json:"end_utc"`
	StartLocal string `json:"start_local"`
	EndLocal   string `json:"end_local"`
}

type GenerateSlotsReply struct {
	ResourceID      string `json:"resource_id"`
	Date            string `json:"date"`
	VisitorTimezone string `json:"visitor_timezone"`
	MinDate         string `json:"min_date"`
	MaxDate         string `json:"max_date"`
	Slots           []Slot `json:"slots"`
}

type ComputePriceRequest struct {
	ResourceID     string `json:"resource_id"`
	ConsultingType string `json:"consulting_type"`
	Service        string `json:"service,omitempty"`
	OnlinePayment  bool   `json:"online_payment"`
}

type ComputePriceReply struct {
	Currency         string `json:"currency"`
	BaseRate         string `json:"base_rate"`
	ServiceSurcharge string `json:"service_surcharge"`
	PlatformFee      string `json:"platform_fee"`
	Discount         string `json:"discount"`
	FinalAmount      string `json:"final_amount"`
}

type GetCalendarRequest struct {
	ResourceID string `json:"resource_id"`
}

type GetCalendarReply struct {
	ResourceID       string   `json:"resource_id"`
	Timezone         string   `json:"timezone"`
	ExcludedDates    []string `json:"excluded_dates"`
	DisabledWeekdays []int    `json:"disabled_weekdays"`
	MinDate          string   `json:"min_date"`
	MaxDate          string   `json:"max_date"`
}

type AvailabilityServer interface {
	IsAvailable(ctx context.Context, req *IsAvailableRequest) (*IsAvailableReply, error)
	GenerateSlots(ctx context.Context, req *GenerateSlotsRequest) (*GenerateSlotsReply, error)
	ComputePrice(ctx context.Context, req *ComputePriceRequest) (*ComputePriceReply, error)
	GetCalendar(ctx context.Context, req *GetCalendarRequest) (*GetCalendarReply, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("IsAvailable", AvailabilityServer.IsAvailable),
		unary("GenerateSlots", AvailabilityServer.GenerateSlots),
		unary("ComputePrice", AvailabilityServer.ComputePrice),
		unary("GetCalendar", AvailabilityServer.GetCalendar),
	},
	Metadata: "consultbook/booking/v1/availability",
}

func unary[Req, Reply any](name string, call func(AvailabilityServer, context.Context, *Req) (*Reply, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AvailabilityServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AvailabilityServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls the Availability service over a connection dialed with
// grpcx.DialOptions{JSON: true}.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) IsAvailable(ctx context.Context, in *IsAvailableRequest, opts ...grpc.CallOption) (*IsAvailableReply, error) {
	out := new(IsAvailableReply)
	return out, c.cc.Invoke(ctx, "/"+ServiceName+"/IsAvailable", in, out, opts...)
}

func (c *Client) GenerateSlots(ctx context.Context, in *GenerateSlotsRequest, opts ...grpc.CallOption) (*GenerateSlotsReply, error) {
	out := new(GenerateSlotsReply)
	return out, c.cc.Invoke(ctx, "/"+ServiceName+"/GenerateSlots", in, out, opts...)
}

func (c *Client) ComputePrice(ctx context.Context, in *ComputePriceRequest, opts ...grpc.CallOption) (*ComputePriceReply, error) {
	out := new(ComputePriceReply)
	return out, c.cc.Invoke(ctx, "/"+ServiceName+"/ComputePrice", in, out, opts...)
}

func (c *Client) GetCalendar(ctx context.Context, in *GetCalendarRequest, opts ...grpc.CallOption) (*GetCalendarReply, error) {
	out := new(GetCalendarReply)
	return out, c.cc.Invoke(ctx, "/"+ServiceName+"/GetCalendar", in, out, opts...)
}
