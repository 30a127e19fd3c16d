package client

import (
	"context"
	"net/url"
	"pawwalk/pkg/model"
)

const IdempotencyHeader = "Idempotency-Key"

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseUrl string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

// Create submits a booking request. idempotencyKey may be empty.
func (c *BookingClient) Create(ctx context.Context, req *model.CreateBookingRequest, idempotencyKey string) (*model.Booking, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{IdempotencyHeader: idempotencyKey}
	}
	resp, err := c.httpClient.POST(ctx, "/api/v1/bookings", req, headers)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) ListByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/bookings/owner/"+url.PathEscape(ownerID))
	if err != nil {
		return nil, err
	}
	if err := toAPIError(resp); err != nil {
		return nil, err
	}
	var bookings []*model.Booking
	if err := resp.DecodeData(&bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *BookingClient) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	return c.action(ctx, id, "cancel")
}

func (c *BookingClient) Start(ctx context.Context, id string) (*model.Booking, error) {
	return c.action(ctx, id, "start")
}

func (c *BookingClient) Finish(ctx context.Context, id string) (*model.Booking, error) {
	return c.action(ctx, id, "finish")
}

func (c *BookingClient) action(ctx context.Context, id, name string) (*model.Booking, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/bookings/id/"+url.PathEscape(id)+"/"+name, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func decodeBooking(resp *Response) (*model.Booking, error) {
	if err := toAPIError(resp); err != nil {
		return nil, err
	}
	var booking model.Booking
	if err := resp.DecodeData(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}
