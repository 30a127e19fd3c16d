package client

import (
	"context"
	"net/url"
	"pawwalk/pkg/model"
)

type PaymentClient struct {
	httpClient *HttpClient
}

func NewPaymentClient(baseUrl string) *PaymentClient {
	return &PaymentClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

func (c *PaymentClient) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/payments/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return decodePayment(resp)
}

func (c *PaymentClient) Refund(ctx context.Context, id string, amount int64) (*model.Payment, error) {
	body := map[string]int64{"amount": amount}
	resp, err := c.httpClient.POST(ctx, "/api/v1/payments/id/"+url.PathEscape(id)+"/refund", body, nil)
	if err != nil {
		return nil, err
	}
	return decodePayment(resp)
}

func (c *PaymentClient) Reconcile(ctx context.Context, id string) (*model.Payment, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/payments/id/"+url.PathEscape(id)+"/reconcile", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodePayment(resp)
}

func decodePayment(resp *Response) (*model.Payment, error) {
	if err := toAPIError(resp); err != nil {
		return nil, err
	}
	var payment model.Payment
	if err := resp.DecodeData(&payment); err != nil {
		return nil, err
	}
	return &payment, nil
}
