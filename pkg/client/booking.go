package client

import (
	"net/url"
	"roombook/pkg/model"
)

const HeaderUserID = "X-User-ID"

// BookingClient calls the bookings API on behalf of a single user.
type BookingClient struct {
	httpClient *HttpClient
	userID     string
}

func NewBookingClient(baseUrl string, userID string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseUrl),
		userID:     userID,
	}
}

func (c *BookingClient) headers() map[string]string {
	return map[string]string{HeaderUserID: c.userID}
}

func (c *BookingClient) Create(body any) (*Response, error) {
	return c.httpClient.POSTWithHeaders("/api/v1/bookings", body, c.headers())
}

func (c *BookingClient) CreateWithIdempotencyKey(body any, key string) (*Response, error) {
	headers := c.headers()
	headers["Idempotency-Key"] = key
	return c.httpClient.POSTWithHeaders("/api/v1/bookings", body, headers)
}

func (c *BookingClient) List(filter map[string]string, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	for k, v := range filter {
		if v != "" {
			q.Set(k, v)
		}
	}
	q.Set("limit", itoa(limit))
	q.Set("offset", itoa(int(offset)))
	return c.httpClient.GET("/api/v1/bookings?" + q.Encode())
}

func (c *BookingClient) GetByID(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/bookings/id/" + url.PathEscape(id))
}

func (c *BookingClient) Update(id string, body any) (*Response, error) {
	return c.httpClient.PATCHWithHeaders("/api/v1/bookings/id/"+url.PathEscape(id), body, c.headers())
}

func (c *BookingClient) Cancel(id string) (*Response, error) {
	return c.httpClient.DELETEWithHeaders("/api/v1/bookings/id/"+url.PathEscape(id), c.headers())
}

func (c *BookingClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	var booking model.Booking
	if err := decodeData(resp, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) DecodeBookings(resp *Response) ([]*model.Booking, *Metadata, error) {
	var bookings []*model.Booking
	metadata, err := decodePage(resp, &bookings)
	if err != nil {
		return nil, nil, err
	}
	return bookings, metadata, nil
}
