package client

import (
	"net/url"
	"roombook/pkg/model"
	"strconv"
)

type RoomClient struct {
	httpClient *HttpClient
}

func NewRoomClient(baseUrl string) *RoomClient {
	return &RoomClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

func (c *RoomClient) Create(body any) (*Response, error) {
	return c.httpClient.POST("/api/v1/rooms", body)
}

func (c *RoomClient) GetByID(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/rooms/id/" + url.PathEscape(id))
}

// GetWithWindow fetches a room and whether it is free for the window.
func (c *RoomClient) GetWithWindow(id, date, startTime, endTime string) (*Response, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("start_time", startTime)
	q.Set("end_time", endTime)
	return c.httpClient.GET("/api/v1/rooms/id/" + url.PathEscape(id) + "?" + q.Encode())
}

func (c *RoomClient) Update(id string, body any) (*Response, error) {
	return c.httpClient.PATCH("/api/v1/rooms/id/"+url.PathEscape(id), body)
}

func (c *RoomClient) Delete(id string) (*Response, error) {
	return c.httpClient.DELETE("/api/v1/rooms/id/" + url.PathEscape(id))
}

// List pages through rooms. floor and minCapacity are optional.
func (c *RoomClient) List(floor, minCapacity *int, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	if floor != nil {
		q.Set("floor", itoa(*floor))
	}
	if minCapacity != nil {
		q.Set("min_capacity", itoa(*minCapacity))
	}
	q.Set("limit", itoa(limit))
	q.Set("offset", strconv.FormatInt(offset, 10))
	return c.httpClient.GET("/api/v1/rooms?" + q.Encode())
}

func (c *RoomClient) Search(search string, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	q.Set("search", search)
	q.Set("limit", itoa(limit))
	q.Set("offset", strconv.FormatInt(offset, 10))
	return c.httpClient.GET("/api/v1/rooms?" + q.Encode())
}

// Available queries free rooms. floor and minCapacity are optional.
func (c *RoomClient) Available(date, startTime, endTime string, floor, minCapacity *int) (*Response, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("start_time", startTime)
	q.Set("end_time", endTime)
	if floor != nil {
		q.Set("floor", itoa(*floor))
	}
	if minCapacity != nil {
		q.Set("min_capacity", itoa(*minCapacity))
	}
	return c.httpClient.GET("/api/v1/rooms/available?" + q.Encode())
}

func (c *RoomClient) DecodeRoom(resp *Response) (*model.Room, error) {
	var room model.Room
	if err := decodeData(resp, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *RoomClient) DecodeRoomDetail(resp *Response) (*model.RoomDetail, error) {
	var detail model.RoomDetail
	if err := decodeData(resp, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *RoomClient) DecodeRooms(resp *Response) ([]*model.Room, error) {
	var rooms []*model.Room
	if err := decodeData(resp, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *RoomClient) DecodeRoomPage(resp *Response) ([]*model.Room, *Metadata, error) {
	var rooms []*model.Room
	metadata, err := decodePage(resp, &rooms)
	if err != nil {
		return nil, nil, err
	}
	return rooms, metadata, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
