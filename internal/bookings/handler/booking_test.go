package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"roombook/internal/bookings/service"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/logger"
	"roombook/pkg/model"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

type mockBookingService struct {
	service.BookingService

	createReq   *model.BookingRequest
	createErr   error
	filter      model.BookingFilter
	cancelErr   error
	cancelledID string
}

func (m *mockBookingService) CreateBooking(_ context.Context, req *model.BookingRequest) (*model.Booking, error) {
	m.createReq = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &model.Booking{ID: "b1", RoomID: req.RoomID, UserID: req.UserID}, nil
}

func (m *mockBookingService) GetAll(_ context.Context, filter model.BookingFilter, _ int, _ int64) ([]*model.Booking, int64, error) {
	m.filter = filter
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) CancelBooking(_ context.Context, id string) error {
	m.cancelledID = id
	return m.cancelErr
}

func newTestRouter(svc service.BookingService) *httprouter.Router {
	log := logger.New(logger.Config{Output: io.Discard, Level: logger.ERROR})
	router := httprouter.New()
	NewBookingHandler(svc, log).RegisterRoutes(router)
	return router
}

func TestCreate_UserHeaderOverridesBody(t *testing.T) {
	svc := &mockBookingService{}
	router := newTestRouter(svc)

	body := `{"room_id":"R101","user_id":"mallory","date":"2024-06-01","start_time":"10:00:00","end_time":"11:00:00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("X-User-ID", "alice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if svc.createReq.UserID != "alice" {
		t.Errorf("user = %q, want the header identity", svc.createReq.UserID)
	}
}

func TestCreate_BodyUserWithoutHeader(t *testing.T) {
	svc := &mockBookingService{}
	router := newTestRouter(svc)

	body := `{"room_id":"R101","user_id":"bob","date":"2024-06-01","start_time":"10:00:00","end_time":"11:00:00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if svc.createReq.UserID != "bob" {
		t.Errorf("user = %q, want bob", svc.createReq.UserID)
	}
}

func TestCreate_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid window", apperrors.InvalidWindow("start must be before end", nil), http.StatusUnprocessableEntity, "INVALID_WINDOW"},
		{"room conflict", apperrors.RoomConflict("Room is already booked", nil), http.StatusConflict, "ROOM_CONFLICT"},
		{"user double booking", apperrors.UserDoubleBooking("User already has a booking", nil), http.StatusConflict, "USER_DOUBLE_BOOKING"},
		{"not found", apperrors.NotFoundWithID("Room", "R9"), http.StatusNotFound, "NOT_FOUND"},
		{"unexpected", context.DeadlineExceeded, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockBookingService{createErr: tt.err})

			body := `{"room_id":"R101","user_id":"u","date":"2024-06-01","start_time":"10:00:00","end_time":"11:00:00"}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), `"code":"`+tt.wantCode+`"`) {
				t.Errorf("body %s does not carry code %s", w.Body.String(), tt.wantCode)
			}
		})
	}
}

func TestGetAll_Filters(t *testing.T) {
	svc := &mockBookingService{}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?room_id=R101&user_id=alice&date=2024-06-01", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.filter.RoomID != "R101" || svc.filter.UserID != "alice" || svc.filter.Date.String() != "2024-06-01" {
		t.Errorf("unexpected filter: %+v", svc.filter)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings?date=June", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date: expected 400, got %d", w.Code)
	}
}

func TestCancel(t *testing.T) {
	svc := &mockBookingService{}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/id/b1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if svc.cancelledID != "b1" {
		t.Errorf("cancelled id = %q", svc.cancelledID)
	}

	svc.cancelErr = apperrors.NotFoundWithID("Booking", "b1")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/id/b1", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
