package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	apperrors "roombook/pkg/errors"
	"testing"
)

func TestWriteError_AppErrorUsesStatusAndCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"room conflict", apperrors.RoomConflict("room is already booked", map[string]any{"start_time": "10:00:00"}), http.StatusConflict, apperrors.CodeRoomConflict},
		{"user double booking", apperrors.UserDoubleBooking("user is busy", nil), http.StatusConflict, apperrors.CodeUserDoubleBooking},
		{"invalid window", apperrors.InvalidWindow("bad window", nil), http.StatusUnprocessableEntity, apperrors.CodeInvalidWindow},
		{"not found", apperrors.NotFoundWithID("Booking", "b1"), http.StatusNotFound, apperrors.CodeNotFound},
		{"plain error", errors.New("secret driver detail"), http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
			if body.Error == "secret driver detail" {
				t.Error("internal error message leaked to client")
			}
		})
	}
}

func TestWritePaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	WritePaginated(rec, []string{"a", "b"}, 7, 2, 4)

	var body PaginatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.TotalCount != 7 || body.Limit != 2 || body.Offset != 4 {
		t.Errorf("unexpected pagination: %+v", body)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestExtractLimitOffset(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=500&offset=-3", nil)
	limit, offset, err := ExtractLimitOffset(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 100 {
		t.Errorf("limit = %d, want capped at 100", limit)
	}
	if offset != 0 {
		t.Errorf("offset = %d, want 0", offset)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=abc", nil)
	if _, _, err := ExtractLimitOffset(req); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}
