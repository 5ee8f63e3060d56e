package service

import (
	"context"
	"errors"
	"io"
	"roombook/internal/availability/index"
	roomsrepo "roombook/internal/rooms/repository"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/logger"
	"roombook/pkg/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{Log: logger.New(logger.Config{Output: io.Discard, Level: logger.ERROR})}
}

func intPtr(v int) *int { return &v }

func seedRooms(t *testing.T) roomsrepo.RoomRepository {
	t.Helper()
	repo := roomsrepo.NewMemoryRoomRepository()
	for _, r := range []model.Room{
		{ID: "r3", Name: "Cedar", Capacity: 12, Floor: 2},
		{ID: "r1", Name: "Birch", Capacity: 4, Floor: 1},
		{ID: "r2", Name: "Aspen", Capacity: 8, Floor: 1},
	} {
		room := r
		require.NoError(t, repo.Create(context.Background(), &room))
	}
	return repo
}

func names(rooms []*model.Room) []string {
	out := make([]string, len(rooms))
	for i, r := range rooms {
		out[i] = r.Name
	}
	return out
}

func TestListAvailableRooms(t *testing.T) {
	idx := index.NewIndex()
	idx.Put(&model.Booking{
		ID:        "b1",
		RoomID:    "r2",
		UserID:    "u1",
		Date:      model.Date{Year: 2024, Month: time.June, Day: 1},
		StartTime: model.MustParseTimeOfDay("10:00:00"),
		EndTime:   model.MustParseTimeOfDay("11:00:00"),
	})
	svc := NewAvailabilityService(seedRooms(t), idx, testConfig())
	ctx := context.Background()

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "overlap excludes booked room",
			query: Query{Date: "2024-06-01", StartTime: "10:30:00", EndTime: "11:30:00"},
			want:  []string{"Birch", "Cedar"},
		},
		{
			name:  "touching window keeps room",
			query: Query{Date: "2024-06-01", StartTime: "11:00:00", EndTime: "12:00:00"},
			want:  []string{"Aspen", "Birch", "Cedar"},
		},
		{
			name:  "other day is free",
			query: Query{Date: "2024-06-02", StartTime: "10:00:00", EndTime: "11:00:00"},
			want:  []string{"Aspen", "Birch", "Cedar"},
		},
		{
			name:  "floor filter",
			query: Query{Date: "2024-06-01", StartTime: "09:00", EndTime: "09:30", Filter: model.RoomFilter{Floor: intPtr(1)}},
			want:  []string{"Aspen", "Birch"},
		},
		{
			name:  "capacity filter",
			query: Query{Date: "2024-06-01", StartTime: "10:00", EndTime: "10:30", Filter: model.RoomFilter{MinCapacity: intPtr(5)}},
			want:  []string{"Cedar"},
		},
		{
			name:  "name search",
			query: Query{Date: "2024-06-01", StartTime: "09:00", EndTime: "09:30", Filter: model.RoomFilter{Search: "ced"}},
			want:  []string{"Cedar"},
		},
		{
			name:  "no candidates is empty, not an error",
			query: Query{Date: "2024-06-01", StartTime: "10:00", EndTime: "10:30", Filter: model.RoomFilter{Floor: intPtr(9)}},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms, err := svc.ListAvailableRooms(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(rooms))
		})
	}
}

func TestListAvailableRooms_InvalidQueries(t *testing.T) {
	svc := NewAvailabilityService(seedRooms(t), index.NewIndex(), testConfig())
	ctx := context.Background()

	tests := []struct {
		name  string
		query Query
		code  string
	}{
		{"missing date", Query{StartTime: "10:00", EndTime: "11:00"}, apperrors.CodeValidation},
		{"bad date", Query{Date: "June 1", StartTime: "10:00", EndTime: "11:00"}, apperrors.CodeInvalidInput},
		{"bad time", Query{Date: "2024-06-01", StartTime: "10h", EndTime: "11:00"}, apperrors.CodeInvalidInput},
		{"empty window", Query{Date: "2024-06-01", StartTime: "10:00", EndTime: "10:00"}, apperrors.CodeInvalidWindow},
		{"reversed window", Query{Date: "2024-06-01", StartTime: "11:00", EndTime: "10:00"}, apperrors.CodeInvalidWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListAvailableRooms(ctx, tt.query)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

type failingRooms struct{}

func (failingRooms) FindAll(context.Context, model.RoomFilter, int, int64) ([]*model.Room, error) {
	return nil, errors.New("mongo down")
}

func TestListAvailableRooms_StoreFailure(t *testing.T) {
	svc := NewAvailabilityService(failingRooms{}, index.NewIndex(), testConfig())

	_, err := svc.ListAvailableRooms(context.Background(), Query{Date: "2024-06-01", StartTime: "10:00", EndTime: "11:00"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}

func TestIsRoomFree(t *testing.T) {
	idx := index.NewIndex()
	idx.Put(&model.Booking{
		ID:        "b1",
		RoomID:    "r2",
		UserID:    "u1",
		Date:      model.Date{Year: 2024, Month: time.June, Day: 1},
		StartTime: model.MustParseTimeOfDay("10:00:00"),
		EndTime:   model.MustParseTimeOfDay("11:00:00"),
	})
	svc := NewAvailabilityService(seedRooms(t), idx, testConfig())
	ctx := context.Background()

	free, err := svc.IsRoomFree(ctx, "r2", "2024-06-01", "10:30", "11:30")
	require.NoError(t, err)
	assert.False(t, free)

	free, err = svc.IsRoomFree(ctx, "r2", "2024-06-01", "11:00", "12:00")
	require.NoError(t, err)
	assert.True(t, free, "touching windows do not overlap")

	free, err = svc.IsRoomFree(ctx, "r1", "2024-06-01", "10:00", "11:00")
	require.NoError(t, err)
	assert.True(t, free)

	_, err = svc.IsRoomFree(ctx, "r2", "2024-06-01", "", "11:00")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)

	_, err = svc.IsRoomFree(ctx, "r2", "2024-06-01", "11:00", "10:00")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidWindow), "got %v", err)
}
