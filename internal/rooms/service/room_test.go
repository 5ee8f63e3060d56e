package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"roombook/internal/rooms/repository"
	"roombook/internal/rooms/validator"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/logger"
	"roombook/pkg/model"
	"testing"
)

type mockGuard struct {
	hasBookings bool
	err         error
	calls       []string
}

func (g *mockGuard) WithRoomQuiesced(_ context.Context, roomID string, fn func(hasBookings bool) error) error {
	g.calls = append(g.calls, roomID)
	if g.err != nil {
		return g.err
	}
	return fn(g.hasBookings)
}

func setupService(guard BookingGuard) (*roomService, repository.RoomRepository) {
	log := logger.New(logger.Config{Output: io.Discard, Level: logger.ERROR})
	cfg := &config.Config{Log: log}
	repo := repository.NewMemoryRoomRepository()

	svc := NewRoomService(repo, guard, validator.NewRoomValidator(log), cfg).(*roomService)
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("room-%d", seq)
	}
	return svc, repo
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Fatalf("error code = %s, want %s (%s)", appErr.Code, code, appErr.Message)
	}
}

func TestRoomService_Create(t *testing.T) {
	svc, repo := setupService(&mockGuard{})
	ctx := context.Background()

	room := &model.Room{Name: "  Board   Room ", Capacity: 12, Floor: 3}
	if err := svc.Create(ctx, room); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if room.ID != "room-1" {
		t.Errorf("ID = %q, want room-1", room.ID)
	}
	if room.Name != "Board Room" {
		t.Errorf("Name = %q, want normalized 'Board Room'", room.Name)
	}

	stored, err := repo.FindByID(ctx, room.ID)
	if err != nil {
		t.Fatalf("room not stored: %v", err)
	}
	if stored.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set on create")
	}
}

func TestRoomService_CreateValidation(t *testing.T) {
	tests := []struct {
		name string
		room model.Room
	}{
		{"missing name", model.Room{Capacity: 4}},
		{"zero capacity", model.Room{Name: "Tiny"}},
		{"negative capacity", model.Room{Name: "Tiny", Capacity: -1}},
		{"floor too high", model.Room{Name: "Sky", Capacity: 4, Floor: 501}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupService(&mockGuard{})
			room := tt.room
			assertCode(t, svc.Create(context.Background(), &room), apperrors.CodeValidation)
		})
	}
}

func TestRoomService_CreateDuplicateName(t *testing.T) {
	svc, _ := setupService(&mockGuard{})
	ctx := context.Background()

	if err := svc.Create(ctx, &model.Room{Name: "Atlas", Capacity: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertCode(t, svc.Create(ctx, &model.Room{Name: "Atlas", Capacity: 8}), apperrors.CodeConflict)
}

func TestRoomService_GetByID(t *testing.T) {
	svc, _ := setupService(&mockGuard{})
	ctx := context.Background()

	assertCode(t, func() error { _, err := svc.GetByID(ctx, "   "); return err }(), apperrors.CodeInvalidInput)
	assertCode(t, func() error { _, err := svc.GetByID(ctx, "missing"); return err }(), apperrors.CodeNotFound)
}

func TestRoomService_GetAllFiltersAndCounts(t *testing.T) {
	svc, _ := setupService(&mockGuard{})
	ctx := context.Background()

	for _, r := range []model.Room{
		{Name: "B", Capacity: 4, Floor: 2},
		{Name: "A", Capacity: 10, Floor: 2},
		{Name: "C", Capacity: 20, Floor: 1},
	} {
		room := r
		if err := svc.Create(ctx, &room); err != nil {
			t.Fatalf("create %s: %v", r.Name, err)
		}
	}

	floor := 2
	rooms, count, err := svc.GetAll(ctx, model.RoomFilter{Floor: &floor}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 || len(rooms) != 2 {
		t.Fatalf("got %d rooms (count %d), want 2", len(rooms), count)
	}
	if rooms[0].Name != "A" || rooms[1].Name != "B" {
		t.Errorf("rooms not ordered by name within floor: %s, %s", rooms[0].Name, rooms[1].Name)
	}

	minCapacity := 10
	rooms, count, err = svc.GetAll(ctx, model.RoomFilter{MinCapacity: &minCapacity}, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if len(rooms) != 1 || rooms[0].Name != "C" {
		t.Errorf("first page should hold the floor 1 room, got %+v", rooms)
	}
}

func TestRoomService_GetAllSearchesNames(t *testing.T) {
	svc, _ := setupService(&mockGuard{})
	ctx := context.Background()

	for _, r := range []model.Room{
		{Name: "Board Room", Capacity: 12, Floor: 1},
		{Name: "Focus Pod", Capacity: 2, Floor: 1},
		{Name: "Boardwalk", Capacity: 6, Floor: 2},
	} {
		room := r
		if err := svc.Create(ctx, &room); err != nil {
			t.Fatalf("create %s: %v", r.Name, err)
		}
	}

	rooms, count, err := svc.GetAll(ctx, model.RoomFilter{Search: "board"}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 || len(rooms) != 2 {
		t.Fatalf("got %d rooms (count %d), want 2", len(rooms), count)
	}

	floor := 2
	rooms, _, err = svc.GetAll(ctx, model.RoomFilter{Search: "BOARD", Floor: &floor}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "Boardwalk" {
		t.Errorf("search should combine with floor, got %+v", rooms)
	}
}

func TestRoomService_Update(t *testing.T) {
	svc, _ := setupService(&mockGuard{})
	ctx := context.Background()

	room := &model.Room{Name: "Orion", Capacity: 6, Floor: 1}
	if err := svc.Create(ctx, room); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Create(ctx, &model.Room{Name: "Vega", Capacity: 6, Floor: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	capacity := 8
	updated, err := svc.Update(ctx, room.ID, &model.RoomUpdate{Capacity: &capacity})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Capacity != 8 || updated.Name != "Orion" {
		t.Errorf("unexpected update result: %+v", updated)
	}

	taken := "Vega"
	assertCode(t, func() error {
		_, err := svc.Update(ctx, room.ID, &model.RoomUpdate{Name: &taken})
		return err
	}(), apperrors.CodeConflict)

	zero := 0
	assertCode(t, func() error {
		_, err := svc.Update(ctx, room.ID, &model.RoomUpdate{Capacity: &zero})
		return err
	}(), apperrors.CodeValidation)

	assertCode(t, func() error {
		_, err := svc.Update(ctx, "missing", &model.RoomUpdate{Capacity: &capacity})
		return err
	}(), apperrors.CodeNotFound)
}

func TestRoomService_DeleteRejectedWhileBooked(t *testing.T) {
	guard := &mockGuard{hasBookings: true}
	svc, repo := setupService(guard)
	ctx := context.Background()

	room := &model.Room{Name: "Busy", Capacity: 4}
	if err := svc.Create(ctx, room); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCode(t, svc.Delete(ctx, room.ID), apperrors.CodeConflict)
	if _, err := repo.FindByID(ctx, room.ID); err != nil {
		t.Errorf("room should survive a rejected delete: %v", err)
	}
	if len(guard.calls) != 1 || guard.calls[0] != room.ID {
		t.Errorf("guard calls = %v", guard.calls)
	}
}

func TestRoomService_Delete(t *testing.T) {
	svc, repo := setupService(&mockGuard{})
	ctx := context.Background()

	room := &model.Room{Name: "Free", Capacity: 4}
	if err := svc.Create(ctx, room); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(ctx, room.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.FindByID(ctx, room.ID); err == nil {
		t.Error("room should be gone after delete")
	}

	assertCode(t, svc.Delete(ctx, room.ID), apperrors.CodeNotFound)
	assertCode(t, svc.Delete(ctx, " "), apperrors.CodeInvalidInput)
}

func TestRoomService_DeleteGuardFailure(t *testing.T) {
	svc, _ := setupService(&mockGuard{err: errors.New("store down")})
	assertCode(t, svc.Delete(context.Background(), "room-1"), apperrors.CodeInternal)
}
