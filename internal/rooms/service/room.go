package service

import (
	"context"
	"errors"
	roomserrors "roombook/internal/rooms/errors"
	"roombook/internal/rooms/repository"
	"roombook/internal/rooms/validator"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
	"sync"

	"github.com/google/uuid"
)

type RoomService interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id string) (*model.Room, error)
	GetAll(ctx context.Context, filter model.RoomFilter, limit int, offset int64) ([]*model.Room, int64, error)
	Update(ctx context.Context, id string, updates *model.RoomUpdate) (*model.Room, error)
	Delete(ctx context.Context, id string) error
}

// BookingGuard lets room deletion run while no admission can touch the room.
// fn receives whether any booking still references the room.
type BookingGuard interface {
	WithRoomQuiesced(ctx context.Context, roomID string, fn func(hasBookings bool) error) error
}

type roomService struct {
	repo      repository.RoomRepository
	guard     BookingGuard
	validator *validator.RoomValidator
	cfg       *config.Config
	newID     func() string
}

func NewRoomService(
	repo repository.RoomRepository,
	guard BookingGuard,
	validator *validator.RoomValidator,
	cfg *config.Config,
) RoomService {
	return &roomService{
		repo:      repo,
		guard:     guard,
		validator: validator,
		cfg:       cfg,
		newID:     uuid.NewString,
	}
}

func (s *roomService) Create(ctx context.Context, room *model.Room) error {
	room.ID = s.newID()
	room.Name = sanitizer.NormalizeRoomName(room.Name)
	if err := s.validate(room); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, room); err != nil {
		return s.mapError(err, room.ID, "Failed to create room")
	}

	s.cfg.Log.Info("Room created successfully",
		"id", room.ID,
		"name", room.Name,
		"floor", room.Floor,
		"capacity", room.Capacity,
	)
	return nil
}

func (s *roomService) GetByID(ctx context.Context, id string) (*model.Room, error) {
	id = sanitizer.NormalizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Room ID cannot be empty")
	}

	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id, "Failed to retrieve room")
	}
	return room, nil
}

func (s *roomService) GetAll(ctx context.Context, filter model.RoomFilter, limit int, offset int64) ([]*model.Room, int64, error) {
	var count int64
	var rooms []*model.Room
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count rooms", "error", errCount)
			errCount = apperrors.Internal("Failed to count rooms", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		rooms, errFind = s.repo.FindAll(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list rooms", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve rooms", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return rooms, count, nil
}

func (s *roomService) Update(ctx context.Context, id string, updates *model.RoomUpdate) (*model.Room, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Room update validation failed", "id", id, "error", err)
		return nil, validationError("Invalid update input", err)
	}

	merged := *existing
	if updates.Name != nil {
		merged.Name = sanitizer.NormalizeRoomName(*updates.Name)
	}
	if updates.Capacity != nil {
		merged.Capacity = *updates.Capacity
	}
	if updates.Floor != nil {
		merged.Floor = *updates.Floor
	}
	if err := s.validate(&merged); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &merged); err != nil {
		return nil, s.mapError(err, existing.ID, "Failed to update room")
	}

	s.cfg.Log.Info("Room updated successfully", "id", existing.ID)
	return &merged, nil
}

// Delete is rejected while any booking references the room.
func (s *roomService) Delete(ctx context.Context, id string) error {
	id = sanitizer.NormalizeID(id)
	if id == "" {
		return apperrors.InvalidInput("Room ID cannot be empty")
	}

	err := s.guard.WithRoomQuiesced(ctx, id, func(hasBookings bool) error {
		if hasBookings {
			return roomserrors.ErrHasBookings
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, roomserrors.ErrHasBookings) {
			s.cfg.Log.Warn("Room deletion rejected", "id", id, "reason", "room has bookings")
		}
		return s.mapError(err, id, "Failed to delete room")
	}

	s.cfg.Log.Info("Room deleted successfully", "id", id)
	return nil
}

func (s *roomService) validate(room *model.Room) error {
	if err := s.validator.Validate(room); err != nil {
		s.cfg.Log.Warn("Room validation failed", "error", err)
		return validationError("Room validation failed", err)
	}
	return nil
}

func (s *roomService) mapError(err error, id, message string) error {
	switch {
	case errors.Is(err, roomserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Room", id)
	case errors.Is(err, roomserrors.ErrDuplicateName):
		return apperrors.Conflict("A room with this name already exists").WithCause(err)
	case errors.Is(err, roomserrors.ErrHasBookings):
		return apperrors.Conflict("Room has bookings and cannot be deleted").
			WithDetails(map[string]any{"room_id": id}).
			WithCause(err)
	case apperrors.IsAppError(err):
		return err
	default:
		s.cfg.Log.Error(message, "id", id, "error", err)
		return apperrors.Internal(message, err)
	}
}

func validationError(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
