package service

import (
	"context"
	"errors"
	"fmt"
	"roombook/internal/availability/index"
	bookingserrors "roombook/internal/bookings/errors"
	"roombook/internal/bookings/events"
	"roombook/internal/bookings/repository"
	"roombook/internal/bookings/validator"
	roomserrors "roombook/internal/rooms/errors"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/keylock"
	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxScopeRetries bounds how often an update or cancel re-locks after the
// booking moved between reading it and locking its scopes.
const maxScopeRetries = 3

type BookingService interface {
	CreateBooking(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	UpdateBooking(ctx context.Context, id string, update *model.BookingUpdate) (*model.Booking, error)
	CancelBooking(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	WithRoomQuiesced(ctx context.Context, roomID string, fn func(hasBookings bool) error) error
}

// RoomFinder resolves the room an admission targets.
type RoomFinder interface {
	FindByID(ctx context.Context, id string) (*model.Room, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	rooms     RoomFinder
	index     *index.Index
	publisher events.Publisher
	validator *validator.BookingValidator
	cfg       *config.Config

	locks *keylock.Locker
	gates *roomGates

	now   func() time.Time
	newID func() string
}

// NewBookingService builds the admission controller. lockRepo may be nil
// when distributed locks are disabled.
func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	rooms RoomFinder,
	idx *index.Index,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return newBookingService(repo, lockRepo, rooms, idx, publisher, validator, cfg)
}

func newBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	rooms RoomFinder,
	idx *index.Index,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) *bookingService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		rooms:     rooms,
		index:     idx,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
		locks:     keylock.New(),
		gates:     newRoomGates(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	s.sanitize(req)
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, validationError("Booking validation failed", err)
	}

	booking, err := bookingFromRequest(req)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	booking.ID = s.newID()

	if err := s.checkWindow(booking); err != nil {
		s.logRejected("create", booking, err)
		return nil, err
	}

	held, err := s.lockScopes(ctx, []string{booking.RoomID}, index.ScopesOf(booking))
	if err != nil {
		s.logRejected("create", booking, err)
		return nil, err
	}
	defer held.release()

	if err := s.checkRoomExists(ctx, booking.RoomID); err != nil {
		return nil, err
	}
	if err := s.checkConflicts(booking); err != nil {
		s.logRejected("create", booking, err)
		return nil, err
	}

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := held.verify(txCtx); err != nil {
			return err
		}
		return s.repo.Create(txCtx, booking)
	})
	if err != nil {
		return nil, s.mapError(err, booking.ID, "Failed to create booking")
	}
	s.index.Put(booking)

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"room_id", booking.RoomID,
		"user_id", booking.UserID,
		"date", booking.Date.String(),
		"window", booking.Window().String(),
	)
	s.publish(ctx, model.BookingEvent{Type: model.EventBookingCreated, Booking: *booking})
	return booking, nil
}

// UpdateBooking moves an existing booking. It runs the same admission steps
// as a create while ignoring the booking's own current slot.
func (s *bookingService) UpdateBooking(ctx context.Context, id string, update *model.BookingUpdate) (*model.Booking, error) {
	id = sanitizer.NormalizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	s.sanitizeUpdate(update)
	if err := s.validator.ValidateUpdate(update); err != nil {
		s.cfg.Log.Warn("Booking update validation failed", "id", id, "error", err)
		return nil, validationError("Invalid update input", err)
	}

	for attempt := 0; ; attempt++ {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, s.mapError(err, id, "Failed to retrieve booking")
		}

		merged, err := mergeBookingUpdate(existing, update)
		if err != nil {
			return nil, apperrors.InvalidInput(err.Error())
		}
		if err := s.checkWindow(merged); err != nil {
			s.logRejected("update", merged, err)
			return nil, err
		}

		scopes := append(index.ScopesOf(existing), index.ScopesOf(merged)...)
		held, err := s.lockScopes(ctx, []string{existing.RoomID, merged.RoomID}, scopes)
		if err != nil {
			s.logRejected("update", merged, err)
			return nil, err
		}

		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			held.release()
			return nil, s.mapError(err, id, "Failed to retrieve booking")
		}
		if !sameFootprint(current, existing) {
			held.release()
			if attempt+1 >= maxScopeRetries {
				return nil, apperrors.Conflict("Booking was modified concurrently, please retry").
					WithDetails(map[string]any{"booking_id": id})
			}
			continue
		}

		result, err := s.commitUpdate(ctx, held, existing, merged)
		held.release()
		return result, err
	}
}

func (s *bookingService) commitUpdate(ctx context.Context, held *heldScopes, existing, merged *model.Booking) (*model.Booking, error) {
	if merged.RoomID != existing.RoomID {
		if err := s.checkRoomExists(ctx, merged.RoomID); err != nil {
			return nil, err
		}
	}
	if err := s.checkConflicts(merged); err != nil {
		s.logRejected("update", merged, err)
		return nil, err
	}

	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := held.verify(txCtx); err != nil {
			return err
		}
		return s.repo.Update(txCtx, merged)
	})
	if err != nil {
		return nil, s.mapError(err, merged.ID, "Failed to update booking")
	}
	s.index.Put(merged)

	s.cfg.Log.Info("Booking updated successfully",
		"id", merged.ID,
		"room_id", merged.RoomID,
		"date", merged.Date.String(),
		"window", merged.Window().String(),
	)
	previous := *existing
	s.publish(ctx, model.BookingEvent{Type: model.EventBookingUpdated, Booking: *merged, Previous: &previous})
	return merged, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, id string) error {
	id = sanitizer.NormalizeID(id)
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	for attempt := 0; ; attempt++ {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return s.mapError(err, id, "Failed to retrieve booking")
		}

		held, err := s.lockScopes(ctx, []string{existing.RoomID}, index.ScopesOf(existing))
		if err != nil {
			return err
		}

		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			held.release()
			return s.mapError(err, id, "Failed to retrieve booking")
		}
		if !sameFootprint(current, existing) {
			held.release()
			if attempt+1 >= maxScopeRetries {
				return apperrors.Conflict("Booking was modified concurrently, please retry").
					WithDetails(map[string]any{"booking_id": id})
			}
			continue
		}

		err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			if err := held.verify(txCtx); err != nil {
				return err
			}
			return s.repo.Delete(txCtx, id)
		})
		if err != nil {
			held.release()
			return s.mapError(err, id, "Failed to cancel booking")
		}
		s.index.Remove(id)

		s.cfg.Log.Info("Booking cancelled successfully",
			"id", id,
			"room_id", current.RoomID,
			"date", current.Date.String(),
		)
		s.publish(ctx, model.BookingEvent{Type: model.EventBookingCancelled, Booking: *current})
		held.release()
		return nil
	}
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	id = sanitizer.NormalizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id, "Failed to retrieve booking")
	}
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	filter.RoomID = sanitizer.NormalizeID(filter.RoomID)
	filter.UserID = sanitizer.NormalizeID(filter.UserID)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.Find(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// WithRoomQuiesced runs fn while no admission can target roomID. The check
// consults both the index and the store so bookings committed by another
// instance are seen as well.
func (s *bookingService) WithRoomQuiesced(ctx context.Context, roomID string, fn func(hasBookings bool) error) error {
	unlock := s.gates.lock(roomID)
	defer unlock()

	hasBookings := s.index.RoomHasBookings(roomID)
	if !hasBookings {
		count, err := s.repo.Count(ctx, model.BookingFilter{RoomID: roomID})
		if err != nil {
			return fmt.Errorf("failed to count bookings of room %s: %w", roomID, err)
		}
		hasBookings = count > 0
	}
	return fn(hasBookings)
}

// --- Admission steps ---

func (s *bookingService) checkWindow(b *model.Booking) error {
	w := b.Window()
	if !w.Valid() {
		return apperrors.InvalidWindow("start_time must be before end_time", windowDetails(b.RoomID, b.Date, w)).
			WithCause(bookingserrors.ErrInvalidWindow)
	}

	if hours, ok := s.cfg.Booking.OperatingHours(); ok && !w.Within(hours) {
		details := windowDetails(b.RoomID, b.Date, w)
		details["opening_time"] = hours.Start.String()
		details["closing_time"] = hours.End.String()
		return apperrors.InvalidWindow("Booking must fall within operating hours", details).
			WithCause(bookingserrors.ErrInvalidWindow)
	}

	if !s.cfg.Booking.AllowPastDates {
		now := s.now()
		today := model.DateOf(now)
		nowOfDay := model.TimeOfDay(now.Hour()*3600 + now.Minute()*60 + now.Second())
		if b.Date.Before(today) || (b.Date == today && w.Start < nowOfDay) {
			return apperrors.InvalidWindow("Booking cannot start in the past", windowDetails(b.RoomID, b.Date, w)).
				WithCause(bookingserrors.ErrInvalidWindow)
		}
	}

	return nil
}

func (s *bookingService) checkRoomExists(ctx context.Context, roomID string) error {
	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, roomserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Room", roomID)
		}
		s.cfg.Log.Error("Failed to look up room", "room_id", roomID, "error", err)
		return apperrors.Internal("Failed to look up room", err)
	}
	return nil
}

// checkConflicts runs the room check before the user check, so a request
// clashing on both is reported as a room conflict.
func (s *bookingService) checkConflicts(b *model.Booking) error {
	w := b.Window()
	if slot, found := s.index.RoomConflict(b.RoomID, b.Date, w, b.ID); found {
		return apperrors.RoomConflict("Room is already booked for an overlapping window",
			windowDetails(slot.RoomID, slot.Date, slot.Window)).
			WithCause(bookingserrors.ErrRoomConflict)
	}
	if slot, found := s.index.UserConflict(b.UserID, b.Date, w, b.ID); found {
		return apperrors.UserDoubleBooking("User already has a booking in an overlapping window",
			windowDetails(slot.RoomID, slot.Date, slot.Window)).
			WithCause(bookingserrors.ErrUserDoubleBooking)
	}
	return nil
}

func (s *bookingService) publish(ctx context.Context, event model.BookingEvent) {
	event.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.cfg.Log.Error("Failed to publish booking event",
			"type", event.Type,
			"id", event.Booking.ID,
			"error", err,
		)
	}
}

func (s *bookingService) logRejected(op string, b *model.Booking, err error) {
	code := apperrors.AsAppError(err).Code
	s.cfg.Log.Warn("Booking admission rejected",
		"operation", op,
		"code", code,
		"room_id", b.RoomID,
		"user_id", b.UserID,
		"date", b.Date.String(),
		"window", b.Window().String(),
	)
}

// --- Helpers ---

func (s *bookingService) sanitize(req *model.BookingRequest) {
	req.RoomID = sanitizer.NormalizeID(req.RoomID)
	req.UserID = sanitizer.NormalizeID(req.UserID)
	req.Date = sanitizer.NormalizeClock(req.Date)
	req.StartTime = sanitizer.NormalizeClock(req.StartTime)
	req.EndTime = sanitizer.NormalizeClock(req.EndTime)
}

func (s *bookingService) sanitizeUpdate(u *model.BookingUpdate) {
	u.RoomID = sanitizer.NormalizeIDPtr(u.RoomID)
	if u.Date != nil {
		v := sanitizer.NormalizeClock(*u.Date)
		u.Date = &v
	}
	if u.StartTime != nil {
		v := sanitizer.NormalizeClock(*u.StartTime)
		u.StartTime = &v
	}
	if u.EndTime != nil {
		v := sanitizer.NormalizeClock(*u.EndTime)
		u.EndTime = &v
	}
}

func bookingFromRequest(req *model.BookingRequest) (*model.Booking, error) {
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	w, err := model.NewWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	return &model.Booking{
		RoomID:    req.RoomID,
		UserID:    req.UserID,
		Date:      date,
		StartTime: w.Start,
		EndTime:   w.End,
	}, nil
}

func mergeBookingUpdate(existing *model.Booking, u *model.BookingUpdate) (*model.Booking, error) {
	merged := *existing

	if u.RoomID != nil {
		merged.RoomID = *u.RoomID
	}
	if u.Date != nil {
		date, err := model.ParseDate(*u.Date)
		if err != nil {
			return nil, err
		}
		merged.Date = date
	}
	if u.StartTime != nil {
		start, err := model.ParseTimeOfDay(*u.StartTime)
		if err != nil {
			return nil, err
		}
		merged.StartTime = start
	}
	if u.EndTime != nil {
		end, err := model.ParseTimeOfDay(*u.EndTime)
		if err != nil {
			return nil, err
		}
		merged.EndTime = end
	}

	return &merged, nil
}

func sameFootprint(a, b *model.Booking) bool {
	return a.RoomID == b.RoomID && a.UserID == b.UserID && a.Date == b.Date && a.Window() == b.Window()
}

func windowDetails(roomID string, date model.Date, w model.Window) map[string]any {
	return map[string]any{
		"room_id":    roomID,
		"date":       date.String(),
		"start_time": w.Start.String(),
		"end_time":   w.End.String(),
	}
}

func (s *bookingService) mapError(err error, id, message string) error {
	var contention *lockContentionError
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.As(err, &contention):
		return contention.appError()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.cfg.Log.Warn(message, "id", id, "error", err)
		return apperrors.Unavailable("booking admission").WithCause(err)
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
