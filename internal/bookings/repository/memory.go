package repository

import (
	"cmp"
	"context"
	"fmt"
	bookingserrors "roombook/internal/bookings/errors"
	mongotx "roombook/pkg/db/mongo"
	"roombook/pkg/model"
	"slices"
	"sync"
	"time"
)

type memoryBookingRepository struct {
	mu        sync.RWMutex
	bookings  map[string]model.Booking
	txManager mongotx.TransactionManager
}

// NewMemoryBookingRepository keeps bookings in process memory for single
// instance runs and tests.
func NewMemoryBookingRepository() BookingRepository {
	return &memoryBookingRepository{
		bookings:  make(map[string]model.Booking),
		txManager: mongotx.NewDirectTransactionManager(),
	}
}

func (r *memoryBookingRepository) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[booking.ID]; ok {
		return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateID, booking.ID)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = now
	booking.UpdatedAt = now
	r.bookings[booking.ID] = *booking
	return nil
}

func (r *memoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return &booking, nil
}

func (r *memoryBookingRepository) Find(_ context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	matched := r.matching(filter)

	if offset >= int64(len(matched)) {
		return []*model.Booking{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memoryBookingRepository) Count(_ context.Context, filter model.BookingFilter) (int64, error) {
	return int64(len(r.matching(filter))), nil
}

func (r *memoryBookingRepository) Update(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.bookings[booking.ID]
	if !ok {
		return bookingserrors.ErrNotFound
	}

	booking.UserID = existing.UserID
	booking.CreatedAt = existing.CreatedAt
	booking.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	r.bookings[booking.ID] = *booking
	return nil
}

func (r *memoryBookingRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *memoryBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *memoryBookingRepository) matching(filter model.BookingFilter) []*model.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		if filter.RoomID != "" && b.RoomID != filter.RoomID {
			continue
		}
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if !filter.Date.IsZero() && b.Date != filter.Date {
			continue
		}
		b := b
		out = append(out, &b)
	}

	slices.SortFunc(out, func(a, b *model.Booking) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.StartTime, b.StartTime), cmp.Compare(a.ID, b.ID))
	})
	return out
}
