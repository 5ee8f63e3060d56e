package repository

import (
	"cmp"
	"context"
	"fmt"
	roomserrors "roombook/internal/rooms/errors"
	"roombook/pkg/model"
	"slices"
	"strings"
	"sync"
	"time"
)

type memoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]model.Room
}

// NewMemoryRoomRepository keeps rooms in process memory. Name uniqueness is
// enforced like the Mongo unique index.
func NewMemoryRoomRepository() RoomRepository {
	return &memoryRoomRepository{rooms: make(map[string]model.Room)}
}

func (r *memoryRoomRepository) Create(_ context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(room.Name, room.ID) {
		return fmt.Errorf("%w: %s", roomserrors.ErrDuplicateName, room.Name)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	room.CreatedAt = now
	room.UpdatedAt = now
	r.rooms[room.ID] = *room
	return nil
}

func (r *memoryRoomRepository) FindByID(_ context.Context, id string) (*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, roomserrors.ErrNotFound
	}
	return &room, nil
}

func (r *memoryRoomRepository) FindAll(_ context.Context, filter model.RoomFilter, limit int, offset int64) ([]*model.Room, error) {
	matched := r.matching(filter)

	if offset >= int64(len(matched)) {
		return []*model.Room{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memoryRoomRepository) Count(_ context.Context, filter model.RoomFilter) (int64, error) {
	return int64(len(r.matching(filter))), nil
}

func (r *memoryRoomRepository) Update(_ context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rooms[room.ID]
	if !ok {
		return roomserrors.ErrNotFound
	}
	if r.nameTaken(room.Name, room.ID) {
		return fmt.Errorf("%w: %s", roomserrors.ErrDuplicateName, room.Name)
	}

	room.CreatedAt = existing.CreatedAt
	room.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	r.rooms[room.ID] = *room
	return nil
}

func (r *memoryRoomRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[id]; !ok {
		return roomserrors.ErrNotFound
	}
	delete(r.rooms, id)
	return nil
}

func (r *memoryRoomRepository) nameTaken(name, exceptID string) bool {
	for id, room := range r.rooms {
		if id != exceptID && room.Name == name {
			return true
		}
	}
	return false
}

func (r *memoryRoomRepository) matching(filter model.RoomFilter) []*model.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		if filter.Floor != nil && room.Floor != *filter.Floor {
			continue
		}
		if filter.MinCapacity != nil && room.Capacity < *filter.MinCapacity {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(room.Name), strings.ToLower(filter.Search)) {
			continue
		}
		room := room
		out = append(out, &room)
	}

	slices.SortFunc(out, func(a, b *model.Room) int {
		return cmp.Or(cmp.Compare(a.Floor, b.Floor), cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out
}
