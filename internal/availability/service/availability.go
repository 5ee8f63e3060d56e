package service

import (
	"cmp"
	"context"
	"roombook/internal/availability/index"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
	"slices"
)

type AvailabilityService interface {
	ListAvailableRooms(ctx context.Context, query Query) ([]*model.Room, error)
	IsRoomFree(ctx context.Context, roomID, date, startTime, endTime string) (bool, error)
}

// Query is the raw availability request as received from the caller.
type Query struct {
	Date      string
	StartTime string
	EndTime   string
	Filter    model.RoomFilter
}

// RoomLister is satisfied by the rooms repository.
type RoomLister interface {
	FindAll(ctx context.Context, filter model.RoomFilter, limit int, offset int64) ([]*model.Room, error)
}

type availabilityService struct {
	rooms RoomLister
	index *index.Index
	cfg   *config.Config
}

func NewAvailabilityService(rooms RoomLister, idx *index.Index, cfg *config.Config) AvailabilityService {
	return &availabilityService{
		rooms: rooms,
		index: idx,
		cfg:   cfg,
	}
}

// ListAvailableRooms returns rooms free for the whole window, ordered by
// floor then name. No matching room yields an empty list.
func (s *availabilityService) ListAvailableRooms(ctx context.Context, query Query) ([]*model.Room, error) {
	date, w, err := parseQuery(query)
	if err != nil {
		return nil, err
	}

	candidates, err := s.rooms.FindAll(ctx, model.RoomFilter{}, 0, 0)
	if err != nil {
		s.cfg.Log.Error("Failed to list rooms for availability", "error", err)
		return nil, apperrors.Internal("Failed to retrieve rooms", err)
	}

	available := s.index.FindAvailableRooms(candidates, date, w, index.PredicatesFor(query.Filter)...)
	slices.SortFunc(available, func(a, b *model.Room) int {
		return cmp.Or(cmp.Compare(a.Floor, b.Floor), cmp.Compare(a.Name, b.Name))
	})

	s.cfg.Log.Debug("Availability query completed",
		"date", date.String(),
		"window", w.String(),
		"candidates", len(candidates),
		"available", len(available),
	)
	return available, nil
}

// IsRoomFree reports whether roomID has no booking overlapping the window.
// The room itself is not looked up.
func (s *availabilityService) IsRoomFree(_ context.Context, roomID, date, startTime, endTime string) (bool, error) {
	d, w, err := parseQuery(Query{Date: date, StartTime: startTime, EndTime: endTime})
	if err != nil {
		return false, err
	}
	return s.index.IsRoomFree(roomID, d, w, ""), nil
}

func parseQuery(q Query) (model.Date, model.Window, error) {
	missing := map[string]any{}
	for name, v := range map[string]string{"date": q.Date, "start_time": q.StartTime, "end_time": q.EndTime} {
		if sanitizer.NormalizeClock(v) == "" {
			missing[name] = name + " is required"
		}
	}
	if len(missing) > 0 {
		return model.Date{}, model.Window{}, apperrors.Validation("Availability query is incomplete", missing)
	}

	date, err := model.ParseDate(q.Date)
	if err != nil {
		return model.Date{}, model.Window{}, apperrors.InvalidInput(err.Error())
	}
	w, err := model.NewWindow(q.StartTime, q.EndTime)
	if err != nil {
		return model.Date{}, model.Window{}, apperrors.InvalidInput(err.Error())
	}
	if !w.Valid() {
		return model.Date{}, model.Window{}, apperrors.InvalidWindow("start_time must be before end_time", map[string]any{
			"date":       date.String(),
			"start_time": w.Start.String(),
			"end_time":   w.End.String(),
		})
	}
	return date, w, nil
}
