package index

import (
	"roombook/pkg/model"
	"strings"
)

// RoomPredicate narrows candidate rooms before the overlap check.
type RoomPredicate func(room *model.Room) bool

func OnFloor(floor int) RoomPredicate {
	return func(room *model.Room) bool {
		return room.Floor == floor
	}
}

func MinCapacity(capacity int) RoomPredicate {
	return func(room *model.Room) bool {
		return room.Capacity >= capacity
	}
}

func NameContains(search string) RoomPredicate {
	needle := strings.ToLower(search)
	return func(room *model.Room) bool {
		return strings.Contains(strings.ToLower(room.Name), needle)
	}
}

// PredicatesFor turns the optional filters into predicates.
func PredicatesFor(filter model.RoomFilter) []RoomPredicate {
	var preds []RoomPredicate
	if filter.Floor != nil {
		preds = append(preds, OnFloor(*filter.Floor))
	}
	if filter.MinCapacity != nil {
		preds = append(preds, MinCapacity(*filter.MinCapacity))
	}
	if filter.Search != "" {
		preds = append(preds, NameContains(filter.Search))
	}
	return preds
}

func matchesAll(room *model.Room, preds []RoomPredicate) bool {
	for _, p := range preds {
		if !p(room) {
			return false
		}
	}
	return true
}
