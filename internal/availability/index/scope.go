package index

import (
	"net/url"
	"roombook/pkg/model"
	"slices"
	"strings"
)

type ScopeKind string

const (
	ScopeRoom ScopeKind = "room"
	ScopeUser ScopeKind = "user"
)

// Scope names one (room, date) or (user, date) partition of the index. It is
// also the unit of locking during admission.
type Scope struct {
	Kind ScopeKind
	ID   string
	Date model.Date
}

func RoomScope(roomID string, date model.Date) Scope {
	return Scope{Kind: ScopeRoom, ID: roomID, Date: date}
}

func UserScope(userID string, date model.Date) Scope {
	return Scope{Kind: ScopeUser, ID: userID, Date: date}
}

// Key renders the scope as "room:<id>:<date>" with the id query-escaped, so
// an id holding ':' cannot collide with another scope. Keys sort in the
// global lock order used by every writer.
func (s Scope) Key() string {
	return string(s.Kind) + ":" + url.QueryEscape(s.ID) + ":" + s.Date.String()
}

func (s Scope) String() string {
	return s.Key()
}

// SortScopes orders scopes by key and drops duplicates.
func SortScopes(scopes []Scope) []Scope {
	out := slices.Clone(scopes)
	slices.SortFunc(out, func(a, b Scope) int {
		return strings.Compare(a.Key(), b.Key())
	})
	return slices.CompactFunc(out, func(a, b Scope) bool {
		return a.Key() == b.Key()
	})
}

// ScopesOf returns the two scopes a booking occupies.
func ScopesOf(b *model.Booking) []Scope {
	return []Scope{RoomScope(b.RoomID, b.Date), UserScope(b.UserID, b.Date)}
}
