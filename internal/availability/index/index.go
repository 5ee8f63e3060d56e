// Package index is the in-memory availability index.
//
// Bookings are partitioned by (room, date) and by (user, date). Each
// partition holds its slots sorted by start time, so an overlap query scans a
// single partition and stops at the first slot that starts at or after the
// query's end. Both partitionings are updated under one write lock, so no
// reader observes a booking in one but not the other.
package index

import (
	"roombook/pkg/model"
	"slices"
	"sort"
	"sync"
)

// Slot is the indexed footprint of one booking.
type Slot struct {
	BookingID string       `json:"booking_id"`
	RoomID    string       `json:"room_id"`
	UserID    string       `json:"user_id"`
	Date      model.Date   `json:"date"`
	Window    model.Window `json:"window"`
}

func SlotOf(b *model.Booking) Slot {
	return Slot{
		BookingID: b.ID,
		RoomID:    b.RoomID,
		UserID:    b.UserID,
		Date:      b.Date,
		Window:    b.Window(),
	}
}

type dayKey struct {
	id   string
	date model.Date
}

type Index struct {
	mu        sync.RWMutex
	rooms     map[dayKey][]Slot
	users     map[dayKey][]Slot
	bookings  map[string]Slot
	roomCount map[string]int
}

func NewIndex() *Index {
	return &Index{
		rooms:     make(map[dayKey][]Slot),
		users:     make(map[dayKey][]Slot),
		bookings:  make(map[string]Slot),
		roomCount: make(map[string]int),
	}
}

// Load replaces the whole index content with the given bookings.
func (idx *Index) Load(bookings []*model.Booking) {
	fresh := NewIndex()
	for _, b := range bookings {
		fresh.remove(b.ID)
		fresh.insert(SlotOf(b))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.rooms = fresh.rooms
	idx.users = fresh.users
	idx.bookings = fresh.bookings
	idx.roomCount = fresh.roomCount
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.bookings)
}

// IsRoomFree reports whether no booking of roomID other than excludeID
// overlaps w on date.
func (idx *Index) IsRoomFree(roomID string, date model.Date, w model.Window, excludeID string) bool {
	_, conflict := idx.RoomConflict(roomID, date, w, excludeID)
	return !conflict
}

// RoomConflict returns the first booking of roomID on date overlapping w.
func (idx *Index) RoomConflict(roomID string, date model.Date, w model.Window, excludeID string) (Slot, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return firstOverlap(idx.rooms[dayKey{roomID, date}], w, excludeID)
}

// UserConflict returns the first booking of userID on date overlapping w.
func (idx *Index) UserConflict(userID string, date model.Date, w model.Window, excludeID string) (Slot, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return firstOverlap(idx.users[dayKey{userID, date}], w, excludeID)
}

// RoomDay returns a copy of the slots of roomID on date, sorted by start.
func (idx *Index) RoomDay(roomID string, date model.Date) []Slot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return slices.Clone(idx.rooms[dayKey{roomID, date}])
}

func (idx *Index) Get(bookingID string) (Slot, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	s, ok := idx.bookings[bookingID]
	return s, ok
}

// RoomHasBookings reports whether any booking on any date references roomID.
func (idx *Index) RoomHasBookings(roomID string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.roomCount[roomID] > 0
}

// Put inserts b, replacing any slot previously indexed under the same id.
func (idx *Index) Put(b *model.Booking) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.remove(b.ID)
	idx.insert(SlotOf(b))
}

// Remove drops the booking and returns the slot it occupied.
func (idx *Index) Remove(bookingID string) (Slot, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.remove(bookingID)
}

// Reconcile makes the given scopes mirror bookings: every slot indexed under
// any scope is dropped, then bookings are inserted. Callers pass the store's
// view of exactly those scopes.
func (idx *Index) Reconcile(scopes []Scope, bookings []*model.Booking) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, sc := range scopes {
		var slots []Slot
		switch sc.Kind {
		case ScopeRoom:
			slots = idx.rooms[dayKey{sc.ID, sc.Date}]
		case ScopeUser:
			slots = idx.users[dayKey{sc.ID, sc.Date}]
		}
		for _, s := range slices.Clone(slots) {
			idx.remove(s.BookingID)
		}
	}
	for _, b := range bookings {
		idx.remove(b.ID)
		idx.insert(SlotOf(b))
	}
}

// FindAvailableRooms returns the candidates that pass every predicate and
// have no booking overlapping w on date. Predicates run first; the overlap
// check is always last. Result order follows candidates.
func (idx *Index) FindAvailableRooms(candidates []*model.Room, date model.Date, w model.Window, preds ...RoomPredicate) []*model.Room {
	narrowed := make([]*model.Room, 0, len(candidates))
	for _, room := range candidates {
		if matchesAll(room, preds) {
			narrowed = append(narrowed, room)
		}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	available := make([]*model.Room, 0, len(narrowed))
	for _, room := range narrowed {
		if _, busy := firstOverlap(idx.rooms[dayKey{room.ID, date}], w, ""); !busy {
			available = append(available, room)
		}
	}
	return available
}

func firstOverlap(slots []Slot, w model.Window, excludeID string) (Slot, bool) {
	for _, s := range slots {
		if s.Window.Start >= w.End {
			break
		}
		if s.BookingID == excludeID {
			continue
		}
		if s.Window.Overlaps(w) {
			return s, true
		}
	}
	return Slot{}, false
}

func (idx *Index) insert(s Slot) {
	rk := dayKey{s.RoomID, s.Date}
	uk := dayKey{s.UserID, s.Date}
	idx.rooms[rk] = insertSorted(idx.rooms[rk], s)
	idx.users[uk] = insertSorted(idx.users[uk], s)
	idx.bookings[s.BookingID] = s
	idx.roomCount[s.RoomID]++
}

func (idx *Index) remove(bookingID string) (Slot, bool) {
	s, ok := idx.bookings[bookingID]
	if !ok {
		return Slot{}, false
	}
	rk := dayKey{s.RoomID, s.Date}
	uk := dayKey{s.UserID, s.Date}
	idx.rooms[rk] = removeSlot(idx.rooms[rk], bookingID)
	if len(idx.rooms[rk]) == 0 {
		delete(idx.rooms, rk)
	}
	idx.users[uk] = removeSlot(idx.users[uk], bookingID)
	if len(idx.users[uk]) == 0 {
		delete(idx.users, uk)
	}
	delete(idx.bookings, bookingID)
	if idx.roomCount[s.RoomID]--; idx.roomCount[s.RoomID] <= 0 {
		delete(idx.roomCount, s.RoomID)
	}
	return s, true
}

func insertSorted(slots []Slot, s Slot) []Slot {
	i := sort.Search(len(slots), func(i int) bool {
		if slots[i].Window.Start != s.Window.Start {
			return slots[i].Window.Start > s.Window.Start
		}
		return slots[i].BookingID > s.BookingID
	})
	return slices.Insert(slots, i, s)
}

func removeSlot(slots []Slot, bookingID string) []Slot {
	return slices.DeleteFunc(slots, func(s Slot) bool {
		return s.BookingID == bookingID
	})
}
