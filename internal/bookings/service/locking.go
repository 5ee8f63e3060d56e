package service

import (
	"context"
	"errors"
	"fmt"
	"roombook/internal/availability/index"
	bookingserrors "roombook/internal/bookings/errors"
	"roombook/internal/bookings/repository"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
	"slices"
	"sync"
	"time"
)

const lockIDPrefix = "booking_lock:"

// lockContentionError reports a scope whose cross-process lock could not be
// taken within the retry budget.
type lockContentionError struct {
	scope index.Scope
}

func (e *lockContentionError) Error() string {
	return fmt.Sprintf("%s: %s", bookingserrors.ErrLockContention, e.scope)
}

func (e *lockContentionError) Unwrap() error {
	return bookingserrors.ErrLockContention
}

// A contended scope is reported with the conflict code of its kind so
// callers never wait unboundedly.
func (e *lockContentionError) appError() error {
	details := map[string]any{
		"reason": "lock_contention",
		"date":   e.scope.Date.String(),
	}
	if e.scope.Kind == index.ScopeRoom {
		details["room_id"] = e.scope.ID
		return apperrors.RoomConflict("Room is being booked by another request, please retry", details).WithCause(e)
	}
	return apperrors.UserDoubleBooking("User has another booking in progress, please retry", details).WithCause(e)
}

// heldScopes is what an admission holds between validation and commit.
// Release it exactly once.
type heldScopes struct {
	lease   *lease
	release func()
}

// verify fails when the cross-process lease was lost. Call it inside the
// commit transaction so the ownership check and the write commit together.
func (h *heldScopes) verify(ctx context.Context) error {
	if h.lease == nil {
		return nil
	}
	return h.lease.verify(ctx)
}

// lockScopes takes, in order: the room gates, the process-local scope locks
// and, when enabled, the cross-process locks, refreshing the guarded scopes
// from the store afterwards.
func (s *bookingService) lockScopes(ctx context.Context, roomIDs []string, scopes []index.Scope) (*heldScopes, error) {
	scopes = index.SortScopes(scopes)

	unlockGates := s.gates.rlock(roomIDs...)

	keys := make([]string, len(scopes))
	for i, sc := range scopes {
		keys[i] = sc.Key()
	}
	unlockKeys, err := s.locks.Lock(ctx, keys...)
	if err != nil {
		unlockGates()
		return nil, s.mapError(err, "", "Failed to acquire booking locks")
	}

	held := &heldScopes{release: func() {
		unlockKeys()
		unlockGates()
	}}
	if !s.cfg.Booking.DistributedLocks || s.lockRepo == nil {
		return held, nil
	}

	l, err := s.acquireDistributed(ctx, scopes)
	if err != nil {
		held.release()
		return nil, s.mapError(err, "", "Failed to acquire booking locks")
	}
	held.lease = l
	held.release = func() {
		l.release()
		unlockKeys()
		unlockGates()
	}

	if err := s.refreshScopes(ctx, scopes); err != nil {
		held.release()
		return nil, s.mapError(err, "", "Failed to refresh availability")
	}
	return held, nil
}

type leasedLock struct {
	id    string
	scope index.Scope
}

// lease is the set of cross-process locks taken by one admission. While it
// is held a background loop pushes every expiry forward; once any renewal
// finds the lock gone or taken over, the lease is lost for good.
type lease struct {
	svc   *bookingService
	owner string
	locks []leasedLock

	mu   sync.Mutex
	lost *index.Scope

	stop context.CancelFunc
	done chan struct{}
}

func (s *bookingService) acquireDistributed(ctx context.Context, scopes []index.Scope) (*lease, error) {
	l := &lease{svc: s, owner: s.newID()}

	for _, sc := range scopes {
		id := lockIDPrefix + sc.Key()
		if err := s.acquireOne(ctx, sc, id, l.owner); err != nil {
			l.deleteAll(ctx)
			return nil, err
		}
		l.locks = append(l.locks, leasedLock{id: id, scope: sc})
	}

	renewCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	l.stop = stop
	l.done = make(chan struct{})
	go l.keepAlive(renewCtx, s.cfg.Booking.LockTTL/3)
	return l, nil
}

func (l *lease) keepAlive(ctx context.Context, interval time.Duration) {
	defer close(l.done)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.extend(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				var contention *lockContentionError
				if errors.As(err, &contention) {
					l.svc.cfg.Log.Warn("Booking lock lease lost", "scope", contention.scope.Key())
					return
				}
				l.svc.cfg.Log.Warn("Failed to renew booking lock", "error", err)
			}
		}
	}
}

// extend renews every lock still owned and unexpired. A lock that no
// longer matches marks the lease lost.
func (l *lease) extend(ctx context.Context) error {
	if sc, lost := l.lostScope(); lost {
		return &lockContentionError{scope: sc}
	}
	now := l.svc.now().UTC()
	expiresAt := now.Add(l.svc.cfg.Booking.LockTTL)
	for _, lk := range l.locks {
		ok, err := l.svc.lockRepo.Extend(ctx, lk.id, l.owner, now, expiresAt)
		if err != nil {
			return err
		}
		if !ok {
			l.markLost(lk.scope)
			return &lockContentionError{scope: lk.scope}
		}
	}
	return nil
}

// verify renews the lease once more through ctx. Inside a Mongo
// transaction that write conflicts with any concurrent takeover, so a commit
// can only succeed while every lock is still ours.
func (l *lease) verify(ctx context.Context) error {
	if err := l.extend(ctx); err != nil {
		var contention *lockContentionError
		if errors.As(err, &contention) {
			l.svc.cfg.Log.Warn("Booking lock lease lost before commit", "scope", contention.scope.Key())
		}
		return err
	}
	return nil
}

func (l *lease) markLost(sc index.Scope) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lost == nil {
		l.lost = &sc
	}
}

func (l *lease) lostScope() (index.Scope, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lost == nil {
		return index.Scope{}, false
	}
	return *l.lost, true
}

func (l *lease) release() {
	l.stop()
	<-l.done
	l.deleteAll(context.Background())
}

func (l *lease) deleteAll(ctx context.Context) {
	releaseCtx := context.WithoutCancel(ctx)
	for _, lk := range slices.Backward(l.locks) {
		if err := l.svc.lockRepo.Delete(releaseCtx, lk.id, l.owner); err != nil {
			l.svc.cfg.Log.Warn("Failed to release booking lock", "lock_id", lk.id, "error", err)
		}
	}
}

// acquireOne retries a held lock a bounded number of times. A lock whose
// holder died is removed once expired instead of waiting for the TTL index.
func (s *bookingService) acquireOne(ctx context.Context, sc index.Scope, id, owner string) error {
	retries := s.cfg.Booking.LockRetries
	for attempt := 0; attempt <= retries; attempt++ {
		lock := &model.BookingLock{
			ID:        id,
			Owner:     owner,
			ExpiresAt: s.now().UTC().Add(s.cfg.Booking.LockTTL),
		}
		err := s.lockRepo.Create(ctx, lock)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrLockHeld) {
			return err
		}

		removed, err := s.lockRepo.DeleteExpired(ctx, id, s.now().UTC())
		if err != nil {
			return err
		}
		if removed || attempt == retries {
			continue
		}

		timer := time.NewTimer(s.cfg.Booking.LockRetryDelay * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.cfg.Log.Warn("Booking lock contention", "scope", sc.Key(), "retries", retries)
	return &lockContentionError{scope: sc}
}

// refreshScopes re-reads the guarded days from the store so bookings
// committed by other instances are visible before validation.
func (s *bookingService) refreshScopes(ctx context.Context, scopes []index.Scope) error {
	var fresh []*model.Booking
	for _, sc := range scopes {
		filter := model.BookingFilter{Date: sc.Date}
		if sc.Kind == index.ScopeRoom {
			filter.RoomID = sc.ID
		} else {
			filter.UserID = sc.ID
		}
		bookings, err := s.repo.Find(ctx, filter, 0, 0)
		if err != nil {
			return err
		}
		fresh = append(fresh, bookings...)
	}
	s.index.Reconcile(scopes, fresh)
	return nil
}

// roomGates serialise room deletion against admissions. Admissions share a
// gate; deletion holds it exclusively. Gates are process-local and dropped
// once nobody holds or waits for them.
type roomGates struct {
	mu    sync.Mutex
	gates map[string]*roomGate
}

type roomGate struct {
	sync.RWMutex
	refs int
}

func newRoomGates() *roomGates {
	return &roomGates{gates: make(map[string]*roomGate)}
}

func (g *roomGates) acquire(roomID string) *roomGate {
	g.mu.Lock()
	defer g.mu.Unlock()

	gate, ok := g.gates[roomID]
	if !ok {
		gate = &roomGate{}
		g.gates[roomID] = gate
	}
	gate.refs++
	return gate
}

func (g *roomGates) put(roomID string, gate *roomGate) {
	g.mu.Lock()
	defer g.mu.Unlock()

	gate.refs--
	if gate.refs == 0 {
		delete(g.gates, roomID)
	}
}

func (g *roomGates) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.gates)
}

// rlock takes shared gates in sorted order, skipping duplicates.
func (g *roomGates) rlock(roomIDs ...string) func() {
	ids := slices.Compact(slices.Sorted(slices.Values(roomIDs)))
	held := make([]*roomGate, 0, len(ids))
	for _, id := range ids {
		gate := g.acquire(id)
		gate.RLock()
		held = append(held, gate)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].RUnlock()
			g.put(ids[i], held[i])
		}
	}
}

func (g *roomGates) lock(roomID string) func() {
	gate := g.acquire(roomID)
	gate.Lock()
	return func() {
		gate.Unlock()
		g.put(roomID, gate)
	}
}
