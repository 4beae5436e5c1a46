package tests

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"triplog/internal/domain"
	"triplog/internal/redis"
	"triplog/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP STORE
// ──────────────────────────────────────────────

type storedTrip struct {
	trip      domain.Trip
	positions []domain.Position
}

// MockTripStore is an in-memory implementation of repository.TripStore with
// the same ownership and pagination semantics as the real backends.
type MockTripStore struct {
	mu         sync.RWMutex
	trips      map[string]*storedTrip
	ownerNames map[string]string
	nextID     int

	// Counters for verification
	CreateTripCallCount     int32
	AppendPositionCallCount int32
	RecountCallCount        int32
	DeleteTripCallCount     int32

	// Error injection
	CreateTripError     error
	AppendPositionError error
	RecountError        error
	DeleteTripError     error

	// AppendPositionFailAfter makes AppendPosition fail with
	// AppendPositionError once this many calls have succeeded. Zero means
	// every call fails when AppendPositionError is set.
	AppendPositionFailAfter int32
}

// NewMockTripStore creates a new mock trip store.
func NewMockTripStore() *MockTripStore {
	return &MockTripStore{
		trips:      make(map[string]*storedTrip),
		ownerNames: make(map[string]string),
	}
}

// SetOwnerName registers the display name resolved for an owner id.
func (m *MockTripStore) SetOwnerName(ownerID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownerNames[ownerID] = name
}

// AddTrip seeds a trip with positions, bypassing counters.
func (m *MockTripStore) AddTrip(trip *domain.Trip, positions []domain.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if trip.ID == "" {
		trip.ID = m.allocID()
	}
	trip.PositionsCount = len(positions)
	m.trips[trip.ID] = &storedTrip{trip: *trip, positions: append([]domain.Position(nil), positions...)}
}

// GetTrip returns the stored trip for test assertions, nil when absent.
func (m *MockTripStore) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.trips[id]
	if !ok {
		return nil
	}
	copy := st.trip
	copy.PositionsCount = len(st.positions)
	return &copy
}

// CountTrips returns the number of stored trips.
func (m *MockTripStore) CountTrips() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trips)
}

// PositionsFor returns the stored positions of a trip for test assertions.
func (m *MockTripStore) PositionsFor(id string) []domain.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.trips[id]
	if !ok {
		return nil
	}
	return append([]domain.Position(nil), st.positions...)
}

func (m *MockTripStore) allocID() string {
	m.nextID++
	return strconv.Itoa(m.nextID)
}

func (m *MockTripStore) CreateTrip(ctx context.Context, trip *domain.Trip, positions []domain.Position) (*domain.Trip, error) {
	atomic.AddInt32(&m.CreateTripCallCount, 1)
	if m.CreateTripError != nil {
		return nil, m.CreateTripError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	created := *trip
	created.ID = m.allocID()
	created.PositionsCount = len(positions)
	m.trips[created.ID] = &storedTrip{trip: created, positions: append([]domain.Position(nil), positions...)}
	result := created
	return &result, nil
}

func (m *MockTripStore) CreateTripShell(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
	atomic.AddInt32(&m.CreateTripCallCount, 1)
	if m.CreateTripError != nil {
		return nil, m.CreateTripError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	created := *trip
	created.ID = m.allocID()
	created.PositionsCount = 0
	m.trips[created.ID] = &storedTrip{trip: created}
	result := created
	return &result, nil
}

func (m *MockTripStore) AppendPosition(ctx context.Context, actorID, tripID string, pos domain.Position) error {
	calls := atomic.AddInt32(&m.AppendPositionCallCount, 1)
	if m.AppendPositionError != nil && calls > m.AppendPositionFailAfter {
		return m.AppendPositionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.trips[tripID]
	if !ok {
		return repository.ErrNotFound
	}
	if st.trip.OwnerID != actorID {
		return repository.ErrUnauthorized
	}
	pos.ID = strconv.Itoa(len(st.positions) + 1)
	pos.TripID = tripID
	st.positions = append(st.positions, pos)
	return nil
}

func (m *MockTripStore) RecountPositions(ctx context.Context, tripID string) (int, error) {
	atomic.AddInt32(&m.RecountCallCount, 1)
	if m.RecountError != nil {
		return 0, m.RecountError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.trips[tripID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	st.trip.PositionsCount = len(st.positions)
	return len(st.positions), nil
}

func (m *MockTripStore) ListTrips(ctx context.Context, ownerID string, q repository.ListQuery) (*domain.TripPage, error) {
	cursor, err := repository.DecodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = repository.DefaultPageSize
	}

	m.mu.RLock()
	matched := make([]domain.Trip, 0)
	for _, st := range m.trips {
		if st.trip.OwnerID != ownerID {
			continue
		}
		if q.Type != "" && st.trip.Type != q.Type {
			continue
		}
		trip := st.trip
		trip.PositionsCount = len(st.positions)
		matched = append(matched, trip)
	}
	m.mu.RUnlock()

	// Newest first, id breaking ties.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	page := &domain.TripPage{Trips: make([]*domain.Trip, 0, pageSize)}
	for i := range matched {
		if cursor.ID != "" {
			created := matched[i].CreatedAt.Format(domain.TimestampLayout)
			if created > cursor.CreatedAt {
				continue
			}
			if created == cursor.CreatedAt && matched[i].ID >= cursor.ID {
				continue
			}
		}
		trip := matched[i]
		page.Trips = append(page.Trips, &trip)
		if len(page.Trips) == pageSize {
			next := repository.Cursor{
				CreatedAt: trip.CreatedAt.Format(domain.TimestampLayout),
				ID:        trip.ID,
			}
			page.NextCursor = next.Encode()
			break
		}
	}
	return page, nil
}

func (m *MockTripStore) GetTripByID(ctx context.Context, tripID string) (*domain.TripDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.trips[tripID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	trip := st.trip
	trip.PositionsCount = len(st.positions)
	ownerName, ok := m.ownerNames[trip.OwnerID]
	if !ok {
		ownerName = "unknown user"
	}
	return &domain.TripDetail{
		Trip:      &trip,
		OwnerName: ownerName,
		Positions: append([]domain.Position(nil), st.positions...),
	}, nil
}

func (m *MockTripStore) UpdateTrip(ctx context.Context, actorID, tripID string, upd domain.TripUpdate) (*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.trips[tripID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if st.trip.OwnerID != actorID {
		return nil, repository.ErrUnauthorized
	}
	if upd.Name != nil {
		st.trip.Name = *upd.Name
	}
	if upd.Description != nil {
		st.trip.Description = *upd.Description
	}
	if upd.Type != nil {
		st.trip.Type = *upd.Type
	}
	st.trip.UpdatedAt = time.Now()
	trip := st.trip
	trip.PositionsCount = len(st.positions)
	return &trip, nil
}

func (m *MockTripStore) DeleteTrip(ctx context.Context, actorID, tripID string) error {
	atomic.AddInt32(&m.DeleteTripCallCount, 1)
	if m.DeleteTripError != nil {
		return m.DeleteTripError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.trips[tripID]
	if !ok {
		return repository.ErrNotFound
	}
	if st.trip.OwnerID != actorID {
		return repository.ErrUnauthorized
	}
	delete(m.trips, tripID)
	return nil
}

var _ repository.TripStore = (*MockTripStore)(nil)

// ──────────────────────────────────────────────
// MOCK USER STORE
// ──────────────────────────────────────────────

// MockUserStore is an in-memory implementation of repository.UserStore.
type MockUserStore struct {
	mu     sync.RWMutex
	users  map[string]*domain.User
	nextID int

	// Error injection
	CreateError error
}

// NewMockUserStore creates a new mock user store.
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[string]*domain.User)}
}

// AddUser seeds a user.
func (m *MockUserStore) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *MockUserStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	created := *user
	created.ID = strconv.Itoa(m.nextID)
	m.users[created.ID] = &created
	result := created
	return &result, nil
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserStore) UpdatePassword(ctx context.Context, id, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Password = newPassword
	return nil
}

var _ repository.UserStore = (*MockUserStore)(nil)

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockCommitLocker is an in-memory commit lock.
type MockCommitLocker struct {
	mu   sync.Mutex
	held map[string]bool

	AcquireCallCount int32
	ReleaseCallCount int32
}

// NewMockCommitLocker creates a new mock commit locker.
func NewMockCommitLocker() *MockCommitLocker {
	return &MockCommitLocker{held: make(map[string]bool)}
}

// Hold marks a user's lock as already taken.
func (m *MockCommitLocker) Hold(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[userID] = true
}

func (m *MockCommitLocker) AcquireCommitLock(ctx context.Context, userID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[userID] {
		return false, nil
	}
	m.held[userID] = true
	return true, nil
}

func (m *MockCommitLocker) ReleaseCommitLock(ctx context.Context, userID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, userID)
	return nil
}

var _ redis.CommitLocker = (*MockCommitLocker)(nil)

// MockLiveStore is an in-memory live fix store.
type MockLiveStore struct {
	mu    sync.RWMutex
	fixes map[string]redis.LiveFix
}

// NewMockLiveStore creates a new mock live fix store.
func NewMockLiveStore() *MockLiveStore {
	return &MockLiveStore{fixes: make(map[string]redis.LiveFix)}
}

func (m *MockLiveStore) Update(ctx context.Context, userID string, fix redis.LiveFix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixes[userID] = fix
	return nil
}

func (m *MockLiveStore) Get(ctx context.Context, userID string) (*redis.LiveFix, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fix, ok := m.fixes[userID]
	if !ok {
		return nil, nil
	}
	copy := fix
	return &copy, nil
}

func (m *MockLiveStore) Remove(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fixes, userID)
	return nil
}

var _ redis.LiveFixStore = (*MockLiveStore)(nil)
