package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"triplog/internal/domain"
	"triplog/internal/repository"
)

// TripStore is the relational implementation of repository.TripStore.
// positionsCount is never stored; it is derived with a COUNT subquery on
// every read, so the count invariant holds by construction.
type TripStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewTripStore creates a relational trip store.
func NewTripStore(db *sql.DB, dialect Dialect) *TripStore {
	return &TripStore{db: db, dialect: dialect}
}

const tripColumns = `
	t.id, t.user_id, t.name, t.description, t.type, t.created_at, t.updated_at,
	(SELECT COUNT(*) FROM positions p WHERE p.trip_id = t.id) AS positions_count
`

// CreateTrip persists the trip and all positions in one transaction.
func (s *TripStore) CreateTrip(ctx context.Context, trip *domain.Trip, positions []domain.Position) (*domain.Trip, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	created, err := s.insertTrip(ctx, tx, trip)
	if err != nil {
		return nil, err
	}

	tripID, err := parseID(created.ID)
	if err != nil {
		return nil, err
	}
	for _, pos := range positions {
		if err = s.insertPosition(ctx, tx, tripID, pos); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	created.PositionsCount = len(positions)
	return created, nil
}

// CreateTripShell persists the trip row alone for the legacy commit path.
func (s *TripStore) CreateTripShell(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
	return s.insertTrip(ctx, s.db, trip)
}

func (s *TripStore) insertTrip(ctx context.Context, q Querier, trip *domain.Trip) (*domain.Trip, error) {
	ownerID, err := parseID(trip.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", trip.OwnerID, repository.ErrUnauthorized)
	}

	createdAt := trip.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := trip.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	query := s.dialect.rebind(`
		INSERT INTO trips (user_id, name, description, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err = q.QueryRowContext(ctx, query,
		ownerID,
		trip.Name,
		trip.Description,
		string(trip.Type),
		createdAt.Format(domain.TimestampLayout),
		updatedAt.Format(domain.TimestampLayout),
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	created := *trip
	created.ID = formatID(id)
	created.CreatedAt = createdAt.Truncate(time.Second)
	created.UpdatedAt = updatedAt.Truncate(time.Second)
	created.PositionsCount = 0
	return &created, nil
}

func (s *TripStore) insertPosition(ctx context.Context, q Querier, tripID int64, pos domain.Position) error {
	query := s.dialect.rebind(`
		INSERT INTO positions (trip_id, latitude, longitude, timestamp)
		VALUES (?, ?, ?, ?)
	`)
	_, err := q.ExecContext(ctx, query, tripID, pos.Latitude, pos.Longitude, pos.Timestamp)
	return err
}

// AppendPosition appends one position after verifying ownership, both inside
// one transaction so the check and the write act on the same state.
func (s *TripStore) AppendPosition(ctx context.Context, actorID, tripID string, pos domain.Position) error {
	key, err := parseID(tripID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.checkOwner(ctx, tx, key, actorID); err != nil {
		return err
	}
	if err = s.insertPosition(ctx, tx, key, pos); err != nil {
		return err
	}
	return tx.Commit()
}

// RecountPositions returns the true child count. Nothing to restore here:
// the count is derived, not stored.
func (s *TripStore) RecountPositions(ctx context.Context, tripID string) (int, error) {
	key, err := parseID(tripID)
	if err != nil {
		return 0, err
	}

	query := s.dialect.rebind(`SELECT COUNT(*) FROM positions WHERE trip_id = ?`)
	var count int
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListTrips returns a keyset-paginated page of the owner's trips, newest
// first. Keyset pagination keeps already-issued cursors terminating
// correctly even when newer trips are inserted at the head.
func (s *TripStore) ListTrips(ctx context.Context, ownerID string, q repository.ListQuery) (*domain.TripPage, error) {
	owner, err := parseID(ownerID)
	if err != nil {
		return &domain.TripPage{}, nil
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = repository.DefaultPageSize
	}

	cursor, err := repository.DecodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(`SELECT `)
	b.WriteString(tripColumns)
	b.WriteString(` FROM trips t WHERE t.user_id = ?`)
	args := []any{owner}

	if q.Type != "" {
		b.WriteString(` AND t.type = ?`)
		args = append(args, string(q.Type))
	}
	if cursor.ID != "" {
		cursorID, err := parseID(cursor.ID)
		if err != nil {
			return nil, repository.ErrInvalidCursor
		}
		b.WriteString(` AND (t.created_at < ? OR (t.created_at = ? AND t.id < ?))`)
		args = append(args, cursor.CreatedAt, cursor.CreatedAt, cursorID)
	}
	b.WriteString(` ORDER BY t.created_at DESC, t.id DESC LIMIT ?`)
	args = append(args, pageSize)

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(b.String()), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := &domain.TripPage{}
	var lastCreatedAt string
	for rows.Next() {
		trip, rawCreatedAt, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		page.Trips = append(page.Trips, trip)
		lastCreatedAt = rawCreatedAt
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(page.Trips) == pageSize {
		last := page.Trips[len(page.Trips)-1]
		page.NextCursor = repository.Cursor{CreatedAt: lastCreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

// GetTripByID returns the trip with its owner display name and ordered
// positions.
func (s *TripStore) GetTripByID(ctx context.Context, tripID string) (*domain.TripDetail, error) {
	key, err := parseID(tripID)
	if err != nil {
		return nil, err
	}

	query := s.dialect.rebind(`SELECT ` + tripColumns + `,
		COALESCE(u.first_name, ''), COALESCE(u.last_name, '')
		FROM trips t
		LEFT JOIN users u ON u.id = t.user_id
		WHERE t.id = ?`)

	var (
		trip       domain.Trip
		id, owner  int64
		rawCreated string
		rawUpdated string
		tripType   string
		firstName  string
		lastName   string
	)
	err = s.db.QueryRowContext(ctx, query, key).Scan(
		&id, &owner, &trip.Name, &trip.Description, &tripType,
		&rawCreated, &rawUpdated, &trip.PositionsCount,
		&firstName, &lastName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	trip.ID = formatID(id)
	trip.OwnerID = formatID(owner)
	trip.Type = domain.TripType(tripType)
	trip.CreatedAt = parseTimestamp(rawCreated)
	trip.UpdatedAt = parseTimestamp(rawUpdated)

	ownerName := strings.TrimSpace(firstName + " " + lastName)
	if ownerName == "" {
		ownerName = "unknown user"
	}

	positions, err := s.positionsForTrip(ctx, key)
	if err != nil {
		return nil, err
	}

	return &domain.TripDetail{
		Trip:      &trip,
		OwnerName: ownerName,
		Positions: positions,
	}, nil
}

func (s *TripStore) positionsForTrip(ctx context.Context, tripID int64) ([]domain.Position, error) {
	query := s.dialect.rebind(`
		SELECT id, trip_id, latitude, longitude, timestamp
		FROM positions
		WHERE trip_id = ?
		ORDER BY timestamp ASC, id ASC
	`)

	rows, err := s.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var pos domain.Position
		var id, tid int64
		if err := rows.Scan(&id, &tid, &pos.Latitude, &pos.Longitude, &pos.Timestamp); err != nil {
			return nil, err
		}
		pos.ID = formatID(id)
		pos.TripID = formatID(tid)
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// UpdateTrip persists only the provided fields and bumps updated_at.
func (s *TripStore) UpdateTrip(ctx context.Context, actorID, tripID string, upd domain.TripUpdate) (*domain.Trip, error) {
	key, err := parseID(tripID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.checkOwner(ctx, tx, key, actorID); err != nil {
		return nil, err
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().Format(domain.TimestampLayout)}
	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*upd.Type))
	}
	args = append(args, key)

	query := s.dialect.rebind(`UPDATE trips SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	trip, err := s.getTrip(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return trip, nil
}

// DeleteTrip removes the trip and all its positions in one transaction, so
// readers never observe one without the other.
func (s *TripStore) DeleteTrip(ctx context.Context, actorID, tripID string) error {
	key, err := parseID(tripID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.checkOwner(ctx, tx, key, actorID); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM positions WHERE trip_id = ?`), key); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM trips WHERE id = ?`), key); err != nil {
		return err
	}
	return tx.Commit()
}

// checkOwner resolves the trip's owner and compares it to the acting user.
// Owner ids are compared as opaque strings.
func (s *TripStore) checkOwner(ctx context.Context, q Querier, tripID int64, actorID string) error {
	var owner int64
	err := q.QueryRowContext(ctx, s.dialect.rebind(`SELECT user_id FROM trips WHERE id = ?`), tripID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	if formatID(owner) != actorID {
		return repository.ErrUnauthorized
	}
	return nil
}

func (s *TripStore) getTrip(ctx context.Context, q Querier, tripID int64) (*domain.Trip, error) {
	row := q.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+tripColumns+` FROM trips t WHERE t.id = ?`), tripID)
	trip, _, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return trip, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, string, error) {
	var (
		trip       domain.Trip
		id, owner  int64
		tripType   string
		rawCreated string
		rawUpdated string
	)
	err := row.Scan(
		&id, &owner, &trip.Name, &trip.Description, &tripType,
		&rawCreated, &rawUpdated, &trip.PositionsCount,
	)
	if err != nil {
		return nil, "", err
	}
	trip.ID = formatID(id)
	trip.OwnerID = formatID(owner)
	trip.Type = domain.TripType(tripType)
	trip.CreatedAt = parseTimestamp(rawCreated)
	trip.UpdatedAt = parseTimestamp(rawUpdated)
	return &trip, rawCreated, nil
}

var _ repository.TripStore = (*TripStore)(nil)

func parseTimestamp(s string) time.Time {
	t, err := time.ParseInLocation(domain.TimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
