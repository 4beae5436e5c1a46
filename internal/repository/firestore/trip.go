package firestore

import (
	"context"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"triplog/internal/domain"
	"triplog/internal/repository"
)

const (
	tripsCollection     = "trips"
	positionsCollection = "positions"
	usersCollection     = "users"
)

// A Firestore write batch holds at most 500 operations.
const maxBatchWrites = 500

// tripDoc mirrors the stored shape of a trip document. Timestamps are unix
// milliseconds, matching the web client that shares this collection.
type tripDoc struct {
	OwnerID        string `firestore:"ownerId"`
	Name           string `firestore:"name"`
	Description    string `firestore:"description"`
	Type           string `firestore:"type"`
	PositionsCount int    `firestore:"positionsCount"`
	CreatedAt      int64  `firestore:"createdAt"`
	UpdatedAt      int64  `firestore:"updatedAt"`
}

type positionDoc struct {
	Latitude  float64 `firestore:"latitude"`
	Longitude float64 `firestore:"longitude"`
	Timestamp string  `firestore:"timestamp"`
}

// TripStore is the remote document implementation of repository.TripStore.
// Trips live in a top-level collection with positions as a sub-collection
// per trip; positionsCount is denormalized on the trip document.
type TripStore struct {
	client *firestore.Client
}

// NewTripStore creates a Firestore trip store.
func NewTripStore(client *firestore.Client) *TripStore {
	return &TripStore{client: client}
}

// CreateTrip writes the trip document and all position documents in write
// batches, the first of which carries the trip itself, so a trip never
// becomes visible without its initial positions. A write batch holds at most
// maxBatchWrites operations, so beyond roughly 500 positions atomicity spans
// only the first batch; if a later batch fails, the documents committed so
// far are deleted on a best-effort basis before the error is returned.
func (s *TripStore) CreateTrip(ctx context.Context, trip *domain.Trip, positions []domain.Position) (*domain.Trip, error) {
	tripRef := s.client.Collection(tripsCollection).NewDoc()
	created := s.stampTrip(trip, tripRef.ID, len(positions))

	batch := s.client.Batch()
	batch.Create(tripRef, toTripDoc(created))
	ops := 1

	posRefs := make([]*firestore.DocumentRef, 0, len(positions))
	flushed := 0

	for _, pos := range positions {
		if ops == maxBatchWrites {
			if _, err := batch.Commit(ctx); err != nil {
				s.rollbackCreate(ctx, tripRef, posRefs[:flushed])
				return nil, err
			}
			flushed = len(posRefs)
			batch = s.client.Batch()
			ops = 0
		}
		posRef := tripRef.Collection(positionsCollection).NewDoc()
		batch.Create(posRef, positionDoc{
			Latitude:  pos.Latitude,
			Longitude: pos.Longitude,
			Timestamp: pos.Timestamp,
		})
		posRefs = append(posRefs, posRef)
		ops++
	}

	if _, err := batch.Commit(ctx); err != nil {
		s.rollbackCreate(ctx, tripRef, posRefs[:flushed])
		return nil, err
	}
	return created, nil
}

// rollbackCreate deletes the documents an interrupted multi-batch create left
// behind. The trip document goes first so the partial trip stops being
// visible immediately. Errors are swallowed: the create failure is the one
// the caller acts on, and orphaned positions are unreachable without their
// trip.
func (s *TripStore) rollbackCreate(ctx context.Context, tripRef *firestore.DocumentRef, posRefs []*firestore.DocumentRef) {
	if len(posRefs) == 0 {
		_, _ = tripRef.Delete(ctx)
		return
	}

	batch := s.client.Batch()
	batch.Delete(tripRef)
	ops := 1
	for _, ref := range posRefs {
		if ops == maxBatchWrites {
			_, _ = batch.Commit(ctx)
			batch = s.client.Batch()
			ops = 0
		}
		batch.Delete(ref)
		ops++
	}
	_, _ = batch.Commit(ctx)
}

// CreateTripShell writes the trip document alone for the legacy commit path.
func (s *TripStore) CreateTripShell(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
	tripRef := s.client.Collection(tripsCollection).NewDoc()
	created := s.stampTrip(trip, tripRef.ID, 0)
	if _, err := tripRef.Create(ctx, toTripDoc(created)); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *TripStore) stampTrip(trip *domain.Trip, id string, count int) *domain.Trip {
	created := *trip
	created.ID = id
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}
	if created.UpdatedAt.IsZero() {
		created.UpdatedAt = created.CreatedAt
	}
	created.PositionsCount = count
	return &created
}

// AppendPosition appends one position document after the ownership check.
func (s *TripStore) AppendPosition(ctx context.Context, actorID, tripID string, pos domain.Position) error {
	tripRef := s.client.Collection(tripsCollection).Doc(tripID)
	if _, err := s.ownedTrip(ctx, tripRef, actorID); err != nil {
		return err
	}

	_, err := tripRef.Collection(positionsCollection).NewDoc().Create(ctx, positionDoc{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Timestamp: pos.Timestamp,
	})
	return err
}

// RecountPositions recomputes positionsCount from the sub-collection and
// writes it back to the trip document.
func (s *TripStore) RecountPositions(ctx context.Context, tripID string) (int, error) {
	tripRef := s.client.Collection(tripsCollection).Doc(tripID)

	count := 0
	it := tripRef.Collection(positionsCollection).Select().Documents(ctx)
	defer it.Stop()
	for {
		_, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, err
		}
		count++
	}

	_, err := tripRef.Update(ctx, []firestore.Update{
		{Path: "positionsCount", Value: count},
		{Path: "updatedAt", Value: time.Now().UnixMilli()},
	})
	if err != nil {
		return 0, mapNotFound(err)
	}
	return count, nil
}

// ListTrips pages through the owner's trips with createdAt-descending order
// and StartAfter continuation, so cursors issued earlier stay valid when
// newer trips land at the head.
func (s *TripStore) ListTrips(ctx context.Context, ownerID string, q repository.ListQuery) (*domain.TripPage, error) {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = repository.DefaultPageSize
	}

	query := s.client.Collection(tripsCollection).
		Where("ownerId", "==", ownerID)
	if q.Type != "" {
		query = query.Where("type", "==", string(q.Type))
	}
	query = query.
		OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc).
		Limit(pageSize)

	cursor, err := repository.DecodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor.ID != "" {
		millis, err := strconv.ParseInt(cursor.CreatedAt, 10, 64)
		if err != nil {
			return nil, repository.ErrInvalidCursor
		}
		query = query.StartAfter(millis, cursor.ID)
	}

	it := query.Documents(ctx)
	defer it.Stop()

	page := &domain.TripPage{}
	var lastCreatedAt int64
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var doc tripDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, err
		}
		page.Trips = append(page.Trips, fromTripDoc(snap.Ref.ID, doc))
		lastCreatedAt = doc.CreatedAt
	}

	if len(page.Trips) == pageSize {
		last := page.Trips[len(page.Trips)-1]
		page.NextCursor = repository.Cursor{
			CreatedAt: strconv.FormatInt(lastCreatedAt, 10),
			ID:        last.ID,
		}.Encode()
	}
	return page, nil
}

// GetTripByID returns the trip, its owner display name resolved from the
// users collection, and the position sub-collection in timestamp order.
func (s *TripStore) GetTripByID(ctx context.Context, tripID string) (*domain.TripDetail, error) {
	tripRef := s.client.Collection(tripsCollection).Doc(tripID)
	snap, err := tripRef.Get(ctx)
	if err != nil {
		return nil, mapNotFound(err)
	}

	var doc tripDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	trip := fromTripDoc(snap.Ref.ID, doc)

	positions, err := s.positionsForTrip(ctx, tripRef, trip.ID)
	if err != nil {
		return nil, err
	}

	return &domain.TripDetail{
		Trip:      trip,
		OwnerName: s.resolveOwnerName(ctx, doc.OwnerID),
		Positions: positions,
	}, nil
}

func (s *TripStore) positionsForTrip(ctx context.Context, tripRef *firestore.DocumentRef, tripID string) ([]domain.Position, error) {
	it := tripRef.Collection(positionsCollection).
		OrderBy("timestamp", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer it.Stop()

	var positions []domain.Position
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var doc positionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, err
		}
		positions = append(positions, domain.Position{
			ID:        snap.Ref.ID,
			TripID:    tripID,
			Latitude:  doc.Latitude,
			Longitude: doc.Longitude,
			Timestamp: doc.Timestamp,
		})
	}
	return positions, nil
}

func (s *TripStore) resolveOwnerName(ctx context.Context, ownerID string) string {
	const fallback = "unknown user"
	if ownerID == "" {
		return fallback
	}
	snap, err := s.client.Collection(usersCollection).Doc(ownerID).Get(ctx)
	if err != nil {
		return fallback
	}
	var profile struct {
		FirstName string `firestore:"firstName"`
		LastName  string `firestore:"lastName"`
	}
	if err := snap.DataTo(&profile); err != nil {
		return fallback
	}
	user := domain.User{FirstName: profile.FirstName, LastName: profile.LastName}
	if name := user.DisplayName(); name != "" {
		return name
	}
	return fallback
}

// UpdateTrip writes only the provided fields plus updatedAt.
func (s *TripStore) UpdateTrip(ctx context.Context, actorID, tripID string, upd domain.TripUpdate) (*domain.Trip, error) {
	tripRef := s.client.Collection(tripsCollection).Doc(tripID)
	if _, err := s.ownedTrip(ctx, tripRef, actorID); err != nil {
		return nil, err
	}

	updates := []firestore.Update{{Path: "updatedAt", Value: time.Now().UnixMilli()}}
	if upd.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *upd.Name})
	}
	if upd.Description != nil {
		updates = append(updates, firestore.Update{Path: "description", Value: *upd.Description})
	}
	if upd.Type != nil {
		updates = append(updates, firestore.Update{Path: "type", Value: string(*upd.Type)})
	}

	if _, err := tripRef.Update(ctx, updates); err != nil {
		return nil, mapNotFound(err)
	}

	snap, err := tripRef.Get(ctx)
	if err != nil {
		return nil, mapNotFound(err)
	}
	var doc tripDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return fromTripDoc(snap.Ref.ID, doc), nil
}

// DeleteTrip removes the position sub-collection and the trip document in
// write batches, the trip itself going in the final batch so it is never
// gone while positions remain readable through it.
func (s *TripStore) DeleteTrip(ctx context.Context, actorID, tripID string) error {
	tripRef := s.client.Collection(tripsCollection).Doc(tripID)
	if _, err := s.ownedTrip(ctx, tripRef, actorID); err != nil {
		return err
	}

	it := tripRef.Collection(positionsCollection).Select().Documents(ctx)
	defer it.Stop()

	batch := s.client.Batch()
	ops := 0
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return err
		}
		if ops == maxBatchWrites {
			if _, err := batch.Commit(ctx); err != nil {
				return err
			}
			batch = s.client.Batch()
			ops = 0
		}
		batch.Delete(snap.Ref)
		ops++
	}

	if ops == maxBatchWrites {
		if _, err := batch.Commit(ctx); err != nil {
			return err
		}
		batch = s.client.Batch()
	}
	batch.Delete(tripRef)
	_, err := batch.Commit(ctx)
	return err
}

// ownedTrip loads the trip and verifies the acting user owns it. Owner ids
// are compared as opaque strings.
func (s *TripStore) ownedTrip(ctx context.Context, tripRef *firestore.DocumentRef, actorID string) (*tripDoc, error) {
	snap, err := tripRef.Get(ctx)
	if err != nil {
		return nil, mapNotFound(err)
	}
	var doc tripDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	if doc.OwnerID != actorID {
		return nil, repository.ErrUnauthorized
	}
	return &doc, nil
}

func toTripDoc(trip *domain.Trip) tripDoc {
	return tripDoc{
		OwnerID:        trip.OwnerID,
		Name:           trip.Name,
		Description:    trip.Description,
		Type:           string(trip.Type),
		PositionsCount: trip.PositionsCount,
		CreatedAt:      trip.CreatedAt.UnixMilli(),
		UpdatedAt:      trip.UpdatedAt.UnixMilli(),
	}
}

func fromTripDoc(id string, doc tripDoc) *domain.Trip {
	return &domain.Trip{
		ID:             id,
		OwnerID:        doc.OwnerID,
		Name:           doc.Name,
		Description:    doc.Description,
		Type:           domain.TripType(doc.Type),
		CreatedAt:      time.UnixMilli(doc.CreatedAt),
		UpdatedAt:      time.UnixMilli(doc.UpdatedAt),
		PositionsCount: doc.PositionsCount,
	}
}

func mapNotFound(err error) error {
	if status.Code(err) == codes.NotFound {
		return repository.ErrNotFound
	}
	return err
}

var _ repository.TripStore = (*TripStore)(nil)
