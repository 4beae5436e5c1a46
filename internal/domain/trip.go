package domain

import "time"

// TimestampLayout is the fixed-width, lexically sortable format used for
// position timestamps and relational createdAt columns.
const TimestampLayout = "2006-01-02 15:04:05"

// TripType classifies a trip.
type TripType string

const (
	TripTypePersonal TripType = "personal"
	TripTypeBusiness TripType = "business"
)

// Valid reports whether t is one of the known trip types.
func (t TripType) Valid() bool {
	return t == TripTypePersonal || t == TripTypeBusiness
}

// Trip is a named, owned collection of ordered GPS positions.
// IDs are opaque and backend-assigned, never client-chosen. OwnerID is
// immutable once set and is the sole authority for mutation rights.
type Trip struct {
	ID             string
	OwnerID        string
	Name           string
	Description    string
	Type           TripType
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PositionsCount int
}

// Position is one timestamped latitude/longitude sample belonging to
// exactly one trip. Timestamp uses TimestampLayout; within a trip positions
// are stored in non-decreasing timestamp order, ties broken by assigned id.
type Position struct {
	ID        string
	TripID    string
	Latitude  float64
	Longitude float64
	Timestamp string
}

// TripUpdate carries the partial fields UpdateTrip may change. Nil means
// "leave unchanged". OwnerID, CreatedAt and ID are never updatable.
type TripUpdate struct {
	Name        *string
	Description *string
	Type        *TripType
}

// Empty reports whether the update changes nothing.
func (u TripUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Type == nil
}

// TripPage is one page of an owner's trip listing, ordered by CreatedAt
// descending. NextCursor is an opaque continuation token; empty means no
// more pages.
type TripPage struct {
	Trips      []*Trip
	NextCursor string
}

// TripDetail is a trip with its resolved owner display name and the full
// ordered position list.
type TripDetail struct {
	Trip      *Trip
	OwnerName string
	Positions []Position
}
