package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"triplog/internal/domain"
	"triplog/internal/repository"
)

// userDoc is the stored profile shape. Credentials are never stored here;
// they belong to the auth provider.
type userDoc struct {
	FirstName string `firestore:"firstName"`
	LastName  string `firestore:"lastName"`
	Email     string `firestore:"email"`
}

// UserStore is the remote document implementation of repository.UserStore.
// It holds profile documents only.
type UserStore struct {
	client *firestore.Client
}

// NewUserStore creates a Firestore user store.
func NewUserStore(client *firestore.Client) *UserStore {
	return &UserStore{client: client}
}

// Create persists a profile document with a backend-assigned id.
func (s *UserStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	uid := user.ID
	if uid == "" {
		uid = uuid.New().String()
	}
	// Auth-provider issued uids keep the profile keyed by them.
	ref := s.client.Collection(usersCollection).Doc(uid)

	_, err := ref.Create(ctx, userDoc{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	})
	if err != nil {
		return nil, err
	}

	created := *user
	created.ID = ref.ID
	created.Password = ""
	return &created, nil
}

// GetByID retrieves a profile by uid.
func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	snap, err := s.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return fromUserDoc(snap)
}

// GetByEmail retrieves a profile by email equality.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	it := s.client.Collection(usersCollection).
		Where("email", "==", email).
		Limit(1).
		Documents(ctx)
	defer it.Stop()

	snap, err := it.Next()
	if err == iterator.Done {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromUserDoc(snap)
}

// UpdatePassword is unsupported: the auth provider owns credentials.
func (s *UserStore) UpdatePassword(ctx context.Context, id, newPassword string) error {
	return repository.ErrUnsupported
}

func fromUserDoc(snap *firestore.DocumentSnapshot) (*domain.User, error) {
	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return &domain.User{
		ID:        snap.Ref.ID,
		FirstName: doc.FirstName,
		LastName:  doc.LastName,
		Email:     doc.Email,
	}, nil
}

var _ repository.UserStore = (*UserStore)(nil)
