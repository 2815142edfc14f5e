package user

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotFound is returned when no user document exists for the id
var ErrNotFound = errors.New("user not found")

// Repository defines user data access against the remote store
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	Put(ctx context.Context, u *User) error
}

type repository struct {
	client     *firestore.Client
	collection string
}

// NewRepository creates a Firestore-backed user repository
func NewRepository(client *firestore.Client) Repository {
	return &repository{client: client, collection: "users"}
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	doc, err := r.client.Collection(r.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}

	var u User
	if err := doc.DataTo(&u); err != nil {
		return nil, fmt.Errorf("parse user %s: %w", id, err)
	}
	u.Role = ParseRole(string(u.Role))

	return &u, nil
}

func (r *repository) Put(ctx context.Context, u *User) error {
	if _, err := r.client.Collection(r.collection).Doc(u.ID).Set(ctx, u); err != nil {
		return fmt.Errorf("put user %s: %w", u.ID, err)
	}
	return nil
}
