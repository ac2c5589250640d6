package memstore

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
)

type Users struct{ s *Store }

var _ user.Repository = (*Users)(nil)

func (r *Users) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.find(ctx, func(u user.User) bool { return u.Email == email })
}

func (r *Users) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.find(ctx, func(u user.User) bool { return u.Username == username })
}

func (r *Users) find(ctx context.Context, match func(user.User) bool) (*user.User, error) {
	defer r.s.lock(ctx)()
	for _, u := range r.s.data.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}
