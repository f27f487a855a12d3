package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/user"
)

type UserRepository struct {
	mu      sync.RWMutex
	users   map[string]*user.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[string]*user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) Insert(ctx context.Context, u *user.User) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	email := user.NormalizeEmail(u.Email)
	if _, taken := r.byEmail[email]; taken {
		return user.ErrEmailTaken
	}
	clone := *u
	r.users[u.ID] = &clone
	r.byEmail[email] = u.ID
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[user.NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, user.ErrNotFound
	}
	return r.Get(ctx, id)
}
