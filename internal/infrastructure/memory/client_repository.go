package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/client"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/user"
)

type ClientRepository struct {
	mu      sync.RWMutex
	clients map[string]*client.Client
	byEmail map[string]string
	order   []string
}

func NewClientRepository() *ClientRepository {
	return &ClientRepository{
		clients: make(map[string]*client.Client),
		byEmail: make(map[string]string),
	}
}

func (r *ClientRepository) Insert(ctx context.Context, c *client.Client) error {
	_ = ctx
	if c == nil || c.ID == "" {
		return fmt.Errorf("client repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	email := user.NormalizeEmail(c.Email)
	if _, taken := r.byEmail[email]; taken {
		return client.ErrEmailTaken
	}
	r.clients[c.ID] = c.Clone()
	r.byEmail[email] = c.ID
	r.order = append(r.order, c.ID)
	return nil
}

func (r *ClientRepository) Get(ctx context.Context, id string) (*client.Client, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *ClientRepository) FindByEmail(ctx context.Context, email string) (*client.Client, error) {
	r.mu.RLock()
	id, ok := r.byEmail[user.NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, client.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *ClientRepository) List(ctx context.Context, f client.Filter) ([]*client.Client, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*client.Client, 0, len(r.order))
	for _, id := range r.order {
		c := r.clients[id]
		if f.OwnerID != "" && c.OwnerID != f.OwnerID {
			continue
		}
		out = append(out, c.Clone())
	}
	return out, nil
}

func (r *ClientRepository) Update(ctx context.Context, id string, fn func(c *client.Client) error) (*client.Client, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.clients[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	next.OwnerID = current.OwnerID

	oldEmail := user.NormalizeEmail(current.Email)
	newEmail := user.NormalizeEmail(next.Email)
	if newEmail != oldEmail {
		if _, taken := r.byEmail[newEmail]; taken {
			return nil, client.ErrEmailTaken
		}
		delete(r.byEmail, oldEmail)
		r.byEmail[newEmail] = id
	}
	r.clients[id] = next
	return next.Clone(), nil
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return client.ErrNotFound
	}
	delete(r.byEmail, user.NormalizeEmail(c.Email))
	delete(r.clients, id)
	r.order = removeID(r.order, id)
	return nil
}
