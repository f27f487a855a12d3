package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/application"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/access"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/client"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

const (
	directoryService = "directory-service"

	useCaseCreate      = "client.create"
	useCaseGet         = "client.get"
	useCaseListAll     = "client.list"
	useCaseListByOwner = "client.list_by_owner"
	useCaseUpdate      = "client.update"
	useCaseDelete      = "client.delete"
)

// Service manages clients; every call that touches a single client checks ownership.
type Service struct {
	repo  client.Repository
	ids   application.IDGenerator
	probe *application.Probe
	now   func() time.Time
}

func NewService(repo client.Repository, ids application.IDGenerator, tel observability.Observability) *Service {
	return &Service{
		repo:  repo,
		ids:   ids,
		probe: application.NewProbe(directoryService, tel),
		now:   time.Now,
	}
}

// Create registers a client owned by the principal.
func (s *Service) Create(ctx context.Context, p access.Principal, d client.Details) (_ *client.Client, err error) {
	ctx, run := s.probe.Start(ctx, useCaseCreate, "CreateClient", attribute.String("principal.id", p.ID))
	defer func() { run.End(err) }()

	if err := access.RequirePrincipal(&p); err != nil {
		return nil, err
	}
	c, err := client.New(s.ids.NewID(), p.ID, d, s.now())
	if err != nil {
		return nil, err
	}
	switch _, lookupErr := s.repo.FindByEmail(ctx, c.Email); {
	case lookupErr == nil:
		return nil, client.ErrEmailTaken
	case !errors.Is(lookupErr, apperr.ErrNotFound):
		run.Status("REPO_LOOKUP_FAILED")
		return nil, fmt.Errorf("directory: lookup email: %w", lookupErr)
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("directory: insert: %w", err)
	}
	run.Span().SetAttributes(attribute.String("client.id", c.ID))
	return c, nil
}

// Get returns the client if it exists and belongs to the principal.
func (s *Service) Get(ctx context.Context, p access.Principal, id string) (_ *client.Client, err error) {
	ctx, run := s.probe.Start(ctx, useCaseGet, "GetClient", attribute.String("client.id", id))
	defer func() { run.End(err) }()

	return s.owned(ctx, p, id)
}

func (s *Service) owned(ctx context.Context, p access.Principal, id string) (*client.Client, error) {
	if err := access.RequirePrincipal(&p); err != nil {
		return nil, err
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.AssertOwner(c, p); err != nil {
		return nil, err
	}
	return c, nil
}

// ListAll returns every client regardless of owner.
func (s *Service) ListAll(ctx context.Context) (_ []*client.Client, err error) {
	ctx, run := s.probe.Start(ctx, useCaseListAll, "ListClients")
	defer func() { run.End(err) }()

	clients, err := s.repo.List(ctx, client.Filter{})
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}
	return clients, nil
}

func (s *Service) ListByOwner(ctx context.Context, p access.Principal) (_ []*client.Client, err error) {
	ctx, run := s.probe.Start(ctx, useCaseListByOwner, "ListOwnedClients", attribute.String("principal.id", p.ID))
	defer func() { run.End(err) }()

	if err := access.RequirePrincipal(&p); err != nil {
		return nil, err
	}
	clients, err := s.repo.List(ctx, client.Filter{OwnerID: p.ID})
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}
	return clients, nil
}

func (s *Service) Update(ctx context.Context, p access.Principal, id string, patch client.Patch) (_ *client.Client, err error) {
	ctx, run := s.probe.Start(ctx, useCaseUpdate, "UpdateClient", attribute.String("client.id", id))
	defer func() { run.End(err) }()

	if _, err := s.owned(ctx, p, id); err != nil {
		return nil, err
	}
	now := s.now()
	return s.repo.Update(ctx, id, func(c *client.Client) error {
		if err := access.AssertOwner(c, p); err != nil {
			return err
		}
		return c.Apply(patch, now)
	})
}

func (s *Service) Delete(ctx context.Context, p access.Principal, id string) (err error) {
	ctx, run := s.probe.Start(ctx, useCaseDelete, "DeleteClient", attribute.String("client.id", id))
	defer func() { run.End(err) }()

	if _, err := s.owned(ctx, p, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
