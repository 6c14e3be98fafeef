package stores

import (
	"context"
	"fmt"
	"strings"
)

// Service wraps store lookups and lifecycle transitions.
type Service struct {
	repo Repository
}

// NewService constructs the store service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve maps a shop domain to its store record. Unknown domains return
// ErrNotFound, which callers must treat as terminal for the request.
// Disconnected stores still resolve: webhook deliveries routinely trail an
// uninstall by minutes, and dropping them would lose the final delete events.
func (s *Service) Resolve(ctx context.Context, domain string) (*Store, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, ErrNotFound
	}
	return s.repo.GetByDomain(ctx, domain)
}

// Install upserts the store record after a completed OAuth exchange and
// returns the internal id.
func (s *Service) Install(ctx context.Context, domain string, sealedToken []byte, scope string) (int64, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return 0, fmt.Errorf("install: empty domain")
	}
	id, err := s.repo.Upsert(ctx, domain, sealedToken, scope)
	if err != nil {
		return 0, fmt.Errorf("install %s: %w", domain, err)
	}
	return id, nil
}

// Get returns a store by internal id.
func (s *Service) Get(ctx context.Context, id int64) (*Store, error) {
	return s.repo.Get(ctx, id)
}

// List returns all stores ordered by domain.
func (s *Service) List(ctx context.Context) ([]Store, error) {
	return s.repo.List(ctx)
}

// Disconnect marks the store as uninstalled. Disconnecting an already
// disconnected store is a no-op success.
func (s *Service) Disconnect(ctx context.Context, id int64) error {
	return s.repo.Disconnect(ctx, id)
}
