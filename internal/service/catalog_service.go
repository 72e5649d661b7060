package service

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// CatalogService serves the status, priority and branch enum tables.
type CatalogService struct {
	repo   repository.CatalogRepository
	logger *zap.Logger
}

// NewCatalogService creates the service.
func NewCatalogService(repo repository.CatalogRepository, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, logger: logger}
}

// Get returns the live enum tables.
func (s *CatalogService) Get(ctx context.Context) (*domain.Catalog, error) {
	catalog, err := s.repo.Load(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return catalog, nil
}

// SeedFromFile upserts the enum rows listed in a YAML file.
func (s *CatalogService) SeedFromFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog seed: %w", err)
	}
	catalog, err := ParseCatalog(raw)
	if err != nil {
		return fmt.Errorf("parse catalog seed %s: %w", path, err)
	}
	if err := s.repo.Upsert(ctx, catalog); err != nil {
		return fmt.Errorf("upsert catalog: %w", err)
	}
	s.logger.Info("catalog seeded",
		zap.String("file", path),
		zap.Int("statuses", len(catalog.Statuses)),
		zap.Int("priorities", len(catalog.Priorities)),
		zap.Int("branches", len(catalog.Branches)),
	)
	return nil
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(raw []byte) (*domain.Catalog, error) {
	var catalog domain.Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, err
	}
	seen := map[string]map[int64]bool{"status": {}, "priority": {}, "branch": {}}
	check := func(kind string, id int64, name string) error {
		if id <= 0 || name == "" {
			return fmt.Errorf("%s entry needs a positive id and a name", kind)
		}
		if seen[kind][id] {
			return fmt.Errorf("duplicate %s id %d", kind, id)
		}
		seen[kind][id] = true
		return nil
	}
	for _, st := range catalog.Statuses {
		if err := check("status", st.ID, st.Name); err != nil {
			return nil, err
		}
	}
	for _, p := range catalog.Priorities {
		if err := check("priority", p.ID, p.Name); err != nil {
			return nil, err
		}
	}
	for _, b := range catalog.Branches {
		if err := check("branch", b.ID, b.Name); err != nil {
			return nil, err
		}
	}
	return &catalog, nil
}
