package catalog

import (
	"context"
	"log"
	"strings"

	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/db"
)

type repository interface {
	List(ctx context.Context, includeDisabled bool) ([]Category, error)
	GetByID(ctx context.Context, id uint) (*Category, error)
	GetByCode(ctx context.Context, code string) (*Category, error)
	Create(ctx context.Context, name, code string) (*Category, error)
	Update(ctx context.Context, id uint, name, code string, disabled bool) error
	Disable(ctx context.Context, id uint) error
}

type Service struct {
	store repository
}

func NewService(store *Store) *Service { return &Service{store: store} }

func parseBoolish(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "1" || s == "true" || s == "yes" || s == "all"
}

// normalizeCode upper-cases the code. Codes are embedded in stock ids
// separated by dashes, so only letters and digits are allowed.
func normalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", apierr.Invalid("code is required")
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", apierr.Invalid("invalid request").WithDetail("code %q must be letters and digits", code)
		}
	}
	return code, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apierr.Invalid("name is required")
	}
	return name, nil
}

func mapErr(err error) error {
	if db.IsDuplicateKey(err) {
		return apierr.Conflict("category code already exists")
	}
	return apierr.FromDB(err, "category not found")
}

func (s *Service) List(ctx context.Context, all string) ([]Category, error) {
	return s.store.List(ctx, parseBoolish(all))
}

func (s *Service) Get(ctx context.Context, id uint) (*Category, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, name, code string) (*Category, error) {
	n, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	c, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	cat, err := s.store.Create(ctx, n, c)
	if err != nil {
		return nil, mapErr(err)
	}
	log.Printf("[INFO] category created id=%d code=%s", cat.ID, cat.Code)
	return cat, nil
}

func (s *Service) Update(ctx context.Context, id uint, name, code string, disabled bool) (*Category, error) {
	n, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	c, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, id, n, c, disabled); err != nil {
		return nil, mapErr(err)
	}
	return s.Get(ctx, id)
}

func (s *Service) Disable(ctx context.Context, id uint) error {
	if err := s.store.Disable(ctx, id); err != nil {
		return mapErr(err)
	}
	log.Printf("[INFO] category disabled id=%d", id)
	return nil
}

// CheckUsable reports whether products may be filed under code.
func (s *Service) CheckUsable(ctx context.Context, code string) error {
	c, err := s.store.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return mapErr(err)
	}
	if c.IsDisabled {
		return apierr.Invalid("category is disabled").WithDetail("%s", c.Code)
	}
	return nil
}
