package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/db"
	"itops-backend/internal/platform/idgen"
)

const (
	RoleAdmin        = "admin"
	RoleTechnician   = "technician"
	RolePhotographer = "photographer"
	RoleStaff        = "staff"
)

func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleTechnician, RolePhotographer, RoleStaff:
		return true
	}
	return false
}

type Service struct {
	store  AccountStore
	secret []byte
	ttl    time.Duration
	clock  idgen.Clock
}

func NewService(store AccountStore, secret []byte, ttl time.Duration) *Service {
	return &Service{store: store, secret: secret, ttl: ttl, clock: idgen.SystemClock{}}
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Account   Account   `json:"account"`
}

func (s *Service) Login(ctx context.Context, id, password string) (LoginResult, error) {
	acct, err := s.store.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return LoginResult{}, err
	}
	if acct == nil {
		return LoginResult{}, apierr.Unauthenticated("authentication failed")
	}
	if acct.IsDisabled {
		return LoginResult{}, apierr.Forbidden("account disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, apierr.Unauthenticated("authentication failed")
	}

	now := s.clock.Now()
	exp := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  acct.ID,
		"name": acct.DisplayName,
		"role": acct.Role,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: signed, ExpiresAt: exp, Account: *acct}, nil
}

type RegisterRequest struct {
	ID          string `json:"id" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName" binding:"required"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

func (s *Service) Register(ctx context.Context, in RegisterRequest) (*Account, error) {
	role := in.Role
	if role == "" {
		role = RoleStaff
	}
	if !ValidRole(role) {
		return nil, apierr.Invalid("unknown role").WithDetail("role %q", role)
	}
	id := strings.TrimSpace(in.ID)
	exists, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists != nil {
		return nil, apierr.Conflict("account already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	a := &Account{
		ID:           id,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.store.Create(ctx, a); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apierr.Conflict("account already exists")
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, role string) ([]Account, error) {
	if role != "" && !ValidRole(role) {
		return nil, apierr.Invalid("unknown role")
	}
	return s.store.List(ctx, role)
}

func (s *Service) Disable(ctx context.Context, id string) error {
	n, err := s.store.Disable(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apierr.NotFound("account not found")
	}
	return nil
}

// DisplayNames resolves account ids to display names in order. Unknown or
// disabled accounts are rejected.
func (s *Service) DisplayNames(ctx context.Context, ids []string) ([]string, error) {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		a, err := s.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if a == nil || a.IsDisabled {
			return nil, apierr.Invalid("unknown assignee").WithDetail("%q", id)
		}
		names = append(names, a.DisplayName)
	}
	return names, nil
}
