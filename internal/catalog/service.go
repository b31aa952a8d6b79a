package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=catalog
type Repository interface {
	ListDepartments(ctx context.Context, userID string) ([]*Department, error)
	CreateDepartment(ctx context.Context, d *Department) error
	ListAccounts(ctx context.Context, userID string) ([]*Account, error)
	CreateAccount(ctx context.Context, a *Account) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListDepartments(ctx context.Context, userID string) ([]*Department, error) {
	deps, err := s.repo.ListDepartments(ctx, userID)
	if err != nil {
		return nil, errs.Persistence("list departments", err)
	}

	return deps, nil
}

// CreateDepartment adds a department. Color is free-form and only used for display.
func (s *Service) CreateDepartment(ctx context.Context, userID, name, color string) (*Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Invalid("name", "is required")
	}

	d := &Department{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		Color:  strings.TrimSpace(color),
	}
	if err := s.repo.CreateDepartment(ctx, d); err != nil {
		return nil, errs.Persistence("create department", err)
	}

	return d, nil
}

func (s *Service) ListAccounts(ctx context.Context, userID string) ([]*Account, error) {
	accounts, err := s.repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, errs.Persistence("list accounts", err)
	}

	return accounts, nil
}

func (s *Service) CreateAccount(ctx context.Context, userID, name, code string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Invalid("name", "is required")
	}

	a := &Account{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		Code:   strings.TrimSpace(code),
	}
	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, errs.Persistence("create account", err)
	}

	return a, nil
}
