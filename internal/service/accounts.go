// Package service provides the account business logic, binding the row
// operation builder to a transactional executor.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JohanU89-coder/radius-api/internal/models"
	"github.com/JohanU89-coder/radius-api/internal/rowops"
)

// AccountRepository defines the transactional executor required by the AccountService.
type AccountRepository interface {
	// Run executes stmts in one transaction and reports what they produced.
	// Either every statement is applied or none is.
	Run(ctx context.Context, stmts []rowops.Statement) (*rowops.Outcome, error)
}

// AccountService maps account intents onto row operations and executes
// each intent as a single unit.
type AccountService struct {
	// repo executes statement lists atomically.
	repo AccountRepository
	// builder knows how an account is spread across relations.
	builder *rowops.Builder
	log     *zap.Logger
}

// NewAccountService constructs an AccountService. A nil log disables logging.
func NewAccountService(repo AccountRepository, builder *rowops.Builder, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{repo: repo, builder: builder, log: log}
}

func (s *AccountService) run(ctx context.Context, intent, username string, stmts []rowops.Statement) (*rowops.Outcome, error) {
	out, err := s.repo.Run(ctx, stmts)
	if err == nil {
		return out, nil
	}

	fields := []zap.Field{zap.String("intent", intent), zap.String("username", username), zap.Error(err)}
	switch {
	case errors.Is(err, models.ErrAccountNotFound), errors.Is(err, models.ErrAccountExists):
		s.log.Debug("account intent rejected", fields...)
	case errors.Is(err, models.ErrStoreUnavailable):
		s.log.Error("store connection failed", fields...)
	default:
		s.log.Error("account intent rolled back", fields...)
	}
	return nil, err
}

// Create inserts a new account with its password and optional attributes.
func (s *AccountService) Create(ctx context.Context, username string, fields models.AccountFields) error {
	stmts, err := s.builder.Create(username, fields)
	if err != nil {
		return err
	}
	if _, err := s.run(ctx, "create", username, stmts); err != nil {
		return err
	}
	s.log.Info("account created", zap.String("username", username))
	return nil
}

// Get assembles the account. It returns models.ErrAccountNotFound when
// neither check nor reply attributes exist.
func (s *AccountService) Get(ctx context.Context, username string) (*models.Account, error) {
	out, err := s.run(ctx, "read", username, s.builder.Read(username))
	if err != nil {
		return nil, err
	}
	if len(out.Check) == 0 && len(out.Reply) == 0 {
		return nil, models.ErrAccountNotFound
	}

	account := &models.Account{
		Username: username,
		Check:    out.Check,
		Reply:    out.Reply,
		Groups:   out.Groups,
	}
	if len(out.Profiles) > 0 {
		p := out.Profiles[0]
		account.Profile = &p
	}
	return account, nil
}

// List returns one profile per known account.
func (s *AccountService) List(ctx context.Context) ([]models.Profile, error) {
	out, err := s.run(ctx, "list", "", s.builder.List())
	if err != nil {
		return nil, err
	}
	if out.Profiles == nil {
		return []models.Profile{}, nil
	}
	return out.Profiles, nil
}

// Update patches the supplied fields of an existing account.
func (s *AccountService) Update(ctx context.Context, username string, fields models.AccountFields) error {
	stmts, err := s.builder.Update(username, fields)
	if err != nil {
		return err
	}
	if _, err := s.run(ctx, "update", username, stmts); err != nil {
		return err
	}
	s.log.Info("account updated", zap.String("username", username))
	return nil
}

// Delete removes the account from every relation. It returns
// models.ErrAccountNotFound when no relation held a row for it.
func (s *AccountService) Delete(ctx context.Context, username string) error {
	out, err := s.run(ctx, "delete", username, s.builder.Delete(username))
	if err != nil {
		return err
	}
	if out.Affected == 0 {
		return models.ErrAccountNotFound
	}
	s.log.Info("account deleted", zap.String("username", username), zap.Int64("rows", out.Affected))
	return nil
}

// SetActive enables or administratively disables the account through the
// Auth-Type := Reject check row.
func (s *AccountService) SetActive(ctx context.Context, username string, active bool) error {
	if _, err := s.run(ctx, "set-active", username, s.builder.Activation(username, active)); err != nil {
		return err
	}
	s.log.Info("account activation changed", zap.String("username", username), zap.Bool("active", active))
	return nil
}
