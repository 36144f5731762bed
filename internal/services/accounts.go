package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"fincoach/internal/auth"
	"fincoach/internal/core"
	applog "fincoach/internal/log"
	"fincoach/internal/storage"
)

var (
	ErrInvalidProfile = errors.New("invalid profile")
	ErrInvalidEmail   = errors.New("invalid email")
)

type accountRepository interface {
	storage.UserStore
	storage.ProfileStore
}

// AccountService registers users, logs them in and keeps their profile.
type AccountService struct {
	store  accountRepository
	tokens *auth.TokenService
	cache  Invalidator
	logger *applog.Logger
}

func NewAccountService(store accountRepository, tokens *auth.TokenService, cache Invalidator, logger *applog.Logger) *AccountService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &AccountService{store: store, tokens: tokens, cache: cache, logger: logger.WithComponent(applog.ComponentAuth)}
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      core.User `json:"user"`
}

func (s *AccountService) Register(ctx context.Context, email, password, name string) (Session, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	u, err := s.store.CreateUser(ctx, core.User{
		Email:        addr.Address,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	})
	if err != nil {
		return Session{}, err
	}
	s.logger.InfoContext(ctx, "User registered", applog.FieldUserID, u.ID)
	return s.session(u)
}

// Login answers auth.ErrInvalidCredentials for unknown emails and wrong passwords alike.
func (s *AccountService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("find user: %w", err)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		s.logger.WarnContext(ctx, "Failed login", applog.FieldUserID, u.ID)
		return Session{}, err
	}
	return s.session(u)
}

func (s *AccountService) session(u core.User) (Session, error) {
	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// Authenticate resolves a bearer token to its user ID.
func (s *AccountService) Authenticate(token string) (int64, error) {
	return s.tokens.Verify(token)
}

func (s *AccountService) Profile(ctx context.Context, userID int64) (core.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.DefaultProfile(userID), nil
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

var riskTolerances = map[string]bool{"conservative": true, "moderate": true, "aggressive": true}

func (s *AccountService) SaveProfile(ctx context.Context, userID int64, p core.Profile) (core.Profile, error) {
	p.UserID = userID
	switch p.EmploymentType {
	case "":
		p.EmploymentType = core.Unknown
	case core.Formal, core.Gig, core.Informal, core.SelfEmployed, core.Unknown:
	default:
		return core.Profile{}, fmt.Errorf("%w: employment type %q", ErrInvalidProfile, p.EmploymentType)
	}
	p.RiskTolerance = strings.ToLower(strings.TrimSpace(p.RiskTolerance))
	if p.RiskTolerance == "" {
		p.RiskTolerance = "moderate"
	}
	if !riskTolerances[p.RiskTolerance] {
		return core.Profile{}, fmt.Errorf("%w: risk tolerance %q", ErrInvalidProfile, p.RiskTolerance)
	}
	if p.MonthlyIncome.Cents < 0 || p.MonthlyExpenses.Cents < 0 {
		return core.Profile{}, fmt.Errorf("%w: amounts must not be negative", ErrInvalidProfile)
	}
	if p.FinancialGoals == nil {
		p.FinancialGoals = []string{}
	}
	saved, err := s.store.SaveProfile(ctx, p)
	if err != nil {
		return core.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}
	return saved, nil
}
