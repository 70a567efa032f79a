package service

import (
	"context"
	"time"

	"deskhub_backend/internal/auth/transport"
	"deskhub_backend/platform/apperr"
	"deskhub_backend/platform/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const accessTokenType = "access"

const invalidCredentialsMsg = "invalid credentials"

// Account is an agent's credential view, supplied by the agents module.
type Account struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
}

// AgentDirectory resolves agent accounts for login and identity lookups.
// Implemented by an adapter in internal/adapters wrapping the agents module.
type AgentDirectory interface {
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// Service provides agent authentication.
type Service struct {
	directory AgentDirectory
	cfg       config.AuthServiceConfig
}

// New creates a new auth service.
func New(directory AgentDirectory, cfg config.AuthServiceConfig) *Service {
	return &Service{directory: directory, cfg: cfg}
}

// Login verifies an agent's credentials and issues a signed access token.
// Unknown addresses, bad passwords, and deactivated agents all return the
// same error so login cannot be used to probe for accounts.
func (s *Service) Login(ctx context.Context, req transport.LoginRequest) (*transport.LoginResponse, error) {
	account, err := s.directory.AccountByEmail(ctx, req.Email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized(invalidCredentialsMsg)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized(invalidCredentialsMsg)
	}
	if !account.Active {
		return nil, apperr.Unauthorized(invalidCredentialsMsg)
	}

	expiresAt := time.Now().Add(s.cfg.GetAccessTokenTTL())
	token, err := s.signJWT(account, expiresAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to sign token", err)
	}

	return &transport.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Agent:       buildAgentInfo(account),
	}, nil
}

// Me returns the identity behind an authenticated request.
func (s *Service) Me(ctx context.Context, agentID uuid.UUID) (*transport.AgentInfo, error) {
	account, err := s.directory.AccountByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	info := buildAgentInfo(account)
	return &info, nil
}

func (s *Service) signJWT(account *Account, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  account.ID.String(),
		"role": account.Role,
		"type": accessTokenType,
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

func buildAgentInfo(account *Account) transport.AgentInfo {
	return transport.AgentInfo{
		ID:    account.ID,
		Name:  account.Name,
		Email: account.Email,
		Role:  account.Role,
	}
}
