package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"deskhub_backend/internal/auth/transport"
	"deskhub_backend/platform/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type fakeDirectory struct {
	accounts map[string]*Account
}

func (f *fakeDirectory) AccountByEmail(_ context.Context, email string) (*Account, error) {
	for _, account := range f.accounts {
		if strings.EqualFold(account.Email, strings.TrimSpace(email)) {
			return account, nil
		}
	}
	return nil, apperr.NotFound("agent not found")
}

func (f *fakeDirectory) AccountByID(_ context.Context, id uuid.UUID) (*Account, error) {
	for _, account := range f.accounts {
		if account.ID == id {
			return account, nil
		}
	}
	return nil, apperr.NotFound("agent not found")
}

type fakeConfig struct{}

func (fakeConfig) GetJWTAccessSecret() string       { return "test-secret" }
func (fakeConfig) GetAccessTokenTTL() time.Duration { return 15 * time.Minute }

func newTestService(t *testing.T) (*Service, *Account) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	account := &Account{
		ID:           uuid.New(),
		Name:         "Agent Smith",
		Email:        "smith@example.com",
		PasswordHash: string(hash),
		Role:         "SENIOR_AGENT",
		Active:       true,
	}
	directory := &fakeDirectory{accounts: map[string]*Account{account.Email: account}}
	return New(directory, fakeConfig{}), account
}

func TestLogin_IssuesAccessToken(t *testing.T) {
	svc, account := newTestService(t)

	resp, err := svc.Login(context.Background(), transport.LoginRequest{
		Email:    "smith@example.com",
		Password: "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Agent.ID != account.ID || resp.Agent.Role != "SENIOR_AGENT" {
		t.Fatalf("agent info = %+v", resp.Agent)
	}

	parsed, err := jwt.Parse(resp.AccessToken, func(token *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not parse: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != account.ID.String() {
		t.Fatalf("sub = %v, want agent ID", claims["sub"])
	}
	if claims["role"] != "SENIOR_AGENT" || claims["type"] != "access" {
		t.Fatalf("claims = %v", claims)
	}
}

func TestLogin_RejectionsAreUniform(t *testing.T) {
	svc, account := newTestService(t)

	cases := []struct {
		name     string
		email    string
		password string
		setup    func()
	}{
		{name: "unknown email", email: "nobody@example.com", password: "whatever"},
		{name: "wrong password", email: "smith@example.com", password: "wrong"},
		{name: "deactivated agent", email: "smith@example.com", password: "correct-horse-battery",
			setup: func() { account.Active = false }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setup != nil {
				tc.setup()
			}
			_, err := svc.Login(context.Background(), transport.LoginRequest{
				Email:    tc.email,
				Password: tc.password,
			})
			if !apperr.IsKind(err, apperr.KindUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
			if err.Error() != "invalid credentials" {
				t.Fatalf("message = %q, want uniform rejection", err.Error())
			}
		})
	}
}

func TestMe(t *testing.T) {
	svc, account := newTestService(t)

	info, err := svc.Me(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if info.Email != "smith@example.com" || info.Role != "SENIOR_AGENT" {
		t.Fatalf("info = %+v", info)
	}
}
