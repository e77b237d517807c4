package auth

import (
	"context"
	"errors"

	"github.com/Lernia/authgate/internal/domain/cookie"
	"github.com/Lernia/authgate/internal/domain/user"
	"github.com/Lernia/authgate/internal/ratelimit"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials is returned when email or password do not match
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTooManyAttempts is returned when the failing IP exhausted its budget
	ErrTooManyAttempts = errors.New("too many failed attempts")
	// ErrEmailTaken is returned when registering an already-used email
	ErrEmailTaken = errors.New("email already registered")
)

// Service handles authentication operations
type Service struct {
	users   user.Repository
	cookies *cookie.Manager
	limiter *ratelimit.Limiter
}

// NewService creates a new auth service
func NewService(users user.Repository, cookies *cookie.Manager, limiter *ratelimit.Limiter) *Service {
	return &Service{users: users, cookies: cookies, limiter: limiter}
}

// Login verifies the credentials and issues an auth cookie. Failed
// attempts are charged against the client IP; once the budget is spent
// further attempts from that IP are denied before any credential work,
// so an exhausted IP cannot complete a login even with the right password.
func (s *Service) Login(ctx context.Context, email, password string, client cookie.Client) (*user.User, *cookie.IssuedCookie, error) {
	if !s.limiter.Allowed(ctx, client.IP) {
		return nil, nil, ErrTooManyAttempts
	}

	u, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, s.failedAttempt(ctx, client.IP)
		}
		return nil, nil, err
	}

	if !u.IsActive || !user.VerifyPassword(password, u.Password) {
		return nil, nil, s.failedAttempt(ctx, client.IP)
	}

	issued, err := s.cookies.Issue(ctx, u.ID.String(), client)
	if err != nil {
		return nil, nil, err
	}

	return u, issued, nil
}

// Register creates a new user with an argon2id-hashed password
func (s *Service) Register(req user.RegisterRequest) (*user.User, error) {
	if existing, err := s.users.GetByEmail(req.Email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	hashed, err := user.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    hashed,
		IsActive:    true,
	}

	if err := s.users.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Logout revokes the credential behind the raw cookie value
func (s *Service) Logout(ctx context.Context, raw string) error {
	return s.cookies.Destroy(ctx, raw)
}

func (s *Service) failedAttempt(ctx context.Context, ip string) error {
	if !s.limiter.Hit(ctx, ip) {
		return ErrTooManyAttempts
	}
	return ErrInvalidCredentials
}
