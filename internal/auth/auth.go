package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vbonduro/wishlist/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("username already taken")
)

// userRepository is the subset of store.UserStore that Service requires.
type userRepository interface {
	Create(ctx context.Context, username, passwordHash string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// dummyHash is compared against when the username is unknown so that both
// failure paths cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("wishlist-unknown-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("failed to build dummy password hash: %v", err))
	}
	return hash
})

type Service struct {
	users    userRepository
	sessions *SessionManager
	compare  func(hash, password []byte) error
}

func NewService(users userRepository, sessions *SessionManager) *Service {
	return &Service{users: users, sessions: sessions, compare: bcrypt.CompareHashAndPassword}
}

// Session is a freshly issued login.
type Session struct {
	User    *domain.User
	Token   string
	Expires time.Time
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		_ = s.compare(dummyHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := s.compare([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.sessions.Issue(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, Expires: expires}, nil
}

func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	return s.sessions.Revoke(ctx, claims)
}

func (s *Service) CreateUser(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, username, hash)
}

func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Identity is the authenticated user attached to a request.
type Identity struct {
	UserID   int64
	Username string
	Claims   *Claims
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the request's identity, or nil when anonymous.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
