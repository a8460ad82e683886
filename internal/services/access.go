package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/internal/repository"
)

// AccessLevel is what a signed-in account may do.
type AccessLevel string

const (
	AccessUser  AccessLevel = models.RoleUser
	AccessAdmin AccessLevel = models.RoleAdmin
	AccessAI    AccessLevel = models.RoleAI
)

// ErrAccessDenied means the account is unknown or disabled.
var ErrAccessDenied = errors.New("account is unknown or disabled")

// AccessProfile is the resolved view of an account for one request.
type AccessProfile struct {
	Level        AccessLevel
	SalesRepName string
}

type AccessResolver interface {
	ResolveAccessLevel(ctx context.Context, userID uint) (*AccessProfile, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// UserAccessResolver resolves access from the users table, so role changes
// and deactivation apply to tokens that are already issued.
type UserAccessResolver struct {
	users UserGetter
}

func NewUserAccessResolver(users UserGetter) *UserAccessResolver {
	return &UserAccessResolver{users: users}
}

func (r *UserAccessResolver) ResolveAccessLevel(ctx context.Context, userID uint) (*AccessProfile, error) {
	user, err := r.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	if !user.IsActive {
		return nil, ErrAccessDenied
	}

	level := AccessLevel(user.Role)
	switch level {
	case AccessAdmin, AccessAI, AccessUser:
	default:
		level = AccessUser
	}

	name := user.SalesRepName
	if name == "" {
		name = user.Username
	}
	return &AccessProfile{Level: level, SalesRepName: name}, nil
}

// Session is the caller of one request. Its access profile is resolved on
// first use and reused for the rest of the request.
type Session struct {
	UserID   uint
	Username string

	resolver AccessResolver
	once     sync.Once
	profile  *AccessProfile
	err      error
}

func NewSession(userID uint, username string, resolver AccessResolver) *Session {
	return &Session{UserID: userID, Username: username, resolver: resolver}
}

func (s *Session) Profile(ctx context.Context) (*AccessProfile, error) {
	s.once.Do(func() {
		if s.resolver == nil {
			s.err = ErrAccessDenied
			return
		}
		s.profile, s.err = s.resolver.ResolveAccessLevel(ctx, s.UserID)
	})
	return s.profile, s.err
}

func (s *Session) AccessLevel(ctx context.Context) (AccessLevel, error) {
	p, err := s.Profile(ctx)
	if err != nil {
		return "", err
	}
	return p.Level, nil
}

// Allows reports whether the session's level is one of levels.
func (s *Session) Allows(ctx context.Context, levels ...AccessLevel) (bool, error) {
	level, err := s.AccessLevel(ctx)
	if err != nil {
		return false, err
	}
	for _, l := range levels {
		if l == level {
			return true, nil
		}
	}
	return false, nil
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok
}
