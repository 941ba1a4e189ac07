// Package service contains the document registry, the approval registry and
// the identity services built on top of the repositories.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
	"github.com/and161185/docgate/internal/repository"
)

// Claims is the bearer token payload issued by the identity provider.
type Claims struct {
	Name string     `json:"name"`
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService resolves bearer tokens into principals.
type AuthService interface {
	// Authenticate verifies token and returns its principal.
	Authenticate(ctx context.Context, token string) (model.Principal, error)
}

const (
	tokenLeeway = 30 * time.Second
	retouchTTL  = 5 * time.Minute
)

type seenUser struct {
	name string
	role model.Role
	at   time.Time
}

type AuthServiceImpl struct {
	users   repository.UserRepository
	signKey []byte
	log     *zap.Logger
	now     func() time.Time

	mu   sync.Mutex
	seen map[uuid.UUID]seenUser
}

// NewAuthService constructs AuthService verifying HS256 tokens signed with signKey.
// Every verified identity is mirrored into users so admins can be addressed.
func NewAuthService(users repository.UserRepository, signKey []byte, log *zap.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:   users,
		signKey: signKey,
		log:     log.With(zap.String("component", "auth")),
		now:     time.Now,
		seen:    map[uuid.UUID]seenUser{},
	}
}

// Authenticate parses and validates token, then records the identity in the user directory.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, token string) (model.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.Principal{}, fmt.Errorf("%w: missing token", errs.ErrUnauthorized)
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signKey, nil
	}, jwt.WithLeeway(tokenLeeway), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return model.Principal{}, fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return model.Principal{}, fmt.Errorf("%w: bad subject", errs.ErrUnauthorized)
	}
	if claims.Role != model.RoleUser && claims.Role != model.RoleAdmin {
		return model.Principal{}, fmt.Errorf("%w: bad role", errs.ErrUnauthorized)
	}

	p := model.Principal{ID: id, Name: claims.Name, Role: claims.Role}
	s.touch(ctx, p)
	return p, nil
}

// touch mirrors p into the directory unless it was recorded recently with the same name and role.
// Directory failures do not fail authentication.
func (s *AuthServiceImpl) touch(ctx context.Context, p model.Principal) {
	now := s.now()
	s.mu.Lock()
	prev, ok := s.seen[p.ID]
	s.mu.Unlock()
	if ok && prev.name == p.Name && prev.role == p.Role && now.Sub(prev.at) < retouchTTL {
		return
	}

	if err := s.users.Touch(ctx, model.User{ID: p.ID, Username: p.Name, Role: p.Role}); err != nil {
		s.log.Warn("user directory update failed", zap.Stringer("user_id", p.ID), zap.Error(err))
		return
	}
	s.mu.Lock()
	s.seen[p.ID] = seenUser{name: p.Name, role: p.Role, at: now}
	s.mu.Unlock()
}

// IssueToken creates a signed HS256 token for p valid for ttl.
func IssueToken(signKey []byte, p model.Principal, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		Name: p.Name,
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(signKey)
	return signed, exp, err
}
