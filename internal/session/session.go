// Package session carries the signed-in user explicitly through a
// context.Context and issues the HS256 tokens that identify it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"taskhub/internal/domain"
)

var (
	// ErrNoSession means there is no usable signed-in user. Malformed, expired
	// and unknown tokens all resolve to it.
	ErrNoSession    = errors.New("no session")
	ErrInactiveUser = errors.New("user is inactive")
)

type Session struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// UserID returns the signed-in user's id, or ErrNoSession.
func UserID(ctx context.Context) (int64, error) {
	s, ok := FromContext(ctx)
	if !ok || s.User.ID == 0 {
		return 0, ErrNoSession
	}
	return s.User.ID, nil
}

// UserLookup resolves a user id. *store.State satisfies it.
type UserLookup interface {
	User(id int64) (domain.User, error)
}

type Issuer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
	Log    logrus.FieldLogger
}

func (i Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

func (i Issuer) log() logrus.FieldLogger {
	if i.Log != nil {
		return i.Log
	}
	return logrus.StandardLogger()
}

// Issue signs a token for an active user.
func (i Issuer) Issue(u domain.User) (Session, error) {
	if len(i.Secret) == 0 {
		return Session{}, errors.New("session secret not configured")
	}
	if !u.IsActive {
		return Session{}, ErrInactiveUser
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	now := i.now()
	exp := now.Add(ttl).Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(u.ID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		Issuer:    "taskhub",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.Secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Session{User: u, Token: signed, ExpiresAt: exp.UTC()}, nil
}

// Parse verifies a token and returns its subject user id.
func (i Issuer) Parse(token string) (int64, time.Time, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.Secret, nil
	})
	if err != nil {
		return 0, time.Time{}, err
	}
	if !parsed.Valid {
		return 0, time.Time{}, errors.New("invalid token")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, time.Time{}, errors.New("subject claim must be a user id")
	}
	return id, claims.ExpiresAt.Time, nil
}

// Resolve turns a raw token into a Session. Anything unusable is logged and
// reported as ErrNoSession so callers treat it as signed out.
func (i Issuer) Resolve(raw string, users UserLookup) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, ErrNoSession
	}
	id, exp, err := i.Parse(raw)
	if err != nil {
		i.log().WithError(err).Warn("discarding unreadable session token")
		return Session{}, ErrNoSession
	}
	u, err := users.User(id)
	if err != nil {
		i.log().WithField("user_id", id).Warn("session user not found")
		return Session{}, ErrNoSession
	}
	if !u.IsActive {
		i.log().WithField("user_id", id).Warn("session user is inactive")
		return Session{}, ErrNoSession
	}
	return Session{User: u, Token: raw, ExpiresAt: exp.UTC()}, nil
}
