package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AdamBeresnev/op-tournament/internal/httputil"
	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type ContextKey string

const UserIDKey ContextKey = "userID"

const sessionUserKey = "userID"

var ErrInvalidToken = errors.New("invalid token")

// Authenticator resolves the requester from a bearer token issued by the
// auth gateway or, for browser clients, from the session cookie.
type Authenticator struct {
	sessions *scs.SessionManager
	secret   []byte
}

func NewAuthenticator(sessions *scs.SessionManager, jwtSecret string) *Authenticator {
	a := &Authenticator{sessions: sessions}
	if jwtSecret != "" {
		a.secret = []byte(jwtSecret)
	}
	return a
}

// IssueToken signs a token for userID. Only used by development tooling and
// tests; production tokens come from the gateway.
func (a *Authenticator) IssueToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	if a.secret == nil {
		return "", errors.New("bearer tokens are disabled")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) parseToken(raw string) (uuid.UUID, error) {
	if a.secret == nil {
		return uuid.Nil, ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return userID, nil
}

// Identify puts the requester's id into the context when one is present.
// A malformed bearer token is rejected outright.
func (a *Authenticator) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if header := r.Header.Get("Authorization"); header != "" {
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				httputil.Unauthorized(w, "malformed authorization header", nil)
				return
			}
			userID, err := a.parseToken(raw)
			if err != nil {
				httputil.Unauthorized(w, "invalid token", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, UserIDKey, userID)))
			return
		}

		if a.sessions != nil {
			if userIDStr := a.sessions.GetString(ctx, sessionUserKey); userIDStr != "" {
				userID, err := uuid.Parse(userIDStr)
				if err != nil {
					a.sessions.Remove(ctx, sessionUserKey)
				} else {
					ctx = context.WithValue(ctx, UserIDKey, userID)
				}
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests without an identified user.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserIDFromContext(r.Context()); !ok {
			httputil.Unauthorized(w, "authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Login binds userID to the current session.
func (a *Authenticator) Login(ctx context.Context, userID uuid.UUID) error {
	if a.sessions == nil {
		return errors.New("sessions are disabled")
	}
	if err := a.sessions.RenewToken(ctx); err != nil {
		return err
	}
	a.sessions.Put(ctx, sessionUserKey, userID.String())
	return nil
}

func (a *Authenticator) Logout(ctx context.Context) error {
	if a.sessions == nil {
		return nil
	}
	return a.sessions.Destroy(ctx)
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(UserIDKey)
	if val == nil {
		return uuid.Nil, false
	}

	id, ok := val.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
