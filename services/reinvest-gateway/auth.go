package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

type contextKey string

const contextKeySubject contextKey = "subject"

// Authenticator validates bearer JWTs and throttles callers per subject.
type Authenticator struct {
	secret []byte

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewAuthenticator builds an authenticator for HS256 tokens signed with
// secret.
func NewAuthenticator(secret string, rps float64, burst int) *Authenticator {
	if burst <= 0 {
		burst = 1
	}
	return &Authenticator{
		secret:   []byte(secret),
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Authenticate verifies the request's bearer token and returns the subject.
func (a *Authenticator) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", fmt.Errorf("Authorization header must use Bearer scheme")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}
	subject, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("token missing subject")
	}
	return subject, nil
}

// Allow reports whether the subject is within its rate budget.
func (a *Authenticator) Allow(subject string) bool {
	a.mu.Lock()
	limiter, ok := a.limiters[subject]
	if !ok {
		limiter = rate.NewLimiter(a.rps, a.burst)
		a.limiters[subject] = limiter
	}
	a.mu.Unlock()
	return limiter.Allow()
}

// Middleware authenticates and rate-limits every request it wraps, storing
// the subject in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := a.Authenticate(r)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if !a.Allow(subject) {
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		ctx := context.WithValue(r.Context(), contextKeySubject, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func subjectFrom(ctx context.Context) string {
	subject, _ := ctx.Value(contextKeySubject).(string)
	return subject
}
