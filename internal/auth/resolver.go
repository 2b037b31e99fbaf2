// Package auth turns bearer credentials into typed principals.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"activityhub.io/notifications/internal/domain"
)

// Config is the immutable credential configuration injected at construction.
type Config struct {
	// Secret signs and verifies end-user tokens.
	Secret string
	// Algorithm is one of HS256, HS384, HS512. Defaults to HS256.
	Algorithm string
	// ServiceToken is the shared secret presented by internal callers.
	ServiceToken string
	// Issuer, when set, must match the token's iss claim.
	Issuer string
	Clock  func() time.Time
}

// Claims are the user token claims the service relies on.
type Claims struct {
	SubscriptionLevel string `json:"subscription_level,omitempty"`
	Email             string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Resolver validates credentials. It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	secret       []byte
	method       jwt.SigningMethod
	serviceToken []byte
	issuer       string
	now          func() time.Time
}

// NewResolver validates cfg and builds a Resolver.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: jwt secret must be provided")
	}
	if cfg.ServiceToken == "" {
		return nil, errors.New("auth: service token must be provided")
	}

	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("auth: unsupported jwt algorithm %q", alg)
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &Resolver{
		secret:       []byte(cfg.Secret),
		method:       method,
		serviceToken: []byte(cfg.ServiceToken),
		issuer:       cfg.Issuer,
		now:          now,
	}, nil
}

// ResolveUser verifies a user token and returns the caller.
func (r *Resolver) ResolveUser(token string) (domain.UserPrincipal, error) {
	if token == "" {
		return domain.UserPrincipal{}, domain.Unauthenticated("missing bearer token")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{r.method.Alg()}),
		jwt.WithTimeFunc(r.now),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	})
	if err != nil {
		return domain.UserPrincipal{}, &domain.Error{
			Kind:    domain.KindUnauthenticated,
			Message: "invalid authentication credentials",
			Err:     err,
		}
	}

	if r.issuer != "" && claims.Issuer != r.issuer {
		return domain.UserPrincipal{}, domain.Unauthenticated("invalid token issuer")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.UserPrincipal{}, domain.Unauthenticated("invalid token payload")
	}

	return domain.UserPrincipal{
		UserID:       userID,
		Subscription: subscription(claims.SubscriptionLevel),
	}, nil
}

// ResolveService checks the shared service secret in constant time.
func (r *Resolver) ResolveService(token string) (domain.ServicePrincipal, error) {
	if token == "" || subtle.ConstantTimeCompare([]byte(token), r.serviceToken) != 1 {
		return domain.ServicePrincipal{}, domain.Unauthenticated("invalid service token")
	}
	return domain.ServicePrincipal{Name: "service", Trusted: true}, nil
}

// Resolve accepts either credential kind: a user token first, then the service secret.
func (r *Resolver) Resolve(token string) (domain.Principal, error) {
	user, userErr := r.ResolveUser(token)
	if userErr == nil {
		return user, nil
	}
	if svc, err := r.ResolveService(token); err == nil {
		return svc, nil
	}
	return nil, userErr
}

// UserTokenInput holds the parameters for SignUserToken.
type UserTokenInput struct {
	UserID       uuid.UUID
	Subscription domain.SubscriptionLevel
	TTL          time.Duration
}

// SignUserToken issues a user token with the configured secret.
func (r *Resolver) SignUserToken(in UserTokenInput) (string, error) {
	ttl := in.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	now := r.now()
	claims := Claims{
		SubscriptionLevel: string(in.Subscription),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   in.UserID.String(),
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(r.method, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// subscription falls back to free for missing or unknown levels.
func subscription(level string) domain.SubscriptionLevel {
	switch l := domain.SubscriptionLevel(level); l {
	case domain.SubscriptionClub, domain.SubscriptionPremium:
		return l
	}
	return domain.SubscriptionFree
}
