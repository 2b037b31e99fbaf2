package domain

import "github.com/google/uuid"

// Principal is the authenticated caller of a request. It is derived per request and
// never cached. The only implementations are UserPrincipal and ServicePrincipal.
type Principal interface {
	principal()
}

// UserPrincipal is an end user authenticated with a signed token.
type UserPrincipal struct {
	UserID       uuid.UUID
	Subscription SubscriptionLevel
}

// ServicePrincipal is an internal caller authenticated with the shared service secret.
type ServicePrincipal struct {
	Name    string
	Trusted bool
}

func (UserPrincipal) principal()    {}
func (ServicePrincipal) principal() {}
