// Package policy holds the pure decision logic of the notification inbox: who may do what,
// which types a subscriber can see, how a notification moves through its lifecycle, and
// whether a new notification is kept at all.
package policy

import (
	"github.com/google/uuid"

	"activityhub.io/notifications/internal/domain"
)

// Operation is an action a principal asks to perform.
type Operation string

const (
	OpList           Operation = "list"
	OpUnreadCount    Operation = "unread_count"
	OpGet            Operation = "get"
	OpMarkRead       Operation = "mark_read"
	OpBulkMarkRead   Operation = "bulk_mark_read"
	OpDelete         Operation = "delete"
	OpGetSettings    Operation = "get_settings"
	OpUpdateSettings Operation = "update_settings"
	OpCreate         Operation = "create"
)

// UserScoped reports whether op acts on the caller's own inbox.
func (op Operation) UserScoped() bool {
	return op != OpCreate
}

// DenyReason explains a denial.
type DenyReason string

const (
	ReasonNone          DenyReason = ""
	ReasonUserRequired  DenyReason = "operation requires an end-user principal"
	ReasonNotOwner      DenyReason = "target belongs to another user"
	ReasonServiceOnly   DenyReason = "operation is reserved for internal services"
	ReasonUntrusted     DenyReason = "service principal is not trusted"
	ReasonUnknownCaller DenyReason = "unknown principal"
	ReasonUnknownOp     DenyReason = "unknown operation"
)

// Decision is the outcome of Authorize: Allow or Deny(reason).
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

var allow = Decision{Allowed: true}

func deny(r DenyReason) Decision { return Decision{Reason: r} }

// Err converts a denial into a forbidden error; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return domain.Forbidden(string(d.Reason))
}

// Authorize decides whether p may perform op. owner is the target record's owner, or nil
// when the operation has no target record (list, counts, settings, create).
func Authorize(p domain.Principal, op Operation, owner *uuid.UUID) Decision {
	switch op {
	case OpList, OpUnreadCount, OpGet, OpMarkRead, OpBulkMarkRead, OpDelete, OpGetSettings, OpUpdateSettings, OpCreate:
	default:
		return deny(ReasonUnknownOp)
	}

	switch caller := p.(type) {
	case domain.UserPrincipal:
		if !op.UserScoped() {
			return deny(ReasonServiceOnly)
		}
		if owner != nil && *owner != caller.UserID {
			return deny(ReasonNotOwner)
		}
		return allow

	case domain.ServicePrincipal:
		if op.UserScoped() {
			return deny(ReasonUserRequired)
		}
		if !caller.Trusted {
			return deny(ReasonUntrusted)
		}
		return allow
	}
	return deny(ReasonUnknownCaller)
}
