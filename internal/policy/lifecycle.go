package policy

import (
	"github.com/google/uuid"

	"activityhub.io/notifications/internal/domain"
)

// LifecycleOp is a state-changing request on a single notification.
type LifecycleOp string

const (
	OpRead       LifecycleOp = "read"
	OpArchive    LifecycleOp = "archive"
	OpHardDelete LifecycleOp = "hard_delete"
)

// OutcomeKind classifies a transition.
type OutcomeKind int

const (
	// Applied means the state changes to Outcome.To.
	Applied OutcomeKind = iota
	// NoOp means the request succeeds without touching the record.
	NoOp
	// Removed means the record is gone.
	Removed
	// Rejected means the transition is not defined.
	Rejected
)

// Outcome is the result of Transition.
type Outcome struct {
	Kind OutcomeKind
	To   domain.Status
}

// Transition applies the lifecycle table:
//
//	unread          --read-->        read
//	read, archived  --read-->        no-op
//	unread, read    --archive-->     archived
//	archived        --archive-->     no-op
//	any             --hard_delete--> removed
func Transition(from domain.Status, op LifecycleOp) Outcome {
	switch op {
	case OpRead:
		switch from {
		case domain.StatusUnread:
			return Outcome{Kind: Applied, To: domain.StatusRead}
		case domain.StatusRead, domain.StatusArchived:
			return Outcome{Kind: NoOp, To: from}
		}
	case OpArchive:
		switch from {
		case domain.StatusUnread, domain.StatusRead:
			return Outcome{Kind: Applied, To: domain.StatusArchived}
		case domain.StatusArchived:
			return Outcome{Kind: NoOp, To: from}
		}
	case OpHardDelete:
		switch from {
		case domain.StatusUnread, domain.StatusRead, domain.StatusArchived:
			return Outcome{Kind: Removed}
		}
	}
	return Outcome{Kind: Rejected, To: from}
}

// SelectBulk resolves the bulk mark-read selection. Explicit ids win over a type filter,
// which wins over the implicit "all unread" mode.
func SelectBulk(ids []uuid.UUID, t *domain.NotificationType) domain.BulkSelection {
	if ids != nil {
		return domain.BulkSelection{Mode: domain.SelectByIDs, IDs: dedupe(ids)}
	}
	if t != nil {
		return domain.BulkSelection{Mode: domain.SelectByType, Type: *t}
	}
	return domain.BulkSelection{Mode: domain.SelectAll}
}

// Selects reports whether sel targets notification n (ignoring its status).
func Selects(sel domain.BulkSelection, n *domain.Notification) bool {
	switch sel.Mode {
	case domain.SelectByIDs:
		for _, id := range sel.IDs {
			if id == n.ID {
				return true
			}
		}
		return false
	case domain.SelectByType:
		return n.Type == sel.Type
	}
	return true
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
