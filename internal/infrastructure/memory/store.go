// Package memory is an in-process implementation of the storage ports, used for local
// runs without Postgres and by tests. Each method holds one lock for its whole body, which
// gives every operation the same all-or-nothing behavior as a stored procedure call.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/policy"
)

// Store implements domain.Repository and domain.SettingsRepository.
type Store struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*domain.Notification
	prefs         map[uuid.UUID]*domain.Preferences
	now           func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		notifications: make(map[uuid.UUID]*domain.Notification),
		prefs:         make(map[uuid.UUID]*domain.Preferences),
		now:           time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Insert stores n as-is, bypassing the preference gate. Seed and test tooling only.
func (s *Store) Insert(n domain.Notification) *domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = domain.StatusUnread
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	s.notifications[n.ID] = &n
	return clone(&n)
}

// Exists reports whether a notification id is stored, regardless of owner.
func (s *Store) Exists(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.notifications[id]
	return ok
}

// List returns one page of the user's notifications, newest first.
func (s *Store) List(_ context.Context, q domain.ListQuery) ([]*domain.Notification, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filter := policy.TypeFilter{IncludePremium: q.IncludePremium, Type: q.Type}
	var matched []*domain.Notification
	for _, n := range s.notifications {
		if n.UserID != q.UserID || !filter.Allows(n.Type) {
			continue
		}
		if q.Status != nil && n.Status != *q.Status {
			continue
		}
		matched = append(matched, n)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() > matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := min(q.Offset, len(matched))
	end := min(start+q.Limit, len(matched))

	page := make([]*domain.Notification, 0, end-start)
	for _, n := range matched[start:end] {
		page = append(page, clone(n))
	}
	return page, total, nil
}

// GetByID returns the notification when it exists and belongs to userID.
func (s *Store) GetByID(_ context.Context, userID, id uuid.UUID) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.owned(userID, id)
	if n == nil {
		return nil, nil
	}
	return clone(n), nil
}

// MarkRead applies the read transition; read and archived rows come back unchanged.
func (s *Store) MarkRead(_ context.Context, userID, id uuid.UUID) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.owned(userID, id)
	if n == nil {
		return nil, nil
	}
	s.read(n)
	return clone(n), nil
}

// MarkReadBulk marks the selected unread rows read, counting only those that changed.
func (s *Store) MarkReadBulk(_ context.Context, userID uuid.UUID, sel domain.BulkSelection) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	for _, n := range s.notifications {
		if n.UserID != userID || !policy.Selects(sel, n) {
			continue
		}
		if s.read(n) {
			updated++
		}
	}
	return updated, nil
}

// Delete archives or removes a notification owned by userID.
func (s *Store) Delete(_ context.Context, userID, id uuid.UUID, permanent bool) (domain.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.owned(userID, id)
	if n == nil {
		return domain.DeleteResult{Permanent: permanent, Message: "Notification not found"}, nil
	}

	op := policy.OpArchive
	if permanent {
		op = policy.OpHardDelete
	}
	switch out := policy.Transition(n.Status, op); out.Kind {
	case policy.Removed:
		delete(s.notifications, id)
		return domain.DeleteResult{Found: true, Permanent: true, Message: "Notification permanently deleted"}, nil
	case policy.Applied:
		n.Status = out.To
		return domain.DeleteResult{Found: true, Message: "Notification archived"}, nil
	case policy.NoOp:
		return domain.DeleteResult{Found: true, Message: "Notification already archived"}, nil
	}
	return domain.DeleteResult{}, domain.StorageFailure(errInvalidState(n.Status))
}

// CountUnread aggregates unread rows per type.
func (s *Store) CountUnread(_ context.Context, userID uuid.UUID, includePremium bool) (*domain.UnreadCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filter := policy.TypeFilter{IncludePremium: includePremium}
	out := &domain.UnreadCount{ByType: make(map[domain.NotificationType]int64)}
	for _, t := range filter.VisibleTypes() {
		out.ByType[t] = 0
	}
	for _, n := range s.notifications {
		if n.UserID != userID || n.Status != domain.StatusUnread || !filter.Allows(n.Type) {
			continue
		}
		out.ByType[n.Type]++
		out.Total++
	}
	return out, nil
}

// Create stores a new unread notification. It re-checks the recipient's preferences,
// as the create procedure does, and returns nil when they turn it away.
func (s *Store) Create(_ context.Context, in domain.CreateNotificationInput) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !policy.ShouldPersist(s.prefsLocked(in.UserID), in.Type) {
		return nil, nil
	}

	n := &domain.Notification{
		ID:         uuid.New(),
		UserID:     in.UserID,
		Type:       in.Type,
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		Title:      in.Title,
		Message:    in.Message,
		Status:     domain.StatusUnread,
		CreatedAt:  s.now(),
		Payload:    in.Payload,
	}
	if in.ActorUserID != nil {
		n.Actor = &domain.Actor{UserID: *in.ActorUserID}
	}
	s.notifications[n.ID] = n
	return clone(n), nil
}

// PurgeArchived removes archived rows created before the cutoff.
func (s *Store) PurgeArchived(_ context.Context, olderThanDays int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().AddDate(0, 0, -olderThanDays)
	var purged int64
	for id, n := range s.notifications {
		if n.Status == domain.StatusArchived && n.CreatedAt.Before(cutoff) {
			delete(s.notifications, id)
			purged++
		}
	}
	return purged, nil
}

// GetOrCreate returns the user's preferences, inserting the defaults once.
func (s *Store) GetOrCreate(_ context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyPrefs(s.prefsLocked(userID)), nil
}

// Update applies a partial preferences update.
func (s *Store) Update(_ context.Context, userID uuid.UUID, patch domain.PreferencesPatch) (*domain.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := patch.Apply(*s.prefsLocked(userID))
	now := s.now()
	updated.UpdatedAt = &now
	s.prefs[userID] = &updated
	return copyPrefs(&updated), nil
}

// PreferenceCount reports how many preference records exist.
func (s *Store) PreferenceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prefs)
}

func (s *Store) prefsLocked(userID uuid.UUID) *domain.Preferences {
	p, ok := s.prefs[userID]
	if !ok {
		p = domain.DefaultPreferences(userID)
		s.prefs[userID] = p
	}
	return p
}

func (s *Store) owned(userID, id uuid.UUID) *domain.Notification {
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return nil
	}
	return n
}

// read applies the read transition and reports whether the row changed.
func (s *Store) read(n *domain.Notification) bool {
	out := policy.Transition(n.Status, policy.OpRead)
	if out.Kind != policy.Applied {
		return false
	}
	now := s.now()
	n.Status = out.To
	n.ReadAt = &now
	return true
}

func clone(n *domain.Notification) *domain.Notification {
	c := *n
	if n.ReadAt != nil {
		t := *n.ReadAt
		c.ReadAt = &t
	}
	return &c
}

func copyPrefs(p *domain.Preferences) *domain.Preferences {
	c := *p
	c.EnabledTypes = append([]domain.NotificationType(nil), p.EnabledTypes...)
	return &c
}

type errInvalidState domain.Status

func (e errInvalidState) Error() string {
	return "notification in unknown state " + string(e)
}
