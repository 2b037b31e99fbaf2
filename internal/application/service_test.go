package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activityhub.io/notifications/internal/application"
	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/infrastructure/memory"
)

var trusted = domain.ServicePrincipal{Name: "test", Trusted: true}

type fixture struct {
	store *memory.Store
	svc   *application.Service
	clock *time.Time
}

func newFixture(t *testing.T, opts ...application.Option) *fixture {
	t.Helper()
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	f := &fixture{clock: &now}
	f.store = memory.New().WithClock(func() time.Time { return *f.clock })
	f.svc = application.NewService(f.store, f.store, opts...)
	return f
}

func (f *fixture) tick() { *f.clock = f.clock.Add(time.Second) }

func (f *fixture) seed(owner uuid.UUID, typ domain.NotificationType, status domain.Status) *domain.Notification {
	f.tick()
	n := domain.Notification{UserID: owner, Type: typ, Title: string(typ), Status: status}
	if status == domain.StatusRead {
		readAt := *f.clock
		n.ReadAt = &readAt
	}
	return f.store.Insert(n)
}

func user(level domain.SubscriptionLevel) domain.UserPrincipal {
	return domain.UserPrincipal{UserID: uuid.New(), Subscription: level}
}

func typePtr(t domain.NotificationType) *domain.NotificationType { return &t }

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := user(domain.SubscriptionFree)
	n := f.seed(alice.UserID, domain.TypeComment, domain.StatusUnread)

	first, err := f.svc.MarkRead(ctx, alice, n.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRead, first.Status)
	require.NotNil(t, first.ReadAt)

	f.tick()
	second, err := f.svc.MarkRead(ctx, alice, n.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRead, second.Status)
	require.True(t, first.ReadAt.Equal(*second.ReadAt))
}

func TestMarkReadLeavesArchivedAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := user(domain.SubscriptionFree)
	n := f.seed(alice.UserID, domain.TypeComment, domain.StatusArchived)

	got, err := f.svc.MarkRead(ctx, alice, n.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusArchived, got.Status)
	require.Nil(t, got.ReadAt)
}

func TestOwnershipIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := user(domain.SubscriptionPremium)
	bob := user(domain.SubscriptionPremium)
	bobs := f.seed(bob.UserID, domain.TypeMention, domain.StatusUnread)

	_, err := f.svc.Get(ctx, alice, bobs.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.MarkRead(ctx, alice, bobs.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	res, err := f.svc.Delete(ctx, alice, bobs.ID, true)
	require.NoError(t, err)
	require.False(t, res.Found)
	require.True(t, f.store.Exists(bobs.ID))

	updated, err := f.svc.MarkReadBulk(ctx, alice, application.BulkRequest{IDs: []uuid.UUID{bobs.ID}})
	require.NoError(t, err)
	require.Zero(t, updated)

	page, err := f.svc.List(ctx, alice, application.ListRequest{})
	require.NoError(t, err)
	require.Empty(t, page.Notifications)
	require.Zero(t, page.Total)

	count, err := f.svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	require.Zero(t, count.Total)

	still, err := f.svc.Get(ctx, bob, bobs.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusUnread, still.Status)
}

func TestPremiumFilterOnListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	free := user(domain.SubscriptionFree)
	f.seed(free.UserID, domain.TypeComment, domain.StatusUnread)
	f.seed(free.UserID, domain.TypeProfileView, domain.StatusUnread)
	f.seed(free.UserID, domain.TypeNewFavorite, domain.StatusRead)

	page, err := f.svc.List(ctx, free, application.ListRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	require.Equal(t, domain.TypeComment, page.Notifications[0].Type)

	page, err = f.svc.List(ctx, free, application.ListRequest{Type: typePtr(domain.TypeProfileView)})
	require.NoError(t, err)
	require.Empty(t, page.Notifications)
	require.Zero(t, page.Total)

	club := domain.UserPrincipal{UserID: free.UserID, Subscription: domain.SubscriptionClub}
	page, err = f.svc.List(ctx, club, application.ListRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
}

func TestGetByIDIgnoresSubscription(t *testing.T) {
	f := newFixture(t)
	free := user(domain.SubscriptionFree)
	n := f.seed(free.UserID, domain.TypeProfileView, domain.StatusUnread)

	got, err := f.svc.Get(context.Background(), free, n.ID)
	require.NoError(t, err)
	require.Equal(t, n.ID, got.ID)
}

func TestUnreadCountExcludesPremiumForFree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	free := user(domain.SubscriptionFree)
	f.seed(free.UserID, domain.TypeComment, domain.StatusUnread)
	f.seed(free.UserID, domain.TypeComment, domain.StatusUnread)
	f.seed(free.UserID, domain.TypeProfileView, domain.StatusUnread)
	f.seed(free.UserID, domain.TypeSystem, domain.StatusRead)

	count, err := f.svc.UnreadCount(ctx, free)
	require.NoError(t, err)
	require.EqualValues(t, 2, count.Total)
	require.EqualValues(t, 2, count.ByType[domain.TypeComment])
	require.NotContains(t, count.ByType, domain.TypeProfileView)
	require.NotContains(t, count.ByType, domain.TypeNewFavorite)
	require.Equal(t, application.PremiumHiddenNote, count.Note)

	premium := domain.UserPrincipal{UserID: free.UserID, Subscription: domain.SubscriptionPremium}
	count, err = f.svc.UnreadCount(ctx, premium)
	require.NoError(t, err)
	require.EqualValues(t, 3, count.Total)
	require.EqualValues(t, 1, count.ByType[domain.TypeProfileView])
	require.Contains(t, count.ByType, domain.TypeNewFavorite)
	require.Empty(t, count.Note)
}

func TestPaginationBounds(t *testing.T) {
	f := newFixture(t, application.WithPagination(application.Pagination{DefaultLimit: 2, MaxLimit: 3}))
	ctx := context.Background()
	alice := user(domain.SubscriptionFree)
	for i := 0; i < 5; i++ {
		f.seed(alice.UserID, domain.TypeNewPost, domain.StatusUnread)
	}

	page, err := f.svc.List(ctx, alice, application.ListRequest{})
	require.NoError(t, err)
	require.Equal(t, 2, page.Limit)
	require.Len(t, page.Notifications, 2)
	require.True(t, page.HasMore())

	page, err = f.svc.List(ctx, alice, application.ListRequest{Limit: 50, Offset: 3})
	require.NoError(t, err)
	require.Equal(t, 3, page.Limit)
	require.Len(t, page.Notifications, 2)
	require.False(t, page.HasMore())

	require.True(t, page.Notifications[0].CreatedAt.After(page.Notifications[1].CreatedAt))
}

func TestListByStatus(t *testing.T) {
	f := newFixture(t)
	alice := user(domain.SubscriptionFree)
	f.seed(alice.UserID, domain.TypeNewPost, domain.StatusUnread)
	f.seed(alice.UserID, domain.TypeNewPost, domain.StatusRead)

	read := domain.StatusRead
	page, err := f.svc.List(context.Background(), alice, application.ListRequest{Status: &read})
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	require.Equal(t, domain.StatusRead, page.Notifications[0].Status)
}

func TestCreateDroppedByPreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := user(domain.SubscriptionFree)

	only := []domain.NotificationType{domain.TypeComment}
	_, err := f.svc.UpdateSettings(ctx, alice, domain.PreferencesPatch{EnabledTypes: &only})
	require.NoError(t, err)

	res, err := f.svc.Create(ctx, trusted, domain.CreateNotificationInput{
		UserID: alice.UserID,
		Type:   domain.TypeMention,
		Title:  "you were mentioned",
	})
	require.NoError(t, err)
	require.False(t, res.Created())
	require.Equal(t, application.SkipReasonDisabled, res.Reason)

	page, err := f.svc.List(ctx, alice, application.ListRequest{})
	require.NoError(t, err)
	require.Zero(t, page.Total)

	off := false
	_, err = f.svc.UpdateSettings(ctx, alice, domain.PreferencesPatch{InAppEnabled: &off})
	require.NoError(t, err)

	res, err = f.svc.Create(ctx, trusted, domain.CreateNotificationInput{
		UserID: alice.UserID,
		Type:   domain.TypeComment,
		Title:  "new comment",
	})
	require.NoError(t, err)
	require.False(t, res.Created())

	page, err = f.svc.List(ctx, alice, application.ListRequest{})
	require.NoError(t, err)
	require.Zero(t, page.Total)
}

func TestCreatePersistsWithDefaultsAndCreatesPreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := user(domain.SubscriptionFree)
	actor := uuid.New()
	target := uuid.New()
	targetType := domain.TargetActivity

	require.Zero(t, f.store.PreferenceCount())

	res, err := f.svc.Create(ctx, trusted, domain.CreateNotificationInput{
		UserID:      alice.UserID,
		ActorUserID: &actor,
		Type:        domain.TypeActivityInvite,
		TargetType:  &targetType,
		TargetID:    &target,
		Title:       "You're invited",
		Payload:     map[string]any{"activity_name": "Run club"},
	})
	require.NoError(t, err)
	require.True(t, res.Created())
	require.Equal(t, domain.StatusUnread, res.Notification.Status)
	require.Equal(t, actor, res.Notification.Actor.UserID)
	require.Equal(t, 1, f.store.PreferenceCount())

	got, err := f.svc.Get(ctx, alice, res.Notification.ID)
	require.NoError(t, err)
	require.Equal(t, "Run club", got.Payload["activity_name"])
}

func TestCreateRequiresTrustedService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := user(domain.SubscriptionPremium)
	in := domain.CreateNotificationInput{UserID: alice.UserID, Type: domain.TypeSystem, Title: "hi"}

	_, err := f.svc.Create(ctx, alice, in)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Create(ctx, domain.ServicePrincipal{Name: "x"}, in)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := uuid.New()
	long := make([]rune, application.MaxTitleLength+1)
	for i := range long {
		long[i] = 'x'
	}

	cases := []domain.CreateNotificationInput{
		{Type: domain.TypeSystem, Title: "no user"},
		{UserID: uuid.New(), Type: "friend_request", Title: "bad type"},
		{UserID: uuid.New(), Type: domain.TypeSystem},
		{UserID: uuid.New(), Type: domain.TypeSystem, Title: string(long)},
		{UserID: uuid.New(), Type: domain.TypeSystem, Title: "half target", TargetID: &target},
	}
	for _, in := range cases {
		_, err := f.svc.Create(ctx, trusted, in)
		require.ErrorIs(t, err, domain.ErrValidation, in.Title)
	}
	require.Zero(t, f.store.PreferenceCount())
}

func TestConcurrentFirstAccessCreatesOnePreferenceRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipient := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, trusted, domain.CreateNotificationInput{
				UserID: recipient,
				Type:   domain.TypeSystem,
				Title:  "maintenance",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, f.store.PreferenceCount())
}

func TestBulkSelectionPrecedence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := user(domain.SubscriptionFree)
	a := f.seed(alice.UserID, domain.TypeComment, domain.StatusUnread)
	b := f.seed(alice.UserID, domain.TypeMention, domain.StatusUnread)
	c := f.seed(alice.UserID, domain.TypeMention, domain.StatusUnread)

	updated, err := f.svc.MarkReadBulk(ctx, alice, application.BulkRequest{
		IDs:  []uuid.UUID{a.ID},
		Type: typePtr(domain.TypeMention),
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	for id, want := range map[uuid.UUID]domain.Status{a.ID: domain.StatusRead, b.ID: domain.StatusUnread, c.ID: domain.StatusUnread} {
		got, err := f.svc.Get(ctx, alice, id)
		require.NoError(t, err)
		require.Equal(t, want, got.Status)
	}

	updated, err = f.svc.MarkReadBulk(ctx, alice, application.BulkRequest{Type: typePtr(domain.TypeMention)})
	require.NoError(t, err)
	require.EqualValues(t, 2, updated)
}

func TestBulkCountsOnlyUnread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := user(domain.SubscriptionFree)
	f.seed(alice.UserID, domain.TypeComment, domain.StatusUnread)
	f.seed(alice.UserID, domain.TypeComment, domain.StatusRead)
	f.seed(alice.UserID, domain.TypeComment, domain.StatusArchived)
	f.seed(alice.UserID, domain.TypeSystem, domain.StatusUnread)

	updated, err := f.svc.MarkReadBulk(ctx, alice, application.BulkRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 2, updated)

	updated, err = f.svc.MarkReadBulk(ctx, alice, application.BulkRequest{})
	require.NoError(t, err)
	require.Zero(t, updated)
}

func TestBulkRejectsEmptySelection(t *testing.T) {
	f := newFixture(t)
	off := false

	_, err := f.svc.MarkReadBulk(context.Background(), user(domain.SubscriptionFree), application.BulkRequest{MarkAll: &off})
	require.ErrorIs(t, err, domain.ErrValidation)

	updated, err := f.svc.MarkReadBulk(context.Background(), user(domain.SubscriptionFree), application.BulkRequest{IDs: []uuid.UUID{}})
	require.NoError(t, err)
	require.Zero(t, updated)
}

func TestTerminalStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := user(domain.SubscriptionFree)
	n := f.seed(alice.UserID, domain.TypeComment, domain.StatusUnread)

	res, err := f.svc.Delete(ctx, alice, n.ID, false)
	require.NoError(t, err)
	require.True(t, res.Found)
	require.False(t, res.Permanent)

	got, err := f.svc.MarkRead(ctx, alice, n.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusArchived, got.Status)

	res, err = f.svc.Delete(ctx, alice, n.ID, false)
	require.NoError(t, err)
	require.True(t, res.Found)

	res, err = f.svc.Delete(ctx, alice, n.ID, true)
	require.NoError(t, err)
	require.True(t, res.Found)
	require.True(t, res.Permanent)
	require.False(t, f.store.Exists(n.ID))

	_, err = f.svc.MarkRead(ctx, alice, n.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	res, err = f.svc.Delete(ctx, alice, n.ID, true)
	require.NoError(t, err)
	require.False(t, res.Found)
}

func TestSettingsPartialUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := user(domain.SubscriptionFree)

	start, end := "22:00", "07:30"
	only := []domain.NotificationType{domain.TypeSystem, domain.TypeComment}
	before, err := f.svc.UpdateSettings(ctx, alice, domain.PreferencesPatch{
		EnabledTypes:    &only,
		QuietHoursStart: &start,
		QuietHoursEnd:   &end,
	})
	require.NoError(t, err)

	off := false
	after, err := f.svc.UpdateSettings(ctx, alice, domain.PreferencesPatch{EmailEnabled: &off})
	require.NoError(t, err)
	require.False(t, after.EmailEnabled)
	require.Equal(t, before.PushEnabled, after.PushEnabled)
	require.Equal(t, before.InAppEnabled, after.InAppEnabled)
	require.Equal(t, before.EnabledTypes, after.EnabledTypes)
	require.Equal(t, before.QuietHoursStart, after.QuietHoursStart)
	require.Equal(t, before.QuietHoursEnd, after.QuietHoursEnd)

	got, err := f.svc.Settings(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, after.EmailEnabled, got.EmailEnabled)
	require.Equal(t, only, got.EnabledTypes)
}

func TestSettingsDefaultsOnFirstRead(t *testing.T) {
	f := newFixture(t)
	alice := user(domain.SubscriptionFree)

	prefs, err := f.svc.Settings(context.Background(), alice)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultPreferences(alice.UserID).EnabledTypes, prefs.EnabledTypes)
	require.True(t, prefs.InAppEnabled)
	require.Equal(t, 1, f.store.PreferenceCount())
}

func TestSettingsValidation(t *testing.T) {
	f := newFixture(t)
	alice := user(domain.SubscriptionFree)

	bad := []domain.NotificationType{"friend_request"}
	_, err := f.svc.UpdateSettings(context.Background(), alice, domain.PreferencesPatch{EnabledTypes: &bad})
	require.ErrorIs(t, err, domain.ErrValidation)

	late := "25:00"
	_, err = f.svc.UpdateSettings(context.Background(), alice, domain.PreferencesPatch{QuietHoursEnd: &late})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestServicePrincipalCannotReadInboxes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.List(ctx, trusted, application.ListRequest{})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Settings(ctx, trusted)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.UnreadCount(ctx, trusted)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestPurgeArchived(t *testing.T) {
	f := newFixture(t)
	alice := user(domain.SubscriptionFree)
	old := f.seed(alice.UserID, domain.TypeComment, domain.StatusArchived)
	fresh := f.seed(alice.UserID, domain.TypeComment, domain.StatusUnread)

	*f.clock = f.clock.AddDate(0, 0, 40)
	f.svc.PurgeArchived(context.Background(), 30)

	require.False(t, f.store.Exists(old.ID))
	require.True(t, f.store.Exists(fresh.ID))
}
