// Package postgres implements the storage ports on top of the activity.sp_* stored
// procedures. Every method is exactly one procedure call, so every operation is one
// transaction on the database side.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/metrics"
)

const (
	procListNotifications = "activity.sp_get_user_notifications"
	procGetNotification   = "activity.sp_get_notification_by_id"
	procMarkRead          = "activity.sp_mark_notification_as_read"
	procMarkReadBulk      = "activity.sp_mark_notifications_as_read_bulk"
	procDelete            = "activity.sp_delete_notification"
	procUnreadCount       = "activity.sp_get_unread_count"
	procCreate            = "activity.sp_create_notification"
	procPurgeArchived     = "activity.sp_purge_archived_notifications"
	procGetSettings       = "activity.sp_get_notification_settings"
	procUpdateSettings    = "activity.sp_update_notification_settings"
)

// Querier is the subset of *pgxpool.Pool the repository needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// NewPool opens and pings a bounded connection pool.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Repository is the PostgreSQL implementation of domain.Repository and
// domain.SettingsRepository.
type Repository struct {
	db          Querier
	callTimeout time.Duration
}

// New creates a new postgres Repository. callTimeout bounds every procedure call; 0 leaves
// only the caller's deadline.
func New(db Querier, callTimeout time.Duration) *Repository {
	return &Repository{db: db, callTimeout: callTimeout}
}

// notificationRow mirrors the columns returned by the listing and lookup procedures.
type notificationRow struct {
	NotificationID    uuid.UUID      `db:"notification_id"`
	UserID            uuid.UUID      `db:"user_id"`
	ActorUserID       *uuid.UUID     `db:"actor_user_id"`
	ActorUsername     *string        `db:"actor_username"`
	ActorFirstName    *string        `db:"actor_first_name"`
	ActorLastName     *string        `db:"actor_last_name"`
	ActorMainPhotoURL *string        `db:"actor_main_photo_url"`
	NotificationType  string         `db:"notification_type"`
	TargetType        *string        `db:"target_type"`
	TargetID          *uuid.UUID     `db:"target_id"`
	Title             string         `db:"title"`
	Message           *string        `db:"message"`
	Status            string         `db:"status"`
	CreatedAt         time.Time      `db:"created_at"`
	ReadAt            *time.Time     `db:"read_at"`
	Payload           map[string]any `db:"payload"`
	TotalCount        int64          `db:"total_count"`
}

func (r *notificationRow) toDomain() *domain.Notification {
	n := &domain.Notification{
		ID:        r.NotificationID,
		UserID:    r.UserID,
		Type:      domain.NotificationType(r.NotificationType),
		TargetID:  r.TargetID,
		Title:     r.Title,
		Message:   r.Message,
		Status:    domain.Status(r.Status),
		CreatedAt: r.CreatedAt,
		ReadAt:    r.ReadAt,
		Payload:   r.Payload,
	}
	if r.TargetType != nil {
		tt := domain.TargetType(*r.TargetType)
		n.TargetType = &tt
	}
	if r.ActorUserID != nil {
		n.Actor = &domain.Actor{
			UserID:       *r.ActorUserID,
			FirstName:    r.ActorFirstName,
			LastName:     r.ActorLastName,
			MainPhotoURL: r.ActorMainPhotoURL,
		}
		if r.ActorUsername != nil {
			n.Actor.Username = *r.ActorUsername
		}
	}
	return n
}

// List fetches paginated notifications for a user. The total comes from a window
// column repeated on every row.
func (r *Repository) List(ctx context.Context, q domain.ListQuery) ([]*domain.Notification, int64, error) {
	var status, typ *string
	if q.Status != nil {
		s := string(*q.Status)
		status = &s
	}
	if q.Type != nil {
		t := string(*q.Type)
		typ = &t
	}

	rows, err := call(ctx, r, procListNotifications, pgx.RowToAddrOfStructByNameLax[notificationRow],
		q.UserID, status, typ, q.Limit, q.Offset, q.IncludePremium)
	if err != nil {
		return nil, 0, err
	}

	out := make([]*domain.Notification, 0, len(rows))
	var total int64
	for _, row := range rows {
		out = append(out, row.toDomain())
		total = row.TotalCount
	}
	return out, total, nil
}

// GetByID fetches a single notification owned by userID.
func (r *Repository) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Notification, error) {
	rows, err := call(ctx, r, procGetNotification, pgx.RowToAddrOfStructByNameLax[notificationRow], userID, id)
	if err != nil {
		return nil, absentIfNotFound(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

type markReadRow struct {
	NotificationID uuid.UUID  `db:"notification_id"`
	Status         string     `db:"status"`
	ReadAt         *time.Time `db:"read_at"`
}

// MarkRead marks a single notification as read. The procedure only reports the id,
// status and read_at columns, which is all the returned value carries.
func (r *Repository) MarkRead(ctx context.Context, userID, id uuid.UUID) (*domain.Notification, error) {
	rows, err := call(ctx, r, procMarkRead, pgx.RowToStructByNameLax[markReadRow], userID, id)
	if err != nil {
		return nil, absentIfNotFound(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &domain.Notification{
		ID:     rows[0].NotificationID,
		UserID: userID,
		Status: domain.Status(rows[0].Status),
		ReadAt: rows[0].ReadAt,
	}, nil
}

// MarkReadBulk marks the selected unread notifications as read. Exactly one of the id
// array and the type is sent; both NULL selects every notification of the user.
func (r *Repository) MarkReadBulk(ctx context.Context, userID uuid.UUID, sel domain.BulkSelection) (int64, error) {
	var ids []uuid.UUID
	var typ *string
	switch sel.Mode {
	case domain.SelectByIDs:
		ids = sel.IDs
	case domain.SelectByType:
		t := string(sel.Type)
		typ = &t
	}

	counts, err := call(ctx, r, procMarkReadBulk, pgx.RowTo[int64], userID, ids, typ)
	if err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0], nil
}

type deleteRow struct {
	Success bool   `db:"success"`
	Message string `db:"message"`
}

// Delete archives or permanently removes a notification.
func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID, permanent bool) (domain.DeleteResult, error) {
	notFound := domain.DeleteResult{Permanent: permanent, Message: "Notification not found"}

	rows, err := call(ctx, r, procDelete, pgx.RowToStructByNameLax[deleteRow], userID, id, permanent)
	if err != nil {
		if unowned(err) {
			return notFound, nil
		}
		return domain.DeleteResult{}, err
	}
	if len(rows) == 0 || !rows[0].Success {
		return notFound, nil
	}
	return domain.DeleteResult{Found: true, Permanent: permanent, Message: rows[0].Message}, nil
}

// CountUnread reads the per-type counters. The procedure returns one row with a
// total_unread column and one <type>_count column per notification type.
func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID, includePremium bool) (*domain.UnreadCount, error) {
	rows, err := call(ctx, r, procUnreadCount, pgx.RowToMap, userID, includePremium)
	if err != nil {
		return nil, err
	}

	out := &domain.UnreadCount{ByType: make(map[domain.NotificationType]int64)}
	if len(rows) == 0 {
		return out, nil
	}
	row := rows[0]
	out.Total = asInt64(row["total_unread"])
	for _, t := range domain.AllNotificationTypes {
		if !includePremium && t.IsPremiumExclusive() {
			continue
		}
		out.ByType[t] = asInt64(row[string(t)+"_count"])
	}
	return out, nil
}

type createdRow struct {
	NotificationID *uuid.UUID `db:"notification_id"`
	CreatedAt      *time.Time `db:"created_at"`
}

// Create calls the creation procedure, which applies the recipient's preferences itself
// and returns no id when it declines.
func (r *Repository) Create(ctx context.Context, in domain.CreateNotificationInput) (*domain.Notification, error) {
	var targetType *string
	if in.TargetType != nil {
		tt := string(*in.TargetType)
		targetType = &tt
	}

	rows, err := call(ctx, r, procCreate, pgx.RowToStructByNameLax[createdRow],
		in.UserID, in.ActorUserID, string(in.Type), targetType, in.TargetID, in.Title, in.Message, in.Payload)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0].NotificationID == nil {
		return nil, nil
	}

	n := &domain.Notification{
		ID:         *rows[0].NotificationID,
		UserID:     in.UserID,
		Type:       in.Type,
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		Title:      in.Title,
		Message:    in.Message,
		Status:     domain.StatusUnread,
		Payload:    in.Payload,
	}
	if rows[0].CreatedAt != nil {
		n.CreatedAt = *rows[0].CreatedAt
	}
	if in.ActorUserID != nil {
		n.Actor = &domain.Actor{UserID: *in.ActorUserID}
	}
	return n, nil
}

// PurgeArchived deletes archived notifications older than the given number of days.
func (r *Repository) PurgeArchived(ctx context.Context, olderThanDays int) (int64, error) {
	counts, err := call(ctx, r, procPurgeArchived, pgx.RowTo[int64], olderThanDays)
	if err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0], nil
}

type settingsRow struct {
	UserID          uuid.UUID          `db:"user_id"`
	EmailEnabled    bool               `db:"email_enabled"`
	PushEnabled     bool               `db:"push_enabled"`
	InAppEnabled    bool               `db:"in_app_enabled"`
	EnabledTypes    []string           `db:"enabled_types"`
	QuietHoursStart pgtype.Time        `db:"quiet_hours_start"`
	QuietHoursEnd   pgtype.Time        `db:"quiet_hours_end"`
	UpdatedAt       pgtype.Timestamptz `db:"updated_at"`
}

func (r *settingsRow) toDomain() *domain.Preferences {
	p := &domain.Preferences{
		UserID:          r.UserID,
		EmailEnabled:    r.EmailEnabled,
		PushEnabled:     r.PushEnabled,
		InAppEnabled:    r.InAppEnabled,
		EnabledTypes:    make([]domain.NotificationType, 0, len(r.EnabledTypes)),
		QuietHoursStart: clockString(r.QuietHoursStart),
		QuietHoursEnd:   clockString(r.QuietHoursEnd),
	}
	for _, t := range r.EnabledTypes {
		p.EnabledTypes = append(p.EnabledTypes, domain.NotificationType(t))
	}
	if r.UpdatedAt.Valid {
		ts := r.UpdatedAt.Time
		p.UpdatedAt = &ts
	}
	return p
}

// GetOrCreate returns the user's preferences. The procedure inserts the defaults with
// ON CONFLICT DO NOTHING, so concurrent first reads converge on one record.
func (r *Repository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	rows, err := call(ctx, r, procGetSettings, pgx.RowToAddrOfStructByNameLax[settingsRow], userID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.StorageFailure(fmt.Errorf("%s returned no row", procGetSettings))
	}
	return rows[0].toDomain(), nil
}

// Update applies a partial update. NULL parameters leave the column unchanged; an empty
// quiet-hours string clears it.
func (r *Repository) Update(ctx context.Context, userID uuid.UUID, patch domain.PreferencesPatch) (*domain.Preferences, error) {
	var types []string
	if patch.EnabledTypes != nil {
		types = make([]string, 0, len(*patch.EnabledTypes))
		for _, t := range *patch.EnabledTypes {
			types = append(types, string(t))
		}
	}

	rows, err := call(ctx, r, procUpdateSettings, pgx.RowToAddrOfStructByNameLax[settingsRow],
		userID, patch.EmailEnabled, patch.PushEnabled, patch.InAppEnabled, types,
		patch.QuietHoursStart, patch.QuietHoursEnd)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.StorageFailure(fmt.Errorf("%s returned no row", procUpdateSettings))
	}
	return rows[0].toDomain(), nil
}

// call runs SELECT * FROM proc($1..$n) under the per-call timeout and collects every row.
func call[T any](ctx context.Context, r *Repository, proc string, scan pgx.RowToFunc[T], args ...any) ([]T, error) {
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := func() ([]T, error) {
		rows, err := r.db.Query(ctx, procedureSQL(proc, len(args)), args...)
		if err != nil {
			return nil, err
		}
		return pgx.CollectRows(rows, scan)
	}()
	err = translate(ctx, proc, err)
	metrics.StorageCalls.WithLabelValues(proc, outcome(err)).Observe(time.Since(start).Seconds())
	return out, err
}

func procedureSQL(proc string, n int) string {
	params := make([]string, n)
	for i := range params {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return "SELECT * FROM " + proc + "(" + strings.Join(params, ", ") + ")"
}

// procedureErrors maps the exception names raised by the procedures to error kinds.
var procedureErrors = []struct {
	name string
	kind domain.ErrorKind
}{
	{"NOTIFICATION_NOT_FOUND", domain.KindNotFound},
	{"USER_NOT_FOUND", domain.KindNotFound},
	{"UNAUTHORIZED_ACCESS", domain.KindForbidden},
	{"PREMIUM_FEATURE_REQUIRED", domain.KindForbidden},
	{"INVALID_", domain.KindValidation},
}

// translate turns driver errors into domain errors. Deadlines and connection failures are
// reported as unavailable so callers can retry.
func translate(ctx context.Context, proc string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || pgconn.Timeout(err) {
		return domain.Unavailable(fmt.Errorf("%s: %w", proc, err))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, pe := range procedureErrors {
			if strings.Contains(pgErr.Message, pe.name) {
				return &domain.Error{Kind: pe.kind, Message: procedureMessage(pgErr.Message), Err: err}
			}
		}
		// Class 08 is connection exception, 53 insufficient resources, 57P01 admin shutdown.
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "53") || pgErr.Code == "57P01" {
			return domain.Unavailable(fmt.Errorf("%s: %w", proc, err))
		}
		return domain.StorageFailure(fmt.Errorf("%s: %w", proc, err))
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return domain.Unavailable(fmt.Errorf("%s: %w", proc, err))
	}
	return domain.StorageFailure(fmt.Errorf("%s: %w", proc, err))
}

// procedureMessage strips the exception name prefix ("NOTIFICATION_NOT_FOUND: ...").
func procedureMessage(msg string) string {
	if _, rest, ok := strings.Cut(msg, ": "); ok {
		return rest
	}
	return msg
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnavailable):
		return "timeout"
	}
	return "error"
}

// absentIfNotFound turns a procedure's not-found or ownership exception on a single
// notification into the (nil, nil) the ports use. A foreign id must look exactly like a
// missing one.
func absentIfNotFound(err error) error {
	if unowned(err) {
		return nil
	}
	return err
}

func unowned(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden)
}

func clockString(t pgtype.Time) *string {
	if !t.Valid {
		return nil
	}
	s := time.Time{}.Add(time.Duration(t.Microseconds) * time.Microsecond).Format("15:04")
	return &s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int16:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}
