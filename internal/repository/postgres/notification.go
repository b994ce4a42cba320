package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/repository"
)

var notificationColumns = []string{
	"id", "owner_actor_id", "type", "channel", "status", "title", "message",
	"priority", "is_read", "action_url", "action_text", "created_at", "read_at",
}

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{NewBaseRepository(db)}
}

// ownedBy is the only way queries in this file select rows, so no
// statement can run without the owner predicate.
func ownedBy(ownerID string) sq.Eq {
	return sq.Eq{"owner_actor_id": ownerID}
}

func applyFilter(q sq.SelectBuilder, filter model.NotificationFilter) sq.SelectBuilder {
	if filter.UnreadOnly {
		q = q.Where(sq.Eq{"is_read": false})
	}
	if filter.Type != "" {
		q = q.Where(sq.Eq{"type": filter.Type})
	}
	if filter.Channel != "" {
		q = q.Where(sq.Eq{"channel": filter.Channel})
	}
	return q
}

func buildListQuery(ownerID string, filter model.NotificationFilter) (string, []interface{}, error) {
	q := psql.Select(notificationColumns...).
		From("notifications").
		Where(ownedBy(ownerID)).
		OrderBy("created_at DESC", "id DESC")
	q = applyFilter(q, filter)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q.ToSql()
}

func buildCountQuery(ownerID string, filter model.NotificationFilter) (string, []interface{}, error) {
	q := psql.Select("COUNT(*)").From("notifications").Where(ownedBy(ownerID))
	return applyFilter(q, filter).ToSql()
}

func buildMarkAllReadQuery(ownerID string, readAt time.Time) (string, []interface{}, error) {
	return psql.Update("notifications").
		Set("is_read", true).
		Set("status", model.NotificationStatusRead).
		Set("read_at", readAt).
		Where(ownedBy(ownerID)).
		Where(sq.Eq{"is_read": false}).
		ToSql()
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query, args, err := psql.Insert("notifications").
		Columns(notificationColumns...).
		Values(
			n.ID,
			n.OwnerActorID,
			n.Type,
			n.Channel,
			n.Status,
			n.Title,
			n.Message,
			n.Priority,
			n.IsRead,
			n.ActionURL,
			n.ActionText,
			n.CreatedAt,
			n.ReadAt,
		).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return translate(err)
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id, ownerID string) (*model.Notification, error) {
	query, args, err := psql.Select(notificationColumns...).
		From("notifications").
		Where(ownedBy(ownerID)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var n model.Notification
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

// MarkRead only touches unread rows, so read_at keeps its first value.
func (r *notificationRepository) MarkRead(ctx context.Context, id, ownerID string, readAt time.Time) (*model.Notification, error) {
	query, args, err := psql.Update("notifications").
		Set("is_read", true).
		Set("status", model.NotificationStatusRead).
		Set("read_at", readAt).
		Where(ownedBy(ownerID)).
		Where(sq.Eq{"id": id, "is_read": false}).
		Suffix("RETURNING " + strings.Join(notificationColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	var n model.Notification
	err = r.db.GetContext(ctx, &n, query, args...)
	if err == nil {
		return &n, nil
	}
	if errors.Is(translate(err), repository.ErrNotFound) {
		// already read, or not this owner's
		return r.Get(ctx, id, ownerID)
	}
	return nil, fmt.Errorf("failed to mark notification read: %w", err)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, ownerID string, readAt time.Time) (int64, error) {
	query, args, err := buildMarkAllReadQuery(ownerID, readAt)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

func (r *notificationRepository) Delete(ctx context.Context, id, ownerID string) error {
	query, args, err := psql.Delete("notifications").
		Where(ownedBy(ownerID)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return requireAffected(res)
}

func (r *notificationRepository) List(ctx context.Context, ownerID string, filter model.NotificationFilter) ([]*model.Notification, error) {
	query, args, err := buildListQuery(ownerID, filter)
	if err != nil {
		return nil, err
	}

	items := []*model.Notification{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, nil
}

func (r *notificationRepository) Count(ctx context.Context, ownerID string, filter model.NotificationFilter) (int, error) {
	query, args, err := buildCountQuery(ownerID, filter)
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, ownerID string) (int, error) {
	return r.Count(ctx, ownerID, model.NotificationFilter{UnreadOnly: true})
}
