package repository

import (
	"context"
	"errors"
	"time"

	"github.com/urovital/clinic-api/internal/model"
)

var (
	// ErrNotFound is returned for missing rows, and for rows that exist but
	// belong to another owner.
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// All repository interfaces in one file
type (
	// ActorRepository stores principals and their credentials. Actors are
	// never hard-deleted.
	ActorRepository interface {
		Create(ctx context.Context, actor *model.Actor, cred *model.Credential) error
		Get(ctx context.Context, id string) (*model.Actor, error)
		GetByEmail(ctx context.Context, email string) (*model.Actor, error)
		GetCredential(ctx context.Context, actorID string) (*model.Credential, error)
		Update(ctx context.Context, actor *model.Actor) error
		List(ctx context.Context, filter model.ActorFilter) ([]*model.Actor, error)
		Ping(ctx context.Context) error
	}

	// NotificationRepository is partitioned by owner: every read and write
	// takes the owner and filters on it in the query itself.
	NotificationRepository interface {
		Create(ctx context.Context, n *model.Notification) error
		Get(ctx context.Context, id, ownerID string) (*model.Notification, error)
		// MarkRead sets read state on an unread row and returns the row.
		// An already read row is returned unchanged.
		MarkRead(ctx context.Context, id, ownerID string, readAt time.Time) (*model.Notification, error)
		// MarkAllRead is a single conditional update; the count is the
		// number of rows that statement changed.
		MarkAllRead(ctx context.Context, ownerID string, readAt time.Time) (int64, error)
		Delete(ctx context.Context, id, ownerID string) error
		List(ctx context.Context, ownerID string, filter model.NotificationFilter) ([]*model.Notification, error)
		// Count ignores Limit and Offset.
		Count(ctx context.Context, ownerID string, filter model.NotificationFilter) (int, error)
		CountUnread(ctx context.Context, ownerID string) (int, error)
	}
)
