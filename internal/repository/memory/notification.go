package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/repository"
)

// notificationRepository keeps rows bucketed by owner so that no code path
// can reach another owner's rows without naming that owner.
type notificationRepository struct {
	mu      sync.RWMutex
	byOwner map[string]map[string]model.Notification
}

func NewNotificationRepository() repository.NotificationRepository {
	return &notificationRepository{
		byOwner: make(map[string]map[string]model.Notification),
	}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, bucket := range r.byOwner {
		if _, exists := bucket[n.ID]; exists {
			return repository.ErrDuplicate
		}
	}

	bucket, ok := r.byOwner[n.OwnerActorID]
	if !ok {
		bucket = make(map[string]model.Notification)
		r.byOwner[n.OwnerActorID] = bucket
	}
	bucket[n.ID] = cloneNotification(*n)
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id, ownerID string) (*model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.byOwner[ownerID][id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneNotification(n)
	return &out, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, ownerID string, readAt time.Time) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.byOwner[ownerID][id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	n.MarkRead(readAt)
	r.byOwner[ownerID][id] = n

	out := cloneNotification(n)
	return &out, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, ownerID string, readAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for id, n := range r.byOwner[ownerID] {
		if n.IsRead {
			continue
		}
		n.MarkRead(readAt)
		r.byOwner[ownerID][id] = n
		updated++
	}
	return updated, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byOwner[ownerID][id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.byOwner[ownerID], id)
	return nil
}

func (r *notificationRepository) List(ctx context.Context, ownerID string, filter model.NotificationFilter) ([]*model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.match(ownerID, filter)
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset >= len(matched) {
		return []*model.Notification{}, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], nil
}

func (r *notificationRepository) Count(ctx context.Context, ownerID string, filter model.NotificationFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.match(ownerID, filter)), nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, ownerID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.match(ownerID, model.NotificationFilter{UnreadOnly: true})), nil
}

// match must be called with the lock held.
func (r *notificationRepository) match(ownerID string, filter model.NotificationFilter) []*model.Notification {
	out := make([]*model.Notification, 0)
	for _, n := range r.byOwner[ownerID] {
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		if filter.Channel != "" && n.Channel != filter.Channel {
			continue
		}
		c := cloneNotification(n)
		out = append(out, &c)
	}
	return out
}

func cloneNotification(n model.Notification) model.Notification {
	if n.ReadAt != nil {
		v := *n.ReadAt
		n.ReadAt = &v
	}
	if n.ActionURL != nil {
		v := *n.ActionURL
		n.ActionURL = &v
	}
	if n.ActionText != nil {
		v := *n.ActionText
		n.ActionText = &v
	}
	return n
}
