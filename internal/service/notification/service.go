package notification

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/urovital/clinic-api/internal/email"
	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/repository"
	"github.com/urovital/clinic-api/internal/service/rbac"
	"github.com/urovital/clinic-api/pkg/errors"
	"github.com/urovital/clinic-api/pkg/logger"
	"github.com/urovital/clinic-api/pkg/messaging"
	"github.com/urovital/clinic-api/pkg/metrics"
)

const (
	DefaultPageSize = 20

	EventCreated = "notification.created"
	EventRead    = "notification.read"
	EventReadAll = "notification.read_all"
	EventDeleted = "notification.deleted"
)

// Channel is the broker stream an owner's sessions listen on.
func Channel(ownerID string) string {
	return "notifications." + ownerID
}

type Service struct {
	repo      repository.NotificationRepository
	actors    repository.ActorRepository
	evaluator *rbac.Evaluator
	publisher messaging.Publisher
	mailer    email.Service
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(repo repository.NotificationRepository, actors repository.ActorRepository, evaluator *rbac.Evaluator,
	publisher messaging.Publisher, mailer email.Service, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		actors:    actors,
		evaluator: evaluator,
		publisher: publisher,
		mailer:    mailer,
		metrics:   m,
		logger:    log,
		now:       time.Now,
	}
}

// timestamp is truncated to what the database stores, so values read back
// compare equal to the ones written.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Create stores a notification for another actor and makes a best-effort
// delivery on its channel. Delivery failures never fail the call.
func (s *Service) Create(ctx context.Context, sender *model.Actor, req model.CreateNotificationRequest) (*model.Notification, error) {
	if !s.evaluator.Can(sender, model.CapNotificationsSend) {
		return nil, errors.Forbidden("notifications:send required")
	}

	n, err := s.build(req)
	if err != nil {
		return nil, err
	}

	owner, err := s.actors.Get(ctx, n.OwnerActorID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("owner", err)
		}
		return nil, errors.Internal(err)
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, errors.Internal(err)
	}
	s.metrics.ObserveNotification("create", 1)

	s.deliver(ctx, owner, n)
	return n, nil
}

func (s *Service) build(req model.CreateNotificationRequest) (*model.Notification, error) {
	ownerID := strings.TrimSpace(req.OwnerActorID)
	if ownerID == "" {
		return nil, errors.InvalidArgument("owner is required", nil)
	}
	if !req.Type.Valid() {
		return nil, errors.InvalidArgument("unknown notification type", nil)
	}

	channel := req.Channel
	if channel == "" {
		channel = model.NotificationChannelInApp
	}
	if !channel.Valid() {
		return nil, errors.InvalidArgument("unknown channel", nil)
	}

	priority := req.Priority
	if priority == "" {
		priority = model.NotificationPriorityMedium
	}
	if !priority.Valid() {
		return nil, errors.InvalidArgument("unknown priority", nil)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errors.InvalidArgument("title is required", nil)
	}

	actionURL := trimmed(req.ActionURL)
	actionText := trimmed(req.ActionText)
	if actionText != nil && actionURL == nil {
		return nil, errors.InvalidArgument("action text requires an action url", nil)
	}

	return &model.Notification{
		ID:           uuid.NewString(),
		OwnerActorID: ownerID,
		Type:         req.Type,
		Channel:      channel,
		Status:       model.NotificationStatusSent,
		Title:        title,
		Message:      req.Message,
		Priority:     priority,
		IsRead:       false,
		ActionURL:    actionURL,
		ActionText:   actionText,
		CreatedAt:    s.timestamp(),
	}, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *Service) deliver(ctx context.Context, owner *model.Actor, n *model.Notification) {
	switch n.Channel {
	case model.NotificationChannelEmail:
		if err := s.mailer.Send(ctx, owner.Email, n.Title, n.Message); err != nil {
			s.metrics.ObserveDeliveryFailure(string(n.Channel))
			s.logger.Error(err, "failed to deliver notification",
				"notification_id", n.ID, "channel", string(n.Channel))
		}
	default:
		s.publish(ctx, n.OwnerActorID, EventCreated, map[string]interface{}{
			"id":       n.ID,
			"type":     n.Type,
			"priority": n.Priority,
			"title":    n.Title,
		})
	}
}

// publish is fire and forget; sessions fall back to polling the list.
func (s *Service) publish(ctx context.Context, ownerID, eventType string, payload map[string]interface{}) {
	if unread, err := s.repo.CountUnread(ctx, ownerID); err == nil {
		payload["unread_count"] = unread
	}

	msg := messaging.NewMessage(eventType, payload)
	if err := s.publisher.Publish(ctx, Channel(ownerID), msg); err != nil {
		s.metrics.ObserveDeliveryFailure(string(model.NotificationChannelInApp))
		s.logger.Warn("failed to publish notification event",
			"event", eventType, "owner_actor_id", ownerID, "error", err.Error())
	}
}

func (s *Service) Get(ctx context.Context, actor *model.Actor, id string) (*model.Notification, error) {
	n, err := s.repo.Get(ctx, id, actor.ID)
	if err != nil {
		return nil, notFoundOrInternal(err)
	}
	return n, nil
}

// MarkRead is idempotent. A notification that is missing or owned by
// someone else is NotFound; ownership is never revealed.
func (s *Service) MarkRead(ctx context.Context, actor *model.Actor, id string) (*model.Notification, error) {
	now := s.timestamp()

	n, err := s.repo.MarkRead(ctx, id, actor.ID, now)
	if err != nil {
		return nil, notFoundOrInternal(err)
	}

	if n.ReadAt != nil && n.ReadAt.Equal(now) {
		s.metrics.ObserveNotification("mark_read", 1)
		s.publish(ctx, actor.ID, EventRead, map[string]interface{}{"id": n.ID})
	}
	return n, nil
}

// MarkAllRead returns how many notifications changed state. Zero is a
// valid answer.
func (s *Service) MarkAllRead(ctx context.Context, actor *model.Actor) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, actor.ID, s.timestamp())
	if err != nil {
		return 0, errors.Internal(err)
	}

	if count > 0 {
		s.metrics.ObserveNotification("mark_all_read", int(count))
		s.publish(ctx, actor.ID, EventReadAll, map[string]interface{}{"count": count})
	}
	return count, nil
}

func (s *Service) Delete(ctx context.Context, actor *model.Actor, id string) error {
	if err := s.repo.Delete(ctx, id, actor.ID); err != nil {
		return notFoundOrInternal(err)
	}

	s.metrics.ObserveNotification("delete", 1)
	s.publish(ctx, actor.ID, EventDeleted, map[string]interface{}{"id": id})
	return nil
}

// List returns one page of the actor's notifications. TotalCount is the
// size of the filtered set; UnreadCount covers all of the actor's
// notifications regardless of filters.
func (s *Service) List(ctx context.Context, actor *model.Actor, filter model.NotificationFilter) (*model.NotificationPage, error) {
	if filter.Limit < 0 || filter.Limit > model.MaxNotificationPageSize {
		return nil, errors.InvalidArgument("limit must be between 1 and "+strconv.Itoa(model.MaxNotificationPageSize), nil)
	}
	if filter.Offset < 0 {
		return nil, errors.InvalidArgument("offset must not be negative", nil)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, errors.InvalidArgument("unknown notification type", nil)
	}
	if filter.Channel != "" && !filter.Channel.Valid() {
		return nil, errors.InvalidArgument("unknown channel", nil)
	}
	if filter.Limit == 0 {
		filter.Limit = DefaultPageSize
	}

	items, err := s.repo.List(ctx, actor.ID, filter)
	if err != nil {
		return nil, errors.Internal(err)
	}
	total, err := s.repo.Count(ctx, actor.ID, filter)
	if err != nil {
		return nil, errors.Internal(err)
	}
	unread, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return nil, errors.Internal(err)
	}

	page := &model.NotificationPage{
		Items:       items,
		TotalCount:  total,
		UnreadCount: unread,
	}
	if next := filter.Offset + len(items); next < total {
		page.HasMore = true
		page.NextCursor = strconv.Itoa(next)
	}
	return page, nil
}

func (s *Service) UnreadCount(ctx context.Context, actor *model.Actor) (int, error) {
	n, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, errors.Internal(err)
	}
	return n, nil
}

func notFoundOrInternal(err error) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NotFound("notification", err)
	}
	return errors.Internal(err)
}
