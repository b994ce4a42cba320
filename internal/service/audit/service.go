package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one security relevant event. Entries never carry secrets or
// notification bodies.
type Entry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]interface{}
	At         time.Time
}

// Service writes audit entries to a dedicated structured log stream.
type Service struct {
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(logger zerolog.Logger) *Service {
	return &Service{
		logger: logger.With().Str("component", "audit").Logger(),
		now:    time.Now,
	}
}

type requestIDKey struct{}

// WithRequestID attaches the request id so entries can be correlated with
// the access log.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Log records an audit entry
func (s *Service) Log(ctx context.Context, actorID, action, entityType, entityID string, metadata map[string]interface{}) Entry {
	entry := Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
		At:         s.now().UTC(),
	}

	ev := s.logger.Info().
		Str("actor_id", entry.ActorID).
		Str("action", entry.Action).
		Str("entity_type", entry.EntityType).
		Str("entity_id", entry.EntityID).
		Time("at", entry.At)
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		ev = ev.Str("request_id", id)
	}
	if len(metadata) > 0 {
		ev = ev.Fields(metadata)
	}
	ev.Msg("audit")

	return entry
}
