package service

import (
	"context"

	"github.com/rs/zerolog"
)

// Entity types used in activity logs and event names.
const (
	EntityGradeStudent = "grade_student"
	EntityAbsence      = "absence"
	EntityStudent      = "student"
)

// CacheInvalidator drops cached aggregates after data changes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// ChangeNotifier fans a committed mutation out to the audit log, the event hub
// and the dashboard cache. Every collaborator is optional and failures are
// logged, never returned: the mutation itself already succeeded.
type ChangeNotifier struct {
	activity ActivityRecorder
	events   EventPublisher
	cache    CacheInvalidator
	logger   zerolog.Logger
}

// NewChangeNotifier wires the post-mutation hooks.
func NewChangeNotifier(activity ActivityRecorder, events EventPublisher, cache CacheInvalidator, logger zerolog.Logger) *ChangeNotifier {
	return &ChangeNotifier{
		activity: activity,
		events:   events,
		cache:    cache,
		logger:   logger.With().Str("component", "change_notifier").Logger(),
	}
}

// Notify records action on the entity and publishes "<entityType>.<action>".
func (n *ChangeNotifier) Notify(ctx context.Context, actor ActivityActor, action, entityType string, entityID uint, payload map[string]interface{}) {
	if n == nil {
		return
	}

	if n.activity != nil {
		var id *uint
		if entityID > 0 {
			id = &entityID
		}
		if _, err := n.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     action,
			EntityType: entityType,
			EntityID:   id,
			Metadata:   payload,
		}); err != nil {
			n.logger.Warn().Err(err).Str("entity_type", entityType).Str("action", action).Msg("failed to record activity")
		}
	}

	n.Emit(ctx, entityType+"."+action, entityType, entityID, payload)
	n.invalidate(ctx)
}

// Emit publishes an event without touching the audit log.
func (n *ChangeNotifier) Emit(ctx context.Context, eventType, entityType string, entityID uint, payload map[string]interface{}) {
	if n == nil || n.events == nil {
		return
	}
	n.events.Publish(ctx, eventType, entityType, entityID, payload)
}

func (n *ChangeNotifier) invalidate(ctx context.Context) {
	if n.cache == nil {
		return
	}
	if err := n.cache.Invalidate(ctx); err != nil {
		n.logger.Warn().Err(err).Msg("failed to invalidate dashboard cache")
	}
}
