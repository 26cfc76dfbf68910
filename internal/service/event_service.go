package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/observability"
)

const (
	eventBufferSize = 32
	// remote events arrive once per transport; this many ids are remembered
	seenEventsWindow = 256
)

// Event types emitted after mutations.
const (
	EventAbsenceBlacklisted = "absence.blacklisted"
)

// EventPublisher broadcasts domain events.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, entityType string, entityID uint, payload map[string]interface{}) dto.EventResponse
}

// EventService publishes domain events and streams them to local subscribers.
type EventService interface {
	EventPublisher
	Subscribe() (<-chan dto.EventResponse, func())
	Start(ctx context.Context) error
}

type eventService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *eventBroker
	nodeID       string
	seen         *recentIDs
}

type eventEnvelope struct {
	Source string            `json:"source"`
	Event  dto.EventResponse `json:"event"`
	SentAt time.Time         `json:"sent_at"`
}

type eventBroker struct {
	mu          sync.RWMutex
	subscribers map[chan dto.EventResponse]struct{}
}

// NewEventService constructs the event hub. Redis and NATS are optional; a nil
// client disables that fan-out path.
func NewEventService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) EventService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &eventService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "event_service").Logger(),
		broker:       &eventBroker{subscribers: make(map[chan dto.EventResponse]struct{})},
		nodeID:       uuid.NewString(),
		seen:         newRecentIDs(seenEventsWindow),
	}
}

// Start subscribes to the remote transports. Subscriptions are confirmed
// before Start returns; consumption continues until ctx is cancelled.
func (s *eventService) Start(ctx context.Context) error {
	if s.redis != nil && s.redisChannel != "" {
		pubsub := s.redis.Subscribe(ctx, s.redisChannel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return err
		}
		go s.consumeRedis(ctx, pubsub)
	}

	if s.nats != nil && s.natsSubject != "" {
		sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
			s.handleEnvelope(msg.Data)
		})
		if err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			if err := sub.Drain(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to drain events nats subscription")
			}
		}()
	}

	return nil
}

func (s *eventService) Publish(ctx context.Context, eventType, entityType string, entityID uint, payload map[string]interface{}) dto.EventResponse {
	event := dto.EventResponse{
		ID:         uuid.NewString(),
		Type:       eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}

	s.deliver(event)
	if err := s.forward(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to forward event to broker")
	}

	return event
}

func (s *eventService) Subscribe() (<-chan dto.EventResponse, func()) {
	ch := make(chan dto.EventResponse, eventBufferSize)
	s.broker.subscribe(ch)
	observability.EventSubscribers().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(ch)
			observability.EventSubscribers().Dec()
		})
	}

	return ch, cleanup
}

func (s *eventService) deliver(event dto.EventResponse) {
	s.broker.broadcast(event)
	observability.EventsPublished().WithLabelValues(event.Type).Inc()
}

func (s *eventService) forward(ctx context.Context, event dto.EventResponse) error {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(eventEnvelope{
		Source: s.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	var errs []error
	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *eventService) consumeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("events redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

func (s *eventService) handleEnvelope(payload []byte) {
	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid event payload")
		return
	}

	// Our own events were already delivered locally.
	if envelope.Source == s.nodeID {
		return
	}
	if envelope.Event.Type == "" {
		return
	}
	if envelope.Event.ID != "" && !s.seen.add(envelope.Event.ID) {
		return
	}

	s.deliver(envelope.Event)
}

// recentIDs is a bounded set; the oldest id is evicted once it is full.
type recentIDs struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	order []string
	next  int
}

func newRecentIDs(size int) *recentIDs {
	return &recentIDs{
		ids:   make(map[string]struct{}, size),
		order: make([]string, size),
	}
}

// add reports false when id was already present.
func (r *recentIDs) add(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[id]; ok {
		return false
	}
	if evicted := r.order[r.next]; evicted != "" {
		delete(r.ids, evicted)
	}
	r.order[r.next] = id
	r.next = (r.next + 1) % len(r.order)
	r.ids[id] = struct{}{}
	return true
}

func (b *eventBroker) subscribe(ch chan dto.EventResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[ch] = struct{}{}
}

func (b *eventBroker) unsubscribe(ch chan dto.EventResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

func (b *eventBroker) broadcast(event dto.EventResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
