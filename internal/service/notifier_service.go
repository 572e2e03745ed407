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

	"github.com/noah-isme/satria-go-api/internal/dto"
	"github.com/noah-isme/satria-go-api/internal/models"
	"github.com/noah-isme/satria-go-api/internal/observability"
)

const reviewEventBufferSize = 16

// ReviewNotifier informs external parties about review transitions. The
// engine exposes each appended history entry; delivery to students, faculty
// and admins is owned by subscribers of this notifier.
type ReviewNotifier interface {
	NotifyTransition(ctx context.Context, approval models.FacultyApproval, entry models.ReviewHistoryEntry)
}

// ReviewEventStream fans review events out to live in-process subscribers
// (the websocket handler) and mirrors them across nodes via Redis and NATS.
type ReviewEventStream interface {
	ReviewNotifier
	Subscribe() (<-chan dto.ReviewEventMessage, func())
	Start(ctx context.Context)
}

type reviewEventStream struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	broker      *reviewEventBroker
	nodeID      string
}

type reviewEventEnvelope struct {
	Source string                 `json:"source"`
	Event  dto.ReviewEventMessage `json:"event"`
	SentAt time.Time              `json:"sent_at"`
}

type reviewEventBroker struct {
	mu          sync.RWMutex
	subscribers map[chan dto.ReviewEventMessage]struct{}
}

// NewReviewEventStream constructs the review event stream.
func NewReviewEventStream(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) ReviewEventStream {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":reviews"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".reviews"
	}

	return &reviewEventStream{
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "review_event_stream").Logger(),
		broker:      &reviewEventBroker{subscribers: make(map[chan dto.ReviewEventMessage]struct{})},
		nodeID:      uuid.NewString(),
	}
}

func (s *reviewEventStream) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *reviewEventStream) NotifyTransition(ctx context.Context, approval models.FacultyApproval, entry models.ReviewHistoryEntry) {
	message := dto.ReviewEventMessage{
		ApprovalID:  approval.ID,
		ActivityID:  approval.ActivityID,
		StudentID:   approval.StudentID,
		FacultyID:   approval.FacultyID,
		Action:      entry.Action,
		Status:      approval.Status,
		Stage:       approval.Stage,
		Notes:       entry.Notes,
		PerformedBy: entry.PerformedBy,
		PerformedAt: entry.PerformedAt,
	}

	s.broker.broadcast(message)
	if err := s.publish(ctx, message); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish review event to broker")
	}

	observability.ReviewEventsPublished().WithLabelValues(message.Action).Inc()
}

func (s *reviewEventStream) Subscribe() (<-chan dto.ReviewEventMessage, func()) {
	channel := make(chan dto.ReviewEventMessage, reviewEventBufferSize)
	s.broker.subscribe(channel)

	cleanup := func() {
		s.broker.unsubscribe(channel)
	}

	return channel, cleanup
}

func (s *reviewEventStream) publish(ctx context.Context, message dto.ReviewEventMessage) error {
	envelope := reviewEventEnvelope{
		Source: s.nodeID,
		Event:  message,
		SentAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *reviewEventStream) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("review event redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

func (s *reviewEventStream) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "satria-reviews", func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats review subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain review nats subscription")
		}
	}()
}

func (s *reviewEventStream) handleEnvelope(payload []byte) {
	var envelope reviewEventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid review event payload")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	observability.ReviewEventsPublished().WithLabelValues(envelope.Event.Action).Inc()
	s.broker.broadcast(envelope.Event)
}

func (b *reviewEventBroker) subscribe(ch chan dto.ReviewEventMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[ch] = struct{}{}
}

func (b *reviewEventBroker) unsubscribe(ch chan dto.ReviewEventMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

func (b *reviewEventBroker) broadcast(message dto.ReviewEventMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- message:
		default:
			// Slow subscriber; drop rather than block the transition path.
		}
	}
}
