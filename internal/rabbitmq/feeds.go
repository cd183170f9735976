package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/realtime"
)

// ErrBrokerUnavailable is returned when change-feeds cannot be opened because
// no broker connection exists. Sessions surface this as a degraded state.
var ErrBrokerUnavailable = errors.New("event broker unavailable")

// Feeds opens scoped change-feeds over the chat topic exchange and publishes
// the events that drive them. It implements realtime.FeedSource.
type Feeds struct {
	conn     *amqp.Connection
	exchange string
	pub      Publisher
	log      *zap.Logger
}

// NewFeeds constructs Feeds. A nil connection yields a source whose
// subscriptions fail with ErrBrokerUnavailable while publishes fall through to
// the (possibly noop) publisher.
func NewFeeds(conn *amqp.Connection, exchange string, pub Publisher, log *zap.Logger) *Feeds {
	return &Feeds{conn: conn, exchange: exchange, pub: pub, log: log}
}

var _ realtime.FeedSource = (*Feeds)(nil)

// SubscribeMessages opens the message change-feed for a scope.
func (f *Feeds) SubscribeMessages(ctx context.Context, scope models.Scope) (realtime.MessageFeed, error) {
	deliveries, ch, err := f.consume(realtime.MessageRoutingKey(scope))
	if err != nil {
		return nil, err
	}

	feed := &messageFeed{ch: ch, events: make(chan realtime.MessageEvent, 64)}
	go func() {
		defer close(feed.events)
		for d := range deliveries {
			var event realtime.MessageEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				f.log.Warn("malformed message event dropped", zap.Error(err))
				continue
			}
			observability.IncFeedEvent("messages", string(event.Kind))
			feed.events <- event
		}
	}()
	return feed, nil
}

// SubscribeTyping opens the typing change-feed for a scope.
func (f *Feeds) SubscribeTyping(ctx context.Context, scope models.Scope) (realtime.TypingFeed, error) {
	deliveries, ch, err := f.consume(realtime.TypingRoutingKey(scope))
	if err != nil {
		return nil, err
	}

	feed := &typingFeed{ch: ch, events: make(chan realtime.TypingEvent, 64)}
	go func() {
		defer close(feed.events)
		for d := range deliveries {
			var event realtime.TypingEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				f.log.Warn("malformed typing event dropped", zap.Error(err))
				continue
			}
			observability.IncFeedEvent("typing", string(event.Kind))
			feed.events <- event
		}
	}()
	return feed, nil
}

// PublishMessageEvent broadcasts a message change-feed event.
func (f *Feeds) PublishMessageEvent(ctx context.Context, event realtime.MessageEvent) error {
	return f.pub.Publish(ctx, realtime.MessageRoutingKey(event.Message.Scope()), event)
}

// PublishTypingEvent broadcasts a typing change-feed event.
func (f *Feeds) PublishTypingEvent(ctx context.Context, event realtime.TypingEvent) error {
	return f.pub.Publish(ctx, realtime.TypingRoutingKey(event.Indicator.Scope()), event)
}

// consume binds an exclusive auto-deleted queue to the routing key. Feed
// deliveries are auto-acked: the feed is a live view, not a work queue.
func (f *Feeds) consume(routingKey string) (<-chan amqp.Delivery, *amqp.Channel, error) {
	if f.conn == nil {
		return nil, nil, ErrBrokerUnavailable
	}

	ch, err := f.conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	if err := ch.QueueBind(q.Name, routingKey, f.exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	return deliveries, ch, nil
}

type messageFeed struct {
	ch     *amqp.Channel
	events chan realtime.MessageEvent
}

func (m *messageFeed) Events() <-chan realtime.MessageEvent { return m.events }

// Close tears down the subscription; the events channel closes once the
// broker delivery stream drains.
func (m *messageFeed) Close() error { return m.ch.Close() }

type typingFeed struct {
	ch     *amqp.Channel
	events chan realtime.TypingEvent
}

func (t *typingFeed) Events() <-chan realtime.TypingEvent { return t.events }

func (t *typingFeed) Close() error { return t.ch.Close() }
