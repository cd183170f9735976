package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"chat-sync/internal/models"
	"chat-sync/internal/realtime"
)

type fakeMessageFeed struct {
	ch chan realtime.MessageEvent

	mu     sync.Mutex
	closed bool
}

func newFakeMessageFeed() *fakeMessageFeed {
	return &fakeMessageFeed{ch: make(chan realtime.MessageEvent, 16)}
}

func (f *fakeMessageFeed) Events() <-chan realtime.MessageEvent { return f.ch }

// Close marks the feed closed without closing the channel so tests can keep
// pushing events that an old epoch must discard.
func (f *fakeMessageFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeMessageFeed) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeMessageFeed) push(event realtime.MessageEvent) { f.ch <- event }

// closeStream simulates the broker dropping the subscription.
func (f *fakeMessageFeed) closeStream() { close(f.ch) }

type fakeTypingFeed struct {
	ch chan realtime.TypingEvent

	mu     sync.Mutex
	closed bool
}

func newFakeTypingFeed() *fakeTypingFeed {
	return &fakeTypingFeed{ch: make(chan realtime.TypingEvent, 16)}
}

func (f *fakeTypingFeed) Events() <-chan realtime.TypingEvent { return f.ch }

func (f *fakeTypingFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTypingFeed) push(event realtime.TypingEvent) { f.ch <- event }

// fakeFeeds is an in-memory FeedSource. With loopback enabled, published
// message events are delivered back on the most recent subscription, the way
// the broker echoes a publisher's own event.
type fakeFeeds struct {
	mu           sync.Mutex
	msgFeeds     []*fakeMessageFeed
	typingFeeds  []*fakeTypingFeed
	published    []realtime.MessageEvent
	typingPub    []realtime.TypingEvent
	failMessages bool
	failTyping   bool
	loopback     bool
}

func (f *fakeFeeds) SubscribeMessages(_ context.Context, _ models.Scope) (realtime.MessageFeed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMessages {
		return nil, errors.New("broker unavailable")
	}
	feed := newFakeMessageFeed()
	f.msgFeeds = append(f.msgFeeds, feed)
	return feed, nil
}

func (f *fakeFeeds) SubscribeTyping(_ context.Context, _ models.Scope) (realtime.TypingFeed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTyping {
		return nil, errors.New("broker unavailable")
	}
	feed := newFakeTypingFeed()
	f.typingFeeds = append(f.typingFeeds, feed)
	return feed, nil
}

func (f *fakeFeeds) PublishMessageEvent(_ context.Context, event realtime.MessageEvent) error {
	f.mu.Lock()
	f.published = append(f.published, event)
	var echo *fakeMessageFeed
	if f.loopback && len(f.msgFeeds) > 0 {
		echo = f.msgFeeds[len(f.msgFeeds)-1]
	}
	f.mu.Unlock()

	if echo != nil {
		echo.push(event)
	}
	return nil
}

func (f *fakeFeeds) PublishTypingEvent(_ context.Context, event realtime.TypingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typingPub = append(f.typingPub, event)
	return nil
}

func (f *fakeFeeds) lastMessageFeed() *fakeMessageFeed {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgFeeds) == 0 {
		return nil
	}
	return f.msgFeeds[len(f.msgFeeds)-1]
}

func (f *fakeFeeds) lastTypingFeed() *fakeTypingFeed {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.typingFeeds) == 0 {
		return nil
	}
	return f.typingFeeds[len(f.typingFeeds)-1]
}

func (f *fakeFeeds) publishedMessages() []realtime.MessageEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]realtime.MessageEvent(nil), f.published...)
}

func (f *fakeFeeds) publishedTyping() []realtime.TypingEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]realtime.TypingEvent(nil), f.typingPub...)
}

type fakeMessageRepo struct {
	mu         sync.Mutex
	global     []models.Message // newest first, as the store returns them
	byConv     map[string][]models.Message
	inserted   []models.Message
	failInsert bool
	failList   bool
}

func (r *fakeMessageRepo) InsertMessage(_ context.Context, msg models.Message) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInsert {
		return models.Message{}, errors.New("insert failed")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
		msg.UpdatedAt = msg.CreatedAt
	}
	r.inserted = append(r.inserted, msg)
	return msg, nil
}

func (r *fakeMessageRepo) ListConversationMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList {
		return nil, errors.New("list failed")
	}
	return append([]models.Message(nil), r.byConv[conversationID]...), nil
}

func (r *fakeMessageRepo) ListGlobalMessages(_ context.Context, limit int) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList {
		return nil, errors.New("list failed")
	}
	msgs := r.global
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return append([]models.Message(nil), msgs...), nil
}

func (r *fakeMessageRepo) GetMessage(_ context.Context, _ string) (models.Message, error) {
	return models.Message{}, errors.New("not implemented")
}

func (r *fakeMessageRepo) EditMessage(_ context.Context, _, _, _ string) (models.Message, error) {
	return models.Message{}, errors.New("not implemented")
}

func (r *fakeMessageRepo) SoftDeleteMessage(_ context.Context, _, _ string) (models.Message, error) {
	return models.Message{}, errors.New("not implemented")
}

func (r *fakeMessageRepo) insertedMessages() []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Message(nil), r.inserted...)
}

type fakeGroupMessageRepo struct {
	mu       sync.Mutex
	byGroup  map[string][]models.Message
	inserted []models.Message
}

func (r *fakeGroupMessageRepo) InsertGroupMessage(_ context.Context, msg models.Message) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
		msg.UpdatedAt = msg.CreatedAt
	}
	r.inserted = append(r.inserted, msg)
	return msg, nil
}

func (r *fakeGroupMessageRepo) ListGroupMessages(_ context.Context, groupID string) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Message(nil), r.byGroup[groupID]...), nil
}

func (r *fakeGroupMessageRepo) GetGroupMessage(_ context.Context, _ string) (models.Message, error) {
	return models.Message{}, errors.New("not implemented")
}

func (r *fakeGroupMessageRepo) SoftDeleteGroupMessage(_ context.Context, _, _ string) (models.Message, error) {
	return models.Message{}, errors.New("not implemented")
}

func (r *fakeGroupMessageRepo) insertedMessages() []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Message(nil), r.inserted...)
}

type fakeTypingRepo struct {
	mu      sync.Mutex
	upserts []models.TypingIndicator
}

func (r *fakeTypingRepo) UpsertTyping(_ context.Context, indicator models.TypingIndicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts = append(r.upserts, indicator)
	return nil
}

func (r *fakeTypingRepo) ListTyping(_ context.Context, _ models.Scope) ([]models.TypingIndicator, error) {
	return nil, nil
}

func (r *fakeTypingRepo) upserted() []models.TypingIndicator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TypingIndicator(nil), r.upserts...)
}

type fakeReceiptRepo struct {
	mu       sync.Mutex
	receipts []models.MessageRead
	fail     bool
}

func (r *fakeReceiptRepo) UpsertRead(_ context.Context, receipt models.MessageRead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("receipt write failed")
	}
	r.receipts = append(r.receipts, receipt)
	return nil
}

func (r *fakeReceiptRepo) recorded() []models.MessageRead {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MessageRead(nil), r.receipts...)
}

type fakePresenceChannel struct {
	ch chan realtime.PresenceEvent

	mu   sync.Mutex
	left bool
}

func newFakePresenceChannel() *fakePresenceChannel {
	return &fakePresenceChannel{ch: make(chan realtime.PresenceEvent, 16)}
}

func (c *fakePresenceChannel) Events() <-chan realtime.PresenceEvent { return c.ch }

func (c *fakePresenceChannel) Leave() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.left = true
	return nil
}

func (c *fakePresenceChannel) push(event realtime.PresenceEvent) { c.ch <- event }

type fakePresence struct {
	mu       sync.Mutex
	channels []*fakePresenceChannel
	failJoin bool
}

func (p *fakePresence) Join(_ context.Context, _ models.UserProfile) (realtime.PresenceChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failJoin {
		return nil, errors.New("presence unavailable")
	}
	channel := newFakePresenceChannel()
	p.channels = append(p.channels, channel)
	return channel, nil
}

func (p *fakePresence) lastChannel() *fakePresenceChannel {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.channels) == 0 {
		return nil
	}
	return p.channels[len(p.channels)-1]
}

type fakeStatusWriter struct {
	mu      sync.Mutex
	updates []string
	fail    bool
}

func (w *fakeStatusWriter) SetOnlineStatus(_ context.Context, userID string, status models.PresenceStatus) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("status write failed")
	}
	w.updates = append(w.updates, userID+":"+string(status))
	return nil
}

func (w *fakeStatusWriter) recorded() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.updates...)
}
