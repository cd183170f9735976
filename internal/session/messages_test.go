package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-sync/internal/models"
	"chat-sync/internal/realtime"
)

func TestInsertFoldIsIdempotentByMessageID(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	defer fixture.session.Close()

	feed := fixture.feeds.lastMessageFeed()
	event := realtime.MessageEvent{
		Kind:    realtime.ChangeInsert,
		Message: testMessage("m1", "u2", "hello", time.Now().UTC()),
	}
	feed.push(event)
	feed.push(event)
	feed.push(event)

	waitForSnapshot(t, fixture.session, func(state models.ChatState) bool {
		return len(state.Messages) == 1
	})
	time.Sleep(20 * time.Millisecond)
	require.Len(t, fixture.session.Snapshot().Messages, 1)
}

func TestUpdateFoldReplacesInPlaceAndKeepsTimestamp(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	defer fixture.session.Close()

	created := time.Now().UTC().Add(-time.Minute)
	feed := fixture.feeds.lastMessageFeed()
	feed.push(realtime.MessageEvent{Kind: realtime.ChangeInsert, Message: testMessage("m1", "u2", "draft", created)})

	// Partial update payload with no creation timestamp.
	edited := models.Message{ID: "m1", SenderID: "u2", Content: "final", Edited: true}
	feed.push(realtime.MessageEvent{Kind: realtime.ChangeUpdate, Message: edited})

	state := waitForSnapshot(t, fixture.session, func(state models.ChatState) bool {
		return len(state.Messages) == 1 && state.Messages[0].Edited
	})
	assert.Equal(t, "final", state.Messages[0].Content)
	assert.True(t, state.Messages[0].CreatedAt.Equal(created), "known creation time survives a partial update")
}

func TestUpdateFoldForUnknownMessageIsNoOp(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	defer fixture.session.Close()

	feed := fixture.feeds.lastMessageFeed()
	feed.push(realtime.MessageEvent{Kind: realtime.ChangeUpdate, Message: testMessage("ghost", "u2", "edit", time.Now().UTC())})
	feed.push(realtime.MessageEvent{Kind: realtime.ChangeInsert, Message: testMessage("m1", "u2", "real", time.Now().UTC())})

	state := waitForSnapshot(t, fixture.session, func(state models.ChatState) bool {
		return len(state.Messages) == 1
	})
	assert.Equal(t, "m1", state.Messages[0].ID)
}

func TestDeleteFoldRemovesMessage(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	defer fixture.session.Close()

	feed := fixture.feeds.lastMessageFeed()
	feed.push(realtime.MessageEvent{Kind: realtime.ChangeInsert, Message: testMessage("m1", "u2", "one", time.Now().UTC())})
	feed.push(realtime.MessageEvent{Kind: realtime.ChangeInsert, Message: testMessage("m2", "u2", "two", time.Now().UTC())})
	feed.push(realtime.MessageEvent{Kind: realtime.ChangeDelete, Message: models.Message{ID: "m1"}})

	state := waitForSnapshot(t, fixture.session, func(state models.ChatState) bool {
		return len(state.Messages) == 1
	})
	assert.Equal(t, "m2", state.Messages[0].ID)
}

func TestSendPersistsPublishesAndAppliesLocally(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	fixture.feeds.loopback = true
	require.NoError(t, fixture.session.Open(context.Background(), models.ConversationScope("c1")))
	defer fixture.session.Close()

	sent, err := fixture.session.Send(context.Background(), "  hello there  ", models.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello there", sent.Content)
	assert.Equal(t, "u1", sent.SenderID)
	assert.Equal(t, models.MessageText, sent.Type)
	require.NotNil(t, sent.ConversationID)
	assert.Equal(t, "c1", *sent.ConversationID)

	inserted := fixture.messages.insertedMessages()
	require.Len(t, inserted, 1)

	published := fixture.feeds.publishedMessages()
	require.Len(t, published, 1)
	assert.Equal(t, realtime.ChangeInsert, published[0].Kind)
	assert.Equal(t, sent.ID, published[0].Message.ID)

	// Applied immediately, and the broker echo of the same event stays a no-op.
	state := fixture.session.Snapshot()
	require.Len(t, state.Messages, 1)
	time.Sleep(50 * time.Millisecond)
	require.Len(t, fixture.session.Snapshot().Messages, 1)
}

func TestSendToGroupScopeUsesGroupStore(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	require.NoError(t, fixture.session.Open(context.Background(), models.GroupScope("g1")))
	defer fixture.session.Close()

	sent, err := fixture.session.Send(context.Background(), "hi group", models.SendOptions{})
	require.NoError(t, err)
	require.NotNil(t, sent.GroupID)
	assert.Equal(t, "g1", *sent.GroupID)
	assert.Nil(t, sent.ConversationID)

	require.Len(t, fixture.groups.insertedMessages(), 1)
	require.Empty(t, fixture.messages.insertedMessages())
}

func TestSendRejectsWhitespaceOnlyContent(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	defer fixture.session.Close()

	_, err := fixture.session.Send(context.Background(), "   \n\t ", models.SendOptions{})
	require.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, fixture.messages.insertedMessages())
	assert.Empty(t, fixture.feeds.publishedMessages())
}

func TestSendFailureSurfacesErrorAndKeepsState(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	fixture.messages.global = []models.Message{testMessage("m1", "u2", "existing", time.Now().UTC())}
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	defer fixture.session.Close()

	fixture.messages.failInsert = true
	_, err := fixture.session.Send(context.Background(), "doomed", models.SendOptions{})
	require.Error(t, err)

	state := fixture.session.Snapshot()
	assert.Equal(t, "failed to send message", state.Error)
	require.Len(t, state.Messages, 1, "existing messages survive a failed send")
	assert.Empty(t, fixture.feeds.publishedMessages())
}

func TestRefreshReplacesHistoryAndClearsLoadError(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	fixture.messages.failList = true
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	defer fixture.session.Close()
	require.NotEmpty(t, fixture.session.Snapshot().LoadError)

	fixture.messages.mu.Lock()
	fixture.messages.failList = false
	fixture.messages.global = []models.Message{testMessage("m1", "u2", "hello", time.Now().UTC())}
	fixture.messages.mu.Unlock()

	require.NoError(t, fixture.session.Refresh(context.Background()))

	state := fixture.session.Snapshot()
	assert.Empty(t, state.LoadError)
	require.Len(t, state.Messages, 1)
}

func TestInboundMessagesProduceReadReceiptsOnce(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	require.NoError(t, fixture.session.Open(context.Background(), models.ConversationScope("c1")))
	defer fixture.session.Close()

	feed := fixture.feeds.lastMessageFeed()
	inbound := realtime.MessageEvent{Kind: realtime.ChangeInsert, Message: testMessage("m1", "u2", "for you", time.Now().UTC())}
	own := realtime.MessageEvent{Kind: realtime.ChangeInsert, Message: testMessage("m2", "u1", "from me", time.Now().UTC())}
	feed.push(inbound)
	feed.push(own)
	feed.push(inbound)

	require.Eventually(t, func() bool {
		return len(fixture.receipts.recorded()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	receipts := fixture.receipts.recorded()
	require.Len(t, receipts, 1, "own messages and duplicates never produce receipts")
	assert.Equal(t, "m1", receipts[0].MessageID)
	assert.Equal(t, "u1", receipts[0].ReaderID)
	assert.Equal(t, models.ScopeConversation, receipts[0].ScopeKind)
}
