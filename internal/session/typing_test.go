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

func typingEvent(userID, name string, isTyping bool, at time.Time) realtime.TypingEvent {
	return realtime.TypingEvent{
		Kind: realtime.ChangeUpdate,
		Indicator: models.TypingIndicator{
			UserID:    userID,
			UserName:  name,
			IsTyping:  isTyping,
			LastTyped: at,
		},
	}
}

func TestTypingFoldKeepsLatestPerUser(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	defer fixture.session.Close()

	feed := fixture.feeds.lastTypingFeed()
	now := time.Now().UTC()
	feed.push(typingEvent("u2", "bob", true, now))
	feed.push(typingEvent("u3", "carol", true, now))
	feed.push(typingEvent("u2", "bob", true, now.Add(time.Second)))

	state := waitForSnapshot(t, fixture.session, func(state models.ChatState) bool {
		return len(state.TypingUsers) == 2 && state.TypingUsers[0].LastTyped.Equal(now.Add(time.Second))
	})
	assert.Equal(t, "bob", state.TypingUsers[0].UserName)
	assert.Equal(t, "carol", state.TypingUsers[1].UserName)
}

func TestTypingFoldIgnoresOwnIndicator(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	defer fixture.session.Close()

	feed := fixture.feeds.lastTypingFeed()
	feed.push(typingEvent("u1", "alice", true, time.Now().UTC()))
	feed.push(typingEvent("u2", "bob", true, time.Now().UTC()))

	state := waitForSnapshot(t, fixture.session, func(state models.ChatState) bool {
		return len(state.TypingUsers) == 1
	})
	assert.Equal(t, "u2", state.TypingUsers[0].UserID)

	time.Sleep(20 * time.Millisecond)
	require.Len(t, fixture.session.Snapshot().TypingUsers, 1)
}

func TestTypingStopEventRemovesIndicator(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	defer fixture.session.Close()

	feed := fixture.feeds.lastTypingFeed()
	feed.push(typingEvent("u2", "bob", true, time.Now().UTC()))
	waitForSnapshot(t, fixture.session, func(state models.ChatState) bool {
		return len(state.TypingUsers) == 1
	})

	feed.push(typingEvent("u2", "bob", false, time.Now().UTC()))
	waitForSnapshot(t, fixture.session, func(state models.ChatState) bool {
		return len(state.TypingUsers) == 0
	})
}

func TestTypingDeleteEventRemovesIndicator(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	defer fixture.session.Close()

	feed := fixture.feeds.lastTypingFeed()
	feed.push(typingEvent("u2", "bob", true, time.Now().UTC()))
	waitForSnapshot(t, fixture.session, func(state models.ChatState) bool {
		return len(state.TypingUsers) == 1
	})

	stop := typingEvent("u2", "bob", true, time.Now().UTC())
	stop.Kind = realtime.ChangeDelete
	feed.push(stop)
	waitForSnapshot(t, fixture.session, func(state models.ChatState) bool {
		return len(state.TypingUsers) == 0
	})
}

func TestTypingSweepDropsStaleIndicators(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{
		TypingSweepEvery: 20 * time.Millisecond,
		TypingStaleAfter: 60 * time.Millisecond,
	})
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	defer fixture.session.Close()

	feed := fixture.feeds.lastTypingFeed()
	feed.push(typingEvent("u2", "bob", true, time.Now().UTC()))
	waitForSnapshot(t, fixture.session, func(state models.ChatState) bool {
		return len(state.TypingUsers) == 1
	})

	// No further keystrokes arrive; the sweeper expires the indicator.
	waitForSnapshot(t, fixture.session, func(state models.ChatState) bool {
		return len(state.TypingUsers) == 0
	})
}

func TestTypingSweepKeepsFreshIndicators(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{
		TypingSweepEvery: 10 * time.Millisecond,
		TypingStaleAfter: 10 * time.Second,
	})
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	defer fixture.session.Close()

	feed := fixture.feeds.lastTypingFeed()
	feed.push(typingEvent("u2", "bob", true, time.Now().UTC()))
	waitForSnapshot(t, fixture.session, func(state models.ChatState) bool {
		return len(state.TypingUsers) == 1
	})

	time.Sleep(50 * time.Millisecond)
	require.Len(t, fixture.session.Snapshot().TypingUsers, 1)
}

func TestSetTypingWritesAndPublishes(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	require.NoError(t, fixture.session.Open(context.Background(), models.ConversationScope("c1")))
	defer fixture.session.Close()

	fixture.session.SetTyping(true)

	require.Eventually(t, func() bool {
		return len(fixture.typing.upserted()) == 1 && len(fixture.feeds.publishedTyping()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	upserts := fixture.typing.upserted()
	assert.Equal(t, "u1", upserts[0].UserID)
	assert.True(t, upserts[0].IsTyping)
	require.NotNil(t, upserts[0].ConversationID)
	assert.Equal(t, "c1", *upserts[0].ConversationID)

	published := fixture.feeds.publishedTyping()
	assert.Equal(t, "u1", published[0].Indicator.UserID)
}

func TestSetTypingIsNoOpWhenClosed(t *testing.T) {
	fixture := newSessionFixture(testProfile("u1", "alice"), Options{})
	require.NoError(t, fixture.session.Open(context.Background(), models.GlobalScope()))
	fixture.session.Close()

	fixture.session.SetTyping(true)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, fixture.typing.upserted())
	assert.Empty(t, fixture.feeds.publishedTyping())
}
