package notifications

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishFeed(context.Background(), []byte("x")))
	assert.NoError(t, n.StartFeedSubscriber(context.Background(), func(string) {}))
}

func TestBroker_LocalDelivery(t *testing.T) {
	hub := NewFeedHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()
	c, err := hub.Register("", nil)
	require.NoError(t, err)

	broker := NewBroker(hub, NewNotifier(nil), nil)
	broker.Publish(context.Background(), NewFeedEvent(EventPostCreated, "p1", "Hello", "alice"))

	var got FeedEvent
	require.NoError(t, json.Unmarshal(<-c.Send, &got))
	assert.Equal(t, EventPostCreated, got.Type)
	assert.Equal(t, "p1", got.PostID)
	assert.Equal(t, "alice", got.Author)
}

func TestBroker_RedisFanOut(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewFeedHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()
	c, err := hub.Register("u1", nil)
	require.NoError(t, err)

	notifier := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, notifier))

	NewBroker(hub, notifier, nil).Publish(ctx, NewFeedEvent(EventPostDeleted, "p9", "", ""))

	assert.Eventually(t, func() bool { return len(c.Send) == 1 }, testEventuallyTimeout, testPollInterval)
	var got FeedEvent
	require.NoError(t, json.Unmarshal(<-c.Send, &got))
	assert.Equal(t, EventPostDeleted, got.Type)
	assert.Equal(t, "p9", got.PostID)
}

func TestNatsMirror_Disabled(t *testing.T) {
	m, err := ConnectNats("")
	assert.NoError(t, err)
	assert.Nil(t, m)
	assert.NoError(t, m.Publish([]byte("x")))
	m.Close()
}
