package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juhojo/blabbermouth/internal/logging"
	"github.com/juhojo/blabbermouth/internal/metrics"
	"github.com/juhojo/blabbermouth/internal/models"
	"github.com/juhojo/blabbermouth/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	knownKey = "tz4a98xxat96iws9zmbrgj3a"
	otherKey = "pfh0haxfpzowht3oi213cqos"
)

type fakeKeys map[string]bool

func (f fakeKeys) IsValidKey(_ context.Context, ck string) (bool, error) {
	if ck == "explode" {
		return false, errors.New("db down")
	}
	return f[ck], nil
}

func newSubscribeServer(t *testing.T) (*httptest.Server, *services.Hub) {
	t.Helper()
	hub := services.NewHub(logging.Discard(), metrics.NewNoopMetrics())
	h := NewSubscribeHandler(fakeKeys{knownKey: true, otherKey: true}, hub, logging.Discard())
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return srv, hub
}

func wsURL(srv *httptest.Server, ck string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/?ck=" + ck
}

func TestSubscribe_RejectsBadKeyBeforeUpgrade(t *testing.T) {
	srv, hub := newSubscribeServer(t)

	for _, ck := range []string{"", "unknownkeyaaaaaaaaaaaaaa", "explode"} {
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ck), nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake, ck)
		assert.Nil(t, conn)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, 0, hub.Len())
}

func TestSubscribe_ReceivesOnlyOwnConfig(t *testing.T) {
	srv, hub := newSubscribeServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, knownKey), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers(knownKey) == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(otherKey, services.ConfigEvent{ID: 11, Fields: []models.Field{}})
	hub.Broadcast(knownKey, services.ConfigEvent{ID: 10, Fields: []models.Field{{ID: 1, ConfigID: 10, Key: "HOST", Value: "x"}}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		ID     int64          `json:"id"`
		Fields []models.Field `json:"fields"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, int64(10), msg.ID)
	require.Len(t, msg.Fields, 1)
	assert.Equal(t, "HOST", msg.Fields[0].Key)

	// nothing else is queued for this subscriber
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestSubscribe_DisconnectUnregisters(t *testing.T) {
	srv, hub := newSubscribeServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, knownKey), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Subscribers(knownKey) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Subscribers(knownKey) == 0 }, 2*time.Second, 10*time.Millisecond)
}
