package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkuzmin/chatrelay/internal/core"
)

func startSignalServer(t *testing.T, ctl *Controller) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/ws/signal", func(c *gin.Context) {
		ctl.HandleSignal(context.Background(), c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
}

func dialAndSetup(t *testing.T, url, user string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"setup","data":{"_id":"`+user+`","name":"`+user+`"}}`)))
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	env, err := core.DecodeEnvelope(msg)
	require.NoError(t, err)
	require.Equal(t, "connected", env.Event)
	return ws
}

// A canceled session must not linger: cancellation closes the transport,
// which unblocks the read pump into the eviction path. A write failure is an
// implicit disconnect of that session.
func TestCanceledSessionIsEvictedAndNotified(t *testing.T) {
	ctl := newTestController()
	url := startSignalServer(t, ctl)

	doomed := dialAndSetup(t, url, "u1")
	mate := dialAndSetup(t, url, "u2")

	require.NoError(t, doomed.WriteMessage(websocket.TextMessage, []byte(`{"event":"join chat","data":"c1"}`)))
	require.NoError(t, mate.WriteMessage(websocket.TextMessage, []byte(`{"event":"join chat","data":"c1"}`)))
	require.Eventually(t, func() bool {
		return len(ctl.Relay.Registry.MembersOf("c1")) == 2
	}, 2*time.Second, 10*time.Millisecond)

	peers := ctl.Relay.Registry.SessionsForIdentity("u1")
	require.Len(t, peers, 1)
	ctl.Relay.Registry.Cancel(peers[0].SID)

	assert.Eventually(t, func() bool {
		return len(ctl.Relay.Registry.SessionsForIdentity("u1")) == 0
	}, 2*time.Second, 10*time.Millisecond, "canceled session leaves the registry")
	assert.Eventually(t, func() bool {
		return len(ctl.Relay.Registry.MembersOf("c1")) == 1
	}, 2*time.Second, 10*time.Millisecond, "canceled session leaves its rooms")

	require.NoError(t, mate.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := mate.ReadMessage()
	require.NoError(t, err)
	env, err := core.DecodeEnvelope(msg)
	require.NoError(t, err)
	assert.Equal(t, "peer-disconnected", env.Event)

	require.NoError(t, doomed.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = doomed.ReadMessage()
	assert.Error(t, err, "server side closed the doomed transport")
}
