package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/alerting"
	"lookout/internal/detection"
	"lookout/internal/geometry"
	"lookout/internal/pipeline"
	"lookout/internal/watchlist"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewHandler(hub))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewHub()
	bus := pipeline.NewEventBus()
	detach := hub.Attach(bus)
	defer detach()

	conn := dialHub(t, hub)

	require.Eventually(t, hub.HasClients, 2*time.Second, 10*time.Millisecond)

	bus.Publish(pipeline.Event{
		Type:  pipeline.EventAlert,
		Time:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Faces: 1,
		Result: watchlist.MatchResult{
			Blacklist: &watchlist.Match{Name: "Mallory", Score: 0.8},
			Faces: []detection.Detection{
				{Box: geometry.Box{X1: 10, Y1: 20, X2: 50, Y2: 70}, Score: 0.9},
			},
		},
		Decision: &alerting.Decision{Mode: watchlist.Blacklist, Name: "Mallory", Score: 0.8},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg EventMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "alert", msg.Type)
	require.Len(t, msg.Faces, 1)
	assert.Equal(t, []float32{10, 20, 40, 50}, msg.Faces[0].BBox)
	require.NotNil(t, msg.Match)
	assert.Equal(t, "Mallory", msg.Match.Name)
	require.NotNil(t, msg.Alert)
	assert.Equal(t, "blacklist", msg.Alert.Mode)
}

func TestHubUnregisterOnClose(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	require.Eventually(t, hub.HasClients, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubNoClientsIsNoOp(t *testing.T) {
	hub := NewHub()
	hub.BroadcastEvent(pipeline.Event{Type: pipeline.EventMatch})
	assert.Equal(t, 0, hub.ClientCount())
}

var _ http.Handler = (*Handler)(nil)
