package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func waitConnected(t *testing.T, h *Hub, user string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Connected(user) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_SendJSONToEveryConnection(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, r.URL.Query().Get("user"))
	}))
	defer srv.Close()

	a1 := dial(t, srv, "a")
	defer a1.Close()
	a2 := dial(t, srv, "a")
	defer a2.Close()
	b := dial(t, srv, "b")
	defer b.Close()
	waitConnected(t, hub, "a", 2)
	waitConnected(t, hub, "b", 1)

	require.NoError(t, hub.SendJSON("a", map[string]string{"type": "notification", "title": "hi"}))

	for _, c := range []*websocket.Conn{a1, a2} {
		var got map[string]string
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, c.ReadJSON(&got))
		assert.Equal(t, "hi", got["title"])
	}

	_ = b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var none map[string]string
	assert.Error(t, b.ReadJSON(&none), "other users receive nothing")
}

func TestHub_OfflineUserIsNoop(t *testing.T) {
	assert.NoError(t, NewHub(nil).SendJSON("nobody", map[string]string{}))
}

func TestHub_DisconnectRemovesConnection(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, "a")
	}))
	defer srv.Close()

	c := dial(t, srv, "a")
	waitConnected(t, hub, "a", 1)
	require.NoError(t, c.Close())
	waitConnected(t, hub, "a", 0)
}
