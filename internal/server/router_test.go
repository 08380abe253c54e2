package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"realtime-hub/internal/auth"
	"realtime-hub/internal/config"
	"realtime-hub/internal/hub"
)

var testTokenConfig = auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}

func newTestRouter(t *testing.T, rateLimit int) (*gin.Engine, *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.New(zerolog.Nop())
	require.NoError(t, h.Start(ctx))
	v, err := auth.NewVerifier(testTokenConfig)
	require.NoError(t, err)

	cfg := config.Config{
		Port:               3000,
		GinMode:            gin.TestMode,
		MasterSecret:       testTokenConfig.Secret,
		TokenIssuer:        testTokenConfig.Issuer,
		PingInterval:       25 * time.Second,
		PingTimeout:        20 * time.Second,
		MaxPayload:         1000000,
		SendQueueSize:      16,
		HandshakeRateLimit: rateLimit,
	}
	return NewRouter(ctx, Deps{Hub: h, Verifier: v, Config: cfg, Logger: zerolog.Nop()}), h
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.CreateToken(auth.Identity{UserID: userID}, testTokenConfig)
	require.NoError(t, err)
	return "Bearer " + tok
}

func doGet(r http.Handler, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, 0)
	w := doGet(r, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"ok":true`)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _ := newTestRouter(t, 0)

	w := doGet(r, "/v1/stats", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"Missing token"}`, w.Body.String())

	w = doGet(r, "/v1/presence/alice", "Bearer junk")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doGet(r, "/v1/stats", bearer(t, "alice"))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"connections":0,"users":0,"rooms":0}`, w.Body.String())
}

func TestNotFound(t *testing.T) {
	r, _ := newTestRouter(t, 0)
	w := doGet(r, "/v1/sessions", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSocketUpgradeRateLimited(t *testing.T) {
	r, _ := newTestRouter(t, 2)

	for i := 0; i < 2; i++ {
		w := doGet(r, "/socket.io/?EIO=4&transport=polling", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	}
	w := doGet(r, "/socket.io/?EIO=4&transport=polling", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))

	// the limit applies to the socket endpoint only
	require.Equal(t, http.StatusOK, doGet(r, "/health", "").Code)
}

func waitForPrefix(t *testing.T, c *websocket.Conn, prefix string, timeout time.Duration) string {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(timeout)))
	defer c.SetReadDeadline(time.Time{})
	for {
		_, data, err := c.ReadMessage()
		require.NoError(t, err, "waiting for %q", prefix)
		msg := string(data)
		if msg == "2" {
			_ = c.WriteMessage(websocket.TextMessage, []byte("3"))
			continue
		}
		if strings.HasPrefix(msg, prefix) {
			return msg
		}
	}
}

func TestSocketIOThroughRouter(t *testing.T) {
	r, h := newTestRouter(t, 0)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket.io/?EIO=4&transport=websocket"
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer c.Close()

	waitForPrefix(t, c, "0{", 2*time.Second)
	authBytes, _ := json.Marshal(map[string]any{"token": strings.TrimPrefix(bearer(t, "alice"), "Bearer ")})
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("40"+string(authBytes))))
	waitForPrefix(t, c, `40{"sid":`, 2*time.Second)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`421["conversation:join","7"]`)))
	require.Equal(t, `431[{"ok":true}]`, waitForPrefix(t, c, "431", 2*time.Second))

	w := doGet(r, "/v1/presence/alice", bearer(t, "bob"))
	require.JSONEq(t, `{"userId":"alice","online":true,"connections":1}`, w.Body.String())
	require.Equal(t, hub.Stats{Connections: 1, Users: 1, Rooms: 2}, h.Stats())

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("41")))
	require.Eventually(t, func() bool { return !h.Registry().Online("alice") }, 2*time.Second, 10*time.Millisecond)
}
