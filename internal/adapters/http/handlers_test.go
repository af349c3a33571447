package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonkchat/wonk/internal/adapters/push"
	"github.com/wonkchat/wonk/internal/attachments"
	"github.com/wonkchat/wonk/internal/auth"
	"github.com/wonkchat/wonk/internal/config"
	"github.com/wonkchat/wonk/internal/gateway"
	"github.com/wonkchat/wonk/internal/registry"
	"github.com/wonkchat/wonk/internal/store"
)

type apiClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func (c *apiClient) request(method, path string, body any) (*http.Response, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (c *apiClient) post(path string, body any) (*http.Response, map[string]any) {
	return c.request(http.MethodPost, path, body)
}

func (c *apiClient) get(path string) (*http.Response, map[string]any) {
	return c.request(http.MethodGet, path, nil)
}

func (c *apiClient) login(username string) map[string]any {
	c.t.Helper()
	resp, out := c.post("/auth", map[string]string{"username": username, "password": "x"})
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	return out
}

func assertCode(t *testing.T, resp *http.Response, out map[string]any, want *gateway.Error) {
	t.Helper()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, true, out["error"])
	assert.Equal(t, float64(want.Code), out["code"])
	assert.Equal(t, want.Message, out["message"])
}

type testServer struct {
	srv *httptest.Server
	gw  *gateway.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Mode:         "release",
		StaticPath:   t.TempDir(),
		Secret:       "test-secret",
		ReadLimit:    32768,
		PingPeriod:   54 * time.Second,
		WriteTimeout: 5 * time.Second,
		SendBuffer:   32,
		TypingTTL:    10 * time.Second,
	}

	rooms := store.NewMemoryRooms()
	users := store.NewMemoryUsers()
	_, err := rooms.Create("wonk", "Welcome to wonk")
	require.NoError(t, err)

	gw := gateway.NewService(
		rooms, users,
		registry.NewMembership(),
		registry.NewConnections(),
		registry.NewPresence(),
		registry.NewTyping(cfg.TypingTTL),
	)
	attach, err := attachments.NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	api := &API{
		GW:     gw,
		Auth:   auth.NewService(cfg.Secret),
		Users:  users,
		Attach: attach,
	}
	router := SetupRouter(context.Background(), cfg, api, push.NewController(gw, cfg))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, gw: gw}
}

func (ts *testServer) client(t *testing.T) *apiClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &apiClient{t: t, base: ts.srv.URL, http: &http.Client{Jar: jar}}
}

func TestAPIRequiresSession(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	resp, out := c.post("/api/rooms/wonk/join", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, true, out["error"])
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	out := c.login("wonker")
	user, ok := out["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "wonker", user["username"])
	assert.NotEmpty(t, user["id"])
	assert.NotEmpty(t, user["color"])

	// Session cookie now authenticates API calls.
	resp, _ := c.post("/api/rooms/wonk/join", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRejectsBadUsername(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	resp, out := c.post("/auth", map[string]string{"username": "ab", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, true, out["error"])
}

func TestLogoutClearsSession(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	c.login("wonker")

	resp, _ := c.get("/logout")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.post("/api/rooms/wonk/join", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoomLifecycleErrors(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	c.login("wonker")

	resp, out := c.post("/api/rooms/UPPER/create", nil)
	assertCode(t, resp, out, gateway.ErrInvalidName)

	resp, out = c.post("/api/rooms/wonk/create", nil)
	assertCode(t, resp, out, gateway.ErrRoomExists)

	resp, _ = c.post("/api/rooms/den/create", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out = c.post("/api/rooms/nowhere/join", nil)
	assertCode(t, resp, out, gateway.ErrRoomNotFound)

	resp, out = c.post("/api/rooms/den/join", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "den", out["name"])

	resp, out = c.post("/api/rooms/den/join", nil)
	assertCode(t, resp, out, gateway.ErrAlreadyJoined)

	resp, out = c.post("/api/rooms/wonk/leave", nil)
	assertCode(t, resp, out, gateway.ErrNotInRoomLeave)

	resp, _ = c.post("/api/rooms/den/leave", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMembersRequiresMembership(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	c.login("wonker")

	resp, out := c.get("/api/rooms/wonk/members")
	assertCode(t, resp, out, gateway.ErrNotInRoomQuery)

	c.post("/api/rooms/wonk/join", nil)
	resp, out = c.get("/api/rooms/wonk/members")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	members, ok := out["members"].([]any)
	require.True(t, ok)
	assert.Len(t, members, 1)
}

func TestSendMessageValidation(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	c.login("wonker")
	c.post("/api/rooms/wonk/join", nil)

	// Missing content field is a malformed body, not bad content.
	resp, out := c.post("/api/rooms/wonk/message", map[string]any{"attachments": []string{}})
	assertCode(t, resp, out, gateway.ErrInvalidBody)

	resp, out = c.post("/api/rooms/wonk/message", map[string]any{"content": "hi"})
	assertCode(t, resp, out, gateway.ErrInvalidBody)

	resp, out = c.post("/api/rooms/wonk/message", map[string]any{
		"content": "   ", "attachments": []string{},
	})
	assertCode(t, resp, out, gateway.ErrInvalidContent)

	resp, out = c.post("/api/rooms/wonk/message", map[string]any{
		"content": strings.Repeat("a", 1001), "attachments": []string{},
	})
	assertCode(t, resp, out, gateway.ErrInvalidContent)

	resp, _ = c.post("/api/rooms/wonk/message", map[string]any{
		"content": "hello", "attachments": []string{},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	c.login("wonker")

	resp, out := c.post("/api/rooms/wonk/message", map[string]any{
		"content": "hello", "attachments": []string{},
	})
	assertCode(t, resp, out, gateway.ErrNotInRoomSend)
}

func TestTypingValidation(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	c.login("wonker")
	c.post("/api/rooms/wonk/join", nil)

	resp, out := c.post("/api/rooms/wonk/typing", map[string]any{})
	assertCode(t, resp, out, gateway.ErrInvalidBody)

	resp, _ = c.post("/api/rooms/wonk/typing", map[string]any{"typing": true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLookupUsers(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	out := c.login("wonker")
	id := out["user"].(map[string]any)["id"].(string)

	resp, out := c.get("/api/users")
	assertCode(t, resp, out, gateway.ErrMissingIDs)

	resp, out = c.get("/api/users?ids=" + id + "&subscribe=maybe")
	assertCode(t, resp, out, gateway.ErrBadSubscribe)

	resp, out = c.get("/api/users?ids=" + id + ",unknown")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users, ok := out["users"].([]any)
	require.True(t, ok)
	require.Len(t, users, 1, "unknown ids are skipped")
	view := users[0].(map[string]any)
	assert.Equal(t, "wonker", view["username"])
	assert.Equal(t, true, view["offline"], "no live push connection yet")
}

func TestSyncClient(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	c.login("wonker")

	resp, out := c.get("/api/sync/client")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, out["rooms"])

	c.post("/api/rooms/wonk/join", nil)
	resp, out = c.get("/api/sync/client")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rooms, ok := out["rooms"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, rooms, "wonk")
	assert.Equal(t, "Welcome to wonk", rooms["wonk"].(map[string]any)["description"])
}

func TestAttachmentUploadAndServe(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	c.login("wonker")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cat.png")
	require.NoError(t, err)
	fw.Write([]byte("meow"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.base+"/api/attachments", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, strings.HasPrefix(out.Path, "/attachments/"))

	// Attachments are served without a session.
	anon := ts.client(t)
	got, err := anon.http.Get(anon.base + out.Path)
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, http.StatusOK, got.StatusCode)

	missing, err := anon.http.Get(anon.base + "/attachments/nope/missing.txt")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func (c *apiClient) dialGateway(t *testing.T) *websocket.Conn {
	t.Helper()
	u, err := url.Parse(c.base)
	require.NoError(t, err)
	header := http.Header{}
	for _, ck := range c.http.Jar.Cookies(u) {
		header.Add("Cookie", ck.String())
	}
	wsURL := "ws" + strings.TrimPrefix(c.base, "http") + "/api/gateway"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestGatewayDeliversMessages(t *testing.T) {
	ts := newTestServer(t)

	sender := ts.client(t)
	sender.login("sender")
	sender.post("/api/rooms/wonk/join", nil)

	receiver := ts.client(t)
	receiver.login("receiver")
	receiver.post("/api/rooms/wonk/join", nil)

	senderWS := sender.dialGateway(t)
	receiverWS := receiver.dialGateway(t)
	time.Sleep(50 * time.Millisecond)

	resp, _ := sender.post("/api/rooms/wonk/message", map[string]any{
		"content": "hello wonk", "attachments": []string{},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, ws := range []*websocket.Conn{senderWS, receiverWS} {
		ev := readEvent(t, ws)
		assert.Equal(t, "message", ev["event"])
		assert.Equal(t, "hello wonk", ev["content"])
		assert.Equal(t, "wonk", ev["room"])
		author, ok := ev["author"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "sender", author["username"])
	}
}

func TestGatewayMemberEventsExcludeActor(t *testing.T) {
	ts := newTestServer(t)

	watcher := ts.client(t)
	watcher.login("watcher")
	watcher.post("/api/rooms/wonk/join", nil)
	watcherWS := watcher.dialGateway(t)
	time.Sleep(50 * time.Millisecond)

	joiner := ts.client(t)
	out := joiner.login("joiner")
	joinerID := out["user"].(map[string]any)["id"].(string)
	joiner.post("/api/rooms/wonk/join", nil)

	ev := readEvent(t, watcherWS)
	assert.Equal(t, "updateMember", ev["event"])
	assert.Equal(t, "join", ev["state"])
	assert.Equal(t, joinerID, ev["id"])
	assert.Equal(t, "wonk", ev["room"])
}
