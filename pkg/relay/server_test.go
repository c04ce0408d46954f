package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, status int, body string, seen *Request) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat", r.URL.Path)
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newRelay(t *testing.T, backendURL string) *httptest.Server {
	t.Helper()
	mux := NewServeMux(NewForwarder(backendURL, nil), websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }})
	return httptest.NewServer(mux)
}

func decodeBody(t *testing.T, resp *http.Response) Response {
	t.Helper()
	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestForwarder_PassesBackendBodyThrough(t *testing.T) {
	var seen Request
	backend := newBackend(t, http.StatusOK, `{"response":"Use ripe tomatoes.","session_id":"chat_9"}`, &seen)
	defer backend.Close()

	body := NewForwarder(backend.URL+"/", nil).Forward(context.Background(), Request{UserInput: "  salsa  ", SessionID: "chat_9"})
	require.JSONEq(t, `{"response":"Use ripe tomatoes.","session_id":"chat_9"}`, string(body))
	require.Equal(t, Request{UserInput: "salsa", SessionID: "chat_9"}, seen)
}

func TestForwarder_EmptyMessage(t *testing.T) {
	body := NewForwarder("http://127.0.0.1:1", nil).Forward(context.Background(), Request{UserInput: "   "})
	require.JSONEq(t, `{"error":"No message provided"}`, string(body))
}

func TestForwarder_BackendErrorAddsDebug(t *testing.T) {
	backend := newBackend(t, http.StatusInternalServerError, `{"error":"Empty response from AI"}`, nil)
	defer backend.Close()

	var out Response
	require.NoError(t, json.Unmarshal(NewForwarder(backend.URL, nil).Forward(context.Background(), Request{UserInput: "x"}), &out))
	require.Equal(t, "Server error. Try again.", out.Error)
	require.EqualValues(t, 500, out.Debug["http_code"])
	require.Equal(t, `{"error":"Empty response from AI"}`, out.Debug["response"])
}

func TestForwarder_BackendUnreachable(t *testing.T) {
	backend := newBackend(t, http.StatusOK, `{}`, nil)
	url := backend.URL
	backend.Close()

	var out Response
	require.NoError(t, json.Unmarshal(NewForwarder(url, nil).Forward(context.Background(), Request{UserInput: "x"}), &out))
	require.Equal(t, "Server error. Try again.", out.Error)
	require.EqualValues(t, 0, out.Debug["http_code"])
	require.NotEmpty(t, out.Debug["transport_error"])
}

func TestChatHandler(t *testing.T) {
	backend := newBackend(t, http.StatusOK, `{"response":"Sear first."}`, nil)
	defer backend.Close()
	relay := newRelay(t, backend.URL)
	defer relay.Close()

	resp, err := http.Post(relay.URL+"/api/chat", "application/json", bytes.NewReader([]byte(`{"user_input":"steak"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Sear first.", decodeBody(t, resp).Response)

	resp2, err := http.Post(relay.URL+"/api/chat", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, "No message provided", decodeBody(t, resp2).Error)

	resp3, err := http.Get(relay.URL + "/api/chat")
	require.NoError(t, err)
	defer resp3.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp3.StatusCode)
}

func TestHTTPClientThroughRelay(t *testing.T) {
	backend := newBackend(t, http.StatusInternalServerError, `boom`, nil)
	defer backend.Close()
	relay := newRelay(t, backend.URL)
	defer relay.Close()

	_, err := NewHTTPClient(relay.URL+"/api/chat").Generate(context.Background(), Request{UserInput: "x"})
	require.Error(t, err)
	require.Equal(t, "Server error. Try again.", DisplayText(err))
}

func TestWSClientThroughRelay(t *testing.T) {
	var seen Request
	backend := newBackend(t, http.StatusOK, `{"response":"Rest the dough."}`, &seen)
	defer backend.Close()
	relay := newRelay(t, backend.URL)
	defer relay.Close()

	wsURL := "ws" + strings.TrimPrefix(relay.URL, "http") + "/api/ws"
	reply, err := NewWSClient(wsURL, nil).Generate(context.Background(), Request{UserInput: "bread", SessionID: "chat_2"})
	require.NoError(t, err)
	require.Equal(t, "Rest the dough.", reply)
	require.Equal(t, "chat_2", seen.SessionID)
}

func TestWSClient_DialFailure(t *testing.T) {
	relay := newRelay(t, "http://127.0.0.1:1")
	url := "ws" + strings.TrimPrefix(relay.URL, "http") + "/api/ws"
	relay.Close()

	_, err := NewWSClient(url, nil).Generate(context.Background(), Request{UserInput: "x"})
	require.Error(t, err)
	require.Equal(t, FallbackErrorText, DisplayText(err))
}

func TestHealthz(t *testing.T) {
	relay := newRelay(t, "http://127.0.0.1:1")
	defer relay.Close()
	resp, err := http.Get(relay.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
