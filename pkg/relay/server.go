package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	noMessageText   = "No message provided"
	serverErrorText = "Server error. Try again."
)

// Forwarder relays a chat request to the backend's /chat endpoint and hands
// back the body to return to the client.
type Forwarder struct {
	backendURL string
	client     *http.Client
}

func NewForwarder(backendURL string, client *http.Client) *Forwarder {
	if client == nil {
		client = &http.Client{}
	}
	return &Forwarder{backendURL: strings.TrimRight(backendURL, "/"), client: client}
}

// Forward always produces a JSON body. Backend failures are folded into a
// generic error reply with debug details.
func (f *Forwarder) Forward(ctx context.Context, in Request) []byte {
	in.UserInput = strings.TrimSpace(in.UserInput)
	if in.UserInput == "" {
		return mustJSON(Response{Error: noMessageText})
	}

	payload, _ := json.Marshal(in)
	status, body, transportErr := f.post(ctx, payload)
	if status != http.StatusOK || transportErr != "" {
		log.Warn().
			Str("component", "relay").
			Int("status", status).
			Str("transport_error", transportErr).
			Msg("backend request failed")
		return mustJSON(Response{
			Error: serverErrorText,
			Debug: map[string]any{
				"http_code":       status,
				"transport_error": transportErr,
				"response":        string(body),
			},
		})
	}
	return body
}

func (f *Forwarder) post(ctx context.Context, payload []byte) (int, []byte, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.backendURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, err.Error()
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, body, err.Error()
	}
	return resp.StatusCode, body, ""
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"error":"` + serverErrorText + `"}`)
	}
	return b
}

func NewChatHandler(f *Forwarder) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var in Request
		// an unreadable body is treated like an empty message
		_ = json.NewDecoder(io.LimitReader(req.Body, maxResponseBytes)).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(f.Forward(req.Context(), in))
	}
}

// NewWSHandler serves one request/response exchange per text frame until the
// client goes away.
func NewWSHandler(f *Forwarder, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var in Request
			_ = json.Unmarshal(frame, &in)
			if err := conn.WriteMessage(websocket.TextMessage, f.Forward(req.Context(), in)); err != nil {
				log.Debug().Err(err).Str("component", "relay").Msg("websocket write failed")
				return
			}
		}
	}
}

func NewServeMux(f *Forwarder, upgrader websocket.Upgrader) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", NewChatHandler(f))
	mux.HandleFunc("/api/ws", NewWSHandler(f, upgrader))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
