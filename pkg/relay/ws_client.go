package relay

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
)

// WSClient speaks the same request/response pair over a websocket. Each call
// dials its own connection so that an abort only has to close it.
type WSClient struct {
	url    string
	dialer *websocket.Dialer
}

var _ Client = &WSClient{}

func NewWSClient(url string, dialer *websocket.Dialer) *WSClient {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &WSClient{url: url, dialer: dialer}
}

func (c *WSClient) Generate(ctx context.Context, req Request) (string, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return "", &TransportFailure{Status: status, Cause: err}
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(req); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TransportFailure{Cause: err}
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TransportFailure{Cause: err}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return decodeResponse(http.StatusOK, data)
}
