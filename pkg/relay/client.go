package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const maxResponseBytes = 4 << 20

type HTTPClient struct {
	url        string
	httpClient *http.Client
}

var _ Client = &HTTPClient{}

type HTTPClientOption func(*HTTPClient)

func WithHTTPClient(c *http.Client) HTTPClientOption {
	return func(h *HTTPClient) {
		if c != nil {
			h.httpClient = c
		}
	}
}

func WithTimeout(d time.Duration) HTTPClientOption {
	return func(h *HTTPClient) {
		h.httpClient = &http.Client{Timeout: d}
	}
}

func NewHTTPClient(url string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{url: url, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "relay: encode request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &TransportFailure{Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TransportFailure{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TransportFailure{Status: resp.StatusCode, Cause: err}
	}
	return decodeResponse(resp.StatusCode, data)
}

// decodeResponse turns a relay reply into either the reply text or a
// TransportFailure carrying whatever error text the relay supplied.
func decodeResponse(status int, data []byte) (string, error) {
	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &TransportFailure{Status: status, Cause: errors.Wrap(err, "decode relay response")}
	}
	if status < 200 || status >= 300 {
		return "", &TransportFailure{Status: status, Message: out.Error}
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", &TransportFailure{Status: status, Message: out.Error}
	}
	return out.Response, nil
}
