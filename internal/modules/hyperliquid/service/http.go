package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// HTTPTransport posts info requests to {api_url}/info.
type HTTPTransport struct {
	url  string
	http *http.Client
}

func NewHTTPTransport(apiURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		url:  strings.TrimRight(apiURL, "/") + "/info",
		http: &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) Info(ctx context.Context, r InfoRequest) (json.RawMessage, error) {
	payload, err := sonic.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if resp.StatusCode/100 != 2 {
		return nil, errors.Errorf("http %d: %s", resp.StatusCode, truncate(data, 200))
	}
	return data, nil
}

func (t *HTTPTransport) Close() error {
	t.http.CloseIdleConnections()
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
