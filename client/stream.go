package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
)

// streamReadLimit bounds a single stream message; result events carry whole networks.
const streamReadLimit = 64 << 20

// ExploreStream runs an exploration over the WebSocket endpoint, calling
// onProgress after each depth level. onProgress may be nil.
func (s *NetworkService) ExploreStream(ctx context.Context, req ExploreRequest, onProgress func(Progress)) (*NetworkResult, error) {
	opts := &websocket.DialOptions{}
	if s.c.apiKey != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + s.c.apiKey}}
	}

	conn, resp, err := websocket.Dial(ctx, wsURL(s.c.baseURL)+"/api/v1/ws/explore", opts)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode, Code: "unknown", Message: err.Error()}
		}
		return nil, fmt.Errorf("dial stream: %w", err)
	}
	defer conn.CloseNow() //nolint:errcheck // best-effort close

	conn.SetReadLimit(streamReadLimit)

	msg, err := json.Marshal(struct {
		Type string `json:"type"`
		ExploreRequest
	}{Type: "explore", ExploreRequest: req})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("stream closed before result: %w", err)
		}

		var evt StreamEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}

		switch evt.Type {
		case "progress":
			if onProgress == nil {
				continue
			}
			var p Progress
			if err := json.Unmarshal(evt.Data, &p); err != nil {
				return nil, fmt.Errorf("decode progress: %w", err)
			}
			onProgress(p)
		case "result":
			var res NetworkResult
			if err := json.Unmarshal(evt.Data, &res); err != nil {
				return nil, fmt.Errorf("decode result: %w", err)
			}
			conn.Close(websocket.StatusNormalClosure, "") //nolint:errcheck // server closes too
			return &res, nil
		case "error":
			apiErr := &APIError{}
			if err := json.Unmarshal(evt.Data, apiErr); err != nil {
				return nil, fmt.Errorf("decode error event: %w", err)
			}
			apiErr.StatusCode = statusForCode(apiErr.Code)
			return nil, apiErr
		}
	}
}

// wsURL converts an http(s) base URL to ws(s).
func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}

// statusForCode maps a stream error code to the equivalent HTTP status.
func statusForCode(code string) int {
	switch code {
	case "not_found":
		return http.StatusNotFound
	case "invalid_request", "validation_error":
		return http.StatusBadRequest
	case "rate_limited":
		return http.StatusTooManyRequests
	case "unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
