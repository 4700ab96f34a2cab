package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lemonade-sdk/lemon-server/pkg/events"
)

// jsonBody is a lazily-marshaled request body, built once per request so a
// failed marshal surfaces as an error rather than a panic inside http.NewRequest.
type jsonBody struct {
	data []byte
	err  error
}

func newJSONBody(v any) *jsonBody {
	data, err := json.Marshal(v)
	return &jsonBody{data: data, err: err}
}

func newRequest(ctx context.Context, method, url string, body *jsonBody) (*http.Request, error) {
	if body == nil {
		return http.NewRequestWithContext(ctx, method, url, nil)
	}
	if body.err != nil {
		return nil, fmt.Errorf("encode request body: %w", body.err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body.data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// eventSink receives each progress/complete frame from a streamed install
// or pull as it arrives; an "error" frame instead becomes streamEvents'
// return value.
type eventSink func(events.Kind, events.Progress)

// streamEvents issues a POST to path with body and parses the response as
// event:/data: frames, invoking onEvent for each one. An "error" frame's
// message becomes the returned error.
func (c *client) streamEvents(ctx context.Context, path string, body any, onEvent eventSink) error {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	var streamErr error
	parseErr := events.Parse(resp.Body, func(string) {}, func(f events.Frame) error {
		switch f.Kind {
		case events.KindProgress:
			var p events.Progress
			if err := json.Unmarshal(f.Data, &p); err == nil && onEvent != nil {
				onEvent(f.Kind, p)
			}
			return nil
		case events.KindComplete:
			if onEvent != nil {
				onEvent(f.Kind, events.Progress{})
			}
			return nil
		case events.KindError:
			var payload events.ErrorPayload
			_ = json.Unmarshal(f.Data, &payload)
			streamErr = fmt.Errorf("%s", payload.Error)
			return streamErr
		default:
			return nil
		}
	})
	if streamErr != nil {
		return streamErr
	}
	return parseErr
}
