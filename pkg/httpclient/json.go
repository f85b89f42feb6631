package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// JSONRequest describes a JSON call to a downstream service.
type JSONRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
	// Service names the downstream in errors.
	Service string
}

// DoJSON marshals req.Body, sends it through doer and decodes a 2xx body into
// out (which may be nil). Non-2xx answers go through ParseResponseError.
func DoJSON(ctx context.Context, doer Doer, req JSONRequest, out any) (int, error) {
	var body io.Reader = http.NoBody
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return 0, fmt.Errorf("marshal %s request: %w", req.Service, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return 0, fmt.Errorf("create %s request: %w", req.Service, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := doer.Do(ctx, httpReq)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", req.Service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, ParseResponseError(resp, req.Service)
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", req.Service, err)
	}
	return resp.StatusCode, nil
}
