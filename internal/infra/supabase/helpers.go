package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ============================================================
// HTTP helpers for POST, PATCH, DELETE and RPC
// ============================================================

// errDuplicate is returned by doPost when PostgREST reports a unique violation.
type errDuplicate struct{ body string }

func (e *errDuplicate) Error() string { return "duplicate row: " + e.body }

func (c *Client) doPost(ctx context.Context, table string, data any) ([]byte, error) {
	return c.doWrite(ctx, http.MethodPost, table, data, "return=representation")
}

// doPatch returns the updated rows so callers can detect a missed filter.
func (c *Client) doPatch(ctx context.Context, path string, data any) ([]byte, error) {
	return c.doWrite(ctx, http.MethodPatch, path, data, "return=representation")
}

// doDelete returns the deleted rows.
func (c *Client) doDelete(ctx context.Context, path string) ([]byte, error) {
	return c.doWrite(ctx, http.MethodDelete, path, nil, "return=representation")
}

// doRPC calls a Postgres function exposed at /rest/v1/rpc/{fn}.
func (c *Client) doRPC(ctx context.Context, fn string, args any) ([]byte, error) {
	return c.doWrite(ctx, http.MethodPost, "rpc/"+fn, args, "")
}

func (c *Client) doWrite(ctx context.Context, method, path string, data any, prefer string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var reader *bytes.Reader
	if data != nil {
		jsonBody, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(jsonBody)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, prefer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: write request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusConflict {
		return nil, &errDuplicate{body: string(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: write non-2xx",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, fmt.Errorf("supabase %s %s returned %d: %s", method, path, resp.StatusCode, string(body))
	}

	c.logger.Debug("supabase: write OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeRows unmarshals a PostgREST array response; nil bodies decode to an empty slice.
func decodeRows[T any](body []byte, what string) ([]T, error) {
	rows := make([]T, 0)
	if len(body) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	return rows, nil
}
