package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/scankeeper/internal/client/models"
	"github.com/dmitrijs2005/scankeeper/internal/common"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 4 << 10

type errorBody struct {
	Message string `json:"message"`
}

// HTTPClient talks to a remote store over HTTP+JSON:
//
//	GET    /codigos       -> 200 [{id, data, type, client_id?}]
//	POST   /codigos       -> 201 {id, data, type} | 4xx {message}
//	DELETE /codigos/{id}  -> 204 | 404
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPClient builds a client for baseURL. Every request is bounded by
// timeout in addition to any deadline on the caller's context.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return NewHTTPClientWith(&http.Client{Timeout: timeout}, baseURL)
}

func NewHTTPClientWith(httpClient *http.Client, baseURL string) *HTTPClient {
	return &HTTPClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

func (c *HTTPClient) List(ctx context.Context) ([]models.RemoteRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, common.CodesPath, nil, nil)
	if err != nil {
		return nil, networkError("list", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, networkError("list", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var out []models.RemoteRecord
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, networkError("list", fmt.Errorf("decode response: %w", err))
	}
	if out == nil {
		out = []models.RemoteRecord{}
	}
	return out, nil
}

func (c *HTTPClient) Create(ctx context.Context, req CreateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode create request: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if req.ClientID != "" {
		headers[common.IdempotencyKeyHeader] = req.ClientID
	}

	resp, err := c.do(ctx, http.MethodPost, common.CodesPath, bytes.NewReader(body), headers)
	if err != nil {
		return "", networkError("create", err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		var rec models.RemoteRecord
		if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
			return "", networkError("create", fmt.Errorf("decode response: %w", err))
		}
		if rec.ID == "" {
			return "", networkError("create", errors.New("response without id"))
		}
		return rec.ID, nil
	case isPermanent(resp.StatusCode):
		return "", &RejectedError{Status: resp.StatusCode, Message: readMessage(resp.Body)}
	default:
		return "", networkError("create", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readMessage(resp.Body)))
	}
}

func (c *HTTPClient) Delete(ctx context.Context, remoteID string) error {
	resp, err := c.do(ctx, http.MethodDelete, common.CodesPath+"/"+url.PathEscape(remoteID), nil, nil)
	if err != nil {
		return networkError("delete", err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK, http.StatusNotFound:
		return nil
	default:
		return networkError("delete", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

// Ping checks the health endpoint.
func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, common.HealthPath, nil, nil)
	if err != nil {
		return networkError("ping", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return networkError("ping", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.httpClient.Do(req)
}

// isPermanent: client errors other than timeout and throttling.
func isPermanent(status int) bool {
	if status < 400 || status >= 500 {
		return false
	}
	return status != http.StatusRequestTimeout && status != http.StatusTooManyRequests
}

func readMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(b) == 0 {
		return ""
	}
	var eb errorBody
	if json.Unmarshal(b, &eb) == nil && eb.Message != "" {
		return eb.Message
	}
	return strings.TrimSpace(string(b))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
