package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
	"github.com/ScepterCode/Storemaster-sub002/internal/model"
)

// TokenHeader carries the client-observed concurrency token on updates.
const TokenHeader = "X-Sync-Token"

// HTTPGateway talks to the remote store over its JSON API.
type HTTPGateway struct {
	BaseURL     string
	HTTPClient  *http.Client
	Logger      *zap.Logger
	AccessToken string
}

// errorResponse is the remote store's error body shape.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPGateway creates a gateway client for the remote store.
func NewHTTPGateway(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPGateway {
	return &HTTPGateway{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

func (g *HTTPGateway) Insert(ctx context.Context, entityType model.EntityType, payload json.RawMessage) error {
	path := fmt.Sprintf("/api/%s", entityType)
	return g.do(ctx, http.MethodPost, path, payload, nil)
}

func (g *HTTPGateway) Update(ctx context.Context, entityType model.EntityType, entityID string, payload json.RawMessage, token time.Time) error {
	path := fmt.Sprintf("/api/%s/%s", entityType, entityID)
	headers := map[string]string{TokenHeader: token.UTC().Format(time.RFC3339Nano)}
	return g.do(ctx, http.MethodPut, path, payload, headers)
}

func (g *HTTPGateway) Delete(ctx context.Context, entityType model.EntityType, entityID string) error {
	path := fmt.Sprintf("/api/%s/%s", entityType, entityID)
	return g.do(ctx, http.MethodDelete, path, nil, nil)
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body []byte, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, reader)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "failed to build gateway request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.AccessToken)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		// Network errors and client timeouts are retryable by definition.
		g.Logger.Warn("Gateway request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return apperr.Transient("gateway unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 400 {
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	message := string(respBody)
	var errResp errorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
	}

	kind := classifyStatus(resp.StatusCode)
	g.Logger.Warn("Gateway request rejected",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("kind", string(kind)))
	return apperr.Newf(kind, "gateway returned %d: %s", resp.StatusCode, message)
}

// classifyStatus maps an HTTP status to an error kind. The kind is set
// here, at the adapter boundary, and nowhere else.
func classifyStatus(status int) apperr.Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.KindValidation
	case http.StatusConflict, http.StatusPreconditionFailed:
		return apperr.KindConflict
	default:
		return apperr.KindTransient
	}
}
