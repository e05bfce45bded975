package downstream

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

	"github.com/baechuer/storefront-bff/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTimeout     = errors.New("downstream_timeout")
	ErrUnavailable = errors.New("downstream_unavailable")
)

type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream error [%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// decodeError understands both the storefront body {"success":false,"message":...}
// and the platform envelope {"error":{"code","message"}}.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var apiErr domain.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Code != "" {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Code:       apiErr.Error.Code,
			Message:    apiErr.Error.Message,
		}
	}

	var sfErr domain.StorefrontError
	if err := json.Unmarshal(body, &sfErr); err == nil && sfErr.Message != "" {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Code:       codeForStatus(resp.StatusCode),
			Message:    sfErr.Message,
		}
	}

	return &StatusError{
		StatusCode: resp.StatusCode,
		Code:       "downstream_error",
		Message:    fmt.Sprintf("unexpected status: %d", resp.StatusCode),
	}
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "invalid_request"
	case status == http.StatusNotFound:
		return "resource_not_found"
	case status >= 500:
		return "upstream_error"
	default:
		return "downstream_error"
	}
}

// AccountClient calls the storefront account API.
type AccountClient struct {
	BaseURL string
	client  *Client
}

func NewAccountClient(baseURL string, cfg ClientConfig) *AccountClient {
	return &AccountClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  NewClient(cfg),
	}
}

// ResetPassword submits the new password for token. The token goes into the
// path segment as-is apart from escaping.
func (c *AccountClient) ResetPassword(ctx context.Context, token string, payload domain.ResetPayload) (*domain.ResetResult, error) {
	u := fmt.Sprintf("%s/api/v1/password/reset/%s", c.BaseURL, url.PathEscape(token))

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reset payload: %w", err)
	}

	resp, cancel, err := c.client.DoWithBody(ctx, http.MethodPut, u, bytes.NewReader(jsonBody), map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	})
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	var result domain.ResetResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode reset response: %w", err)
	}
	if !result.Success {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Code:       "reset_rejected",
			Message:    "Password reset was not accepted",
		}
	}
	result.UserID = subjectFromToken(result.Token)

	return &result, nil
}

// Ping checks that the account API answers at all; any HTTP status counts.
func (c *AccountClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, cancel, err := c.client.Do(ctx, req)
	if err != nil {
		return err
	}
	defer cancel()
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &StatusError{StatusCode: resp.StatusCode, Code: "upstream_error", Message: "account service unhealthy"}
	}
	return nil
}

// subjectFromToken reads the user id from the session token the account API
// returns. The BFF never trusts this token; the id is for logs only.
func subjectFromToken(raw string) string {
	if raw == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return ""
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	sub, _ := claims.GetSubject()
	return sub
}
