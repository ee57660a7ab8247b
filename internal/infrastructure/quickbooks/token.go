package quickbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/commandx/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// refreshWindow is how close to expiry a token is refreshed
const refreshWindow = 5 * time.Minute

type tokenState struct {
	access    string
	refresh   string
	expiresAt time.Time
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// accessToken returns a token valid for at least refreshWindow. A token
// with unknown expiry is refreshed on first use when a refresh token exists.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token.access == "" && c.token.refresh == "" {
		return "", integration.ErrNotConnected
	}
	if c.token.refresh == "" || (c.token.access != "" && c.token.expiresAt.Sub(c.now()) >= refreshWindow) {
		return c.token.access, nil
	}

	tok, err := c.refreshToken(ctx, c.token.refresh)
	if err != nil {
		return "", err
	}
	c.token.access = tok.AccessToken
	if tok.RefreshToken != "" {
		c.token.refresh = tok.RefreshToken
	}
	c.token.expiresAt = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.logger.Info("QuickBooks token refreshed", zap.Time("expires_at", c.token.expiresAt))
	return c.token.access, nil
}

func (c *Client) refreshToken(ctx context.Context, refresh string) (*tokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordCall(ctx, "refresh_token", 0, start)
		return nil, fmt.Errorf("%w: token refresh failed: %v", integration.ErrNotConnected, err)
	}
	defer resp.Body.Close()
	c.recordCall(ctx, "refresh_token", resp.StatusCode, start)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: token refresh failed: %v", integration.ErrNotConnected, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("QuickBooks token refresh rejected", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: token refresh failed with status %d", integration.ErrNotConnected, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("%w: token response: %v", integration.ErrInvalidResponse, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response has no access_token", integration.ErrInvalidResponse)
	}
	return &tok, nil
}
