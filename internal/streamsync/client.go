// Package streamsync pushes local user identities into the Stream Chat
// directory that backs the chat and video features. All calls are
// best-effort; callers log failures and move on.
package streamsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Client talks to the Stream Chat server-side REST API.
type Client struct {
	apiKey  string
	secret  []byte
	baseURL string
	http    *http.Client
}

// New creates a new directory sync client.
func New(apiKey, apiSecret, baseURL string) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = "https://chat.stream-io-api.com"
	}
	return &Client{
		apiKey:  apiKey,
		secret:  []byte(apiSecret),
		baseURL: base,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Upsert creates or updates a user in the chat directory.
func (c *Client) Upsert(ctx context.Context, id, name, imageURL string) error {
	payload := map[string]any{
		"users": map[string]any{
			id: map[string]any{
				"id":    id,
				"name":  name,
				"image": imageURL,
			},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	token, err := c.serverToken()
	if err != nil {
		return fmt.Errorf("signing server token: %w", err)
	}

	endpoint := c.baseURL + "/users?api_key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	req.Header.Set("stream-auth-type", "jwt")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("directory upsert failed: %s", resp.Status)
	}
	return nil
}

// serverToken mints the server-to-server auth token Stream expects.
func (c *Client) serverToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"server": true})
	return token.SignedString(c.secret)
}
