package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// AuthClient verifies bearer tokens against the auth service's profile
// endpoint. The cart service only consumes the resulting user id.
type AuthClient struct {
	baseURL string
	httpc   *http.Client
}

func NewAuthClient(baseURL string, timeout time.Duration) *AuthClient {
	return &AuthClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type profileResponse struct {
	ID string `json:"id"`
}

func (a *AuthClient) Verify(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/me", nil)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth verify: status %d", resp.StatusCode)
	}

	var profile profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("auth decode: %w", err)
	}
	if profile.ID == "" {
		return "", fmt.Errorf("auth verify: empty user id")
	}
	return profile.ID, nil
}
