// internal/common/auth/identity.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"welfare-workers/internal/common/errors"
)

// Verifier asserts that a worker input carries a usable caller identity.
// Identity issuance itself lives in the external provider; workers only need
// "who is acting" plus an optional liveness check against Keycloak.
type Verifier struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	introspect   bool
	httpClient   *http.Client
}

// TokenInfo holds the subset of Keycloak's introspection response we use.
type TokenInfo struct {
	Active   bool   `json:"active"`
	Subject  string `json:"sub"`
	Username string `json:"preferred_username"`
}

func NewVerifier(baseURL, realm, clientID, clientSecret string, introspect bool) *Verifier {
	return &Verifier{
		baseURL:      baseURL,
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		introspect:   introspect,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
	}
}

// RequireCaller rejects blank caller ids before any domain logic runs.
func RequireCaller(callerID string) error {
	if strings.TrimSpace(callerID) == "" {
		return errors.NewUnauthorizedError("callerId is required")
	}
	return nil
}

// VerifyCaller checks the caller id and, when introspection is enabled and a
// session token was supplied, confirms the session is still active.
func (v *Verifier) VerifyCaller(ctx context.Context, callerID, sessionToken string) error {
	if err := RequireCaller(callerID); err != nil {
		return err
	}
	if v == nil || !v.introspect || sessionToken == "" {
		return nil
	}

	info, err := v.introspectToken(ctx, sessionToken)
	if err != nil {
		// The provider being unreachable is not the caller's fault; treat the
		// identity as unverified rather than failing the domain operation.
		return errors.NewUnauthorizedError(fmt.Sprintf("session introspection failed: %v", err))
	}
	if !info.Active {
		return errors.NewUnauthorizedError("session is no longer active")
	}
	return nil
}

func (v *Verifier) introspectToken(ctx context.Context, token string) (*TokenInfo, error) {
	introspectURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", v.baseURL, v.realm)

	data := url.Values{}
	data.Set("token", token)
	data.Set("client_id", v.clientID)
	data.Set("client_secret", v.clientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", introspectURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create introspect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute introspect request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("keycloak introspection failed with status %d", resp.StatusCode)
	}

	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode introspect response: %w", err)
	}

	return &info, nil
}
