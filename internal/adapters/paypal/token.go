package paypal

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"

	"github.com/shopstack/shopstack-paypal/config"
	"github.com/shopstack/shopstack-paypal/internal/core/domain"
)

// tokenExpirySafetyMargin is subtracted from expires_in so a token is
// never used right at its expiry instant mid-flight.
const tokenExpirySafetyMargin = 60 * time.Second

// TokenCache caches the PayPal OAuth bearer token and refreshes it when
// missing or about to expire. Concurrent callers hitting an expired window
// are coalesced: exactly one credential exchange runs and every caller
// receives its result (or its failure).
type TokenCache struct {
	transport *Transport
	clientID  string
	secret    string
	now       func() time.Time

	mu     sync.Mutex
	cached domain.AccessToken
	group  singleflight.Group
}

// NewTokenCache creates a token cache over the shared PayPal transport.
func NewTokenCache(transport *Transport, cfg config.PayPalConfig) *TokenCache {
	return &TokenCache{
		transport: transport,
		clientID:  cfg.ClientID,
		secret:    cfg.Secret,
		now:       time.Now,
	}
}

// Token returns a currently valid bearer token, refreshing if needed.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.cached.ValidAt(c.now()) {
		value := c.cached.Value
		c.mu.Unlock()
		return value, nil
	}
	c.mu.Unlock()

	value, err, _ := c.group.Do("paypal-token", func() (interface{}, error) {
		// A caller queued behind the exchange may arrive after the cache
		// was already refreshed; check again before going to the network.
		c.mu.Lock()
		if c.cached.ValidAt(c.now()) {
			value := c.cached.Value
			c.mu.Unlock()
			return value, nil
		}
		c.mu.Unlock()

		token, err := c.exchange(ctx)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.cached = token
		c.mu.Unlock()

		log.Printf("Obtained new PayPal access token, expires at %s", token.ExpiresAt.Format(time.RFC3339))
		return token.Value, nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

// tokenResponse is the /v1/oauth2/token response body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// exchange performs the client-credentials exchange against the token
// endpoint. Nothing is cached on failure.
func (c *TokenCache) exchange(ctx context.Context) (domain.AccessToken, error) {
	resp, err := c.transport.do("token exchange", func() (*resty.Response, error) {
		return c.transport.request().
			SetContext(ctx).
			SetBasicAuth(c.clientID, c.secret).
			SetFormData(map[string]string{"grant_type": "client_credentials"}).
			Post(c.transport.url("/v1/oauth2/token"))
	})
	if err != nil {
		return domain.AccessToken{}, domain.NewServiceError(domain.ErrCredentialExchange,
			err.Error(), "TOKEN_EXCHANGE_ERROR")
	}

	if !resp.IsSuccess() {
		log.Printf("PayPal token endpoint returned status %d: %s", resp.StatusCode(), resp.String())
		return domain.AccessToken{}, domain.NewServiceError(domain.ErrCredentialExchange,
			"token endpoint returned status "+resp.Status(), "TOKEN_EXCHANGE_ERROR")
	}

	var body tokenResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return domain.AccessToken{}, domain.NewServiceError(domain.ErrCredentialExchange,
			"malformed token response", "TOKEN_EXCHANGE_ERROR")
	}
	if body.AccessToken == "" || body.ExpiresIn <= 0 {
		return domain.AccessToken{}, domain.NewServiceError(domain.ErrCredentialExchange,
			"access_token or expires_in missing in response", "TOKEN_EXCHANGE_ERROR")
	}

	return domain.AccessToken{
		Value:     body.AccessToken,
		ExpiresAt: c.now().Add(time.Duration(body.ExpiresIn)*time.Second - tokenExpirySafetyMargin),
	}, nil
}
