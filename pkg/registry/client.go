// Package registry looks up organizations in a nonprofit registry to
// verify that a lead really is a registered charity.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/eventscout/internal/model"
	"github.com/sells-group/eventscout/internal/resilience"
)

// Client defines the verification operation used by the pipeline.
type Client interface {
	// VerifyByName looks the organization up by name. The outcome is
	// cached by the pipeline keyed on the organization name.
	VerifyByName(ctx context.Context, orgName string) (*model.VerificationOutcome, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithFallbackURL sets a secondary registry endpoint tried when the
// primary returns no match or fails permanently.
func WithFallbackURL(u string) Option {
	return func(c *httpClient) {
		c.fallbackURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL     string
	fallbackURL string
	key         string
	http        *http.Client
}

// NewClient creates a registry client against the primary endpoint.
func NewClient(baseURL, key string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		key:     key,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type registryResponse struct {
	Organizations []struct {
		EIN  string `json:"ein"`
		Name string `json:"name"`
		City string `json:"city"`
		Stat string `json:"state"`
	} `json:"organizations"`
}

func (c *httpClient) VerifyByName(ctx context.Context, orgName string) (*model.VerificationOutcome, error) {
	outcome, err := c.lookup(ctx, c.baseURL, orgName)
	if err == nil && outcome.Verified {
		outcome.Source = model.VerificationRegistryPrimary
		return outcome, nil
	}

	if c.fallbackURL == "" {
		if err != nil {
			return nil, err
		}
		outcome.Source = model.VerificationRegistryPrimary
		return outcome, nil
	}

	if err != nil {
		zap.L().Warn("registry: primary lookup failed, trying fallback",
			zap.String("org", orgName), zap.Error(err))
	}

	fbOutcome, fbErr := c.lookup(ctx, c.fallbackURL, orgName)
	if fbErr != nil {
		if err != nil {
			return nil, eris.Wrap(err, "registry: both endpoints failed")
		}
		// Primary answered (unverified); keep that answer.
		outcome.Source = model.VerificationRegistryPrimary
		return outcome, nil
	}
	fbOutcome.Source = model.VerificationRegistryFallback
	return fbOutcome, nil
}

func (c *httpClient) lookup(ctx context.Context, base, orgName string) (*model.VerificationOutcome, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s", base, url.QueryEscape(orgName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "registry: build request")
	}
	req.Header.Set("Accept", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "registry: execute request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("registry: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var parsed registryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "registry: decode response")
	}

	if len(parsed.Organizations) == 0 {
		return &model.VerificationOutcome{Verified: false}, nil
	}

	org := parsed.Organizations[0]
	return &model.VerificationOutcome{
		Verified:   true,
		RegistryID: org.EIN,
		Details: map[string]any{
			"name":  org.Name,
			"city":  org.City,
			"state": org.Stat,
		},
	}, nil
}
