// Package registration validates opt-in codes against the account
// service that provisions drill programs.
package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/drillwire/drillwire/internal/platform/timeouts"
	"github.com/drillwire/drillwire/internal/services/dialog/domain"
)

// CodeValidationPayload is the outcome of checking one opt-in code.
type CodeValidationPayload struct {
	Valid       bool               `json:"valid"`
	IsDemo      bool               `json:"is_demo"`
	AccountInfo domain.AccountInfo `json:"account_info,omitempty"`
}

// Validator checks whether a message body is a recognized opt-in code.
type Validator interface {
	Validate(ctx context.Context, code string) CodeValidationPayload
}

// cacheSize bounds the per-process code cache. Codes are short-lived
// strings so the cache stays tiny even at the cap.
const cacheSize = 1024

// HTTPValidator validates codes against an HTTP account service.
type HTTPValidator struct {
	endpoint string
	apiKey   string
	client   *http.Client
	cache    *lru.Cache[string, CodeValidationPayload]
}

// NewHTTPValidator builds a validator for the given account service
// endpoint. The API key is sent as a basic Authorization header.
func NewHTTPValidator(endpoint, apiKey string) (*HTTPValidator, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("registration endpoint is required")
	}
	cache, err := lru.New[string, CodeValidationPayload](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create code cache: %w", err)
	}
	return &HTTPValidator{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeouts.RegistrationValidate},
		cache:    cache,
	}, nil
}

// Validate checks one code. Transport failures report the code as
// invalid without caching, so a retry after an outage can still succeed.
func (v *HTTPValidator) Validate(ctx context.Context, code string) CodeValidationPayload {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" {
		return CodeValidationPayload{}
	}
	if cached, ok := v.cache.Get(normalized); ok {
		return cached
	}

	payload, err := v.check(ctx, normalized)
	if err != nil {
		return CodeValidationPayload{}
	}
	v.cache.Add(normalized, payload)
	return payload
}

func (v *HTTPValidator) check(ctx context.Context, code string) (CodeValidationPayload, error) {
	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return CodeValidationPayload{}, fmt.Errorf("marshal validation request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return CodeValidationPayload{}, fmt.Errorf("build validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Basic "+v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return CodeValidationPayload{}, fmt.Errorf("call validation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CodeValidationPayload{}, fmt.Errorf("validation service returned %d", resp.StatusCode)
	}

	var payload CodeValidationPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return CodeValidationPayload{}, fmt.Errorf("decode validation response: %w", err)
	}
	return payload, nil
}
