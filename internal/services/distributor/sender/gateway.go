// Package sender delivers rendered messages to the SMS gateway.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/drillwire/drillwire/internal/platform/timeouts"
	"github.com/drillwire/drillwire/internal/services/distributor/render"
)

// Gateway sends one SMS.
type Gateway interface {
	Send(ctx context.Context, sms render.OutboundSMS) error
}

// defaultRate caps gateway calls per second. Carriers throttle hard
// beyond ~1 msg/s per long code.
const defaultRate = 1.0

// HTTPGateway posts messages to an HTTP SMS provider, rate limited
// across the whole process.
type HTTPGateway struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewHTTPGateway builds a gateway client. A non-positive perSecond
// falls back to the default rate.
func NewHTTPGateway(endpoint, apiKey string, perSecond float64) (*HTTPGateway, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("gateway endpoint is required")
	}
	if perSecond <= 0 {
		perSecond = defaultRate
	}
	return &HTTPGateway{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeouts.SMSGatewaySend},
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
	}, nil
}

// Send delivers one message, blocking for rate-limit headroom first.
func (g *HTTPGateway) Send(ctx context.Context, sms render.OutboundSMS) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}

	body, err := json.Marshal(sms)
	if err != nil {
		return fmt.Errorf("marshal sms: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Basic "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("call sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}
