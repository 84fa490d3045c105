package sender

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/drillwire/drillwire/internal/services/distributor/render"
)

func TestHTTPGatewaySend(t *testing.T) {
	var got render.OutboundSMS
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Basic key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gateway, err := NewHTTPGateway(srv.URL, "key", 100)
	if err != nil {
		t.Fatalf("NewHTTPGateway: %v", err)
	}
	sms := render.OutboundSMS{To: "+15551230000", Body: "hi", MediaURL: "https://cdn.example/x.gif"}
	if err := gateway.Send(context.Background(), sms); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got != sms {
		t.Errorf("gateway received %+v, want %+v", got, sms)
	}
}

func TestHTTPGatewaySendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gateway, err := NewHTTPGateway(srv.URL, "", 100)
	if err != nil {
		t.Fatalf("NewHTTPGateway: %v", err)
	}
	if err := gateway.Send(context.Background(), render.OutboundSMS{To: "+15551230000", Body: "hi"}); err == nil {
		t.Error("expected error for 503 response")
	}
}

func TestHTTPGatewaySendCancelled(t *testing.T) {
	gateway, err := NewHTTPGateway("http://localhost:0", "", 0.001)
	if err != nil {
		t.Fatalf("NewHTTPGateway: %v", err)
	}
	// Exhaust the single burst token, then cancel while waiting.
	ctx, cancel := context.WithCancel(context.Background())
	_ = gateway.limiter.Allow()
	cancel()
	if err := gateway.Send(ctx, render.OutboundSMS{To: "+15551230000", Body: "hi"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestNewHTTPGatewayRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPGateway(" ", "", 1); err == nil {
		t.Error("expected error for blank endpoint")
	}
}
