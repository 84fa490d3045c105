// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// RegistrationValidate caps one registration-code validation call to the
// upstream account service. Validation failures degrade to "invalid code",
// so a short bound keeps inbound SMS processing responsive.
const RegistrationValidate = 5 * time.Second

// SMSGatewaySend caps one outbound message delivery call to the SMS gateway.
const SMSGatewaySend = 10 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long a server waits for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second
