package metrics

import "net/http"

// Recorder is implemented by Metrics and NoopMetrics.
type Recorder interface {
	RecordPasscodeIssued(success bool)
	RecordLogin(result string)
	RecordGuardDecision(result string)
	RecordNotification(delivered, dropped int)
	WebSocketOpened()
	WebSocketClosed()
	HTTPMiddleware(next http.Handler) http.Handler
}

// Login and guard results.
const (
	LoginSuccess      = "success"
	LoginUnauthorized = "unauthorized"
	LoginError        = "error"
	GuardAllowed      = "allowed"
	GuardUnauthorized = "unauthorized"
	GuardForbidden    = "forbidden"
)
