package metrics

import "net/http"

// NoopMetrics discards everything. Used when METRICS_ENABLED is off.
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordPasscodeIssued(success bool)         {}
func (n *NoopMetrics) RecordLogin(result string)                 {}
func (n *NoopMetrics) RecordGuardDecision(result string)         {}
func (n *NoopMetrics) RecordNotification(delivered, dropped int) {}
func (n *NoopMetrics) WebSocketOpened()                          {}
func (n *NoopMetrics) WebSocketClosed()                          {}

func (n *NoopMetrics) HTTPMiddleware(next http.Handler) http.Handler { return next }
