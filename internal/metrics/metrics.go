package metrics

import "time"

// Intake outcome labels for RecordToken.
const (
	TokenSniped    = "sniped"
	TokenSkipped   = "skipped"
	TokenBuyFailed = "buy_failed"
)

// Sell stage labels for RecordSell.
const (
	StageFirst = "first"
	StageFinal = "final"
)

// RecordEventExtracted counts one extracted token creation event.
func (c *Collector) RecordEventExtracted() {
	eventsExtracted.Inc()
}

// RecordToken counts one intake outcome.
func (c *Collector) RecordToken(result string) {
	tokensProcessed.WithLabelValues(result).Inc()
}

// RecordSell counts one sell attempt for a profit-target stage.
func (c *Collector) RecordSell(stage string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	sellsExecuted.WithLabelValues(stage, result).Inc()
}

// RecordReconnect counts one subscription reconnect.
func (c *Collector) RecordReconnect() {
	wsReconnects.Inc()
}

// SetOpenPositions updates the open position gauge.
func (c *Collector) SetOpenPositions(n int) {
	openPositions.Set(float64(n))
}

// RecordSweep observes the duration of one poll sweep.
func (c *Collector) RecordSweep(d time.Duration) {
	sweepDuration.Observe(d.Seconds())
}

// RecordVenueRequest observes one trade venue call.
func (c *Collector) RecordVenueRequest(op string, d time.Duration) {
	venueLatency.WithLabelValues(op).Observe(d.Seconds())
}
